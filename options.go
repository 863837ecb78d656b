package godm

import (
	"github.com/vinicius-lino-figueiredo/godm/adapter/tracker"
	"github.com/vinicius-lino-figueiredo/godm/config"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"go.uber.org/zap"
)

// Option configures a [Collection] through the functional options pattern.
type Option func(*collectionSettings)

type collectionSettings struct {
	dec      domain.Decoder
	log      *zap.Logger
	tracking []tracker.Option
}

// WithDecoder sets the decoder used to turn documents into records.
func WithDecoder(d domain.Decoder) Option {
	return func(s *collectionSettings) {
		s.dec = d
	}
}

// WithLogger sets the logger used by the collection and its queries.
func WithLogger(l *zap.Logger) Option {
	return func(s *collectionSettings) {
		s.log = l
	}
}

// WithTracking sets the options of the state of every record loaded or
// stored by the collection.
func WithTracking(options ...tracker.Option) Option {
	return func(s *collectionSettings) {
		s.tracking = append(s.tracking, options...)
	}
}

// WithSettings applies the state management flags in s.
func WithSettings(s config.Settings) Option {
	return WithTracking(
		tracker.SavePrevious(s.SavePrevious),
		tracker.ReplaceObjects(s.ReplaceObjects),
	)
}
