package query

import (
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"go.uber.org/zap"
)

// WithDecoder sets the decoder used to turn result documents into records.
func WithDecoder(d domain.Decoder) Option {
	return func(s *settings) {
		s.dec = d
	}
}

// WithLogger sets the logger used to report compiled queries.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		s.log = l
	}
}

// WithSingle makes terminal operations act on at most one document: lists
// hold one record, and updates and deletes affect one document.
func WithSingle(single bool) Option {
	return func(s *settings) {
		s.single = single
	}
}

// WithLoadHook registers a function called with a pointer to every record
// read by the query, before it is returned. An error stops the read.
func WithLoadHook(hook func(record any) error) Option {
	return func(s *settings) {
		s.hooks = append(s.hooks, hook)
	}
}

// Option configures query behavior through the functional options pattern.
type Option func(*settings)

type settings struct {
	dec    domain.Decoder
	log    *zap.Logger
	single bool
	hooks  []func(any) error
}
