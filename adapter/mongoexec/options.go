package mongoexec

import (
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"go.uber.org/zap"
)

// Option configures an [Executor].
type Option func(*Executor)

// WithLogger sets the logger used for debug messages.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// WithDecoder sets the decoder used by the returned cursors.
func WithDecoder(d domain.Decoder) Option {
	return func(e *Executor) {
		if d != nil {
			e.dec = d
		}
	}
}

// WithIDGenerator sets the generator of the ids given to inserted and
// upserted documents that have none.
func WithIDGenerator(g domain.IDGenerator) Option {
	return func(e *Executor) {
		if g != nil {
			e.idGen = g
		}
	}
}
