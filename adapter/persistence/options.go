package persistence

import (
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"go.uber.org/zap"
)

// WithCorruptAlertThreshold sets the share of corrupt lines tolerated by
// [Persistence.Read].
func WithCorruptAlertThreshold(c float64) Option {
	return func(po *Persistence) {
		po.corruptAlertThreshold = c
	}
}

// WithComparer sets the comparer used to order loaded documents by id.
func WithComparer(c domain.Comparer) Option {
	return func(po *Persistence) {
		po.comparer = c
	}
}

// WithLogger sets the logger warned about corrupt lines.
func WithLogger(l *zap.Logger) Option {
	return func(po *Persistence) {
		po.log = l
	}
}

// Option configures persistence behavior through the functional
// options pattern.
type Option func(*Persistence)
