package memstore

import (
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"go.uber.org/zap"
)

// WithLogger sets the logger. Calls are logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// WithComparer sets the comparer used to order ids and sort results.
func WithComparer(c domain.Comparer) Option {
	return func(s *Store) {
		s.comparer = c
	}
}

// WithMatcher sets the matcher evaluating filters.
func WithMatcher(m domain.Matcher) Option {
	return func(s *Store) {
		s.matcher = m
	}
}

// WithModifier sets the modifier applying updates.
func WithModifier(m domain.Modifier) Option {
	return func(s *Store) {
		s.modifier = m
	}
}

// WithProjector sets the projector shaping results.
func WithProjector(p domain.Projector) Option {
	return func(s *Store) {
		s.projector = p
	}
}

// WithIDGenerator sets the generator of ids for documents inserted without
// one.
func WithIDGenerator(g domain.IDGenerator) Option {
	return func(s *Store) {
		s.idGen = g
	}
}

// WithTimeGetter sets the clock used by $currentDate when the default
// modifier is used.
func WithTimeGetter(t domain.TimeGetter) Option {
	return func(s *Store) {
		s.timeGetter = t
	}
}

// WithDecoder sets the decoder used by returned cursors.
func WithDecoder(d domain.Decoder) Option {
	return func(s *Store) {
		s.dec = d
	}
}

// WithCorruptAlertThreshold sets the share of corrupt lines tolerated by
// [Store.Load].
func WithCorruptAlertThreshold(c float64) Option {
	return func(s *Store) {
		s.corruptAlertThreshold = c
	}
}

// Option configures the store through the functional options pattern.
type Option func(*Store)
