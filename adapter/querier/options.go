package querier

import "github.com/vinicius-lino-figueiredo/godm/domain"

// Option changes one of the components a [Querier] is built from. Components
// left unset get their default implementation.
type Option func(*Querier)

// WithMatcher sets the matcher that evaluates filters.
func WithMatcher(m domain.Matcher) Option {
	return func(q *Querier) { q.match = m }
}

// WithComparer sets the comparer used by sorts. It also orders values for the
// default matcher.
func WithComparer(c domain.Comparer) Option {
	return func(q *Querier) { q.order = c }
}

// WithFieldNavigator sets how sort keys are read from documents.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(q *Querier) { q.nav = f }
}

// WithProjector sets the projector applied to results.
func WithProjector(p domain.Projector) Option {
	return func(q *Querier) { q.project = p }
}
