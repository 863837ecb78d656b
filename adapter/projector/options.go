package projector

import "github.com/vinicius-lino-figueiredo/godm/domain"

// WithFieldNavigator sets the [domain.FieldNavigator] used to split projected
// field names.
func WithFieldNavigator(fn domain.FieldNavigator) Option {
	return func(p *Projector) {
		p.fn = fn
	}
}

// Option configures projector behavior through the functional options pattern.
type Option func(*Projector)
