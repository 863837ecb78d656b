package idgenerator

import "io"

// Option configures an [IDGenerator].
type Option func(*IDGenerator)

// WithReader sets the source of random bytes. Defaults to crypto/rand.
func WithReader(r io.Reader) Option {
	return func(g *IDGenerator) {
		if r != nil {
			g.reader = r
		}
	}
}

// WithTimeOrdered makes the generator return version 7 UUIDs, which sort in
// creation order, so stores ordered by _id keep insertion order.
func WithTimeOrdered(ordered bool) Option {
	return func(g *IDGenerator) {
		g.timeOrdered = ordered
	}
}
