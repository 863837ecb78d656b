// Package idgenerator contains the default [domain.IDGenerator]
// implementation. Ids are UUID strings, random (version 4) by default.
package idgenerator

import (
	"crypto/rand"
	"io"

	"github.com/google/uuid"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// IDGenerator implements [domain.IDGenerator].
type IDGenerator struct {
	reader      io.Reader
	timeOrdered bool
}

// NewIDGenerator returns an IDGenerator reading from crypto/rand.
func NewIDGenerator(options ...Option) domain.IDGenerator {
	g := &IDGenerator{reader: rand.Reader}
	for _, option := range options {
		option(g)
	}
	return g
}

// GenerateID implements [domain.IDGenerator].
func (g *IDGenerator) GenerateID() (string, error) {
	newUUID := uuid.NewRandomFromReader
	if g.timeOrdered {
		newUUID = uuid.NewV7FromReader
	}
	id, err := newUUID(g.reader)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
