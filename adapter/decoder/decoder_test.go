package decoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type Status string

type Address struct {
	Street string `godm:"street"`
}

type Base struct {
	ID string `godm:"_id"`
}

type User struct {
	Base
	Name    string    `godm:"name"`
	Age     int       `godm:"age"`
	Status  Status    `godm:"status"`
	Address Address   `godm:"address"`
	Tags    []string  `godm:"tags"`
	Born    time.Time `godm:"born"`
}

type DecoderTestSuite struct {
	suite.Suite
	dec domain.Decoder
}

func (s *DecoderTestSuite) SetupTest() {
	s.dec = NewDecoder()
}

// Documents are decoded into tagged structs, including nested documents and
// embedded structs.
func (s *DecoderTestSuite) TestDecodeStruct() {
	born := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	src := data.M{
		"_id":     "u1",
		"name":    "Ann",
		"age":     float64(33),
		"status":  "active",
		"address": data.M{"street": "Main"},
		"tags":    []any{"a", "b"},
		"born":    born,
	}

	var u User
	s.NoError(s.dec.Decode(src, &u))
	s.Equal(User{
		Base:    Base{ID: "u1"},
		Name:    "Ann",
		Age:     33,
		Status:  "active",
		Address: Address{Street: "Main"},
		Tags:    []string{"a", "b"},
		Born:    born,
	}, u)
}

// Encoding and decoding a record gives back the same record.
func (s *DecoderTestSuite) TestRoundTrip() {
	u := User{Base: Base{ID: "x"}, Name: "Bob", Tags: []string{"t"}}
	doc, err := data.NewDocument(u)
	s.NoError(err)

	var res User
	s.NoError(s.dec.Decode(doc, &res))
	s.Equal(u, res)
}

func (s *DecoderTestSuite) TestDecodeIntoMap() {
	var m map[string]any
	s.NoError(s.dec.Decode(data.M{"a": data.M{"b": 1}}, &m))
	s.Equal(map[string]any{"a": map[string]any{"b": 1}}, m)

	var doc data.M
	s.NoError(s.dec.Decode(data.M{"a": 1}, &doc))
	s.Equal(data.M{"a": 1}, doc)
}

func (s *DecoderTestSuite) TestInvalidTargets() {
	s.ErrorIs(s.dec.Decode(data.M{}, nil), domain.ErrTargetNil)

	var u User
	s.ErrorIs(s.dec.Decode(data.M{}, u), domain.ErrNonPointer)

	var p *User
	s.ErrorIs(s.dec.Decode(data.M{}, p), domain.ErrTargetNil)
}

func (s *DecoderTestSuite) TestDecodeError() {
	var u User
	err := s.dec.Decode(data.M{"age": "not a number"}, &u)
	s.ErrorAs(err, new(domain.ErrDecode))
}

// Can read timestamps stored as RFC 3339 strings.
func (s *DecoderTestSuite) TestDecodeTimeString() {
	var u User
	s.NoError(s.dec.Decode(data.M{"born": "1990-05-01T10:30:00Z"}, &u))
	s.Equal(time.Date(1990, 5, 1, 10, 30, 0, 0, time.UTC), u.Born)

	err := s.dec.Decode(data.M{"born": "yesterday"}, &u)
	s.ErrorAs(err, new(domain.ErrDecode))
}

func TestDecoderTestSuite(t *testing.T) {
	suite.Run(t, new(DecoderTestSuite))
}
