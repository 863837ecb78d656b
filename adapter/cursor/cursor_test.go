package cursor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type M = data.M

type decoderMock struct{ mock.Mock }

// Decode implements [domain.Decoder].
func (d *decoderMock) Decode(src any, tgt any) error {
	return d.Called(src, tgt).Error(0)
}

type Item struct {
	N int `godm:"n"`
}

type CursorTestSuite struct {
	suite.Suite
	ctx  context.Context
	docs []domain.Document
}

func (s *CursorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.docs = make([]domain.Document, 20)
	for n := range s.docs {
		s.docs[n] = M{"n": n}
	}
}

func (s *CursorTestSuite) open(docs []domain.Document, options ...domain.CursorOption) domain.Cursor {
	s.T().Helper()
	cur, err := NewCursor(s.ctx, docs, options...)
	s.Require().NoError(err)
	return cur
}

// Can read every document in order.
func (s *CursorTestSuite) TestReadAll() {
	cur := s.open(s.docs)

	var got []int
	for cur.Next() {
		var it Item
		s.Require().NoError(cur.Scan(s.ctx, &it))
		got = append(got, it.N)
	}
	s.Len(got, 20)
	s.Equal(0, got[0])
	s.Equal(19, got[19])
	s.NoError(cur.Err())
	s.NoError(cur.Close())
}

// An empty cursor ends at once without errors.
func (s *CursorTestSuite) TestEmpty() {
	cur := s.open(nil)
	s.False(cur.Next())
	s.NoError(cur.Err())
	s.ErrorIs(cur.Scan(s.ctx, new(Item)), domain.ErrScanBeforeNext)
}

// Documents are pulled only when Next is called.
func (s *CursorTestSuite) TestLazy() {
	pulled := 0
	seq := func(yield func(domain.Document, error) bool) {
		for n := range 5 {
			pulled++
			if !yield(M{"n": n}, nil) {
				return
			}
		}
	}
	cur, err := NewSeqCursor(s.ctx, seq)
	s.Require().NoError(err)
	s.Zero(pulled)

	s.True(cur.Next())
	s.True(cur.Next())
	s.Equal(2, pulled)

	s.NoError(cur.Close())
	s.Equal(2, pulled)
	s.False(cur.Next())
}

// A failing sequence ends the cursor with its error.
func (s *CursorTestSuite) TestSequenceError() {
	errRead := errors.New("read failed")
	seq := func(yield func(domain.Document, error) bool) {
		if yield(M{"n": 1}, nil) {
			yield(nil, errRead)
		}
	}
	cur, err := NewSeqCursor(s.ctx, seq)
	s.Require().NoError(err)

	s.True(cur.Next())
	s.False(cur.Next())
	s.ErrorIs(cur.Err(), errRead)
	s.ErrorIs(cur.Scan(s.ctx, new(Item)), errRead)
	s.ErrorIs(cur.Close(), errRead)
}

// Scanning needs a current document.
func (s *CursorTestSuite) TestScanBeforeNext() {
	cur := s.open(s.docs)
	defer cur.Close()
	s.ErrorIs(cur.Scan(s.ctx, new(Item)), domain.ErrScanBeforeNext)
}

// Closed cursors cannot be read or closed again.
func (s *CursorTestSuite) TestClosed() {
	cur := s.open(s.docs)
	s.True(cur.Next())
	s.NoError(cur.Close())

	s.False(cur.Next())
	s.ErrorIs(cur.Err(), domain.ErrCursorClosed)
	s.ErrorIs(cur.Scan(s.ctx, new(Item)), domain.ErrCursorClosed)
	s.ErrorIs(cur.Close(), domain.ErrCursorClosed)
}

// Cursors follow the context they were opened with, and Scan follows its
// own context too.
func (s *CursorTestSuite) TestContext() {
	done, cancel := context.WithCancel(s.ctx)
	cancel()
	cur, err := NewCursor(done, s.docs)
	s.ErrorIs(err, context.Canceled)
	s.Nil(cur)

	ctx, cancel := context.WithCancel(s.ctx)
	cur, err = NewCursor(ctx, s.docs)
	s.Require().NoError(err)
	s.True(cur.Next())
	s.ErrorIs(cur.Scan(done, new(Item)), context.Canceled)
	cancel()
	s.False(cur.Next())
	s.ErrorIs(cur.Err(), context.Canceled)
}

// Can replace the decoder.
func (s *CursorTestSuite) TestDecoder() {
	dec := new(decoderMock)
	dec.On("Decode", M{"n": 1}, mock.AnythingOfType("*cursor.Item")).
		Run(func(args mock.Arguments) { args[1].(*Item).N = -1 }).
		Return(nil).Once()

	cur := s.open(s.docs[1:2], domain.WithCursorDecoder(dec))
	s.True(cur.Next())
	var it Item
	s.NoError(cur.Scan(s.ctx, &it))
	s.Equal(-1, it.N)
	s.False(cur.Next())
	dec.AssertExpectations(s.T())
}

func TestCursorTestSuite(t *testing.T) {
	suite.Run(t, new(CursorTestSuite))
}
