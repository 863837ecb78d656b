package index

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type M = data.M

type IndexTestSuite struct {
	suite.Suite
	idx *Index
}

func (s *IndexTestSuite) SetupTest() {
	s.idx = NewIndex(nil)
	s.Require().NoError(s.idx.Insert(
		M{"_id": "b", "n": 2},
		M{"_id": "a", "n": 1},
		M{"_id": "c", "n": 3},
	))
}

// Documents are returned ordered by _id.
func (s *IndexTestSuite) TestAll() {
	s.Equal(3, s.idx.Len())
	s.Equal([]domain.Document{
		M{"_id": "a", "n": 1},
		M{"_id": "b", "n": 2},
		M{"_id": "c", "n": 3},
	}, slices.Collect(s.idx.All()))
}

// Can find documents by id.
func (s *IndexTestSuite) TestGet() {
	doc, ok, err := s.idx.Get("b")
	s.NoError(err)
	s.True(ok)
	s.Equal(M{"_id": "b", "n": 2}, doc)

	doc, ok, err = s.idx.Get("z")
	s.NoError(err)
	s.False(ok)
	s.Nil(doc)
}

// Duplicated ids violate the constraint and nothing from the batch is kept.
func (s *IndexTestSuite) TestInsertDuplicate() {
	err := s.idx.Insert(M{"_id": "d"}, M{"_id": "a"})
	s.ErrorIs(err, domain.ErrConstraintViolated)
	s.Equal(3, s.idx.Len())

	_, ok, err := s.idx.Get("d")
	s.NoError(err)
	s.False(ok)
}

// Can remove and replace documents.
func (s *IndexTestSuite) TestRemoveAndReplace() {
	b, _, err := s.idx.Get("b")
	s.Require().NoError(err)
	s.NoError(s.idx.Replace(b, M{"_id": "b", "n": 20}))

	doc, _, err := s.idx.Get("b")
	s.NoError(err)
	s.Equal(M{"_id": "b", "n": 20}, doc)

	s.NoError(s.idx.Remove(doc))
	s.Equal(2, s.idx.Len())

	s.idx.Reset()
	s.Equal(0, s.idx.Len())
}

func TestIndexTestSuite(t *testing.T) {
	suite.Run(t, new(IndexTestSuite))
}
