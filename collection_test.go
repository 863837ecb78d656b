package godm_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/godm"
	"github.com/vinicius-lino-figueiredo/godm/adapter/memstore"
	"github.com/vinicius-lino-figueiredo/godm/adapter/tracker"
	"github.com/vinicius-lino-figueiredo/godm/config"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type M = godm.M

type Book struct {
	godm.State
	ID    string   `godm:"_id,omitempty"`
	Title string   `godm:"title"`
	Pages int      `godm:"pages"`
	Tags  []string `godm:"tags,omitempty"`
}

type seqIDs struct{ n int }

// GenerateID implements [domain.IDGenerator].
func (s *seqIDs) GenerateID() (string, error) {
	s.n++
	return fmt.Sprintf("b%d", s.n), nil
}

type executorMock struct {
	mock.Mock
	domain.Executor
}

// Update implements [domain.Executor].
func (e *executorMock) Update(ctx context.Context, filter domain.Document, upd domain.Document, opts ...domain.UpdateOption) (domain.UpdateResult, error) {
	call := e.Called(ctx, filter, upd)
	return call.Get(0).(domain.UpdateResult), call.Error(1)
}

type CollectionTestSuite struct {
	suite.Suite
	ctx   context.Context
	store *memstore.Store
	books *godm.Collection[Book, *Book]
}

func (s *CollectionTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memstore.NewStore(memstore.WithIDGenerator(&seqIDs{}))
	s.books = godm.NewCollection[Book](s.store)
	s.Require().NoError(s.books.Insert(s.ctx,
		&Book{Title: "Dune", Pages: 412, Tags: []string{"sf"}},
		&Book{Title: "Emma", Pages: 474},
	))
}

func (s *CollectionTestSuite) changed(b *Book) bool {
	s.T().Helper()
	changed, err := b.IsChanged(b)
	s.Require().NoError(err)
	return changed
}

// Inserted records get the generated ids and a saved state.
func (s *CollectionTestSuite) TestInsert() {
	b := &Book{Title: "Ulysses", Pages: 730}
	s.NoError(s.books.Insert(s.ctx, b))
	s.Equal("b3", b.ID)
	s.False(s.changed(b))

	err := s.books.Insert(s.ctx, &Book{ID: "b1"})
	s.ErrorIs(err, godm.ErrConstraintViolated)

	s.ErrorIs(s.books.Insert(s.ctx, nil), godm.ErrTargetNil)
}

// Loaded records are tracked.
func (s *CollectionTestSuite) TestFind() {
	books, err := s.books.Find(godm.F("pages").Gt(400)).Sort("-pages").ToList(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(books, 2)
	s.Equal("Emma", books[0].Title)
	s.Equal("Dune", books[1].Title)
	s.Equal([]string{"sf"}, books[1].Tags)
	for n := range books {
		s.False(s.changed(&books[n]))
	}
}

// Can find a single record or nothing.
func (s *CollectionTestSuite) TestFindOne() {
	b, found, err := s.books.FindOne(s.ctx, godm.F("title").Eq("Emma"))
	s.NoError(err)
	s.True(found)
	s.Equal("b2", b.ID)

	_, found, err = s.books.FindOne(s.ctx, godm.F("title").Eq("Ulysses"))
	s.NoError(err)
	s.False(found)
}

// Can get a record by id.
func (s *CollectionTestSuite) TestGet() {
	b, err := s.books.Get(s.ctx, "b1")
	s.NoError(err)
	s.Equal("Dune", b.Title)
	s.False(s.changed(&b))

	_, err = s.books.Get(s.ctx, "b9")
	s.ErrorIs(err, godm.ErrNotFound)
	s.True(godm.IsNotFound(err))
}

// Only changed fields are sent, and unchanged records are not sent at all.
func (s *CollectionTestSuite) TestSaveChanges() {
	b, err := s.books.Get(s.ctx, "b1")
	s.Require().NoError(err)

	saved, err := s.books.SaveChanges(s.ctx, &b)
	s.NoError(err)
	s.False(saved)

	b.Pages = 500
	saved, err = s.books.SaveChanges(s.ctx, &b)
	s.NoError(err)
	s.True(saved)
	s.False(s.changed(&b))

	stored, err := s.books.Get(s.ctx, "b1")
	s.NoError(err)
	s.Equal(500, stored.Pages)
	s.Equal("Dune", stored.Title)
}

// The executor only receives a $set of the changed fields.
func (s *CollectionTestSuite) TestSaveChangesUpdate() {
	exec := new(executorMock)
	books := godm.NewCollection[Book](exec)

	b := &Book{ID: "b1", Title: "Dune", Pages: 412}
	s.Require().NoError(b.Save(b))

	saved, err := books.SaveChanges(s.ctx, b)
	s.NoError(err)
	s.False(saved)
	exec.AssertNotCalled(s.T(), "Update", mock.Anything, mock.Anything, mock.Anything)

	b.Title = "Dune Messiah"
	exec.On("Update", s.ctx, M{"_id": "b1"}, M{"$set": M{"title": "Dune Messiah"}}).
		Return(domain.UpdateResult{Matched: 1, Modified: 1}, nil).Once()
	saved, err = books.SaveChanges(s.ctx, b)
	s.NoError(err)
	s.True(saved)

	b.Pages = 1
	exec.On("Update", s.ctx, M{"_id": "b1"}, M{"$set": M{"pages": 1}}).
		Return(domain.UpdateResult{}, nil).Once()
	_, err = books.SaveChanges(s.ctx, b)
	s.ErrorIs(err, godm.ErrNotFound)
	exec.AssertExpectations(s.T())
}

// Records that were never saved cannot have their changes saved.
func (s *CollectionTestSuite) TestSaveChangesWithoutState() {
	_, err := s.books.SaveChanges(s.ctx, &Book{ID: "b1"})
	s.ErrorIs(err, godm.ErrNoSavedState{Operation: "Changes"})
}

// Can replace the stored document.
func (s *CollectionTestSuite) TestReplace() {
	b := &Book{ID: "b2", Title: "Persuasion"}
	s.NoError(s.books.Replace(s.ctx, b))
	s.False(s.changed(b))

	stored, err := s.books.Get(s.ctx, "b2")
	s.NoError(err)
	s.Equal("Persuasion", stored.Title)
	s.Equal(0, stored.Pages)

	s.ErrorIs(s.books.Replace(s.ctx, &Book{ID: "b9"}), godm.ErrNotFound)
	s.ErrorIs(s.books.Replace(s.ctx, &Book{Title: "x"}), godm.ErrNoID)
}

// Can delete records.
func (s *CollectionTestSuite) TestDelete() {
	b, err := s.books.Get(s.ctx, "b1")
	s.Require().NoError(err)

	s.NoError(s.books.Delete(s.ctx, &b))
	s.ErrorIs(s.books.Delete(s.ctx, &b), godm.ErrNotFound)
	s.ErrorIs(s.books.Delete(s.ctx, &Book{}), godm.ErrNoID)

	n, err := s.books.Query().Count(s.ctx)
	s.NoError(err)
	s.Equal(int64(1), n)
}

// Records can be rolled back to their saved state.
func (s *CollectionTestSuite) TestRollback() {
	b, err := s.books.Get(s.ctx, "b1")
	s.Require().NoError(err)

	b.Title = "changed"
	b.Tags = nil
	s.NoError(b.Rollback(&b))
	s.Equal("Dune", b.Title)
	s.Equal([]string{"sf"}, b.Tags)
	s.False(s.changed(&b))
}

// Settings enable previous state tracking.
func (s *CollectionTestSuite) TestSettings() {
	books := godm.NewCollection[Book](s.store, godm.WithSettings(config.Settings{SavePrevious: true}))
	b, err := books.Get(s.ctx, "b2")
	s.Require().NoError(err)

	_, err = b.HasChanged()
	s.ErrorIs(err, godm.ErrNoSavedState{Operation: "HasChanged"})

	b.Pages = 10
	_, err = books.SaveChanges(s.ctx, &b)
	s.Require().NoError(err)

	changed, err := b.HasChanged()
	s.NoError(err)
	s.True(changed)
	prev, err := b.PreviousChanges()
	s.NoError(err)
	s.Equal(tracker.ChangeSet{"pages": 10}, prev)
}

func TestCollectionTestSuite(t *testing.T) {
	suite.Run(t, new(CollectionTestSuite))
}
