package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/adapter/update"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type M = data.M

type Address struct {
	City   string `godm:"city"`
	Street string `godm:"street"`
}

type Person struct {
	State
	ID      string    `godm:"_id"`
	Name    string    `godm:"name"`
	Age     int       `godm:"age"`
	Tags    []string  `godm:"tags"`
	Address Address   `godm:"address"`
	Born    time.Time `godm:"born"`
	Note    string    `godm:"note,omitempty"`
	cache   string
}

func (p *Person) touch() { p.cache = p.Name }

type TrackerTestSuite struct {
	suite.Suite
	person *Person
}

func (s *TrackerTestSuite) SetupTest() {
	s.person = &Person{
		ID:      "p1",
		Name:    "Ana",
		Age:     30,
		Tags:    []string{"a"},
		Address: Address{City: "Recife", Street: "Rua A"},
		Born:    time.Date(1990, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func (s *TrackerTestSuite) capture(v any) Snapshot {
	snap, err := Capture(v)
	s.Require().NoError(err)
	return snap
}

// Snapshots hold the stored form of a record.
func (s *TrackerTestSuite) TestCapture() {
	s.person.touch()
	snap := s.capture(s.person)
	s.Equal(M{
		"_id":     "p1",
		"name":    "Ana",
		"age":     30,
		"tags":    []any{"a"},
		"address": M{"city": "Recife", "street": "Rua A"},
		"born":    s.person.Born,
	}, snap.Map())
	s.Equal(6, snap.Len())
	s.True(snap.Has("name"))
	s.False(snap.Has("note"))
	s.False(snap.Has("cache"))
}

// Snapshots are not affected by later changes to the record or to the values
// they return.
func (s *TrackerTestSuite) TestSnapshotImmutable() {
	snap := s.capture(M{"n": M{"a": 1}, "l": []any{1}})

	m := snap.Map()
	m["n"].(M)["a"] = 2
	snap.Get("l").([]any)[0] = 2

	s.Equal(M{"a": 1}, snap.Get("n"))
	s.Equal([]any{1}, snap.Get("l"))
}

// Only objects can be captured.
func (s *TrackerTestSuite) TestCaptureInvalid() {
	_, err := Capture(42)
	s.ErrorIs(err, domain.ErrDocumentType{Type: "int"})
}

// A snapshot compared with itself has no changes.
func (s *TrackerTestSuite) TestDiffSame() {
	snap := s.capture(s.person)
	s.False(IsChanged(snap, snap))
	s.Empty(Diff(snap, snap, true))
	s.Empty(Diff(snap, snap, false))
}

// Changed top-level fields are reported with their new values.
func (s *TrackerTestSuite) TestDiffTopLevel() {
	base := s.capture(M{"a": 1, "b": "x", "c": []any{1, 2}})
	cur := s.capture(M{"a": 2, "b": "x", "c": []any{1, 3}})
	s.True(IsChanged(cur, base))
	s.Equal(ChangeSet{"a": 2, "c": []any{1, 3}}, Diff(base, cur, true))
}

// Sub-documents are compared field by field only when recursing.
func (s *TrackerTestSuite) TestDiffNested() {
	base := s.capture(M{"n": M{"a": 1, "b": 2}})
	cur := s.capture(M{"n": M{"a": 1, "b": 3}})
	s.Equal(ChangeSet{"n.b": 3}, Diff(base, cur, true))
	s.Equal(ChangeSet{"n": M{"a": 1, "b": 3}}, Diff(base, cur, false))
}

// Deeply nested changes get the whole path.
func (s *TrackerTestSuite) TestDiffDeep() {
	base := s.capture(M{"x": M{"y": M{"z": 1, "w": 1}}, "k": 1})
	cur := s.capture(M{"x": M{"y": M{"z": 2, "w": 1}}, "k": 1})
	s.Equal(ChangeSet{"x.y.z": 2}, Diff(base, cur, true))
}

// A new field makes the whole document the change set.
func (s *TrackerTestSuite) TestDiffNewKey() {
	base := s.capture(M{"a": 1, "b": 2})
	cur := s.capture(M{"a": 1, "b": 2, "c": 3})
	s.Equal(ChangeSet{"a": 1, "b": 2, "c": 3}, Diff(base, cur, true))
	s.Equal(ChangeSet{"a": 1, "b": 2, "c": 3}, Diff(base, cur, false))
}

// A removed field makes the whole document the change set.
func (s *TrackerTestSuite) TestDiffRemovedKey() {
	base := s.capture(M{"a": 1, "b": 2})
	cur := s.capture(M{"a": 1})
	s.Equal(ChangeSet{"a": 1}, Diff(base, cur, true))
}

// Key set changes inside sub-documents replace every field of the
// sub-document.
func (s *TrackerTestSuite) TestDiffNestedNewKey() {
	base := s.capture(M{"n": M{"a": 1}, "k": 1})
	cur := s.capture(M{"n": M{"a": 1, "b": 2}, "k": 1})
	s.Equal(ChangeSet{"n.a": 1, "n.b": 2}, Diff(base, cur, true))
}

// Values replacing nil are recorded whole even when recursing.
func (s *TrackerTestSuite) TestDiffFromNil() {
	base := s.capture(M{"n": nil})
	cur := s.capture(M{"n": M{"a": 1}})
	s.Equal(ChangeSet{"n": M{"a": 1}}, Diff(base, cur, true))
}

// Change sets become $set updates.
func (s *TrackerTestSuite) TestChangeSetUpdate() {
	cs := ChangeSet{"n.b": 3, "c": M{"x": 1}}
	u := cs.Update()
	s.Equal(update.Set{"n.b": 3, "c": M{"x": 1}}, u)
	s.Equal(M{"$set": M{"n.b": 3, "c": M{"x": 1}}}, update.Render(u))
}

// Every query on a state without a baseline fails.
func (s *TrackerTestSuite) TestNoSavedState() {
	var st State
	_, err := st.Saved()
	s.ErrorIs(err, domain.ErrNoSavedState{Operation: "Saved"})
	_, err = st.IsChanged(s.person)
	s.ErrorIs(err, domain.ErrNoSavedState{Operation: "IsChanged"})
	_, err = st.Changes(s.person)
	s.ErrorIs(err, domain.ErrNoSavedState{Operation: "Changes"})
	_, err = st.HasChanged()
	s.ErrorIs(err, domain.ErrNoSavedState{Operation: "HasChanged"})
	_, err = st.PreviousChanges()
	s.ErrorIs(err, domain.ErrNoSavedState{Operation: "PreviousChanges"})
	s.ErrorIs(st.Rollback(s.person), domain.ErrNoSavedState{Operation: "Rollback"})
}

// Records embedding State track their own changes.
func (s *TrackerTestSuite) TestEmbeddedState() {
	p := s.person
	s.NoError(p.Save(p))

	changed, err := p.IsChanged(p)
	s.NoError(err)
	s.False(changed)

	p.Age = 31
	p.Address.City = "Olinda"
	changed, err = p.IsChanged(p)
	s.NoError(err)
	s.True(changed)

	cs, err := p.Changes(p)
	s.NoError(err)
	s.Equal(ChangeSet{"age": 31, "address.city": "Olinda"}, cs)

	var tr Trackable = p
	s.Same(&p.State, tr.Tracker())
}

// Replacing objects reports whole sub-documents.
func (s *TrackerTestSuite) TestReplaceObjects() {
	p := s.person
	p.Configure(ReplaceObjects(true))
	s.NoError(p.Save(p))

	p.Address.City = "Olinda"
	cs, err := p.Changes(p)
	s.NoError(err)
	s.Equal(ChangeSet{"address": M{"city": "Olinda", "street": "Rua A"}}, cs)
}

// Previous changes compare the last two baselines.
func (s *TrackerTestSuite) TestPreviousChanges() {
	st := NewState(SavePrevious(true))
	s.NoError(st.Save(M{"a": 1, "b": 1}))

	_, err := st.HasChanged()
	s.ErrorIs(err, domain.ErrNoSavedState{Operation: "HasChanged"})

	s.NoError(st.Save(M{"a": 1, "b": 2}))
	changed, err := st.HasChanged()
	s.NoError(err)
	s.True(changed)
	cs, err := st.PreviousChanges()
	s.NoError(err)
	s.Equal(ChangeSet{"b": 2}, cs)

	s.NoError(st.Save(M{"a": 1, "b": 2}))
	changed, err = st.HasChanged()
	s.NoError(err)
	s.False(changed)
}

// Without SavePrevious, previous baselines are discarded.
func (s *TrackerTestSuite) TestNoPrevious() {
	var st State
	s.NoError(st.Save(M{"a": 1}))
	s.NoError(st.Save(M{"a": 2}))
	_, err := st.PreviousChanges()
	s.ErrorIs(err, domain.ErrNoSavedState{Operation: "PreviousChanges"})
}

// Rollback restores the baseline and keeps the state.
func (s *TrackerTestSuite) TestRollback() {
	p := s.person
	s.NoError(p.Save(p))

	p.Name = "Bia"
	p.Tags = append(p.Tags, "b")
	p.Address.Street = "Rua B"
	p.Note = "new"
	s.NoError(p.Rollback(p))

	s.Equal("Ana", p.Name)
	s.Equal([]string{"a"}, p.Tags)
	s.Equal(Address{City: "Recife", Street: "Rua A"}, p.Address)
	s.Empty(p.Note)
	s.Equal(s.person.Born, p.Born)

	changed, err := p.IsChanged(p)
	s.NoError(err)
	s.False(changed)
}

// Rollback needs a pointer to a struct.
func (s *TrackerTestSuite) TestRollbackInvalid() {
	st := NewState()
	s.NoError(st.Save(M{"a": 1}))
	s.ErrorIs(st.Rollback(*s.person), domain.ErrNonPointer)
	m := M{}
	s.ErrorIs(st.Rollback(&m), domain.ErrDocumentType{Type: "data.M"})
}

func TestTrackerTestSuite(t *testing.T) {
	suite.Run(t, new(TrackerTestSuite))
}
