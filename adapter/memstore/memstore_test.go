package memstore

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/adapter/expr"
	"github.com/vinicius-lino-figueiredo/godm/adapter/pipeline"
	"github.com/vinicius-lino-figueiredo/godm/adapter/query"
	"github.com/vinicius-lino-figueiredo/godm/adapter/update"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type M = data.M

type A = []any

type idGeneratorMock struct{ mock.Mock }

// GenerateID implements [domain.IDGenerator].
func (i *idGeneratorMock) GenerateID() (string, error) {
	call := i.Called()
	return call.String(0), call.Error(1)
}

type Person struct {
	ID   string   `godm:"_id"`
	Name string   `godm:"name"`
	Age  int      `godm:"age"`
	Tags []string `godm:"tags"`
}

type MemstoreTestSuite struct {
	suite.Suite
	ctx   context.Context
	ids   *idGeneratorMock
	store *Store
}

func (s *MemstoreTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ids = new(idGeneratorMock)
	s.store = NewStore(WithIDGenerator(s.ids))
	_, err := s.store.Insert(s.ctx,
		M{"_id": "1", "name": "ann", "age": 31, "tags": A{"a", "b"}},
		M{"_id": "2", "name": "bob", "age": 25},
		M{"_id": "3", "name": "cid", "age": 40, "tags": A{"b"}},
	)
	s.Require().NoError(err)
}

func (s *MemstoreTestSuite) find(filter M, opts ...domain.FindOption) []M {
	s.T().Helper()
	cur, err := s.store.Find(s.ctx, filter, opts...)
	s.Require().NoError(err)
	return s.collect(cur)
}

func (s *MemstoreTestSuite) collect(cur domain.Cursor) []M {
	s.T().Helper()
	defer cur.Close()
	res := []M{}
	for cur.Next() {
		var doc M
		s.Require().NoError(cur.Scan(s.ctx, &doc))
		res = append(res, doc)
	}
	s.Require().NoError(cur.Err())
	return res
}

func names(docs []M) []any {
	res := make([]any, len(docs))
	for n, d := range docs {
		res[n] = d["name"]
	}
	return res
}

// Documents are found in id order, and can be filtered, sorted, paginated
// and projected.
func (s *MemstoreTestSuite) TestFind() {
	s.Equal([]any{"ann", "bob", "cid"}, names(s.find(nil)))
	s.Equal([]any{"ann", "cid"}, names(s.find(M{"age": M{"$gt": 30}})))
	s.Equal([]any{"cid", "ann"}, names(s.find(M{"tags": "b"}, domain.WithFindSort(domain.Sort{{Key: "age", Order: -1}}))))
	s.Equal([]any{"bob"}, names(s.find(nil, domain.WithFindSkip(1), domain.WithFindLimit(1))))

	res := s.find(M{"_id": "2"}, domain.WithFindProjection(M{"name": 1, "_id": 0}))
	s.Equal([]M{{"name": "bob"}}, res)
}

// Returned documents are copies.
func (s *MemstoreTestSuite) TestFindReturnsCopies() {
	res := s.find(M{"_id": "1"})
	res[0]["tags"].(A)[0] = "changed"
	s.Equal(A{"a", "b"}, s.find(M{"_id": "1"})[0]["tags"])
}

// Cursors decode into records.
func (s *MemstoreTestSuite) TestFindDecode() {
	cur, err := s.store.Find(s.ctx, M{"_id": "1"})
	s.Require().NoError(err)
	defer cur.Close()

	s.True(cur.Next())
	var p Person
	s.NoError(cur.Scan(s.ctx, &p))
	s.Equal(Person{ID: "1", Name: "ann", Age: 31, Tags: []string{"a", "b"}}, p)
}

// Invalid filters fail.
func (s *MemstoreTestSuite) TestFindInvalidFilter() {
	_, err := s.store.Find(s.ctx, M{"$nope": 1})
	s.ErrorIs(err, domain.ErrUnknownOperator{Operator: "$nope"})
}

// Can count matching documents.
func (s *MemstoreTestSuite) TestCount() {
	n, err := s.store.Count(s.ctx, nil)
	s.NoError(err)
	s.Equal(int64(3), n)

	n, err = s.store.Count(s.ctx, M{"age": M{"$lt": 30}})
	s.NoError(err)
	s.Equal(int64(1), n)
}

// Documents without id get a generated one.
func (s *MemstoreTestSuite) TestInsertGeneratesID() {
	s.ids.On("GenerateID").Return("gen", nil).Once()

	ids, err := s.store.Insert(s.ctx, M{"name": "dan"})
	s.NoError(err)
	s.Equal([]any{"gen"}, ids)
	s.Equal([]M{{"_id": "gen", "name": "dan"}}, s.find(M{"name": "dan"}))
	s.ids.AssertExpectations(s.T())
}

// Id generation errors are returned.
func (s *MemstoreTestSuite) TestInsertGenerateError() {
	s.ids.On("GenerateID").Return("", errors.New("no entropy")).Once()

	_, err := s.store.Insert(s.ctx, M{"name": "dan"})
	s.EqualError(err, "generating id: no entropy")
}

// Duplicated ids are rejected and nothing from the batch is inserted.
func (s *MemstoreTestSuite) TestInsertDuplicate() {
	_, err := s.store.Insert(s.ctx, M{"_id": "4"}, M{"_id": "1"})
	s.ErrorIs(err, domain.ErrConstraintViolated)

	n, err := s.store.Count(s.ctx, nil)
	s.NoError(err)
	s.Equal(int64(3), n)
}

// Ids cannot be documents or arrays.
func (s *MemstoreTestSuite) TestInsertInvalidID() {
	_, err := s.store.Insert(s.ctx, M{"_id": M{"a": 1}})
	s.ErrorIs(err, domain.ErrDocumentType{Type: "data.M"})

	_, err = s.store.Insert(s.ctx, M{"_id": A{1}})
	s.ErrorIs(err, domain.ErrDocumentType{Type: "[]interface {}"})
}

// Updates affect one document unless multi is set.
func (s *MemstoreTestSuite) TestUpdate() {
	res, err := s.store.Update(s.ctx, M{"tags": "b"}, M{"$inc": M{"age": 1}})
	s.NoError(err)
	s.Equal(domain.UpdateResult{Matched: 1, Modified: 1}, res)
	s.Equal(32, s.find(M{"_id": "1"})[0]["age"])
	s.Equal(40, s.find(M{"_id": "3"})[0]["age"])

	res, err = s.store.Update(s.ctx, M{"tags": "b"}, M{"$set": M{"flag": true}}, domain.WithUpdateMulti(true))
	s.NoError(err)
	s.Equal(domain.UpdateResult{Matched: 2, Modified: 2}, res)
	s.Equal([]any{"ann", "cid"}, names(s.find(M{"flag": true})))
}

// Documents that end up equal are matched but not modified.
func (s *MemstoreTestSuite) TestUpdateUnchanged() {
	res, err := s.store.Update(s.ctx, M{"_id": "2"}, M{"$set": M{"age": 25}})
	s.NoError(err)
	s.Equal(domain.UpdateResult{Matched: 1, Modified: 0}, res)
}

// Replacement documents keep the id.
func (s *MemstoreTestSuite) TestUpdateReplace() {
	_, err := s.store.Update(s.ctx, M{"_id": "2"}, M{"name": "bobby"})
	s.NoError(err)
	s.Equal([]M{{"_id": "2", "name": "bobby"}}, s.find(M{"_id": "2"}))
}

// A failing modification leaves every document untouched.
func (s *MemstoreTestSuite) TestUpdateFailureIsAtomic() {
	_, err := s.store.Update(s.ctx, nil, M{"$push": M{"tags": "z"}}, domain.WithUpdateMulti(true))
	s.NoError(err)

	_, err = s.store.Insert(s.ctx, M{"_id": "4", "tags": "not a list"})
	s.Require().NoError(err)

	_, err = s.store.Update(s.ctx, nil, M{"$push": M{"tags": "y"}}, domain.WithUpdateMulti(true))
	s.Error(err)
	s.Equal(A{"a", "b", "z"}, s.find(M{"_id": "1"})[0]["tags"])
}

// Upserts insert the filter equalities with the update applied.
func (s *MemstoreTestSuite) TestUpsert() {
	s.ids.On("GenerateID").Return("gen", nil).Once()

	res, err := s.store.Update(s.ctx,
		M{"name": "dan", "age": M{"$gt": 10}, "$and": A{M{"team.id": M{"$eq": 7}}}},
		M{"$set": M{"active": true}, "$setOnInsert": M{"created": 1}},
		domain.WithUpsert(true),
	)
	s.NoError(err)
	s.Equal(domain.UpdateResult{UpsertedID: "gen"}, res)
	s.Equal(
		[]M{{"_id": "gen", "name": "dan", "team": M{"id": 7}, "active": true, "created": 1}},
		s.find(M{"name": "dan"}),
	)

	res, err = s.store.Update(s.ctx, M{"name": "dan"}, M{"$set": M{"active": false}}, domain.WithUpsert(true))
	s.NoError(err)
	s.Equal(domain.UpdateResult{Matched: 1, Modified: 1}, res)
}

// Deletes remove one document unless multi is set.
func (s *MemstoreTestSuite) TestDelete() {
	n, err := s.store.Delete(s.ctx, M{"tags": "b"})
	s.NoError(err)
	s.Equal(int64(1), n)
	s.Equal([]any{"bob", "cid"}, names(s.find(nil)))

	n, err = s.store.Delete(s.ctx, nil, domain.WithDeleteMulti(true))
	s.NoError(err)
	s.Equal(int64(2), n)
	s.Empty(s.find(nil))
}

// Done contexts stop every operation.
func (s *MemstoreTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.store.Find(ctx, nil)
	s.ErrorIs(err, context.Canceled)
	_, err = s.store.Count(ctx, nil)
	s.ErrorIs(err, context.Canceled)
	_, err = s.store.Insert(ctx, M{"_id": "9"})
	s.ErrorIs(err, context.Canceled)
	_, err = s.store.Update(ctx, nil, M{"$set": M{"a": 1}})
	s.ErrorIs(err, context.Canceled)
	_, err = s.store.Delete(ctx, nil)
	s.ErrorIs(err, context.Canceled)
	_, err = s.store.Aggregate(ctx, nil)
	s.ErrorIs(err, context.Canceled)
}

// Aggregations run the supported stages in order.
func (s *MemstoreTestSuite) TestAggregate() {
	cur, err := s.store.Aggregate(s.ctx, pipeline.Documents(
		pipeline.Match(expr.F("age").Gte(30)),
		pipeline.Sort(domain.Sort{expr.F("age").Desc()}),
		pipeline.Project(M{"name": 1, "_id": 0}),
	))
	s.Require().NoError(err)
	s.Equal([]M{{"name": "cid"}, {"name": "ann"}}, s.collect(cur))

	cur, err = s.store.Aggregate(s.ctx, pipeline.Documents(
		pipeline.Unwind(expr.F("tags")),
		pipeline.Match(expr.F("tags").Eq("b")),
		pipeline.Count("total"),
	))
	s.Require().NoError(err)
	s.Equal([]M{{"total": int64(2)}}, s.collect(cur))
}

// $skip, $limit, $addFields and $unwind with preserved empty fields.
func (s *MemstoreTestSuite) TestAggregateStages() {
	cur, err := s.store.Aggregate(s.ctx, []domain.Document{
		M{"$unwind": M{"path": "$tags", "preserveNullAndEmptyArrays": true}},
		M{"$addFields": M{"label": "$name", "kind": "person"}},
		M{"$sort": M{"name": 1, "tags": -1}},
		M{"$skip": 1},
		M{"$limit": 2},
		M{"$project": M{"label": 1, "tags": 1, "kind": 1, "_id": 0}},
	})
	s.Require().NoError(err)
	s.Equal([]M{
		{"label": "ann", "tags": "a", "kind": "person"},
		{"label": "bob", "kind": "person"},
	}, s.collect(cur))
}

// Unknown stages and malformed stages fail.
func (s *MemstoreTestSuite) TestAggregateErrors() {
	_, err := s.store.Aggregate(s.ctx, pipeline.Documents(pipeline.Group("$name", M{})))
	s.ErrorIs(err, domain.ErrUnsupportedStage{Stage: "$group"})

	_, err = s.store.Aggregate(s.ctx, []domain.Document{M{"$skip": -1}})
	s.ErrorIs(err, domain.ErrInvalidPagination{Name: "skip", Value: -1})

	_, err = s.store.Aggregate(s.ctx, []domain.Document{M{"$match": M{}, "$skip": 1}})
	s.Error(err)

	_, err = s.store.Aggregate(s.ctx, []domain.Document{M{"$sort": M{"a": 2}}})
	s.ErrorAs(err, new(domain.ErrInvalidSortArgument))
}

// Dumped documents can be loaded into another store.
func (s *MemstoreTestSuite) TestDumpLoad() {
	buf := new(bytes.Buffer)
	s.Require().NoError(s.store.Dump(s.ctx, buf))
	s.Equal(3, strings.Count(buf.String(), "\n"))

	other := NewStore()
	s.Require().NoError(other.Load(s.ctx, buf))

	cur, err := other.Find(s.ctx, M{"_id": "1"})
	s.Require().NoError(err)
	s.Equal([]M{{"_id": "1", "name": "ann", "age": int64(31), "tags": A{"a", "b"}}}, s.collect(cur))
}

// Loading corrupt data fails and keeps the store contents.
func (s *MemstoreTestSuite) TestLoadCorrupt() {
	core, logs := observer.New(zap.WarnLevel)
	s.store = NewStore(WithLogger(zap.New(core)), WithCorruptAlertThreshold(0))
	_, err := s.store.Insert(s.ctx, M{"_id": "x"})
	s.Require().NoError(err)

	err = s.store.Load(s.ctx, strings.NewReader("{\"_id\":\"1\"}\nbroken\n"))
	s.Error(err)
	s.Equal(1, logs.Len())
	s.Equal([]M{{"_id": "x"}}, s.find(nil))
}

// The store runs the queries built by the query package.
func (s *MemstoreTestSuite) TestQueryBuilder() {
	people, err := query.New[Person](s.store).
		Filter(expr.F("age").Gte(30)).
		Sort("-age").
		ToList(s.ctx)
	s.NoError(err)
	s.Equal([]Person{
		{ID: "3", Name: "cid", Age: 40, Tags: []string{"b"}},
		{ID: "1", Name: "ann", Age: 31, Tags: []string{"a", "b"}},
	}, people)

	res, err := query.New[Person](s.store).
		Filter(expr.F("name").Eq("bob")).
		Update(s.ctx, update.Set{"age": 26}, update.Push{"tags": "new"})
	s.NoError(err)
	s.Equal(domain.UpdateResult{Matched: 1, Modified: 1}, res)

	bob, found, err := query.New[Person](s.store).Filter(M{"_id": "2"}).First(s.ctx)
	s.NoError(err)
	s.True(found)
	s.Equal(Person{ID: "2", Name: "bob", Age: 26, Tags: []string{"new"}}, bob)
}

func TestMemstoreTestSuite(t *testing.T) {
	suite.Run(t, new(MemstoreTestSuite))
}
