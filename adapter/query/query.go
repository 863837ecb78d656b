// Package query contains the fluent query builder. A [Query] accumulates
// filters, sort fields, pagination and projection, compiles them into
// documents and hands them to a [domain.Executor].
package query

import (
	"context"
	"iter"
	"maps"
	"slices"

	"github.com/goccy/go-reflect"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/adapter/expr"
	"github.com/vinicius-lino-figueiredo/godm/adapter/pipeline"
	"github.com/vinicius-lino-figueiredo/godm/adapter/update"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"go.uber.org/zap"
)

// State is the lifecycle stage of a [Query].
type State int

const (
	// StateEmpty is the state of a query nothing was added to.
	StateEmpty State = iota
	// StateAccumulating is the state of a query that received at least one
	// mutation and was not compiled yet.
	StateAccumulating
	// StateCompiled is the state of a query after [Query.Compile] or any
	// terminal operation. Compiled queries reject further mutations.
	StateCompiled
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateAccumulating:
		return "accumulating"
	case StateCompiled:
		return "compiled"
	default:
		return "unknown"
	}
}

// Compiled holds the documents a query compiles into.
type Compiled struct {
	Filter     data.M
	Sort       domain.Sort
	Skip       *int64
	Limit      *int64
	Projection data.M
}

// Query accumulates the state of a single call chain. It is mutated in place
// and must not be shared between goroutines.
type Query[T any] struct {
	exec       domain.Executor
	settings   settings
	filters    []expr.Expression
	sort       domain.Sort
	skip       *int64
	limit      *int64
	projection data.M
	state      State
	compiled   Compiled
	err        error
}

// New returns an empty query reading records of type T from exec.
func New[T any](exec domain.Executor, options ...Option) *Query[T] {
	var s settings
	for _, option := range options {
		option(&s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return &Query[T]{exec: exec, settings: s}
}

// State returns the current lifecycle stage of the query.
func (q *Query[T]) State() State {
	return q.state
}

// Err returns the first error raised by a mutation, if any.
func (q *Query[T]) Err() error {
	return q.err
}

// mutate runs fn unless the query already failed or was compiled.
func (q *Query[T]) mutate(method string, fn func() error) *Query[T] {
	if q.err != nil {
		return q
	}
	if q.state == StateCompiled {
		q.err = domain.ErrBuilderAlreadyCompiled{Method: method}
		return q
	}
	if err := fn(); err != nil {
		q.err = err
		return q
	}
	q.state = StateAccumulating
	return q
}

// Filter appends predicates to the query. Arguments may be expressions or
// raw filter documents; nil arguments are ignored. All predicates are joined
// with $and when compiled, in the order they were added.
func (q *Query[T]) Filter(args ...any) *Query[T] {
	return q.mutate("Filter", func() error {
		added := make([]expr.Expression, 0, len(args))
		for _, arg := range args {
			if arg == nil {
				continue
			}
			e, err := expr.From(arg)
			if err != nil {
				return err
			}
			added = append(added, e)
		}
		q.filters = append(q.filters, added...)
		return nil
	})
}

// Sort appends sort fields to the query. See [ParseSort] for the accepted
// arguments.
func (q *Query[T]) Sort(args ...any) *Query[T] {
	return q.mutate("Sort", func() error {
		sort := slices.Clone(q.sort)
		for _, arg := range args {
			var err error
			if sort, err = ParseSort(sort, arg); err != nil {
				return err
			}
		}
		q.sort = sort
		return nil
	})
}

// Skip sets how many documents are skipped, replacing any previous value.
func (q *Query[T]) Skip(n int64) *Query[T] {
	return q.SkipPtr(&n)
}

// SkipPtr is like [Query.Skip], but a nil value leaves the query unchanged.
func (q *Query[T]) SkipPtr(n *int64) *Query[T] {
	return q.mutate("Skip", func() error {
		if n == nil {
			return nil
		}
		if *n < 0 {
			return domain.ErrInvalidPagination{Name: "skip", Value: *n}
		}
		v := *n
		q.skip = &v
		return nil
	})
}

// Limit sets the maximum number of documents returned, replacing any
// previous value.
func (q *Query[T]) Limit(n int64) *Query[T] {
	return q.LimitPtr(&n)
}

// LimitPtr is like [Query.Limit], but a nil value leaves the query unchanged.
func (q *Query[T]) LimitPtr(n *int64) *Query[T] {
	return q.mutate("Limit", func() error {
		if n == nil {
			return nil
		}
		if *n < 0 {
			return domain.ErrInvalidPagination{Name: "limit", Value: *n}
		}
		v := *n
		q.limit = &v
		return nil
	})
}

// Project sets the projection document, replacing any previous one.
func (q *Query[T]) Project(spec data.M) *Query[T] {
	return q.mutate("Project", func() error {
		q.projection = maps.Clone(spec)
		return nil
	})
}

// ProjectModel sets a projection including every field model is decoded
// from. model must be a struct or a pointer to one.
func (q *Query[T]) ProjectModel(model any) *Query[T] {
	return q.mutate("ProjectModel", func() error {
		typ := reflect.TypeOf(model)
		if typ == nil {
			return domain.ErrDocumentType{Type: "nil"}
		}
		fields := modelFields(typ)
		if fields == nil {
			return domain.ErrDocumentType{Type: typ.String()}
		}
		projection := make(data.M, len(fields))
		for _, field := range fields {
			projection[field] = 1
		}
		q.projection = projection
		return nil
	})
}

// Compile turns the accumulated state into documents. The first call moves
// the query to [StateCompiled]; later calls return the same result.
func (q *Query[T]) Compile() (Compiled, error) {
	if q.err != nil {
		return Compiled{}, q.err
	}
	if q.state == StateCompiled {
		return q.compiled, nil
	}

	filter := data.M{}
	if len(q.filters) > 0 {
		and, err := expr.And(q.filters...)
		if err != nil {
			return Compiled{}, err
		}
		filter = expr.Render(and)
	}

	q.compiled = Compiled{
		Filter:     filter,
		Sort:       slices.Clone(q.sort),
		Skip:       q.skip,
		Limit:      q.limit,
		Projection: maps.Clone(q.projection),
	}
	q.state = StateCompiled

	q.settings.log.Debug("compiled query",
		zap.Any("filter", q.compiled.Filter),
		zap.Any("sort", q.compiled.Sort),
		zap.Int64p("skip", q.compiled.Skip),
		zap.Int64p("limit", q.compiled.Limit),
		zap.Any("projection", q.compiled.Projection),
	)
	return q.compiled, nil
}

func (q *Query[T]) findOptions(c Compiled) []domain.FindOption {
	var opts []domain.FindOption
	if len(c.Sort) > 0 {
		opts = append(opts, domain.WithFindSort(c.Sort))
	}
	if c.Skip != nil {
		opts = append(opts, domain.WithFindSkip(*c.Skip))
	}
	limit := c.Limit
	if q.settings.single && (limit == nil || *limit != 0) {
		one := int64(1)
		limit = &one
	}
	if limit != nil && *limit > 0 {
		opts = append(opts, domain.WithFindLimit(*limit))
	}
	if len(c.Projection) > 0 {
		opts = append(opts, domain.WithFindProjection(c.Projection))
	}
	return opts
}

// find compiles the query and runs it, unless the limit is explicitly zero.
func (q *Query[T]) find(ctx context.Context, extra ...domain.FindOption) (domain.Cursor, bool, error) {
	c, err := q.Compile()
	if err != nil {
		return nil, false, err
	}
	if c.Limit != nil && *c.Limit == 0 {
		return nil, false, nil
	}
	opts := append(q.findOptions(c), extra...)
	cur, err := q.exec.Find(ctx, c.Filter, opts...)
	if err != nil {
		return nil, false, err
	}
	return cur, true, nil
}

// scan reads the current document of cur into a new record.
func (q *Query[T]) scan(ctx context.Context, cur domain.Cursor) (T, error) {
	var rec T
	if q.settings.dec == nil {
		err := cur.Scan(ctx, &rec)
		return rec, err
	}
	var raw data.M
	if err := cur.Scan(ctx, &raw); err != nil {
		return rec, err
	}
	if err := q.settings.dec.Decode(raw, &rec); err != nil {
		return rec, err
	}
	return rec, nil
}

func (q *Query[T]) loaded(rec *T) error {
	for _, hook := range q.settings.hooks {
		if err := hook(rec); err != nil {
			return err
		}
	}
	return nil
}

// Iter returns a sequence of the records matching the query. Iteration stops
// at the first error, which is yielded with a zero record.
func (q *Query[T]) Iter(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		cur, ok, err := q.find(ctx)
		if err != nil {
			yield(zero, err)
			return
		}
		if !ok {
			return
		}
		defer cur.Close()

		for cur.Next() {
			rec, err := q.scan(ctx, cur)
			if err == nil {
				err = q.loaded(&rec)
			}
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(zero, err)
		}
	}
}

// ToList returns every record matching the query.
func (q *Query[T]) ToList(ctx context.Context) ([]T, error) {
	res := []T{}
	for rec, err := range q.Iter(ctx) {
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, nil
}

// First returns the first record matching the query. The bool result is
// false if no record matched.
func (q *Query[T]) First(ctx context.Context) (T, bool, error) {
	var zero T
	cur, ok, err := q.find(ctx, domain.WithFindLimit(1))
	if err != nil || !ok {
		return zero, false, err
	}
	defer cur.Close()

	if !cur.Next() {
		return zero, false, cur.Err()
	}
	rec, err := q.scan(ctx, cur)
	if err != nil {
		return zero, false, err
	}
	if err := q.loaded(&rec); err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

// Count returns the number of documents matching the filter. Sort and
// pagination are not considered.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	c, err := q.Compile()
	if err != nil {
		return 0, err
	}
	return q.exec.Count(ctx, c.Filter)
}

// Update applies the merged update expressions to the matching documents.
func (q *Query[T]) Update(ctx context.Context, exprs ...update.Expression) (domain.UpdateResult, error) {
	c, err := q.Compile()
	if err != nil {
		return domain.UpdateResult{}, err
	}
	doc := update.Merge(exprs...)
	if len(doc) == 0 {
		return domain.UpdateResult{}, domain.ErrEmptyExpression{Operator: "update"}
	}
	q.settings.log.Debug("updating documents", zap.Any("filter", c.Filter), zap.Any("update", doc))
	return q.exec.Update(ctx, c.Filter, doc, domain.WithUpdateMulti(!q.settings.single))
}

// Upsert applies the update expressions to the matching documents, or stores
// insert when nothing matches.
func (q *Query[T]) Upsert(ctx context.Context, insert T, exprs ...update.Expression) (domain.UpdateResult, error) {
	res, err := q.Update(ctx, exprs...)
	if err != nil || res.Matched > 0 {
		return res, err
	}
	doc, err := data.NewDocument(insert)
	if err != nil {
		return res, err
	}
	ids, err := q.exec.Insert(ctx, doc)
	if err != nil {
		return res, err
	}
	if len(ids) > 0 {
		res.UpsertedID = ids[0]
	}
	return res, nil
}

// Delete removes the matching documents and returns how many were removed.
func (q *Query[T]) Delete(ctx context.Context) (int64, error) {
	c, err := q.Compile()
	if err != nil {
		return 0, err
	}
	q.settings.log.Debug("deleting documents", zap.Any("filter", c.Filter))
	return q.exec.Delete(ctx, c.Filter, domain.WithDeleteMulti(!q.settings.single))
}

// Aggregate runs stages after the stages derived from the query: $match for
// a non-empty filter, then $sort, $skip, $limit and $project when set.
func (q *Query[T]) Aggregate(ctx context.Context, stages ...pipeline.Stage) (domain.Cursor, error) {
	c, err := q.Compile()
	if err != nil {
		return nil, err
	}
	var prefix []pipeline.Stage
	if len(c.Filter) > 0 {
		prefix = append(prefix, pipeline.Stage{pipeline.StageMatch: c.Filter})
	}
	if len(c.Sort) > 0 {
		prefix = append(prefix, pipeline.Sort(c.Sort))
	}
	if c.Skip != nil {
		prefix = append(prefix, pipeline.Skip(*c.Skip))
	}
	if c.Limit != nil {
		prefix = append(prefix, pipeline.Limit(*c.Limit))
	}
	if len(c.Projection) > 0 {
		prefix = append(prefix, pipeline.Project(c.Projection))
	}
	docs := pipeline.Documents(append(prefix, stages...)...)
	q.settings.log.Debug("running aggregation", zap.Int("stages", len(docs)))
	return q.exec.Aggregate(ctx, docs)
}
