// Package godm is an object document mapper for MongoDB-like stores.
//
// Queries are described with the expression values in [expr] and [update],
// accumulated by the builder in [query] and run by a [domain.Executor]: the
// in-memory store in [memstore] or a MongoDB collection through [mongoexec].
//
// Records are plain structs tagged with "godm" that embed a [tracker.State].
// A [Collection] snapshots every record it loads or stores, so
// [Collection.SaveChanges] only sends the fields that changed.
package godm

import (
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/adapter/expr"
	"github.com/vinicius-lino-figueiredo/godm/adapter/memstore"
	"github.com/vinicius-lino-figueiredo/godm/adapter/mongoexec"
	"github.com/vinicius-lino-figueiredo/godm/adapter/persistence"
	"github.com/vinicius-lino-figueiredo/godm/adapter/query"
	"github.com/vinicius-lino-figueiredo/godm/adapter/tracker"
	"github.com/vinicius-lino-figueiredo/godm/adapter/update"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

var (
	// ErrCursorClosed is returned when trying to perform operations on a
	// closed [Cursor].
	ErrCursorClosed = domain.ErrCursorClosed
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = domain.ErrScanBeforeNext
	// ErrTargetNil is returned when a nil decoding target is given.
	ErrTargetNil = domain.ErrTargetNil
	// ErrNonPointer is returned when a decoding target is not a pointer.
	ErrNonPointer = domain.ErrNonPointer
	// ErrNotFound is returned by [Collection.Get], [Collection.Replace] and
	// [Collection.Delete] when no document has the record id.
	ErrNotFound = domain.ErrNotFound
	// ErrConstraintViolated is returned when an insert would duplicate an
	// existing _id.
	ErrConstraintViolated = domain.ErrConstraintViolated
	// ErrCannotModifyID is returned when an update would change a document
	// _id.
	ErrCannotModifyID = domain.ErrCannotModifyID
	// ErrNoID is returned when a record must be found by id but has none.
	ErrNoID = domain.ErrNoID
)

// ErrEmptyExpression is returned when a logical combinator or an update has
// nothing in it.
type ErrEmptyExpression = domain.ErrEmptyExpression

// ErrInvalidExpression is returned when a filter argument cannot be turned
// into an expression.
type ErrInvalidExpression = domain.ErrInvalidExpression

// ErrInvalidSortArgument is returned for sort arguments that are not field
// names, paths or sort values.
type ErrInvalidSortArgument = domain.ErrInvalidSortArgument

// ErrInvalidPagination is returned for negative skip or limit values.
type ErrInvalidPagination = domain.ErrInvalidPagination

// ErrBuilderAlreadyCompiled is returned when a compiled query is changed.
type ErrBuilderAlreadyCompiled = domain.ErrBuilderAlreadyCompiled

// ErrNoSavedState is returned by state operations on records that were never
// saved.
type ErrNoSavedState = domain.ErrNoSavedState

// ErrUnknownOperator is returned for filter operators nobody knows.
type ErrUnknownOperator = domain.ErrUnknownOperator

// ErrUnsupportedOperator is returned for filter operators the in-memory
// store cannot evaluate.
type ErrUnsupportedOperator = domain.ErrUnsupportedOperator

// ErrUnsupportedStage is returned for aggregation stages the in-memory store
// cannot run.
type ErrUnsupportedStage = domain.ErrUnsupportedStage

// ErrFieldName represents an invalid field name or path.
type ErrFieldName = domain.ErrFieldName

// ErrDocumentType is returned when a value cannot be used as a document.
type ErrDocumentType = domain.ErrDocumentType

// ErrCannotCompare is returned when two values have no defined order.
type ErrCannotCompare = domain.ErrCannotCompare

// ErrDecode wraps errors from decoding documents into records.
type ErrDecode = domain.ErrDecode

// ErrCorruptFiles is returned by [memstore.Store.Load] when too many lines
// of a dump cannot be read.
type ErrCorruptFiles = persistence.ErrCorruptFiles

// M is the default document type.
type M = data.M

// Document is the document form executors work with.
type Document = domain.Document

// Cursor iterates over query results.
type Cursor = domain.Cursor

// Executor runs compiled queries against a store.
type Executor = domain.Executor

// Decoder turns documents into records.
type Decoder = domain.Decoder

// UpdateResult describes the outcome of an update.
type UpdateResult = domain.UpdateResult

// Sort is an ordered list of sort fields.
type Sort = domain.Sort

// SortName is a single sort field.
type SortName = domain.SortName

// Path is a dotted field path.
type Path = expr.Path

// Expression is a filter expression.
type Expression = expr.Expression

// UpdateExpression is a single update operator with its fields.
type UpdateExpression = update.Expression

// State is embedded in records to keep their snapshots.
type State = tracker.State

// Trackable is implemented by pointers to records embedding a [State].
type Trackable = tracker.Trackable

// F builds a field path from its parts.
func F(parts ...string) Path {
	return expr.F(parts...)
}

// NewQuery returns a query builder decoding results into T.
func NewQuery[T any](exec Executor, options ...query.Option) *query.Query[T] {
	return query.New[T](exec, options...)
}

// NewMemoryStore returns an empty in-memory executor.
func NewMemoryStore(options ...memstore.Option) *memstore.Store {
	return memstore.NewStore(options...)
}

// NewMongoExecutor returns an executor running on a MongoDB collection.
func NewMongoExecutor(coll mongoexec.Collection, options ...mongoexec.Option) *mongoexec.Executor {
	return mongoexec.NewExecutor(coll, options...)
}
