// Package domain contains domain-specific interfaces and option types for
// GODM.
//
// This package defines the interfaces implemented by adapters (executors,
// cursors, matchers, modifiers) and the functional options accepted by them.
// It has no dependency on any adapter, so every adapter package can import it.
package domain

import (
	"context"
	"iter"
	"time"
)

// Document represents a record as it travels between the query layer and an
// [Executor]. Filters, updates, projections and stored records are all
// documents. A Document is read by one goroutine at a time and doesn't need to
// be concurrency safe.
type Document interface {
	// ID returns the document ID, if any, or nil.
	ID() any
	// Get returns the value under the given key, or nil if unset.
	Get(string) any
	// Set sets the value under the given key.
	Set(string, any)
	// Unset unsets the value under the given key.
	Unset(string)
	// Has reports whether a value is set under the given key.
	Has(string) bool
	// Iter returns an unordered sequence of key-value pairs in the
	// document.
	Iter() iter.Seq2[string, any]
	// Keys returns an unordered sequence of keys in the document.
	Keys() iter.Seq[string]
	// Len returns the number of set fields in the document.
	Len() int
}

// Executor is the collaborator that actually runs compiled queries against a
// storage engine. The query layer never opens connections or retries failed
// calls; all of that belongs here.
type Executor interface {
	// Find returns a lazy sequence of the documents matching filter.
	Find(ctx context.Context, filter Document, opts ...FindOption) (Cursor, error)
	// Count returns the number of documents matching filter.
	Count(ctx context.Context, filter Document) (int64, error)
	// Update applies update to the documents matching filter.
	Update(ctx context.Context, filter Document, update Document, opts ...UpdateOption) (UpdateResult, error)
	// Delete removes the documents matching filter and returns how many
	// were removed.
	Delete(ctx context.Context, filter Document, opts ...DeleteOption) (int64, error)
	// Aggregate runs an aggregation pipeline.
	Aggregate(ctx context.Context, pipeline []Document) (Cursor, error)
	// Insert stores new documents and returns their ids, in order.
	Insert(ctx context.Context, docs ...Document) ([]any, error)
}

// Cursor provides iteration over query results.
type Cursor interface {
	// Scan decodes the current document into target.
	Scan(ctx context.Context, target any) error
	// Next advances the cursor to the next document, returning true if available.
	Next() bool
	// Err returns any error that occurred during iteration.
	Err() error
	// Close releases cursor resources and should be called when done.
	Close() error
}

// Decoder converts between different data representations.
type Decoder interface {
	// Decode converts from one data format to another.
	Decode(any, any) error
}

// Comparer provides ordering and comparison operations for different data types.
type Comparer interface {
	// Compare returns -1, 0, or 1 based on the comparison of two values.
	Compare(any, any) (int, error)
	// Comparable returns true if two values can be compared.
	Comparable(any, any) bool
}

// FieldNavigator resolves dotted addresses inside documents.
type FieldNavigator interface {
	// GetAddress splits a dotted field name into its parts.
	GetAddress(field string) []string
	// GetField returns every value reachable from the given path. Arrays
	// found along the way are expanded, so a single path can lead to many
	// values. The bool result reports whether the path led anywhere.
	GetField(doc any, parts ...string) ([]any, bool)
}

// Matcher evaluates whether documents match a filter document.
type Matcher interface {
	// Match returns true if the document matches the filter.
	Match(doc Document, filter Document) (bool, error)
}

// Modifier applies update documents to documents.
type Modifier interface {
	// Modify applies an update to a copy of doc and returns the copy. When
	// insert is true, the document is being created by an upsert.
	Modify(doc Document, update Document, insert bool) (Document, error)
}

// Projector applies a projection document to query results.
type Projector interface {
	// Project returns copies of docs containing only the projected fields.
	Project(docs []Document, projection Document) ([]Document, error)
}

// TimeGetter provides the current time. Executors use it for $currentDate.
type TimeGetter interface {
	// GetTime returns the current time.
	GetTime() time.Time
}

// IDGenerator generates ids for documents inserted without one.
type IDGenerator interface {
	// GenerateID returns a new unique id.
	GenerateID() (string, error)
}
