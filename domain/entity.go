package domain

// Sort represents an ordered list of fields which should be used to sort query
// results, applied in sequence.
type Sort = []SortName

// SortName represents a single field and the order which should be used to sort
// it. A positive Order value means ascending order and a negative value means
// descending order.
type SortName struct {
	Key   string
	Order int64
}

const (
	// Ascending sorts a field from the smallest to the largest value.
	Ascending int64 = 1
	// Descending sorts a field from the largest to the smallest value.
	Descending int64 = -1
)

// UpdateResult describes the outcome of an [Executor.Update] call.
type UpdateResult struct {
	// Matched is the number of documents matched by the filter.
	Matched int64
	// Modified is the number of documents actually changed.
	Modified int64
	// UpsertedID is the id of the document inserted by an upsert, if any.
	UpsertedID any
}

// DocumentFactory represents a function that constructs [Document] instances
// from structured data types. If nil is provided, returns an empty document.
type DocumentFactory = func(any) (Document, error)
