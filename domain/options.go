package domain

// FindOptions are the read parameters of [Executor.Find]. Zero values mean
// no projection, no skip, no limit and no sort.
type FindOptions struct {
	Projection Document
	Skip       int64
	// Limit of zero returns every document.
	Limit int64
	Sort  Sort
}

// FindOption sets a field of [FindOptions].
type FindOption func(*FindOptions)

// NewFindOptions applies options over the zero FindOptions.
func NewFindOptions(options ...FindOption) FindOptions {
	var o FindOptions
	for _, option := range options {
		option(&o)
	}
	return o
}

// WithFindProjection sets the fields kept in or left out of the results.
func WithFindProjection(p Document) FindOption {
	return func(o *FindOptions) { o.Projection = p }
}

// WithFindSkip sets how many matching documents are skipped.
func WithFindSkip(n int64) FindOption {
	return func(o *FindOptions) { o.Skip = n }
}

// WithFindLimit sets the maximum number of documents returned.
func WithFindLimit(n int64) FindOption {
	return func(o *FindOptions) { o.Limit = n }
}

// WithFindSort sets the result order.
func WithFindSort(s Sort) FindOption {
	return func(o *FindOptions) { o.Sort = s }
}

// UpdateOptions are the parameters of [Executor.Update].
type UpdateOptions struct {
	// Multi updates every matching document instead of the first one.
	Multi bool
	// Upsert inserts a document built from the filter equalities and the
	// update when nothing matches.
	Upsert bool
}

// UpdateOption sets a field of [UpdateOptions].
type UpdateOption func(*UpdateOptions)

// NewUpdateOptions applies options over the zero UpdateOptions.
func NewUpdateOptions(options ...UpdateOption) UpdateOptions {
	var o UpdateOptions
	for _, option := range options {
		option(&o)
	}
	return o
}

// WithUpdateMulti sets [UpdateOptions.Multi].
func WithUpdateMulti(multi bool) UpdateOption {
	return func(o *UpdateOptions) { o.Multi = multi }
}

// WithUpsert sets [UpdateOptions.Upsert].
func WithUpsert(upsert bool) UpdateOption {
	return func(o *UpdateOptions) { o.Upsert = upsert }
}

// DeleteOptions are the parameters of [Executor.Delete].
type DeleteOptions struct {
	// Multi deletes every matching document instead of the first one.
	Multi bool
}

// DeleteOption sets a field of [DeleteOptions].
type DeleteOption func(*DeleteOptions)

// NewDeleteOptions applies options over the zero DeleteOptions.
func NewDeleteOptions(options ...DeleteOption) DeleteOptions {
	var o DeleteOptions
	for _, option := range options {
		option(&o)
	}
	return o
}

// WithDeleteMulti sets [DeleteOptions.Multi].
func WithDeleteMulti(multi bool) DeleteOption {
	return func(o *DeleteOptions) { o.Multi = multi }
}

// CursorOptions are the parameters of cursors returned by executors.
type CursorOptions struct {
	// Decoder fills the targets of [Cursor.Scan].
	Decoder Decoder
}

// CursorOption sets a field of [CursorOptions].
type CursorOption func(*CursorOptions)

// WithCursorDecoder sets [CursorOptions.Decoder].
func WithCursorDecoder(d Decoder) CursorOption {
	return func(o *CursorOptions) { o.Decoder = d }
}
