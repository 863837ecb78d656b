// Package cursor iterates over query results one document at a time.
package cursor

import (
	"context"
	"iter"

	"github.com/vinicius-lino-figueiredo/godm/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Cursor implements [domain.Cursor] over a sequence of documents that is only
// advanced by [Cursor.Next]. Once the sequence fails, ends early through
// [Cursor.Close] or its context is done, the cursor reports the cause from
// every method.
type Cursor struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	dec    domain.Decoder
	pull   func() (domain.Document, error, bool)
	stop   func()
	doc    domain.Document
	moved  bool
}

// NewCursor returns a Cursor over a fixed slice of documents.
func NewCursor(ctx context.Context, docs []domain.Document, options ...domain.CursorOption) (domain.Cursor, error) {
	return NewSeqCursor(ctx, func(yield func(domain.Document, error) bool) {
		for _, doc := range docs {
			if !yield(doc, nil) {
				return
			}
		}
	}, options...)
}

// NewSeqCursor returns a Cursor pulling documents from seq. The first error
// yielded by seq ends the iteration and becomes the result of [Cursor.Err].
func NewSeqCursor(ctx context.Context, seq iter.Seq2[domain.Document, error], options ...domain.CursorOption) (domain.Cursor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := domain.CursorOptions{Decoder: decoder.NewDecoder()}
	for _, option := range options {
		option(&opts)
	}

	c := &Cursor{dec: opts.Decoder}
	c.ctx, c.cancel = context.WithCancelCause(ctx)
	c.pull, c.stop = iter.Pull2(seq)
	return c, nil
}

// done returns the reason the cursor stopped, if it did.
func (c *Cursor) done() error {
	if c.ctx.Err() == nil {
		return nil
	}
	return context.Cause(c.ctx)
}

// end releases the sequence and records why the cursor stopped.
func (c *Cursor) end(cause error) {
	c.stop()
	c.cancel(cause)
	c.doc = nil
}

// Next implements [domain.Cursor].
func (c *Cursor) Next() bool {
	if c.done() != nil {
		return false
	}
	c.moved = true
	doc, err, ok := c.pull()
	switch {
	case err != nil:
		c.end(err)
		return false
	case !ok:
		c.doc = nil
		return false
	}
	c.doc = doc
	return true
}

// Scan implements [domain.Cursor].
func (c *Cursor) Scan(ctx context.Context, target any) error {
	if err := c.done(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.moved || c.doc == nil {
		return domain.ErrScanBeforeNext
	}
	return c.dec.Decode(c.doc, target)
}

// Err implements [domain.Cursor].
func (c *Cursor) Err() error {
	return c.done()
}

// Close implements [domain.Cursor]. Cursors not read to the end must be
// closed to release their sequence. Closing twice returns
// [domain.ErrCursorClosed].
func (c *Cursor) Close() error {
	if err := c.done(); err != nil {
		return err
	}
	c.end(domain.ErrCursorClosed)
	return nil
}
