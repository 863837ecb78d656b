package godm

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-reflect"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/godm/adapter/query"
	"github.com/vinicius-lino-figueiredo/godm/adapter/tracker"
	"github.com/vinicius-lino-figueiredo/godm/adapter/update"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"go.uber.org/zap"
)

// Collection maps records of type T to the documents of an [Executor]. P is
// the pointer type of T and must implement [Trackable], which every struct
// embedding a [State] does.
type Collection[T any, P interface {
	*T
	tracker.Trackable
}] struct {
	exec     domain.Executor
	dec      domain.Decoder
	log      *zap.Logger
	tracking []tracker.Option
}

// NewCollection returns a Collection running on exec.
func NewCollection[T any, P interface {
	*T
	tracker.Trackable
}](exec domain.Executor, options ...Option) *Collection[T, P] {
	var s collectionSettings
	for _, option := range options {
		option(&s)
	}
	if s.dec == nil {
		s.dec = decoder.NewDecoder()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return &Collection[T, P]{
		exec:     exec,
		dec:      s.dec,
		log:      s.log,
		tracking: s.tracking,
	}
}

// Query returns an empty query whose results are tracked by the collection.
func (c *Collection[T, P]) Query(options ...query.Option) *query.Query[T] {
	opts := append([]query.Option{
		query.WithDecoder(c.dec),
		query.WithLogger(c.log),
		query.WithLoadHook(c.loaded),
	}, options...)
	return query.New[T](c.exec, opts...)
}

// Find returns a query filtered by args. See [query.Query.Filter].
func (c *Collection[T, P]) Find(args ...any) *query.Query[T] {
	return c.Query().Filter(args...)
}

// FindOne returns the first record matching args. The bool result is false
// if nothing matched.
func (c *Collection[T, P]) FindOne(ctx context.Context, args ...any) (T, bool, error) {
	return c.Query(query.WithSingle(true)).Filter(args...).First(ctx)
}

// Get returns the record with the given id, or [ErrNotFound].
func (c *Collection[T, P]) Get(ctx context.Context, id any) (T, error) {
	rec, found, err := c.FindOne(ctx, data.M{"_id": id})
	if err != nil {
		return rec, err
	}
	if !found {
		return rec, fmt.Errorf("%w: %v", domain.ErrNotFound, id)
	}
	return rec, nil
}

func (c *Collection[T, P]) loaded(record any) error {
	rec, ok := record.(P)
	if !ok {
		return domain.ErrDocumentType{Type: fmt.Sprintf("%T", record)}
	}
	return c.save(rec)
}

func (c *Collection[T, P]) save(rec P) error {
	state := rec.Tracker()
	state.Configure(c.tracking...)
	return state.Save(rec)
}

// encode returns the document form of rec. Zero ids are left out so the
// executor generates one.
func encode(rec any) (data.M, error) {
	doc, err := data.NewDocument(rec)
	if err != nil {
		return nil, err
	}
	m, ok := doc.(data.M)
	if !ok {
		return nil, domain.ErrDocumentType{Type: fmt.Sprintf("%T", doc)}
	}
	if id, has := m["_id"]; has && (id == nil || reflect.ValueOf(id).IsZero()) {
		delete(m, "_id")
	}
	return m, nil
}

// Insert stores records, setting the ids generated by the executor and
// saving their state.
func (c *Collection[T, P]) Insert(ctx context.Context, records ...P) error {
	docs := make([]domain.Document, len(records))
	for n, rec := range records {
		if rec == nil {
			return domain.ErrTargetNil
		}
		doc, err := encode(rec)
		if err != nil {
			return fmt.Errorf("encoding record %d: %w", n, err)
		}
		docs[n] = doc
	}

	ids, err := c.exec.Insert(ctx, docs...)
	if err != nil {
		return err
	}
	for n, rec := range records {
		if err := c.dec.Decode(data.M{"_id": ids[n]}, rec); err != nil {
			return err
		}
		if err := c.save(rec); err != nil {
			return err
		}
	}
	c.log.Debug("inserted records", zap.Any("ids", ids))
	return nil
}

func recordID(rec any) (any, error) {
	doc, err := encode(rec)
	if err != nil {
		return nil, err
	}
	id, ok := doc["_id"]
	if !ok {
		return nil, domain.ErrNoID
	}
	return id, nil
}

// Replace overwrites the stored document of rec with its current form.
func (c *Collection[T, P]) Replace(ctx context.Context, rec P) error {
	doc, err := encode(rec)
	if err != nil {
		return err
	}
	id, ok := doc["_id"]
	if !ok {
		return domain.ErrNoID
	}
	res, err := c.exec.Update(ctx, data.M{"_id": id}, doc)
	if err != nil {
		return err
	}
	if res.Matched == 0 {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, id)
	}
	return c.save(rec)
}

// SaveChanges sends the fields of rec that changed since it was loaded or
// last saved as a $set update. The bool result is false if nothing changed,
// in which case the executor is not called.
func (c *Collection[T, P]) SaveChanges(ctx context.Context, rec P) (bool, error) {
	state := rec.Tracker()
	changes, err := state.Changes(rec)
	if err != nil {
		return false, err
	}
	if len(changes) == 0 {
		return false, nil
	}

	saved, err := state.Saved()
	if err != nil {
		return false, err
	}
	id := saved.Get("_id")
	if id == nil {
		return false, domain.ErrNoID
	}

	res, err := c.exec.Update(ctx, data.M{"_id": id}, update.Merge(changes.Update()))
	if err != nil {
		return false, err
	}
	if res.Matched == 0 {
		return false, fmt.Errorf("%w: %v", domain.ErrNotFound, id)
	}
	c.log.Debug("saved changes", zap.Any("id", id), zap.Any("changes", changes))
	return true, c.save(rec)
}

// Delete removes the stored document of rec.
func (c *Collection[T, P]) Delete(ctx context.Context, rec P) error {
	id, err := recordID(rec)
	if err != nil {
		return err
	}
	n, err := c.exec.Delete(ctx, data.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %v", domain.ErrNotFound, id)
	}
	return nil
}

// IsNotFound reports whether err means a record was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
