// Package memstore contains an in-memory [domain.Executor]. Documents are
// kept in a primary key index ordered by _id, and every call runs under a
// single lock that gives up when the call context is done.
package memstore

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/godm/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/godm/adapter/idgenerator"
	"github.com/vinicius-lino-figueiredo/godm/adapter/index"
	"github.com/vinicius-lino-figueiredo/godm/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/godm/adapter/modifier"
	"github.com/vinicius-lino-figueiredo/godm/adapter/persistence"
	"github.com/vinicius-lino-figueiredo/godm/adapter/projector"
	"github.com/vinicius-lino-figueiredo/godm/adapter/querier"
	"github.com/vinicius-lino-figueiredo/godm/adapter/timegetter"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/ctxsync"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
	"go.uber.org/zap"
)

// Store implements [domain.Executor].
type Store struct {
	mu                    *ctxsync.Mutex
	index                 *index.Index
	querier               *querier.Querier
	persistence           *persistence.Persistence
	comparer              domain.Comparer
	matcher               domain.Matcher
	modifier              domain.Modifier
	projector             domain.Projector
	idGen                 domain.IDGenerator
	timeGetter            domain.TimeGetter
	dec                   domain.Decoder
	fn                    domain.FieldNavigator
	log                   *zap.Logger
	corruptAlertThreshold float64
}

// NewStore returns an empty Store.
func NewStore(options ...Option) *Store {
	s := &Store{
		mu:                    ctxsync.NewMutex(),
		fn:                    fieldnavigator.NewFieldNavigator(),
		corruptAlertThreshold: 0.1,
	}
	for _, option := range options {
		option(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.comparer == nil {
		s.comparer = comparer.NewComparer()
	}
	if s.matcher == nil {
		s.matcher = matcher.NewMatcher(
			matcher.WithComparer(s.comparer),
			matcher.WithFieldNavigator(s.fn),
		)
	}
	if s.timeGetter == nil {
		s.timeGetter = timegetter.NewTimeGetter()
	}
	if s.modifier == nil {
		s.modifier = modifier.NewModifier(
			modifier.WithComparer(s.comparer),
			modifier.WithMatcher(s.matcher),
			modifier.WithTimeGetter(s.timeGetter),
		)
	}
	if s.projector == nil {
		s.projector = projector.NewProjector(projector.WithFieldNavigator(s.fn))
	}
	if s.idGen == nil {
		s.idGen = idgenerator.NewIDGenerator(idgenerator.WithTimeOrdered(true))
	}
	if s.dec == nil {
		s.dec = decoder.NewDecoder()
	}
	s.index = index.NewIndex(s.comparer)
	s.querier = querier.NewQuerier(
		querier.WithComparer(s.comparer),
		querier.WithMatcher(s.matcher),
		querier.WithFieldNavigator(s.fn),
		querier.WithProjector(s.projector),
	)
	s.persistence = persistence.NewPersistence(
		persistence.WithComparer(s.comparer),
		persistence.WithCorruptAlertThreshold(s.corruptAlertThreshold),
		persistence.WithLogger(s.log),
	)
	return s
}

func (s *Store) all() iter.Seq2[domain.Document, error] {
	return func(yield func(domain.Document, error) bool) {
		for doc := range s.index.All() {
			if !yield(doc, nil) {
				return
			}
		}
	}
}

func cloneDoc(doc domain.Document) data.M {
	if doc == nil {
		return data.M{}
	}
	res, _ := data.Clone(doc).(data.M)
	return res
}

// Find implements [domain.Executor]. Results are copies of the stored
// documents.
func (s *Store) Find(ctx context.Context, filter domain.Document, opts ...domain.FindOption) (domain.Cursor, error) {
	o := domain.NewFindOptions(opts...)

	if err := s.mu.LockWithContext(ctx); err != nil {
		return nil, err
	}
	docs, err := s.querier.Query(s.all(), filter, o)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		res[n] = cloneDoc(doc)
	}

	s.log.Debug("find",
		zap.Any("filter", filter),
		zap.Int64("skip", o.Skip),
		zap.Int64("limit", o.Limit),
		zap.Int("found", len(res)),
	)
	return cursor.NewCursor(ctx, res, domain.WithCursorDecoder(s.dec))
}

// Count implements [domain.Executor].
func (s *Store) Count(ctx context.Context, filter domain.Document) (int64, error) {
	var n int64
	err := s.mu.Do(ctx, func() error {
		docs, err := s.querier.Query(s.all(), filter, domain.FindOptions{})
		n = int64(len(docs))
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Insert implements [domain.Executor]. Documents without _id get a generated
// one. Either every document is inserted or none is.
func (s *Store) Insert(ctx context.Context, docs ...domain.Document) ([]any, error) {
	prepared := make([]domain.Document, len(docs))
	ids := make([]any, len(docs))
	for n, d := range docs {
		doc, err := s.prepare(d)
		if err != nil {
			return nil, err
		}
		prepared[n] = doc
		ids[n] = doc.ID()
	}

	if err := s.mu.LockWithContext(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	if err := s.index.Insert(prepared...); err != nil {
		return nil, err
	}
	s.log.Debug("insert", zap.Any("ids", ids))
	return ids, nil
}

func (s *Store) prepare(d domain.Document) (data.M, error) {
	doc := cloneDoc(d)
	if doc.ID() == nil {
		id, err := s.idGen.GenerateID()
		if err != nil {
			return nil, fmt.Errorf("generating id: %w", err)
		}
		doc["_id"] = id
	}
	if id := doc.ID(); data.IsObject(id) || structure.IsList(id) {
		return nil, domain.ErrDocumentType{Type: fmt.Sprintf("%T", id)}
	}
	return doc, nil
}

type change struct {
	old, updated domain.Document
}

// Update implements [domain.Executor]. Changes are computed for every
// matched document before any of them is stored.
func (s *Store) Update(ctx context.Context, filter domain.Document, update domain.Document, opts ...domain.UpdateOption) (domain.UpdateResult, error) {
	o := domain.NewUpdateOptions(opts...)

	if err := s.mu.LockWithContext(ctx); err != nil {
		return domain.UpdateResult{}, err
	}
	defer s.mu.Unlock()

	var findOpts domain.FindOptions
	if !o.Multi {
		findOpts.Limit = 1
	}
	matched, err := s.querier.Query(s.all(), filter, findOpts)
	if err != nil {
		return domain.UpdateResult{}, err
	}

	changes := make([]change, 0, len(matched))
	for _, old := range matched {
		updated, err := s.modifier.Modify(old, update, false)
		if err != nil {
			return domain.UpdateResult{}, err
		}
		if c, err := s.comparer.Compare(old, updated); err == nil && c == 0 {
			continue
		}
		changes = append(changes, change{old: old, updated: updated})
	}
	for _, c := range changes {
		if err := s.index.Replace(c.old, c.updated); err != nil {
			return domain.UpdateResult{}, err
		}
	}

	res := domain.UpdateResult{
		Matched:  int64(len(matched)),
		Modified: int64(len(changes)),
	}
	if res.Matched == 0 && o.Upsert {
		if res.UpsertedID, err = s.upsert(filter, update); err != nil {
			return domain.UpdateResult{}, err
		}
	}

	s.log.Debug("update",
		zap.Any("filter", filter),
		zap.Any("update", update),
		zap.Int64("matched", res.Matched),
		zap.Int64("modified", res.Modified),
		zap.Any("upserted", res.UpsertedID),
	)
	return res, nil
}

// upsert inserts the document built from the equality conditions of filter
// with update applied to it.
func (s *Store) upsert(filter domain.Document, update domain.Document) (any, error) {
	base := data.M{}
	if err := s.equalities(base, filter); err != nil {
		return nil, err
	}
	doc, err := s.modifier.Modify(base, update, true)
	if err != nil {
		return nil, err
	}
	prepared, err := s.prepare(doc)
	if err != nil {
		return nil, err
	}
	if err := s.index.Insert(prepared); err != nil {
		return nil, err
	}
	return prepared.ID(), nil
}

// equalities copies into dst the fields filter fixes to a single value.
func (s *Store) equalities(dst data.M, filter domain.Document) error {
	if filter == nil {
		return nil
	}
	for key, value := range filter.Iter() {
		if key == "$and" {
			list, _ := value.([]any)
			for _, item := range list {
				if sub, ok := data.AsDocument(item); ok {
					if err := s.equalities(dst, sub); err != nil {
						return err
					}
				}
			}
			continue
		}
		if strings.HasPrefix(key, "$") {
			continue
		}
		if cond, ok := data.AsDocument(value); ok && isOperatorDoc(cond) {
			if !cond.Has("$eq") {
				continue
			}
			value = cond.Get("$eq")
		}
		slot, err := fieldnavigator.Ensure(dst, s.fn.GetAddress(key)...)
		if err != nil {
			return err
		}
		slot.Set(data.Clone(value))
	}
	return nil
}

func isOperatorDoc(d domain.Document) bool {
	if d.Len() == 0 {
		return false
	}
	for key := range d.Keys() {
		if !strings.HasPrefix(key, "$") {
			return false
		}
	}
	return true
}

// Delete implements [domain.Executor].
func (s *Store) Delete(ctx context.Context, filter domain.Document, opts ...domain.DeleteOption) (int64, error) {
	o := domain.NewDeleteOptions(opts...)

	if err := s.mu.LockWithContext(ctx); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	var findOpts domain.FindOptions
	if !o.Multi {
		findOpts.Limit = 1
	}
	matched, err := s.querier.Query(s.all(), filter, findOpts)
	if err != nil {
		return 0, err
	}
	if err := s.index.Remove(matched...); err != nil {
		return 0, err
	}

	s.log.Debug("delete", zap.Any("filter", filter), zap.Int("removed", len(matched)))
	return int64(len(matched)), nil
}

// Dump writes every document to w as JSON lines, ordered by _id.
func (s *Store) Dump(ctx context.Context, w io.Writer) error {
	return s.mu.Do(ctx, func() error {
		return s.persistence.Write(ctx, w, s.index.All())
	})
}

// Load replaces the contents of the store with the documents read from r,
// as written by [Store.Dump].
func (s *Store) Load(ctx context.Context, r io.Reader) error {
	docs, err := s.persistence.Read(ctx, r)
	if err != nil {
		return fmt.Errorf("loading documents: %w", err)
	}

	if err := s.mu.LockWithContext(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.index.Reset()
	if err := s.index.Insert(docs...); err != nil {
		s.index.Reset()
		return fmt.Errorf("loading documents: %w", err)
	}
	s.log.Debug("load", zap.Int("documents", len(docs)))
	return nil
}
