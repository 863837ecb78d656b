package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
	"go.uber.org/zap"
)

type stageFunc func(docs []domain.Document, arg any) ([]domain.Document, error)

// Aggregate implements [domain.Executor]. Supported stages are $match, $sort,
// $skip, $limit, $project, $count, $unwind and $addFields (or its $set
// alias).
func (s *Store) Aggregate(ctx context.Context, pipeline []domain.Document) (domain.Cursor, error) {
	stages := map[string]stageFunc{
		"$match":     s.matchStage,
		"$sort":      s.sortStage,
		"$skip":      s.skipStage,
		"$limit":     s.limitStage,
		"$project":   s.projectStage,
		"$count":     s.countStage,
		"$unwind":    s.unwindStage,
		"$addFields": s.addFieldsStage,
		"$set":       s.addFieldsStage,
	}

	if err := s.mu.LockWithContext(ctx); err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, s.index.Len())
	for doc := range s.index.All() {
		docs = append(docs, cloneDoc(doc))
	}
	s.mu.Unlock()

	for n, stage := range pipeline {
		if stage == nil || stage.Len() != 1 {
			return nil, fmt.Errorf("stage %d: a stage must have exactly one field", n)
		}
		for name, arg := range stage.Iter() {
			fn, ok := stages[name]
			if !ok {
				return nil, domain.ErrUnsupportedStage{Stage: name}
			}
			var err error
			if docs, err = fn(docs, arg); err != nil {
				return nil, fmt.Errorf("stage %d (%s): %w", n, name, err)
			}
		}
	}

	s.log.Debug("aggregate", zap.Int("stages", len(pipeline)), zap.Int("results", len(docs)))
	return cursor.NewCursor(ctx, docs, domain.WithCursorDecoder(s.dec))
}

func (s *Store) matchStage(docs []domain.Document, arg any) ([]domain.Document, error) {
	filter, ok := data.AsDocument(arg)
	if !ok {
		return nil, domain.ErrDocumentType{Type: fmt.Sprintf("%T", arg)}
	}
	res := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		matches, err := s.querier.Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if matches {
			res = append(res, doc)
		}
	}
	return res, nil
}

func (s *Store) sortStage(docs []domain.Document, arg any) ([]domain.Document, error) {
	sort, err := sortSpec(arg)
	if err != nil {
		return nil, err
	}
	return s.querier.Sort(docs, sort)
}

// sortSpec reads a $sort argument. Sort documents have no field order, so
// their keys are applied alphabetically.
func sortSpec(arg any) (domain.Sort, error) {
	if sort, ok := arg.(domain.Sort); ok {
		return sort, nil
	}
	d, ok := data.AsDocument(arg)
	if !ok || d.Len() == 0 {
		return nil, domain.ErrInvalidSortArgument{Type: fmt.Sprintf("%T", arg), Value: fmt.Sprintf("%v", arg)}
	}
	sort := make(domain.Sort, 0, d.Len())
	for _, key := range slices.Sorted(d.Keys()) {
		order, ok := structure.AsInteger(d.Get(key))
		if !ok || (order != 1 && order != -1) {
			return nil, domain.ErrInvalidSortArgument{Type: fmt.Sprintf("%T", d.Get(key)), Value: fmt.Sprintf("%v", d.Get(key))}
		}
		sort = append(sort, domain.SortName{Key: key, Order: int64(order)})
	}
	return sort, nil
}

func pagination(name string, arg any) (int64, error) {
	n, ok := structure.AsInteger(arg)
	if !ok {
		return 0, domain.ErrDocumentType{Type: fmt.Sprintf("%T", arg)}
	}
	if n < 0 {
		return 0, domain.ErrInvalidPagination{Name: name, Value: int64(n)}
	}
	return int64(n), nil
}

func (s *Store) skipStage(docs []domain.Document, arg any) ([]domain.Document, error) {
	n, err := pagination("skip", arg)
	if err != nil {
		return nil, err
	}
	return s.querier.SkipAndLimit(docs, n, 0), nil
}

func (s *Store) limitStage(docs []domain.Document, arg any) ([]domain.Document, error) {
	n, err := pagination("limit", arg)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return []domain.Document{}, nil
	}
	return s.querier.SkipAndLimit(docs, 0, n), nil
}

func (s *Store) projectStage(docs []domain.Document, arg any) ([]domain.Document, error) {
	proj, ok := data.AsDocument(arg)
	if !ok {
		return nil, domain.ErrDocumentType{Type: fmt.Sprintf("%T", arg)}
	}
	return s.projector.Project(docs, proj)
}

func (s *Store) countStage(docs []domain.Document, arg any) ([]domain.Document, error) {
	field, ok := arg.(string)
	if !ok || field == "" || strings.HasPrefix(field, "$") || strings.Contains(field, ".") {
		return nil, domain.ErrFieldName{Field: fmt.Sprintf("%v", arg), Reason: "$count needs a plain field name"}
	}
	return []domain.Document{data.M{field: int64(len(docs))}}, nil
}

// unwindStage outputs a document per array element. Documents whose field is
// missing, nil or an empty array are dropped unless
// preserveNullAndEmptyArrays is set.
func (s *Store) unwindStage(docs []domain.Document, arg any) ([]domain.Document, error) {
	path, preserve := "", false
	switch t := arg.(type) {
	case string:
		path = t
	default:
		d, ok := data.AsDocument(arg)
		if !ok {
			return nil, domain.ErrDocumentType{Type: fmt.Sprintf("%T", arg)}
		}
		path, _ = d.Get("path").(string)
		preserve, _ = d.Get("preserveNullAndEmptyArrays").(bool)
	}
	if !strings.HasPrefix(path, "$") || len(path) == 1 {
		return nil, domain.ErrFieldName{Field: path, Reason: "$unwind path must start with $"}
	}
	addr := s.fn.GetAddress(path[1:])

	res := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		value, found := fieldnavigator.Lookup(doc, addr...)
		list, isList := value.([]any)
		switch {
		case !found || value == nil || (isList && len(list) == 0):
			if preserve {
				res = append(res, doc)
			}
		case !isList:
			res = append(res, doc)
		default:
			for _, item := range list {
				c := cloneDoc(doc)
				slot, err := fieldnavigator.Ensure(c, addr...)
				if err != nil {
					return nil, err
				}
				slot.Set(data.Clone(item))
				res = append(res, c)
			}
		}
	}
	return res, nil
}

// addFieldsStage sets fields on every document. String values starting with
// $ copy the referenced field; other values are literals.
func (s *Store) addFieldsStage(docs []domain.Document, arg any) ([]domain.Document, error) {
	fields, ok := data.AsDocument(arg)
	if !ok {
		return nil, domain.ErrDocumentType{Type: fmt.Sprintf("%T", arg)}
	}
	keys := slices.Sorted(fields.Keys())

	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		c := cloneDoc(doc)
		for _, key := range keys {
			value := fields.Get(key)
			if ref, isRef := value.(string); isRef && strings.HasPrefix(ref, "$") {
				v, found := fieldnavigator.Lookup(doc, s.fn.GetAddress(ref[1:])...)
				if !found {
					continue
				}
				value = v
			}
			slot, err := fieldnavigator.Ensure(c, s.fn.GetAddress(key)...)
			if err != nil {
				return nil, err
			}
			slot.Set(data.Clone(value))
		}
		res[n] = c
	}
	return res, nil
}
