// Package projector contains the default [domain.Projector] implementation.
package projector

import (
	"errors"
	"fmt"

	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

var (
	// ErrMixOmitType is returned when user provides a projection object
	// with mixed "omit" and "show" operators.
	ErrMixOmitType = errors.New("can't both keep and omit fields except for _id")
)

// ErrProjectionValue is returned when a projection field is set to something
// other than a number or a boolean.
type ErrProjectionValue struct {
	Field string
	Value any
}

// Error implements [error].
func (e ErrProjectionValue) Error() string {
	return fmt.Sprintf("projection of %q must be a number or a boolean, got %T", e.Field, e.Value)
}

// tree holds projected paths. A nil subtree means the whole field.
type tree map[string]tree

// Projector implements [domain.Projector].
type Projector struct {
	fn domain.FieldNavigator
}

// NewProjector returns a new implementation of [domain.Projector].
func NewProjector(opts ...Option) domain.Projector {
	p := Projector{}
	for _, opt := range opts {
		opt(&p)
	}
	if p.fn == nil {
		p.fn = fieldnavigator.NewFieldNavigator()
	}
	return &p
}

// Project implements [domain.Projector]. Fields are either all kept or all
// omitted, except for _id, which is kept unless explicitly omitted.
func (q *Projector) Project(docs []domain.Document, proj domain.Document) ([]domain.Document, error) {
	if proj == nil || proj.Len() == 0 {
		return docs, nil
	}

	keepID := true
	paths := make(tree, proj.Len())
	fields, oneFields := 0, 0
	for field, value := range proj.Iter() {
		show, ok := truthy(value)
		if !ok {
			return nil, ErrProjectionValue{Field: field, Value: value}
		}
		if field == "_id" {
			keepID = show
			continue
		}
		fields++
		if show {
			oneFields++
		}
		if oneFields > 0 && oneFields != fields {
			return nil, ErrMixOmitType
		}
		if err := paths.add(field, q.fn.GetAddress(field)); err != nil {
			return nil, err
		}
	}

	// {_id: 1} alone keeps nothing but the id
	include := oneFields > 0 || (fields == 0 && keepID)

	res := make([]domain.Document, len(docs))
	for n, doc := range docs {
		var projected data.M
		if include {
			projected = includeFields(doc, paths)
		} else {
			projected = excludeFields(doc, paths)
		}

		if keepID && doc.Has("_id") {
			projected["_id"] = data.Clone(doc.ID())
		} else {
			delete(projected, "_id")
		}
		res[n] = projected
	}

	return res, nil
}

func (t tree) add(field string, addr []string) error {
	current := t
	for n, part := range addr {
		if part == "" {
			return domain.ErrFieldName{Field: field, Reason: "empty field name"}
		}
		sub, exists := current[part]
		last := n == len(addr)-1
		if exists && (sub == nil || last) {
			return domain.ErrFieldName{Field: field, Reason: "path collision"}
		}
		if last {
			current[part] = nil
			return nil
		}
		if !exists {
			sub = tree{}
			current[part] = sub
		}
		current = sub
	}
	return nil
}

func includeFields(doc domain.Document, t tree) data.M {
	res := data.M{}
	for key, sub := range t {
		if !doc.Has(key) {
			continue
		}
		value := doc.Get(key)
		if sub == nil {
			res[key] = data.Clone(value)
			continue
		}
		switch v := value.(type) {
		case []any:
			list := make([]any, 0, len(v))
			for _, item := range v {
				if d, ok := data.AsDocument(item); ok {
					list = append(list, includeFields(d, sub))
				}
			}
			res[key] = list
		default:
			if d, ok := data.AsDocument(v); ok {
				res[key] = includeFields(d, sub)
			}
		}
	}
	return res
}

func excludeFields(doc domain.Document, t tree) data.M {
	res := data.Clone(doc).(data.M)
	for key, sub := range t {
		if !res.Has(key) {
			continue
		}
		if sub == nil {
			delete(res, key)
			continue
		}
		switch v := res[key].(type) {
		case []any:
			for n, item := range v {
				if d, ok := data.AsDocument(item); ok {
					v[n] = excludeFields(d, sub)
				}
			}
		default:
			if d, ok := data.AsDocument(v); ok {
				res[key] = excludeFields(d, sub)
			}
		}
	}
	return res
}

func truthy(v any) (bool, bool) {
	if b, ok := v.(bool); ok {
		return b, true
	}
	if f, ok := structure.AsFloat(v); ok {
		return f != 0, true
	}
	return false, false
}
