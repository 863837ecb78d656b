// Package fieldnavigator contains the default [domain.FieldNavigator]
// implementation and helpers to read and write nested document fields.
package fieldnavigator

import (
	"strconv"
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// FieldNavigator implements [domain.FieldNavigator].
type FieldNavigator struct{}

// NewFieldNavigator returns a new implementation of [domain.FieldNavigator].
func NewFieldNavigator() domain.FieldNavigator {
	return &FieldNavigator{}
}

// GetAddress implements [domain.FieldNavigator].
func (fn *FieldNavigator) GetAddress(field string) []string {
	return strings.Split(field, ".")
}

// GetField implements [domain.FieldNavigator]. When a path part reaches an
// array, a numeric part selects one element and any other part is applied to
// every document inside the array.
func (fn *FieldNavigator) GetField(doc any, parts ...string) ([]any, bool) {
	current := []any{doc}
	for _, part := range parts {
		next := make([]any, 0, len(current))
		for _, value := range current {
			next = fn.step(next, value, part)
		}
		if len(next) == 0 {
			return nil, false
		}
		current = next
	}
	return current, true
}

func (fn *FieldNavigator) step(dst []any, value any, part string) []any {
	if doc, ok := data.AsDocument(value); ok {
		if doc.Has(part) {
			dst = append(dst, doc.Get(part))
		}
		return dst
	}
	list, ok := value.([]any)
	if !ok {
		return dst
	}
	if idx, err := strconv.Atoi(part); err == nil {
		if idx >= 0 && idx < len(list) {
			dst = append(dst, list[idx])
		}
		return dst
	}
	for _, item := range list {
		if doc, ok := data.AsDocument(item); ok && doc.Has(part) {
			dst = append(dst, doc.Get(part))
		}
	}
	return dst
}

// Lookup returns the value found at the exact path, without expanding arrays.
// Numeric parts index into arrays.
func Lookup(doc any, parts ...string) (any, bool) {
	current := doc
	for _, part := range parts {
		switch t := current.(type) {
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(t) {
				return nil, false
			}
			current = t[idx]
		default:
			d, ok := data.AsDocument(current)
			if !ok || !d.Has(part) {
				return nil, false
			}
			current = d.Get(part)
		}
	}
	return current, true
}

// Ensure returns a [Slot] for the given path, creating missing intermediate
// documents. It fails if the path crosses a value that is neither a document
// nor an array.
func Ensure(doc domain.Document, parts ...string) (Slot, error) {
	if len(parts) == 0 {
		return nil, domain.ErrFieldName{Field: "", Reason: "empty path"}
	}
	var current any = doc
	for n, part := range parts {
		last := n == len(parts)-1
		field := strings.Join(parts[:n+1], ".")
		switch t := current.(type) {
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(t) {
				return nil, domain.ErrFieldName{Field: field, Reason: "invalid array index"}
			}
			if last {
				return &ListSlot{List: t, Index: idx}, nil
			}
			if t[idx] == nil {
				t[idx] = data.M{}
			}
			current = t[idx]
		default:
			d, ok := data.AsDocument(current)
			if !ok {
				return nil, domain.ErrFieldName{Field: field, Reason: "parent is not an object"}
			}
			if last {
				return &DocSlot{Doc: d, Key: part}, nil
			}
			if !d.Has(part) || d.Get(part) == nil {
				d.Set(part, data.M{})
			}
			current = d.Get(part)
		}
	}
	return nil, nil
}

// Find returns a [Slot] for an existing path without creating anything. The
// bool result is false when the path leads nowhere.
func Find(doc domain.Document, parts ...string) (Slot, bool) {
	if len(parts) == 0 {
		return nil, false
	}
	parent, ok := Lookup(doc, parts[:len(parts)-1]...)
	if !ok {
		return nil, false
	}
	key := parts[len(parts)-1]
	if list, ok := parent.([]any); ok {
		idx, err := strconv.Atoi(key)
		if err != nil || idx < 0 || idx >= len(list) {
			return nil, false
		}
		return &ListSlot{List: list, Index: idx}, true
	}
	d, ok := data.AsDocument(parent)
	if !ok || !d.Has(key) {
		return nil, false
	}
	return &DocSlot{Doc: d, Key: key}, true
}
