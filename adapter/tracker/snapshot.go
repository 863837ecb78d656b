// Package tracker records snapshots of records and computes what changed
// between them. Snapshots use the same encoding executors receive, so a
// [ChangeSet] can be sent as a $set update.
package tracker

import (
	"reflect"

	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/adapter/update"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

var cmpr = comparer.NewComparer()

// Snapshot is an immutable copy of a record in document form.
type Snapshot struct {
	doc data.M
}

// Capture encodes record into a snapshot. Struct records are encoded with
// their godm tags, with embedded structs flattened and unexported fields
// left out.
func Capture(record any) (Snapshot, error) {
	doc, err := data.NewDocument(record)
	if err != nil {
		return Snapshot{}, err
	}
	m, _ := data.Clone(doc).(data.M)
	return Snapshot{doc: m}, nil
}

// Get returns a copy of the value stored under key.
func (s Snapshot) Get(key string) any {
	return data.Clone(s.doc[key])
}

// Has reports whether the snapshot has a value under key.
func (s Snapshot) Has(key string) bool {
	_, ok := s.doc[key]
	return ok
}

// Len returns the number of top-level fields.
func (s Snapshot) Len() int {
	return len(s.doc)
}

// Map returns a copy of the snapshot as a document.
func (s Snapshot) Map() data.M {
	m, _ := data.Clone(s.doc).(data.M)
	if m == nil {
		m = data.M{}
	}
	return m
}

// Equal reports whether both snapshots hold the same values.
func (s Snapshot) Equal(other Snapshot) bool {
	return equal(s.doc, other.doc)
}

// IsChanged reports whether current differs from baseline.
func IsChanged(current, baseline Snapshot) bool {
	return !current.Equal(baseline)
}

// ChangeSet maps field paths to their new values. Nested changes use dotted
// paths.
type ChangeSet map[string]any

// Update returns the change set as a $set expression.
func (c ChangeSet) Update() update.Set {
	res := make(update.Set, len(c))
	for k, v := range c {
		res[k] = data.Clone(v)
	}
	return res
}

// Diff returns the fields of current that differ from baseline. When the
// field names of both snapshots differ, every field of current is returned.
// With recurse, changed sub-documents are compared field by field and their
// changes reported under dotted paths; otherwise they are replaced whole.
func Diff(baseline, current Snapshot, recurse bool) ChangeSet {
	return diff(baseline.doc, current.doc, recurse)
}

func diff(baseline, current domain.Document, recurse bool) ChangeSet {
	res := make(ChangeSet)
	if !sameKeys(baseline, current) {
		for k, v := range current.Iter() {
			res[k] = data.Clone(v)
		}
		return res
	}

	for k, v := range current.Iter() {
		old := baseline.Get(k)
		if equal(v, old) {
			continue
		}
		if recurse && old != nil {
			oldDoc, oldOK := data.AsDocument(old)
			newDoc, newOK := data.AsDocument(v)
			if oldOK && newOK {
				for sk, sv := range diff(oldDoc, newDoc, recurse) {
					res[k+"."+sk] = sv
				}
				continue
			}
		}
		res[k] = data.Clone(v)
	}
	return res
}

func sameKeys(a, b domain.Document) bool {
	if a.Len() != b.Len() {
		return false
	}
	for k := range b.Keys() {
		if !a.Has(k) {
			return false
		}
	}
	return true
}

func equal(a, b any) bool {
	c, err := cmpr.Compare(a, b)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	return c == 0
}
