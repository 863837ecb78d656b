package fieldnavigator

import "github.com/vinicius-lino-figueiredo/godm/domain"

// Slot represents the place where a value lives inside a document, so it can
// be read, replaced or removed without walking the path again.
type Slot interface {
	// Get returns the value and whether it is defined. A value explicitly
	// set to nil is defined.
	Get() (value any, defined bool)
	// Set replaces the value.
	Set(any)
	// Unset removes the value. Array elements become nil, keeping the
	// positions of the other elements.
	Unset()
}

// ListSlot is a [Slot] that can read and write a specific index in a slice of
// [any].
type ListSlot struct {
	List  []any
	Index int
}

// Get implements [Slot].
func (l *ListSlot) Get() (value any, defined bool) {
	if l.Index >= 0 && l.Index < len(l.List) {
		return l.List[l.Index], true
	}
	return nil, false
}

// Set implements [Slot].
func (l *ListSlot) Set(value any) {
	if l.Index >= 0 && l.Index < len(l.List) {
		l.List[l.Index] = value
	}
}

// Unset implements [Slot].
func (l *ListSlot) Unset() {
	l.Set(nil)
}

// DocSlot is a [Slot] that can read and write a specific key in a
// [domain.Document].
type DocSlot struct {
	Doc domain.Document
	Key string
}

// Get implements [Slot].
func (d *DocSlot) Get() (value any, defined bool) {
	return d.Doc.Get(d.Key), d.Doc.Has(d.Key)
}

// Set implements [Slot].
func (d *DocSlot) Set(value any) {
	d.Doc.Set(d.Key, value)
}

// Unset implements [Slot].
func (d *DocSlot) Unset() {
	d.Doc.Unset(d.Key)
}
