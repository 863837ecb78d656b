package tracker

import (
	"github.com/goccy/go-reflect"
	"github.com/vinicius-lino-figueiredo/godm/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

var stateType = reflect.TypeOf(State{})

// Trackable is implemented by records embedding a [State].
type Trackable interface {
	Tracker() *State
}

// SavePrevious keeps the snapshot replaced by each [State.Save], enabling
// [State.HasChanged] and [State.PreviousChanges].
func SavePrevious(enabled bool) Option {
	return func(s *State) {
		s.savePrevious = enabled
	}
}

// ReplaceObjects makes changed sub-documents be replaced whole instead of
// being compared field by field.
func ReplaceObjects(enabled bool) Option {
	return func(s *State) {
		s.replaceObjects = enabled
	}
}

// Option configures a State through the functional options pattern.
type Option func(*State)

// State holds the snapshots of a record. It is meant to be embedded in
// records and has no exported fields, so it is not stored with them.
type State struct {
	savePrevious   bool
	replaceObjects bool
	saved          *Snapshot
	previous       *Snapshot
}

// NewState returns a State with the given options applied.
func NewState(options ...Option) State {
	var s State
	s.Configure(options...)
	return s
}

// Configure applies options to s.
func (s *State) Configure(options ...Option) {
	for _, option := range options {
		option(s)
	}
}

// Tracker implements Trackable.
func (s *State) Tracker() *State {
	return s
}

// Save captures record as the new baseline.
func (s *State) Save(record any) error {
	snap, err := Capture(record)
	if err != nil {
		return err
	}
	if s.savePrevious {
		s.previous = s.saved
	}
	s.saved = &snap
	return nil
}

// Saved returns the current baseline.
func (s *State) Saved() (Snapshot, error) {
	if s.saved == nil {
		return Snapshot{}, domain.ErrNoSavedState{Operation: "Saved"}
	}
	return *s.saved, nil
}

// IsChanged reports whether record differs from the baseline.
func (s *State) IsChanged(record any) (bool, error) {
	if s.saved == nil {
		return false, domain.ErrNoSavedState{Operation: "IsChanged"}
	}
	current, err := Capture(record)
	if err != nil {
		return false, err
	}
	return IsChanged(current, *s.saved), nil
}

// Changes returns what changed in record since the baseline.
func (s *State) Changes(record any) (ChangeSet, error) {
	if s.saved == nil {
		return nil, domain.ErrNoSavedState{Operation: "Changes"}
	}
	current, err := Capture(record)
	if err != nil {
		return nil, err
	}
	return Diff(*s.saved, current, !s.replaceObjects), nil
}

// HasChanged reports whether the last two baselines differ.
func (s *State) HasChanged() (bool, error) {
	if s.saved == nil || s.previous == nil {
		return false, domain.ErrNoSavedState{Operation: "HasChanged"}
	}
	return IsChanged(*s.saved, *s.previous), nil
}

// PreviousChanges returns what changed between the last two baselines.
func (s *State) PreviousChanges() (ChangeSet, error) {
	if s.saved == nil || s.previous == nil {
		return nil, domain.ErrNoSavedState{Operation: "PreviousChanges"}
	}
	return Diff(*s.previous, *s.saved, !s.replaceObjects), nil
}

// Rollback resets record to the baseline. record must be a pointer to a
// struct; embedded States are left untouched.
func (s *State) Rollback(record any) error {
	if s.saved == nil {
		return domain.ErrNoSavedState{Operation: "Rollback"}
	}
	v := reflect.ValueOf(record)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return domain.ErrNonPointer
	}
	if v = v.Elem(); v.Kind() != reflect.Struct {
		return domain.ErrDocumentType{Type: v.Type().String()}
	}
	for n := range v.NumField() {
		field := v.Field(n)
		if !field.CanSet() || isState(field.Type()) {
			continue
		}
		field.Set(reflect.Zero(field.Type()))
	}
	return decoder.NewDecoder().Decode(s.saved.Map(), record)
}

func isState(t reflect.Type) bool {
	return t == stateType || (t.Kind() == reflect.Ptr && t.Elem() == stateType)
}
