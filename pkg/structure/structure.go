// Package structure contains type-related operations, such as iterating over a
// value of type any and converting numbers.
package structure

import (
	"errors"
	"fmt"
	"iter"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-reflect"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// TagName is the struct tag that renames or hides fields in [Seq2].
const TagName = "godm"

var (
	// ErrNilObj may be returned by [Seq] or [Seq2] when a nil value is
	// passed as argument.
	ErrNilObj = errors.New("nil object")
)

var (
	docReflectType  = reflect.TypeOf((*domain.Document)(nil)).Elem()
	timeReflectType = reflect.TypeOf(time.Time{})
)

// ErrorNonObject is returned by [Seq2] when a value that is neither a struct,
// map nor a [domain.Document] is passed as argument.
type ErrorNonObject struct {
	Type string
}

func (e ErrorNonObject) Error() string {
	return fmt.Sprintf("cannot iterate over fields of %s", e.Type)
}

// ErrorNonList is returned by [Seq] when a value that is neither a slice
// nor a array is passed as argument.
type ErrorNonList struct {
	Type string
}

func (e ErrorNonList) Error() string {
	return fmt.Sprintf("cannot iterate over elements of %s", e.Type)
}

// Seq2 returns an iterator over the fields of a string-keyed map, a struct or
// a [domain.Document], along with the number of fields.
func Seq2(obj any) (iter.Seq2[string, any], int, error) {
	switch t := obj.(type) {
	case nil:
		return nil, 0, ErrNilObj
	case domain.Document:
		return t.Iter(), t.Len(), nil
	case map[string]any:
		return iterMap(t), len(t), nil
	}

	v := reflect.ValueNoEscapeOf(obj)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, 0, ErrNilObj
		}
		v = v.Elem()
	}

	if v.Type().Implements(docReflectType) {
		doc := v.Interface().(domain.Document)
		return doc.Iter(), doc.Len(), nil
	}

	switch {
	case v.Kind() == reflect.Map && v.Type().Key().Kind() == reflect.String:
		return iterReflectMap(v), v.Len(), nil
	case v.Kind() == reflect.Struct && v.Type() != timeReflectType:
		fields := structFields(v)
		return iterPairs(fields), len(fields), nil
	}
	return nil, 0, ErrorNonObject{Type: v.Type().String()}
}

type pair struct {
	key   string
	value any
}

func iterPairs(pairs []pair) iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, p := range pairs {
			if !yield(p.key, p.value) {
				return
			}
		}
	}
}

func iterMap[T any](m map[string]T) iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for k, v := range m {
			if !yield(k, v) {
				return
			}
		}
	}
}

func iterReflectMap(v reflect.Value) iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		it := v.MapRange()
		for it.Next() {
			if !yield(it.Key().String(), it.Value().Interface()) {
				return
			}
		}
	}
}

// structFields lists exported fields, honoring the godm tag name and the
// "-", "omitempty" and "omitzero" options.
func structFields(v reflect.Value) []pair {
	typ := v.Type()
	res := make([]pair, 0, typ.NumField())
	for n := range typ.NumField() {
		field := typ.Field(n)
		if field.PkgPath != "" {
			continue
		}
		name := field.Name
		var opts []string
		if tag, ok := field.Tag.Lookup(TagName); ok {
			if tag == "-" {
				continue
			}
			segments := strings.Split(tag, ",")
			if segments[0] != "" {
				name = segments[0]
			}
			opts = segments[1:]
		}
		value := v.Field(n)
		if slices.Contains(opts, "omitzero") && value.IsZero() {
			continue
		}
		if slices.Contains(opts, "omitempty") && isNil(value) {
			continue
		}
		res = append(res, pair{key: name, value: value.Interface()})
	}
	return res
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Map, reflect.Ptr,
		reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}

// Seq returns an iterator over a slice or array of any type, along with its
// length. Byte slices are not considered lists.
func Seq(obj any) (iter.Seq[any], int, error) {
	switch t := obj.(type) {
	case nil:
		return nil, 0, ErrNilObj
	case []any:
		return slices.Values(t), len(t), nil
	case []string:
		return iterSlice(t), len(t), nil
	case []byte:
		return nil, 0, ErrorNonList{Type: "[]uint8"}
	}

	v := reflect.ValueNoEscapeOf(obj)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return func(yield func(any) bool) {
			for i := range v.Len() {
				if !yield(v.Index(i).Interface()) {
					return
				}
			}
		}, v.Len(), nil
	}
	return nil, 0, ErrorNonList{Type: v.Type().String()}
}

// IsList reports whether [Seq] accepts obj.
func IsList(obj any) bool {
	_, _, err := Seq(obj)
	return err == nil
}

func iterSlice[T any](s []T) iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	}
}

// AsInteger converts any built-in number to int and returns a flag that informs
// if the argument is a valid integer.
func AsInteger(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int8:
		return int(t), true
	case int16:
		return int(t), true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint:
		return int(t), true
	case uint8:
		return int(t), true
	case uint16:
		return int(t), true
	case uint32:
		return int(t), true
	case uint64:
		return int(t), true
	case float32:
		return floatToInt(float64(t))
	case float64:
		return floatToInt(t)
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if trunc := math.Trunc(f); trunc == f && !math.IsInf(f, 0) {
		return int(trunc), true
	}
	return 0, false
}

// AsFloat converts any built-in number to float64 and returns a flag that
// informs if the argument is a number.
func AsFloat(v any) (float64, bool) {
	if n, ok := AsInteger(v); ok {
		return float64(n), true
	}
	switch t := v.(type) {
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}

// IsNumber reports whether v is any built-in number.
func IsNumber(v any) bool {
	_, ok := AsFloat(v)
	return ok
}
