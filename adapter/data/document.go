// Package data contains the default [domain.Document] implementation and the
// struct encoding used to turn records into documents.
package data

import (
	"iter"
	"maps"
	"slices"
	"strings"
	"time"

	goreflect "github.com/goccy/go-reflect"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// TagName is the struct tag read when encoding and decoding records.
const TagName = "godm"

var (
	timeTyp = goreflect.TypeOf(*new(time.Time))
	docTyp  = goreflect.TypeOf((*domain.Document)(nil)).Elem()
)

// M implements domain.Document by using a hashed map. Duplicates replace old
// values.
type M map[string]any

// NewDocument returns a new instance of [domain.Document]. Structs, maps and
// pointers to them are accepted. Nested structs and maps become [M] values and
// slices become []any, so the result only holds plain document values.
func NewDocument(in any) (domain.Document, error) {
	if in == nil {
		return M{}, nil
	}

	r := goreflect.ValueNoEscapeOf(in)
	k := r.Kind()
	for k == goreflect.Interface || k == goreflect.Ptr {
		if r.IsNil() {
			return M{}, nil
		}
		r = r.Elem()
		k = r.Kind()
	}
	if k != goreflect.Struct && k != goreflect.Map || r.Type() == timeTyp {
		return nil, domain.ErrDocumentType{Type: r.Type().String()}
	}
	doc, err := parseReflect(r)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return M{}, nil
	}
	return doc.(M), nil
}

// Encode converts any value to its document form, the same way
// [NewDocument] converts each field.
func Encode(in any) (any, error) {
	if in == nil {
		return nil, nil
	}
	return parseReflect(goreflect.ValueNoEscapeOf(in))
}

func parseReflect(r goreflect.Value) (any, error) {
	if !r.IsValid() {
		return nil, nil
	}
	if v, ok := parseSimple(r); ok {
		return v, nil
	}
	for r.Kind() == goreflect.Ptr || r.Kind() == goreflect.Interface {
		if r.IsNil() {
			return nil, nil
		}
		r = r.Elem()
	}
	switch r.Kind() {
	case goreflect.Slice:
		if r.IsNil() {
			return nil, nil
		}
		fallthrough
	case goreflect.Array:
		if r.Type().Elem().Kind() == goreflect.Uint8 {
			return r.Interface(), nil
		}
		return parseList(r)
	case goreflect.Struct:
		if r.Type() == timeTyp {
			return r.Interface(), nil
		}
		return parseStruct(r)
	case goreflect.Map:
		if r.IsNil() {
			return nil, nil
		}
		return parseMapReflect(r)
	case goreflect.Chan, goreflect.Func:
		if r.IsNil() {
			return nil, nil
		}
		return r.Interface(), nil
	default:
		return parseNamed(r), nil
	}
}

// parseSimple handles the values that are already in document form.
func parseSimple(r goreflect.Value) (any, bool) {
	if !r.CanInterface() {
		return nil, false
	}
	switch t := r.Interface().(type) {
	case nil:
		return nil, true
	case string, bool, float64, int, int64, time.Time:
		return t, true
	case M:
		res, _ := Clone(t).(M)
		return res, true
	case map[string]any:
		res := make(M, len(t))
		for k, v := range t {
			res[k] = Clone(v)
		}
		return res, true
	case []any:
		return Clone(t), true
	}
	return nil, false
}

// parseNamed strips user-defined types from primitive values, so that
// `type Status string` is stored as a plain string.
func parseNamed(r goreflect.Value) any {
	if r.Type().PkgPath() == "" {
		return r.Interface()
	}
	switch r.Kind() {
	case goreflect.String:
		return r.String()
	case goreflect.Bool:
		return r.Bool()
	case goreflect.Int, goreflect.Int8, goreflect.Int16, goreflect.Int32, goreflect.Int64:
		return r.Int()
	case goreflect.Uint, goreflect.Uint8, goreflect.Uint16, goreflect.Uint32, goreflect.Uint64:
		return r.Uint()
	case goreflect.Float32, goreflect.Float64:
		return r.Float()
	default:
		return r.Interface()
	}
}

func parseStruct(r goreflect.Value) (M, error) {
	typ := r.Type()
	numField := r.NumField()

	res := make(M, numField)

	for n := range numField {
		field := typ.Field(n)
		fieldValue := r.Field(n)

		if field.Anonymous && field.PkgPath == "" {
			if _, tagged := field.Tag.Lookup(TagName); !tagged {
				if err := parseEmbedded(res, fieldValue); err != nil {
					return nil, err
				}
				continue
			}
		}

		if field.PkgPath != "" {
			continue
		}

		fieldInfo, err := parseField(fieldValue, field)
		if err != nil {
			return nil, err
		}

		if fieldInfo == nil {
			continue
		}
		res[fieldInfo.name] = fieldInfo.value
	}
	return res, nil
}

// parseEmbedded promotes the fields of an untagged embedded struct into the
// parent document. Fields declared on the parent win.
func parseEmbedded(res M, r goreflect.Value) error {
	for r.Kind() == goreflect.Ptr {
		if r.IsNil() {
			return nil
		}
		r = r.Elem()
	}
	if r.Kind() != goreflect.Struct || r.Type() == timeTyp {
		return nil
	}
	sub, err := parseStruct(r)
	if err != nil {
		return err
	}
	for k, v := range sub {
		if _, ok := res[k]; !ok {
			res[k] = v
		}
	}
	return nil
}

func parseMapReflect(v goreflect.Value) (M, error) {
	if v.Type().Key().Kind() != goreflect.String {
		return nil, domain.ErrDocumentType{Type: v.Type().String()}
	}
	res := make(M, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		var err error
		if res[iter.Key().String()], err = parseReflect(goreflect.ToValue(iter.Value())); err != nil {
			return nil, err
		}
	}
	return res, nil
}

type field struct {
	name  string
	value any
}

func parseField(r goreflect.Value, typ goreflect.StructField) (*field, error) {
	name := typ.Name
	var tagSegments []string
	if tag, ok := typ.Tag.Lookup(TagName); ok {
		if tag == "-" {
			return nil, nil
		}
		tagSegments = strings.Split(tag, ",")
		if tagSegments[0] != "" {
			name = tagSegments[0]
		}
		tagSegments = tagSegments[1:]
	}
	if slices.Contains(tagSegments, "omitempty") && isEmpty(r) {
		return nil, nil
	}
	if slices.Contains(tagSegments, "omitzero") && r.IsZero() {
		return nil, nil
	}

	value, err := parseReflect(r)
	if err != nil {
		return nil, err
	}

	return &field{name: name, value: value}, nil
}

func parseList(r goreflect.Value) ([]any, error) {
	length := r.Len()
	res := make([]any, length)
	for i := range length {
		v, err := parseReflect(r.Index(i))
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func isEmpty(r goreflect.Value) bool {
	switch r.Kind() {
	case goreflect.Ptr, goreflect.Interface, goreflect.Func, goreflect.Chan:
		return r.IsNil()
	case goreflect.Slice, goreflect.Map, goreflect.String, goreflect.Array:
		return r.Len() == 0
	default:
		return false
	}
}

// Clone returns a deep copy of documents and lists. Other values are returned
// as they are.
func Clone(v any) any {
	switch t := v.(type) {
	case M:
		res := make(M, len(t))
		for k, v := range t {
			res[k] = Clone(v)
		}
		return res
	case map[string]any:
		res := make(M, len(t))
		for k, v := range t {
			res[k] = Clone(v)
		}
		return res
	case domain.Document:
		res := make(M, t.Len())
		for k, v := range t.Iter() {
			res[k] = Clone(v)
		}
		return res
	case []any:
		res := make([]any, len(t))
		for n, v := range t {
			res[n] = Clone(v)
		}
		return res
	default:
		return v
	}
}

// AsDocument returns the value as a document if it is object-like. Plain
// string-keyed maps are accepted too.
func AsDocument(v any) (domain.Document, bool) {
	switch t := v.(type) {
	case M:
		return t, true
	case map[string]any:
		return M(t), true
	case domain.Document:
		return t, true
	}
	if v == nil {
		return nil, false
	}
	if goreflect.TypeOf(v).Implements(docTyp) {
		return v.(domain.Document), true
	}
	return nil, false
}

// IsObject reports whether the value is object-like.
func IsObject(v any) bool {
	_, ok := AsDocument(v)
	return ok
}

// ID implements domain.Document
func (d M) ID() any {
	return d["_id"]
}

// Get implements domain.Document
func (d M) Get(key string) any {
	return d[key]
}

// Set implements domain.Document
func (d M) Set(key string, value any) {
	d[key] = value
}

// Unset implements domain.Document
func (d M) Unset(key string) {
	delete(d, key)
}

// Has implements domain.Document.
func (d M) Has(key string) bool {
	_, has := d[key]
	return has
}

// Iter implements domain.Document.
func (d M) Iter() iter.Seq2[string, any] {
	return maps.All(d)
}

// Keys implements domain.Document.
func (d M) Keys() iter.Seq[string] {
	return maps.Keys(d)
}

// Len implements domain.Document.
func (d M) Len() int {
	return len(d)
}
