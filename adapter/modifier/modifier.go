// Package modifier contains a [domain.Modifier] implementation to apply changes
// to a doc based on a mongo-like API.
package modifier

import (
	"cmp"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/godm/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/godm/adapter/timegetter"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

var (
	// ErrMixedOperators is returned when user provides an update query with
	// mixed use of normal fields and dollar fields.
	ErrMixedOperators = errors.New("cannot mix modifiers and normal fields")
	// ErrNonObject is returned when a modifier value passed by user is not
	// an object.
	ErrNonObject = errors.New("modifier value must be an object")
	// ErrInvalidPushField is returned when user passes some field other
	// than $each, $position, $slice and $sort when using $push modifier.
	ErrInvalidPushField = errors.New("can only use $position, $slice and $sort in conjunction with $each when $push to array")
	// ErrInvalidAddToSetField is returned when user passes some field other
	// than $each when using $addToSet modifier.
	ErrInvalidAddToSetField = errors.New("cannot use another field in conjunction with $each")
)

// ErrModFieldType is returned when a modification function runs on a document
// field of a type that is not accepted.
type ErrModFieldType struct {
	Mod    string
	Want   string
	Actual any
}

// Error implements [error].
func (e ErrModFieldType) Error() string {
	return fmt.Sprintf("%s expects %s field, got %T", e.Mod, e.Want, e.Actual)
}

// ErrModArgType is returned when a modification function is called with an
// argument of a type that is not accepted.
type ErrModArgType struct {
	Mod    string
	Want   string
	Actual any
}

// Error implements [error].
func (e ErrModArgType) Error() string {
	return fmt.Sprintf("%s expects %s arg, got %T", e.Mod, e.Want, e.Actual)
}

// ErrModQuery is returned when provided modification query does not match the
// general expected mongo-like structure.
type ErrModQuery struct {
	Reason string
}

// Error implements [error].
func (e ErrModQuery) Error() string {
	return fmt.Sprintf("invalid modification query: %s", e.Reason)
}

// ErrUnknownModifier is returned when the user specifies a modification query
// with a modification procedure that is not known by the current implementation
// of [Modifier].
type ErrUnknownModifier struct {
	Name string
}

// Error implements [error].
func (e ErrUnknownModifier) Error() string {
	return fmt.Sprintf("unknown modifier %q", e.Name)
}

type modFunc func(domain.Document, []string, any) error

type modCall struct {
	name  string
	field string
	fn    modFunc
	arg   any
}

// Modifier implements [domain.Modifier].
type Modifier struct {
	comp       domain.Comparer
	matcher    domain.Matcher
	timeGetter domain.TimeGetter
	mods       map[string]modFunc
}

// NewModifier returns a new implementation of domain.Modifier.
func NewModifier(options ...Option) domain.Modifier {
	m := &Modifier{}
	for _, option := range options {
		option(m)
	}
	if m.comp == nil {
		m.comp = comparer.NewComparer()
	}
	if m.matcher == nil {
		m.matcher = matcher.NewMatcher(matcher.WithComparer(m.comp))
	}
	if m.timeGetter == nil {
		m.timeGetter = timegetter.NewTimeGetter()
	}

	m.mods = map[string]modFunc{
		"$set":         m.set,
		"$setOnInsert": m.set,
		"$unset":       m.unset,
		"$inc":         m.inc,
		"$mul":         m.mul,
		"$min":         m.min,
		"$max":         m.max,
		"$rename":      m.rename,
		"$currentDate": m.currentDate,
		"$push":        m.push,
		"$addToSet":    m.addToSet,
		"$pop":         m.pop,
		"$pull":        m.pull,
		"$pullAll":     m.pullAll,
		"$bit":         m.bit,
	}

	return m
}

// Modify implements [domain.Modifier]. Documents without operators replace
// obj, keeping its _id. $setOnInsert is only applied when insert is true.
func (m *Modifier) Modify(obj domain.Document, mod domain.Document, insert bool) (domain.Document, error) {
	if obj == nil {
		obj = data.M{}
	}
	modQry, replace, err := m.modQuery(obj, mod)
	if err != nil {
		return nil, err
	}

	if replace {
		return m.replaceMod(obj, modQry), nil
	}

	return m.dollarMod(obj, modQry, insert)
}

func (m *Modifier) modQuery(obj domain.Document, mod domain.Document) (map[string]any, bool, error) {
	dollarFields, total := 0, 0

	query := make(map[string]any, mod.Len())
	for k, v := range mod.Iter() {
		total++
		if err := m.checkMod(obj, k, v); err != nil {
			return nil, false, err
		}
		if strings.HasPrefix(k, "$") {
			dollarFields++
		}
		if dollarFields != 0 && dollarFields != total {
			return nil, false, ErrMixedOperators
		}
		query[k] = v
	}
	return query, dollarFields == 0, nil
}

func (m *Modifier) checkMod(obj domain.Document, key string, value any) error {
	if key != "_id" || !obj.Has("_id") {
		return nil
	}
	if !m.equal(value, obj.ID()) {
		return domain.ErrCannotModifyID
	}
	return nil
}

func (m *Modifier) replaceMod(obj domain.Document, qry map[string]any) domain.Document {
	newDoc := make(data.M, len(qry)+1)
	for k, v := range qry {
		newDoc[k] = data.Clone(v)
	}
	if obj.Has("_id") {
		newDoc["_id"] = obj.ID()
	}
	return newDoc
}

func (m *Modifier) dollarMod(obj domain.Document, qry map[string]any, insert bool) (domain.Document, error) {
	calls := make([]modCall, 0, len(qry))
	for modName, arg := range qry {
		fn, ok := m.mods[modName]
		if !ok {
			return nil, ErrUnknownModifier{Name: modName}
		}
		d, ok := data.AsDocument(arg)
		if !ok {
			return nil, ErrNonObject
		}
		if modName == "$setOnInsert" && !insert {
			continue
		}
		for field, value := range d.Iter() {
			calls = append(calls, modCall{name: modName, field: field, fn: fn, arg: value})
		}
	}
	slices.SortFunc(calls, func(a, b modCall) int {
		return cmp.Or(cmp.Compare(a.name, b.name), cmp.Compare(a.field, b.field))
	})

	if err := m.checkConflicts(calls); err != nil {
		return nil, err
	}

	docCopy, _ := data.Clone(obj).(data.M)
	for _, call := range calls {
		if err := call.fn(docCopy, strings.Split(call.field, "."), call.arg); err != nil {
			return nil, fmt.Errorf("modifying field %q: %w", call.field, err)
		}
	}

	hadID := obj.Has("_id")
	if hadID != docCopy.Has("_id") || (hadID && !m.equal(obj.ID(), docCopy.ID())) {
		return nil, domain.ErrCannotModifyID
	}

	return docCopy, nil
}

// checkConflicts rejects updates touching the same path, or a path and one
// of its parents, more than once.
func (m *Modifier) checkConflicts(calls []modCall) error {
	paths := make([]string, 0, len(calls))
	for _, call := range calls {
		if err := validPath(call.field); err != nil {
			return err
		}
		paths = append(paths, call.field)
		if target, ok := call.arg.(string); ok && call.name == "$rename" {
			if err := validPath(target); err != nil {
				return err
			}
			paths = append(paths, target)
		}
	}
	for i, a := range paths {
		for _, b := range paths[i+1:] {
			if a == b || strings.HasPrefix(a, b+".") || strings.HasPrefix(b, a+".") {
				return ErrModQuery{Reason: fmt.Sprintf("updating the path %q would create a conflict at %q", b, a)}
			}
		}
	}
	return nil
}

func validPath(path string) error {
	if slices.Contains(strings.Split(path, "."), "") {
		return ErrModQuery{Reason: fmt.Sprintf("empty field name in %q", path)}
	}
	if strings.HasPrefix(path, "$") {
		return ErrModQuery{Reason: fmt.Sprintf("field name %q starts with $", path)}
	}
	return nil
}

func (m *Modifier) equal(a, b any) bool {
	c, err := m.comp.Compare(a, b)
	if err != nil {
		return reflect.DeepEqual(a, b)
	}
	return c == 0
}

func (m *Modifier) set(obj domain.Document, addr []string, arg any) error {
	slot, err := fieldnavigator.Ensure(obj, addr...)
	if err != nil {
		return err
	}
	slot.Set(data.Clone(arg))
	return nil
}

func (m *Modifier) unset(obj domain.Document, addr []string, _ any) error {
	if slot, ok := fieldnavigator.Find(obj, addr...); ok {
		slot.Unset()
	}
	return nil
}

func (m *Modifier) inc(obj domain.Document, addr []string, v any) error {
	if _, ok := asNumber(v); !ok {
		return ErrModArgType{Mod: "$inc", Want: "number", Actual: v}
	}
	slot, err := fieldnavigator.Ensure(obj, addr...)
	if err != nil {
		return err
	}
	value, defined := slot.Get()
	if !defined || value == nil {
		slot.Set(v)
		return nil
	}
	if _, ok := asNumber(value); !ok {
		return ErrModFieldType{Mod: "$inc", Want: "number", Actual: value}
	}
	slot.Set(add(value, v))
	return nil
}

func (m *Modifier) mul(obj domain.Document, addr []string, v any) error {
	if _, ok := asNumber(v); !ok {
		return ErrModArgType{Mod: "$mul", Want: "number", Actual: v}
	}
	slot, err := fieldnavigator.Ensure(obj, addr...)
	if err != nil {
		return err
	}
	value, defined := slot.Get()
	if !defined || value == nil {
		slot.Set(mul(v, 0))
		return nil
	}
	if _, ok := asNumber(value); !ok {
		return ErrModFieldType{Mod: "$mul", Want: "number", Actual: value}
	}
	slot.Set(mul(value, v))
	return nil
}

func (m *Modifier) max(obj domain.Document, addr []string, v any) error {
	return m.minMax(obj, addr, v, func(c int) bool { return c < 0 })
}

func (m *Modifier) min(obj domain.Document, addr []string, v any) error {
	return m.minMax(obj, addr, v, func(c int) bool { return c > 0 })
}

// minMax replaces the field with v when replace returns true for the
// comparison of the current value with v. Missing fields are always set.
func (m *Modifier) minMax(obj domain.Document, addr []string, v any, replace func(int) bool) error {
	slot, err := fieldnavigator.Ensure(obj, addr...)
	if err != nil {
		return err
	}
	value, defined := slot.Get()
	if !defined {
		slot.Set(data.Clone(v))
		return nil
	}
	c, err := m.comp.Compare(value, v)
	if err != nil {
		return err
	}
	if replace(c) {
		slot.Set(data.Clone(v))
	}
	return nil
}

func (m *Modifier) rename(obj domain.Document, addr []string, v any) error {
	target, ok := v.(string)
	if !ok || target == "" {
		return ErrModArgType{Mod: "$rename", Want: "non-empty string", Actual: v}
	}
	src, ok := fieldnavigator.Find(obj, addr...)
	if !ok {
		return nil
	}
	value, _ := src.Get()
	src.Unset()
	dst, err := fieldnavigator.Ensure(obj, strings.Split(target, ".")...)
	if err != nil {
		return err
	}
	dst.Set(value)
	return nil
}

func (m *Modifier) currentDate(obj domain.Document, addr []string, v any) error {
	valid := v == true
	if d, ok := data.AsDocument(v); ok && d.Len() == 1 {
		typ := d.Get("$type")
		valid = typ == "date" || typ == "timestamp"
	}
	if !valid {
		return ErrModArgType{Mod: "$currentDate", Want: "true or a $type document", Actual: v}
	}
	return m.set(obj, addr, m.timeGetter.GetTime())
}

// arrayField returns the array stored in slot. Missing and nil fields are
// read as empty arrays.
func arrayField(mod string, slot fieldnavigator.Slot) ([]any, error) {
	value, defined := slot.Get()
	if !defined || value == nil {
		return []any{}, nil
	}
	list, ok := value.([]any)
	if !ok {
		return nil, ErrModFieldType{Mod: mod, Want: "array", Actual: value}
	}
	return list, nil
}

type eachProps struct {
	each     []any
	position *int
	slice    *int
	sort     any
}

func (m *Modifier) eachProperties(mod string, d domain.Document) (*eachProps, error) {
	seq, l, err := structure.Seq(d.Get("$each"))
	if err != nil {
		return nil, ErrModArgType{Mod: "$each", Want: "array", Actual: d.Get("$each")}
	}
	props := &eachProps{each: make([]any, 0, l)}
	for item := range seq {
		props.each = append(props.each, data.Clone(item))
	}

	for key, value := range d.Iter() {
		switch key {
		case "$each":
		case "$position", "$slice":
			if mod != "$push" {
				return nil, ErrInvalidAddToSetField
			}
			n, ok := structure.AsInteger(value)
			if !ok {
				return nil, ErrModArgType{Mod: key, Want: "integer", Actual: value}
			}
			if key == "$position" {
				props.position = &n
			} else {
				props.slice = &n
			}
		case "$sort":
			if mod != "$push" {
				return nil, ErrInvalidAddToSetField
			}
			props.sort = value
		default:
			if mod != "$push" {
				return nil, ErrInvalidAddToSetField
			}
			return nil, ErrInvalidPushField
		}
	}
	return props, nil
}

func (m *Modifier) push(obj domain.Document, addr []string, v any) error {
	slot, err := fieldnavigator.Ensure(obj, addr...)
	if err != nil {
		return err
	}
	array, err := arrayField("$push", slot)
	if err != nil {
		return err
	}

	props := &eachProps{each: []any{data.Clone(v)}}
	if d, ok := data.AsDocument(v); ok && d.Has("$each") {
		if props, err = m.eachProperties("$push", d); err != nil {
			return fmt.Errorf("getting properties for $push: %w", err)
		}
	}

	pos := len(array)
	if props.position != nil {
		pos = *props.position
		if pos < 0 {
			pos = max(0, len(array)+pos)
		}
		pos = min(pos, len(array))
	}
	res := make([]any, 0, len(array)+len(props.each))
	res = append(res, array[:pos]...)
	res = append(res, props.each...)
	res = append(res, array[pos:]...)

	if props.sort != nil {
		if err := m.sortArray(res, props.sort); err != nil {
			return err
		}
	}

	if props.slice != nil {
		if n := *props.slice; n >= 0 {
			res = res[:min(n, len(res))]
		} else {
			res = res[max(0, len(res)+n):]
		}
	}

	slot.Set(res)
	return nil
}

// sortArray sorts elements by value, when spec is 1 or -1, or by the fields
// of a sort document.
func (m *Modifier) sortArray(list []any, spec any) error {
	if order, ok := structure.AsInteger(spec); ok && (order == 1 || order == -1) {
		slices.SortStableFunc(list, func(a, b any) int {
			c, _ := m.comp.Compare(a, b)
			return c * order
		})
		return nil
	}
	d, ok := data.AsDocument(spec)
	if !ok || d.Len() == 0 {
		return ErrModArgType{Mod: "$sort", Want: "1, -1 or a sort document", Actual: spec}
	}
	type key struct {
		addr  []string
		order int
	}
	keys := make([]key, 0, d.Len())
	for field, value := range d.Iter() {
		order, ok := structure.AsInteger(value)
		if !ok || (order != 1 && order != -1) {
			return ErrModArgType{Mod: "$sort", Want: "1 or -1 for each field", Actual: value}
		}
		keys = append(keys, key{addr: strings.Split(field, "."), order: order})
	}
	slices.SortFunc(keys, func(a, b key) int {
		return slices.Compare(a.addr, b.addr)
	})
	slices.SortStableFunc(list, func(a, b any) int {
		for _, k := range keys {
			x, _ := fieldnavigator.Lookup(a, k.addr...)
			y, _ := fieldnavigator.Lookup(b, k.addr...)
			if c, _ := m.comp.Compare(x, y); c != 0 {
				return c * k.order
			}
		}
		return 0
	})
	return nil
}

func (m *Modifier) addToSet(obj domain.Document, addr []string, v any) error {
	slot, err := fieldnavigator.Ensure(obj, addr...)
	if err != nil {
		return err
	}
	array, err := arrayField("$addToSet", slot)
	if err != nil {
		return err
	}

	values := []any{data.Clone(v)}
	if d, ok := data.AsDocument(v); ok && d.Has("$each") {
		props, err := m.eachProperties("$addToSet", d)
		if err != nil {
			return fmt.Errorf("getting properties for $addToSet: %w", err)
		}
		values = props.each
	}

	res := slices.Clone(array)
	for _, value := range values {
		if !slices.ContainsFunc(res, func(item any) bool { return m.equal(item, value) }) {
			res = append(res, value)
		}
	}
	slot.Set(res)
	return nil
}

func (m *Modifier) pop(obj domain.Document, addr []string, v any) error {
	n, ok := structure.AsInteger(v)
	if !ok || (n != 1 && n != -1) {
		return ErrModArgType{Mod: "$pop", Want: "1 or -1", Actual: v}
	}
	slot, ok := fieldnavigator.Find(obj, addr...)
	if !ok {
		return nil
	}
	array, err := arrayField("$pop", slot)
	if err != nil || len(array) == 0 {
		return err
	}
	if n == 1 {
		slot.Set(slices.Clone(array[:len(array)-1]))
	} else {
		slot.Set(slices.Clone(array[1:]))
	}
	return nil
}

func (m *Modifier) pull(obj domain.Document, addr []string, v any) error {
	slot, ok := fieldnavigator.Find(obj, addr...)
	if !ok {
		return nil
	}
	array, err := arrayField("$pull", slot)
	if err != nil {
		return err
	}

	res := make([]any, 0, len(array))
	for _, item := range array {
		matches, err := m.pullMatches(item, v)
		if err != nil {
			return err
		}
		if !matches {
			res = append(res, item)
		}
	}
	slot.Set(res)
	return nil
}

// pullMatches reports whether a $pull condition selects item. Operator
// documents apply to the item itself and field documents to the fields of
// document items.
func (m *Modifier) pullMatches(item, cond any) (bool, error) {
	d, ok := data.AsDocument(cond)
	if !ok {
		return m.equal(item, cond), nil
	}
	operators := false
	for key := range d.Keys() {
		if strings.HasPrefix(key, "$") {
			operators = true
			break
		}
	}
	if operators {
		return m.matcher.Match(data.M{"v": item}, data.M{"v": cond})
	}
	itemDoc, ok := data.AsDocument(item)
	if !ok {
		return false, nil
	}
	return m.matcher.Match(itemDoc, d)
}

func (m *Modifier) pullAll(obj domain.Document, addr []string, v any) error {
	seq, _, err := structure.Seq(v)
	if err != nil {
		return ErrModArgType{Mod: "$pullAll", Want: "array", Actual: v}
	}
	values := slices.Collect(seq)

	slot, ok := fieldnavigator.Find(obj, addr...)
	if !ok {
		return nil
	}
	array, err := arrayField("$pullAll", slot)
	if err != nil {
		return err
	}
	res := slices.DeleteFunc(slices.Clone(array), func(item any) bool {
		return slices.ContainsFunc(values, func(value any) bool { return m.equal(item, value) })
	})
	slot.Set(res)
	return nil
}

func (m *Modifier) bit(obj domain.Document, addr []string, v any) error {
	ops, ok := data.AsDocument(v)
	if !ok || ops.Len() == 0 {
		return ErrModArgType{Mod: "$bit", Want: "document", Actual: v}
	}
	slot, err := fieldnavigator.Ensure(obj, addr...)
	if err != nil {
		return err
	}
	value, defined := slot.Get()
	if !defined {
		value = 0
	}
	n, ok := asInt64(value)
	if !ok {
		return ErrModFieldType{Mod: "$bit", Want: "integer", Actual: value}
	}

	keys := slices.Sorted(ops.Keys())
	for _, op := range keys {
		arg, ok := asInt64(ops.Get(op))
		if !ok {
			return ErrModArgType{Mod: "$bit", Want: "integer", Actual: ops.Get(op)}
		}
		switch op {
		case "and":
			n &= arg
		case "or":
			n |= arg
		case "xor":
			n ^= arg
		default:
			return ErrModQuery{Reason: fmt.Sprintf("unknown $bit operation %q", op)}
		}
	}
	if _, isInt := value.(int); isInt {
		slot.Set(int(n))
	} else {
		slot.Set(n)
	}
	return nil
}
