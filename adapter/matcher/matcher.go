// Package matcher contains the default implementation of [domain.Matcher]
// using a mongo-like filter language.
package matcher

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
	"github.com/xeipuuv/gojsonschema"
)

var (
	// ErrMixedOperators is returned when user provides a query with mixed
	// use of normal fields and operators.
	ErrMixedOperators = errors.New("cannot mix operators and normal fields")
)

// ErrCompArgType is returned when an operator is called with an argument of
// invalid type.
type ErrCompArgType struct {
	Comp   string
	Want   string
	Actual any
}

// Error implements [error].
func (e ErrCompArgType) Error() string {
	return fmt.Sprintf(
		"%s value should be %s, got %T",
		e.Comp, e.Want, e.Actual,
	)
}

// Matcher implements [domain.Matcher].
type Matcher struct {
	comparer       domain.Comparer
	fieldNavigator domain.FieldNavigator
}

// NewMatcher returns a new implementation of domain.Matcher.
func NewMatcher(options ...Option) domain.Matcher {
	m := &Matcher{}
	for _, option := range options {
		option(m)
	}
	if m.comparer == nil {
		m.comparer = comparer.NewComparer()
	}
	if m.fieldNavigator == nil {
		m.fieldNavigator = fieldnavigator.NewFieldNavigator()
	}
	return m
}

// Match implements [domain.Matcher]. A nil filter matches every document.
func (m *Matcher) Match(doc domain.Document, filter domain.Document) (bool, error) {
	if filter == nil {
		return true, nil
	}
	return m.matchDoc(doc, filter)
}

func (m *Matcher) matchDoc(doc any, filter domain.Document) (bool, error) {
	for key, value := range filter.Iter() {
		matches, err := m.matchKey(doc, key, value)
		if err != nil || !matches {
			return false, err
		}
	}
	return true, nil
}

func (m *Matcher) matchKey(doc any, key string, value any) (bool, error) {
	if !strings.HasPrefix(key, "$") {
		addr := m.fieldNavigator.GetAddress(key)
		values, found := m.fieldNavigator.GetField(doc, addr...)
		return m.matchField(values, found, value)
	}

	switch key {
	case "$and", "$or", "$nor":
		filters, err := m.subFilters(key, value)
		if err != nil {
			return false, err
		}
		return m.matchLogic(doc, key, filters)
	case "$not":
		sub, ok := data.AsDocument(value)
		if !ok {
			return false, ErrCompArgType{Comp: key, Want: "a document", Actual: value}
		}
		matches, err := m.matchDoc(doc, sub)
		if err != nil {
			return false, err
		}
		return !matches, nil
	case "$where":
		fn, ok := value.(func(any) (bool, error))
		if !ok {
			return false, domain.ErrUnsupportedOperator{Operator: key}
		}
		return fn(doc)
	case "$jsonSchema":
		return m.matchSchema(doc, value)
	case "$comment":
		return true, nil
	case "$text", "$expr":
		return false, domain.ErrUnsupportedOperator{Operator: key}
	default:
		return false, domain.ErrUnknownOperator{Operator: key}
	}
}

func (m *Matcher) subFilters(op string, value any) ([]domain.Document, error) {
	items, l, err := structure.Seq(value)
	if err != nil || l == 0 {
		return nil, ErrCompArgType{Comp: op, Want: "a non-empty list", Actual: value}
	}
	res := make([]domain.Document, 0, l)
	for item := range items {
		doc, ok := data.AsDocument(item)
		if !ok {
			return nil, ErrCompArgType{Comp: op, Want: "a list of documents", Actual: item}
		}
		res = append(res, doc)
	}
	return res, nil
}

func (m *Matcher) matchLogic(doc any, op string, filters []domain.Document) (bool, error) {
	for _, filter := range filters {
		matches, err := m.matchDoc(doc, filter)
		if err != nil {
			return false, err
		}
		switch {
		case op == "$and" && !matches:
			return false, nil
		case op == "$or" && matches:
			return true, nil
		case op == "$nor" && matches:
			return false, nil
		}
	}
	return op != "$or", nil
}

func (m *Matcher) matchSchema(doc any, schema any) (bool, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return false, fmt.Errorf("$jsonSchema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return false, fmt.Errorf("$jsonSchema: %w", err)
	}
	return res.Valid(), nil
}

// operators returns cond as a document of operators. The bool result is false
// when cond is a literal value.
func (m *Matcher) operators(cond any) (domain.Document, bool, error) {
	doc, ok := data.AsDocument(cond)
	if !ok || doc.Len() == 0 {
		return nil, false, nil
	}
	var dollar int
	for key := range doc.Keys() {
		if strings.HasPrefix(key, "$") {
			dollar++
		}
	}
	switch dollar {
	case 0:
		return nil, false, nil
	case doc.Len():
		return doc, true, nil
	default:
		return nil, false, ErrMixedOperators
	}
}

func (m *Matcher) matchField(values []any, found bool, cond any) (bool, error) {
	ops, ok, err := m.operators(cond)
	if err != nil {
		return false, err
	}
	if !ok {
		return m.eq(values, found, cond), nil
	}
	for op, arg := range ops.Iter() {
		matches, err := m.matchOp(values, found, op, arg, ops)
		if err != nil || !matches {
			return false, err
		}
	}
	return true, nil
}

func (m *Matcher) matchOp(values []any, found bool, op string, arg any, ops domain.Document) (bool, error) {
	switch op {
	case "$eq":
		return m.eq(values, found, arg), nil
	case "$ne":
		return !m.eq(values, found, arg), nil
	case "$gt":
		return m.compareAny(values, arg, func(c int) bool { return c > 0 }), nil
	case "$gte":
		return m.compareAny(values, arg, func(c int) bool { return c >= 0 }), nil
	case "$lt":
		return m.compareAny(values, arg, func(c int) bool { return c < 0 }), nil
	case "$lte":
		return m.compareAny(values, arg, func(c int) bool { return c <= 0 }), nil
	case "$in":
		return m.in(values, found, op, arg)
	case "$nin":
		in, err := m.in(values, found, op, arg)
		return !in && err == nil, err
	case "$exists":
		return found == truthy(arg), nil
	case "$type":
		return m.matchType(values, found, arg)
	case "$all":
		return m.all(values, found, arg)
	case "$size":
		return m.size(values, arg)
	case "$elemMatch":
		return m.elemMatch(values, arg)
	case "$regex":
		options, _ := ops.Get("$options").(string)
		return m.regex(values, arg, options)
	case "$options":
		if !ops.Has("$regex") {
			return false, ErrCompArgType{Comp: op, Want: "used along with $regex", Actual: arg}
		}
		return true, nil
	case "$mod":
		return m.mod(values, arg)
	case "$not":
		return m.not(values, found, arg)
	case "$bitsAllClear", "$bitsAllSet", "$bitsAnyClear", "$bitsAnySet":
		return m.bits(values, op, arg)
	case "$geoIntersects", "$geoWithin", "$near", "$nearSphere":
		return false, domain.ErrUnsupportedOperator{Operator: op}
	default:
		return false, domain.ErrUnknownOperator{Operator: op}
	}
}

// eq reports whether any value equals target, or is an array containing it.
// A nil target also matches missing fields.
func (m *Matcher) eq(values []any, found bool, target any) bool {
	if !found {
		return target == nil
	}
	for _, value := range values {
		if m.equal(value, target) {
			return true
		}
		if list, ok := value.([]any); ok {
			for _, item := range list {
				if m.equal(item, target) {
					return true
				}
			}
		}
	}
	return false
}

func (m *Matcher) equal(value, target any) bool {
	if rgx, ok := target.(*regexp.Regexp); ok {
		str, ok := value.(string)
		return ok && rgx.MatchString(str)
	}
	c, err := m.comparer.Compare(value, target)
	if err != nil {
		return reflect.DeepEqual(value, target)
	}
	return c == 0
}

func (m *Matcher) compareAny(values []any, target any, pred func(int) bool) bool {
	check := func(v any) bool {
		if !m.comparer.Comparable(v, target) {
			return false
		}
		c, err := m.comparer.Compare(v, target)
		return err == nil && pred(c)
	}
	for _, value := range values {
		if check(value) {
			return true
		}
		if list, ok := value.([]any); ok {
			for _, item := range list {
				if check(item) {
					return true
				}
			}
		}
	}
	return false
}

func (m *Matcher) list(op string, arg any) ([]any, error) {
	items, l, err := structure.Seq(arg)
	if err != nil {
		return nil, ErrCompArgType{Comp: op, Want: "a list", Actual: arg}
	}
	res := make([]any, 0, l)
	for item := range items {
		res = append(res, item)
	}
	return res, nil
}

func (m *Matcher) in(values []any, found bool, op string, arg any) (bool, error) {
	items, err := m.list(op, arg)
	if err != nil {
		return false, err
	}
	for _, item := range items {
		if m.eq(values, found, item) {
			return true, nil
		}
	}
	return false, nil
}

func (m *Matcher) all(values []any, found bool, arg any) (bool, error) {
	items, err := m.list("$all", arg)
	if err != nil || len(items) == 0 {
		return false, err
	}
	for _, item := range items {
		if !m.eq(values, found, item) {
			return false, nil
		}
	}
	return true, nil
}

func (m *Matcher) size(values []any, arg any) (bool, error) {
	n, ok := structure.AsInteger(arg)
	if !ok {
		return false, ErrCompArgType{Comp: "$size", Want: "an integer", Actual: arg}
	}
	for _, value := range values {
		if list, ok := value.([]any); ok && len(list) == n {
			return true, nil
		}
	}
	return false, nil
}

func (m *Matcher) elemMatch(values []any, arg any) (bool, error) {
	cond, ok := data.AsDocument(arg)
	if !ok {
		return false, ErrCompArgType{Comp: "$elemMatch", Want: "a document", Actual: arg}
	}
	for _, value := range values {
		list, ok := value.([]any)
		if !ok {
			continue
		}
		for _, item := range list {
			matches, err := m.matchElem(item, cond)
			if err != nil || matches {
				return matches, err
			}
		}
	}
	return false, nil
}

// matchElem matches one array element. Operators apply to the element
// itself and field names to the fields of document elements.
func (m *Matcher) matchElem(item any, cond domain.Document) (bool, error) {
	for key, value := range cond.Iter() {
		var matches bool
		var err error
		switch key {
		case "$and", "$or", "$nor", "$not", "$where", "$jsonSchema", "$text", "$expr", "$comment":
			matches, err = m.matchKey(item, key, value)
		default:
			if strings.HasPrefix(key, "$") {
				matches, err = m.matchOp([]any{item}, true, key, value, cond)
			} else {
				matches, err = m.matchKey(item, key, value)
			}
		}
		if err != nil || !matches {
			return false, err
		}
	}
	return true, nil
}

func (m *Matcher) regex(values []any, arg any, options string) (bool, error) {
	rgx, err := compileRegex(arg, options)
	if err != nil {
		return false, err
	}
	for _, value := range values {
		if m.equal(value, rgx) {
			return true, nil
		}
		if list, ok := value.([]any); ok {
			for _, item := range list {
				if m.equal(item, rgx) {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func compileRegex(arg any, options string) (*regexp.Regexp, error) {
	var pattern string
	switch t := arg.(type) {
	case *regexp.Regexp:
		if options == "" {
			return t, nil
		}
		pattern = t.String()
	case string:
		pattern = t
	default:
		return nil, ErrCompArgType{Comp: "$regex", Want: "a string or regexp", Actual: arg}
	}
	if options != "" {
		for _, r := range options {
			if !strings.ContainsRune("ims", r) {
				return nil, ErrCompArgType{Comp: "$options", Want: "made of the flags i, m and s", Actual: options}
			}
		}
		pattern = "(?" + options + ")" + pattern
	}
	return regexp.Compile(pattern)
}

func (m *Matcher) mod(values []any, arg any) (bool, error) {
	items, err := m.list("$mod", arg)
	if err != nil || len(items) != 2 {
		return false, ErrCompArgType{Comp: "$mod", Want: "a list of divisor and remainder", Actual: arg}
	}
	divisor, okD := structure.AsFloat(items[0])
	remainder, okR := structure.AsFloat(items[1])
	if !okD || !okR || math.Trunc(divisor) == 0 {
		return false, ErrCompArgType{Comp: "$mod", Want: "a list of divisor and remainder", Actual: arg}
	}
	divisor, remainder = math.Trunc(divisor), math.Trunc(remainder)
	for _, value := range values {
		n, ok := structure.AsFloat(value)
		if ok && math.Mod(math.Trunc(n), divisor) == remainder {
			return true, nil
		}
	}
	return false, nil
}

func (m *Matcher) not(values []any, found bool, arg any) (bool, error) {
	if _, ok := arg.(*regexp.Regexp); ok {
		return !m.eq(values, found, arg), nil
	}
	if _, ok, err := m.operators(arg); err != nil || !ok {
		if err == nil {
			err = ErrCompArgType{Comp: "$not", Want: "a document of operators or a regexp", Actual: arg}
		}
		return false, err
	}
	matches, err := m.matchField(values, found, arg)
	if err != nil {
		return false, err
	}
	return !matches, nil
}

func (m *Matcher) bits(values []any, op string, arg any) (bool, error) {
	mask, err := bitmask(op, arg)
	if err != nil {
		return false, err
	}
	for _, value := range values {
		n, ok := structure.AsInteger(value)
		if !ok {
			continue
		}
		bits := int64(n) & mask
		var matches bool
		switch op {
		case "$bitsAllClear":
			matches = bits == 0
		case "$bitsAllSet":
			matches = bits == mask
		case "$bitsAnyClear":
			matches = bits != mask
		case "$bitsAnySet":
			matches = bits != 0
		}
		if matches {
			return true, nil
		}
	}
	return false, nil
}

// bitmask accepts a numeric mask or a list of bit positions.
func bitmask(op string, arg any) (int64, error) {
	if n, ok := structure.AsInteger(arg); ok {
		return int64(n), nil
	}
	positions, _, err := structure.Seq(arg)
	if err != nil {
		return 0, ErrCompArgType{Comp: op, Want: "a number or a list of bit positions", Actual: arg}
	}
	var mask int64
	for p := range positions {
		pos, ok := structure.AsInteger(p)
		if !ok || pos < 0 || pos > 62 {
			return 0, ErrCompArgType{Comp: op, Want: "a number or a list of bit positions", Actual: arg}
		}
		mask |= 1 << pos
	}
	return mask, nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	}
	if n, ok := structure.AsFloat(v); ok {
		return n != 0
	}
	return true
}

var typeCodes = map[int]string{
	1:  "double",
	2:  "string",
	3:  "object",
	4:  "array",
	5:  "binData",
	8:  "bool",
	9:  "date",
	10: "null",
	16: "int",
	18: "long",
}

func (m *Matcher) matchType(values []any, found bool, arg any) (bool, error) {
	wanted := make(map[string]bool)
	add := func(t any) error {
		switch v := t.(type) {
		case string:
			wanted[v] = true
			return nil
		default:
			if code, ok := structure.AsInteger(v); ok && typeCodes[code] != "" {
				wanted[typeCodes[code]] = true
				return nil
			}
			return ErrCompArgType{Comp: "$type", Want: "a type alias or code", Actual: t}
		}
	}
	if seq, _, err := structure.Seq(arg); err == nil {
		for t := range seq {
			if err := add(t); err != nil {
				return false, err
			}
		}
	} else if err := add(arg); err != nil {
		return false, err
	}

	if !found {
		return false, nil
	}
	for _, value := range values {
		if typeMatches(value, wanted) {
			return true, nil
		}
		if list, ok := value.([]any); ok {
			for _, item := range list {
				if typeMatches(item, wanted) {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

func typeMatches(v any, wanted map[string]bool) bool {
	for _, alias := range typeAliases(v) {
		if wanted[alias] {
			return true
		}
	}
	return false
}

func typeAliases(v any) []string {
	switch v.(type) {
	case nil:
		return []string{"null"}
	case string:
		return []string{"string"}
	case bool:
		return []string{"bool"}
	case time.Time:
		return []string{"date"}
	case []byte:
		return []string{"binData"}
	case []any:
		return []string{"array"}
	case float32, float64:
		return []string{"double", "number"}
	case int8, int16, int32, uint8, uint16:
		return []string{"int", "number"}
	}
	if n, ok := structure.AsInteger(v); ok {
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return []string{"int", "number"}
		}
		return []string{"long", "number"}
	}
	if data.IsObject(v) {
		return []string{"object"}
	}
	return nil
}
