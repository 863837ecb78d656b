// Package update contains the update expression algebra. Each operator is a
// map type from field path to value, and a list of expressions is merged into
// a single update document with [Merge].
package update

import (
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/adapter/expr"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Operator tokens.
const (
	TokenSet         = "$set"
	TokenInc         = "$inc"
	TokenMul         = "$mul"
	TokenMin         = "$min"
	TokenMax         = "$max"
	TokenRename      = "$rename"
	TokenUnset       = "$unset"
	TokenSetOnInsert = "$setOnInsert"
	TokenCurrentDate = "$currentDate"
	TokenAddToSet    = "$addToSet"
	TokenPop         = "$pop"
	TokenPull        = "$pull"
	TokenPush        = "$push"
	TokenPullAll     = "$pullAll"
	TokenBit         = "$bit"
)

// Modifier tokens used inside $push and $addToSet.
const (
	TokenEach     = "$each"
	TokenPosition = "$position"
	TokenSlice    = "$slice"
	TokenSort     = "$sort"
)

// Expression is an update operator. The set of implementations is closed:
// one map type per operator token, plus [Raw].
type Expression interface {
	isUpdate()
}

type (
	// Set replaces field values.
	Set map[string]any
	// Inc increments numeric fields.
	Inc map[string]any
	// Mul multiplies numeric fields.
	Mul map[string]any
	// Min replaces fields holding values greater than the given ones.
	Min map[string]any
	// Max replaces fields holding values smaller than the given ones.
	Max map[string]any
	// Rename maps old field names to new field names.
	Rename map[string]any
	// Unset removes fields. Values are ignored.
	Unset map[string]any
	// SetOnInsert sets fields only when an upsert inserts a document.
	SetOnInsert map[string]any
	// CurrentDate sets fields to the current date. Values are true,
	// [Date] or [Timestamp].
	CurrentDate map[string]any
	// AddToSet appends values not yet present in arrays. Use [Each] to
	// add many values.
	AddToSet map[string]any
	// Pop removes the first (-1) or last (1) element of arrays.
	Pop map[string]any
	// Pull removes array elements equal to a value or matching a
	// condition.
	Pull map[string]any
	// Push appends values to arrays. Use [Each] for modifiers.
	Push map[string]any
	// PullAll removes every occurrence of the given values from arrays.
	PullAll map[string]any
	// Bit applies bitwise operations built by [BitAnd], [BitOr] and
	// [BitXor].
	Bit map[string]any
	// Raw is a whole update document written by hand, keyed by operator
	// token.
	Raw map[string]any
)

func (Set) isUpdate() {}
func (Inc) isUpdate() {}
func (Mul) isUpdate() {}
func (Min) isUpdate() {}
func (Max) isUpdate() {}
func (Rename) isUpdate() {}
func (Unset) isUpdate() {}
func (SetOnInsert) isUpdate() {}
func (CurrentDate) isUpdate() {}
func (AddToSet) isUpdate() {}
func (Pop) isUpdate() {}
func (Pull) isUpdate() {}
func (Push) isUpdate() {}
func (PullAll) isUpdate() {}
func (Bit) isUpdate() {}
func (Raw) isUpdate() {}

// With returns a copy of s setting p to v.
func (s Set) With(p expr.Path, v any) Set { return with(s, p, v) }

// With returns a copy of i incrementing p by v.
func (i Inc) With(p expr.Path, v any) Inc { return with(i, p, v) }

// With returns a copy of m multiplying p by v.
func (m Mul) With(p expr.Path, v any) Mul { return with(m, p, v) }

// With returns a copy of m lowering p to v.
func (m Min) With(p expr.Path, v any) Min { return with(m, p, v) }

// With returns a copy of m raising p to v.
func (m Max) With(p expr.Path, v any) Max { return with(m, p, v) }

// With returns a copy of r renaming from to to.
func (r Rename) With(from, to expr.Path) Rename { return with(r, from, to.String()) }

// With returns a copy of p pushing v to path.
func (p Push) With(path expr.Path, v any) Push { return with(p, path, v) }

// With returns a copy of a adding v to p.
func (a AddToSet) With(p expr.Path, v any) AddToSet { return with(a, p, v) }

// With returns a copy of p pulling v, which may be an [expr.Expression], from
// path.
func (p Pull) With(path expr.Path, v any) Pull { return with(p, path, v) }

// Fields returns an [Unset] removing the given paths.
func Fields(paths ...expr.Path) Unset {
	u := make(Unset, len(paths))
	for _, p := range paths {
		u[p.String()] = ""
	}
	return u
}

func with[T ~map[string]any](m T, p expr.Path, value any) T {
	res := make(T, len(m)+1)
	for k, v := range m {
		res[k] = v
	}
	res[p.String()] = value
	return res
}

// Pop directions.
const (
	PopFirst = -1
	PopLast  = 1
)

// Date makes [CurrentDate] store a date.
func Date() data.M { return data.M{"$type": "date"} }

// Timestamp makes [CurrentDate] store a timestamp.
func Timestamp() data.M { return data.M{"$type": "timestamp"} }

// BitAnd applies a bitwise AND with n.
func BitAnd(n any) data.M { return data.M{"and": n} }

// BitOr applies a bitwise OR with n.
func BitOr(n any) data.M { return data.M{"or": n} }

// BitXor applies a bitwise XOR with n.
func BitXor(n any) data.M { return data.M{"xor": n} }

// EachModifier adds several values at once to $push or $addToSet, optionally
// controlling where they go and how the array is trimmed and sorted.
type EachModifier struct {
	Values   []any
	Position *int
	Slice    *int
	Sort     any
}

// EachOption configures an [EachModifier].
type EachOption func(*EachModifier)

// WithPosition inserts the values at index n.
func WithPosition(n int) EachOption {
	return func(e *EachModifier) { e.Position = &n }
}

// WithSlice keeps only the first n (or last -n) elements after the push.
func WithSlice(n int) EachOption {
	return func(e *EachModifier) { e.Slice = &n }
}

// WithSort sorts the array after the push. The spec is 1, -1 or a
// [domain.Sort] for arrays of documents.
func WithSort(spec any) EachOption {
	return func(e *EachModifier) { e.Sort = spec }
}

// Each returns an [EachModifier] for values.
func Each(values []any, opts ...EachOption) EachModifier {
	e := EachModifier{Values: append([]any{}, values...)}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

func (e EachModifier) render() data.M {
	res := data.M{TokenEach: renderValue(e.Values)}
	if e.Position != nil {
		res[TokenPosition] = *e.Position
	}
	if e.Slice != nil {
		res[TokenSlice] = *e.Slice
	}
	if e.Sort != nil {
		res[TokenSort] = e.Sort
	}
	return res
}

// Token returns the operator token of e. [Raw] has no single token and
// returns an empty string.
func Token(e Expression) string {
	switch e.(type) {
	case Set:
		return TokenSet
	case Inc:
		return TokenInc
	case Mul:
		return TokenMul
	case Min:
		return TokenMin
	case Max:
		return TokenMax
	case Rename:
		return TokenRename
	case Unset:
		return TokenUnset
	case SetOnInsert:
		return TokenSetOnInsert
	case CurrentDate:
		return TokenCurrentDate
	case AddToSet:
		return TokenAddToSet
	case Pop:
		return TokenPop
	case Pull:
		return TokenPull
	case Push:
		return TokenPush
	case PullAll:
		return TokenPullAll
	case Bit:
		return TokenBit
	default:
		return ""
	}
}

// Render returns the update document for e: {token: {field: value}}.
func Render(e Expression) data.M {
	switch t := e.(type) {
	case nil:
		return data.M{}
	case Raw:
		res := make(data.M, len(t))
		for token, fields := range t {
			res[token] = renderValue(fields)
		}
		return res
	case Set:
		return data.M{TokenSet: renderFields(t)}
	case Inc:
		return data.M{TokenInc: renderFields(t)}
	case Mul:
		return data.M{TokenMul: renderFields(t)}
	case Min:
		return data.M{TokenMin: renderFields(t)}
	case Max:
		return data.M{TokenMax: renderFields(t)}
	case Rename:
		return data.M{TokenRename: renderFields(t)}
	case Unset:
		return data.M{TokenUnset: renderFields(t)}
	case SetOnInsert:
		return data.M{TokenSetOnInsert: renderFields(t)}
	case CurrentDate:
		return data.M{TokenCurrentDate: renderFields(t)}
	case AddToSet:
		return data.M{TokenAddToSet: renderFields(t)}
	case Pop:
		return data.M{TokenPop: renderFields(t)}
	case Pull:
		return data.M{TokenPull: renderFields(t)}
	case Push:
		return data.M{TokenPush: renderFields(t)}
	case PullAll:
		return data.M{TokenPullAll: renderFields(t)}
	case Bit:
		return data.M{TokenBit: renderFields(t)}
	default:
		panic("update: unknown expression type")
	}
}

// Merge renders every expression, in order, into one update document. Field
// maps sharing an operator token are merged and later fields overwrite
// earlier ones. Different tokens don't interact: conflicting paths across
// operators are left for the executor to reject. Operators without fields
// are left out, so merging only empty expressions gives an empty document.
func Merge(exprs ...Expression) data.M {
	res := data.M{}
	for _, e := range exprs {
		for token, fields := range Render(e) {
			incoming, isDoc := data.AsDocument(fields)
			if !isDoc {
				res[token] = fields
				continue
			}
			if incoming.Len() == 0 && strings.HasPrefix(token, "$") {
				continue
			}
			current, ok := res[token].(data.M)
			if !ok {
				current = data.M{}
				res[token] = current
			}
			for k, v := range incoming.Iter() {
				current[k] = v
			}
		}
	}
	return res
}

func renderFields[T ~map[string]any](fields T) data.M {
	res := make(data.M, len(fields))
	for k, v := range fields {
		res[k] = renderValue(v)
	}
	return res
}

func renderValue(v any) any {
	switch t := v.(type) {
	case EachModifier:
		return t.render()
	case expr.Expression:
		return renderCondition(t)
	case data.M:
		return renderFields(t)
	case map[string]any:
		return renderFields(t)
	case []any:
		res := make([]any, len(t))
		for n, v := range t {
			res[n] = renderValue(v)
		}
		return res
	case domain.Document:
		res := make(data.M, t.Len())
		for k, v := range t.Iter() {
			res[k] = renderValue(v)
		}
		return res
	default:
		return v
	}
}

// renderCondition renders a $pull condition. Conditions on the element itself
// are written with an empty path and contribute their operators directly.
func renderCondition(e expr.Expression) any {
	rendered := expr.Render(e)
	if inner, ok := rendered[""]; ok && len(rendered) == 1 {
		return inner
	}
	return rendered
}
