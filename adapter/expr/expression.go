// Package expr contains the predicate expression algebra: a closed set of
// expression types that render to query documents.
//
// Expressions are built from a [Path] (F("age").Gt(18)) or from the package
// level constructors (And, Or, Text, ...). They are immutable values and can
// be shared freely. [Render] turns any expression into its query document.
package expr

import (
	"slices"

	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
)

// Expression is a filter predicate. The set of implementations is closed:
// Comparison, Element, Array, Bitwise, Geo, Evaluation, Logical and Raw.
type Expression interface {
	isExpression()
}

// Comparison compares a field against a value.
type Comparison struct {
	Op    Operator
	Path  Path
	Value any
}

// Element tests the presence or the type of a field.
type Element struct {
	Op   Operator
	Path Path
	Arg  any
}

// Array tests array fields.
type Array struct {
	Op   Operator
	Path Path
	Arg  any
}

// Bitwise tests the bits of a numeric field against a mask. The mask may be a
// number or a list of bit positions.
type Bitwise struct {
	Op   Operator
	Path Path
	Mask any
}

// Evaluation holds the evaluation predicates. $mod and $regex apply to a
// field; $expr, $jsonSchema, $text and $where apply to the whole document and
// leave Path empty.
type Evaluation struct {
	Op      Operator
	Path    Path
	Arg     any
	Options string
}

// Logical combines other expressions. Only [And], [Or], [Nor] and [Not]
// build valid ones; rendering the zero value panics.
type Logical struct {
	op       Operator
	children []Expression
}

// Raw is a query document written by hand. It is accepted anywhere an
// Expression is, so callers can mix structured expressions and literal
// fragments.
type Raw map[string]any

func (Comparison) isExpression() {}
func (Element) isExpression() {}
func (Array) isExpression() {}
func (Bitwise) isExpression() {}
func (Geo) isExpression() {}
func (Evaluation) isExpression() {}
func (Logical) isExpression() {}
func (Raw) isExpression() {}

// Operator returns the logical operator token.
func (l Logical) Operator() Operator { return l.op }

// Children returns a copy of the combined expressions, in order.
func (l Logical) Children() []Expression {
	return append([]Expression(nil), l.children...)
}

// Render returns the query document for e. A nil expression renders as an
// empty document, which matches everything.
func Render(e Expression) data.M {
	switch t := e.(type) {
	case nil:
		return data.M{}
	case Comparison:
		if t.Op == OpEq {
			return data.M{t.Path.name: renderValue(t.Value)}
		}
		return fieldOp(t.Path, t.Op, renderValue(t.Value))
	case Element:
		return fieldOp(t.Path, t.Op, renderValue(t.Arg))
	case Array:
		if t.Op == OpElemMatch {
			return fieldOp(t.Path, t.Op, renderElemMatch(t.Arg))
		}
		return fieldOp(t.Path, t.Op, renderValue(t.Arg))
	case Bitwise:
		return fieldOp(t.Path, t.Op, renderValue(t.Mask))
	case Geo:
		return fieldOp(t.Path, t.Op, t.render())
	case Evaluation:
		return renderEvaluation(t)
	case Logical:
		return renderLogical(t)
	case Raw:
		return renderDoc(t)
	default:
		panic("expr: unknown expression type")
	}
}

func fieldOp(p Path, op Operator, value any) data.M {
	return data.M{p.name: data.M{string(op): value}}
}

func renderEvaluation(e Evaluation) data.M {
	switch e.Op {
	case OpRegex:
		inner := data.M{string(OpRegex): e.Arg}
		if e.Options != "" {
			inner[TokenOptions] = e.Options
		}
		return data.M{e.Path.name: inner}
	case OpMod:
		return fieldOp(e.Path, e.Op, renderValue(e.Arg))
	default:
		return data.M{string(e.Op): renderValue(e.Arg)}
	}
}

func renderLogical(l Logical) data.M {
	if len(l.children) == 0 || slices.Contains(l.children, nil) {
		panic("expr: logical expression without children")
	}
	if l.op == OpNot {
		return data.M{string(OpNot): Render(l.children[0])}
	}
	if len(l.children) == 1 {
		return Render(l.children[0])
	}
	rendered := make([]any, len(l.children))
	for n, child := range l.children {
		rendered[n] = Render(child)
	}
	return data.M{string(l.op): rendered}
}

// renderElemMatch merges the element conditions into one document.
// Conditions written against the element itself (empty path) contribute
// their operators directly.
func renderElemMatch(arg any) any {
	conditions, ok := arg.([]Expression)
	if !ok {
		return renderValue(arg)
	}
	res := data.M{}
	for _, cond := range conditions {
		for k, v := range Render(cond) {
			inner, isDoc := v.(data.M)
			if k != "" || !isDoc {
				res[k] = v
				continue
			}
			for op, arg := range inner {
				res[op] = arg
			}
		}
	}
	return res
}

func renderDoc[T ~map[string]any](doc T) data.M {
	res := make(data.M, len(doc))
	for k, v := range doc {
		res[k] = renderValue(v)
	}
	return res
}

// renderValue renders expressions nested in values, so that expressions can
// be used inside raw documents and operator arguments.
func renderValue(v any) any {
	switch t := v.(type) {
	case Expression:
		return Render(t)
	case []Expression:
		res := make([]any, len(t))
		for n, e := range t {
			res[n] = Render(e)
		}
		return res
	case data.M:
		return renderDoc(t)
	case map[string]any:
		return renderDoc(t)
	case []any:
		res := make([]any, len(t))
		for n, e := range t {
			res[n] = renderValue(e)
		}
		return res
	default:
		return v
	}
}
