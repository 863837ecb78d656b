package expr

import (
	"slices"

	"github.com/goccy/go-reflect"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

// And matches documents matching every child. A single child is returned
// as is, and nested combinators are kept nested.
func And(children ...Expression) (Expression, error) {
	return newLogical(OpAnd, children)
}

// Or matches documents matching at least one child.
func Or(children ...Expression) (Expression, error) {
	return newLogical(OpOr, children)
}

// Nor matches documents matching none of the children.
func Nor(children ...Expression) (Expression, error) {
	return newLogical(OpNor, children)
}

// Not negates child, which must not be nil.
func Not(child Expression) (Expression, error) {
	if child == nil {
		return nil, domain.ErrEmptyExpression{Operator: string(OpNot)}
	}
	return Logical{op: OpNot, children: []Expression{child}}, nil
}

func newLogical(op Operator, children []Expression) (Expression, error) {
	if len(children) == 0 {
		return nil, domain.ErrEmptyExpression{Operator: string(op)}
	}
	if slices.Contains(children, nil) {
		return nil, domain.ErrInvalidExpression{Type: "nil"}
	}
	return Logical{op: op, children: append([]Expression(nil), children...)}, nil
}

// Must returns e and panics if err is not nil. It is meant for expressions
// built from constant arguments, such as package level variables.
func Must(e Expression, err error) Expression {
	if err != nil {
		panic(err)
	}
	return e
}

// From converts v into an Expression. Expressions are returned unchanged and
// string-keyed maps, documents and structs become [Raw] expressions.
func From(v any) (Expression, error) {
	switch t := v.(type) {
	case Expression:
		return t, nil
	case nil:
		return nil, domain.ErrInvalidExpression{Type: "nil"}
	}
	if doc, ok := data.AsDocument(v); ok {
		raw := make(Raw, doc.Len())
		for k, v := range doc.Iter() {
			raw[k] = v
		}
		return raw, nil
	}
	seq, length, err := structure.Seq2(v)
	if err != nil {
		return nil, domain.ErrInvalidExpression{Type: reflect.TypeOf(v).String()}
	}
	raw := make(Raw, length)
	for k, v := range seq {
		raw[k] = v
	}
	return raw, nil
}
