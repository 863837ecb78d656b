package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCursorClosed is returned when trying to perform operations on a
	// closed [Cursor].
	ErrCursorClosed = errors.New("cursor is closed")
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = errors.New("called Scan before calling Next")
	// ErrTargetNil is returned when the passed target, which should be a
	// pointer, is passed as a nil value.
	ErrTargetNil = errors.New("target interface is nil")
	// ErrNonPointer is returned when a decoding target is not a pointer.
	ErrNonPointer = errors.New("target is not a pointer")
	// ErrNotFound is returned when a lookup by id finds no document.
	ErrNotFound = errors.New("document not found")
	// ErrConstraintViolated is returned when an insert would duplicate an
	// existing _id.
	ErrConstraintViolated = errors.New("unique constraint violated")
	// ErrCannotModifyID is returned by [Modifier.Modify] when the user
	// performs some action that would modify a document _id.
	ErrCannotModifyID = errors.New("cannot modify _id")
	// ErrNoID is returned when a record must be persisted by id but its
	// snapshot carries no _id.
	ErrNoID = errors.New("record has no _id")
)

// ErrEmptyExpression is returned when a logical combinator is built without
// any child expression.
type ErrEmptyExpression struct {
	Operator string
}

func (e ErrEmptyExpression) Error() string {
	return fmt.Sprintf("%s requires at least one expression", e.Operator)
}

// ErrInvalidExpression is returned when a value that is neither an expression
// nor a string-keyed mapping is used where an expression is expected.
type ErrInvalidExpression struct {
	Type string
}

func (e ErrInvalidExpression) Error() string {
	return fmt.Sprintf("cannot use value of type %s as an expression", e.Type)
}

// ErrInvalidSortArgument is returned when a sort argument has none of the
// accepted shapes.
type ErrInvalidSortArgument struct {
	Type  string
	Value string
}

func (e ErrInvalidSortArgument) Error() string {
	return fmt.Sprintf("invalid sort argument %s of type %s", e.Value, e.Type)
}

// ErrInvalidPagination is returned when skip or limit receive a negative
// number.
type ErrInvalidPagination struct {
	Name  string
	Value int64
}

func (e ErrInvalidPagination) Error() string {
	return fmt.Sprintf("%s must not be negative, got %d", e.Name, e.Value)
}

// ErrBuilderAlreadyCompiled is returned when a query builder is mutated after
// one of its terminal operations ran.
type ErrBuilderAlreadyCompiled struct {
	Method string
}

func (e ErrBuilderAlreadyCompiled) Error() string {
	return fmt.Sprintf("cannot call %s on a compiled query", e.Method)
}

// ErrNoSavedState is returned when change tracking is queried before the
// snapshots it needs were captured.
type ErrNoSavedState struct {
	Operation string
}

func (e ErrNoSavedState) Error() string {
	return fmt.Sprintf("%s requires a saved state", e.Operation)
}

// ErrUnknownOperator is returned when a filter or update document uses an
// operator token that is not part of the query language.
type ErrUnknownOperator struct {
	Operator string
}

func (e ErrUnknownOperator) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Operator)
}

// ErrUnsupportedOperator is returned by executors that recognize an operator
// but cannot evaluate it locally.
type ErrUnsupportedOperator struct {
	Operator string
}

func (e ErrUnsupportedOperator) Error() string {
	return fmt.Sprintf("operator %q is not supported by this executor", e.Operator)
}

// ErrUnsupportedStage is returned by executors that cannot run a given
// aggregation stage.
type ErrUnsupportedStage struct {
	Stage string
}

func (e ErrUnsupportedStage) Error() string {
	return fmt.Sprintf("aggregation stage %q is not supported by this executor", e.Stage)
}

// ErrFieldName represents an invalid field name in an update or projection.
type ErrFieldName struct {
	Field  string
	Reason string
}

func (e ErrFieldName) Error() string {
	return fmt.Sprintf("invalid field name %q: %s", e.Field, e.Reason)
}

// ErrDocumentType is returned when an user passes a value that is invalid or
// contains an invalid sub value for creating a document.
type ErrDocumentType struct {
	Type string
}

func (e ErrDocumentType) Error() string {
	return fmt.Sprintf("expected map or struct, got %s", e.Type)
}

// ErrCannotCompare is returned when [Comparer.Compare] is called with two
// values that cannot be compared.
type ErrCannotCompare struct {
	A string
	B string
}

func (e ErrCannotCompare) Error() string {
	return fmt.Sprintf("cannot compare unexpected types %s and %s", e.A, e.B)
}

// ErrDecode is returned when a document cannot be decoded into a target.
type ErrDecode struct {
	Source any
	Target any
}

func (e ErrDecode) Error() string {
	return fmt.Sprintf("cannot decode %T into %T", e.Source, e.Target)
}
