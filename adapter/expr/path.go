package expr

import (
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Path is a dotted address into a document. Paths are immutable values: every
// method returns a new Path or an [Expression] and never changes the receiver.
// Two paths are equal when their dotted strings are equal.
//
// The comparison methods (Eq, Gt, ...) build expressions. They do not compare
// anything and must not be used as boolean conditions.
type Path struct {
	name string
}

// F returns the path made by joining parts with dots. F("a", "b") is the same
// as F("a").Child("b").
func F(parts ...string) Path {
	return Path{name: strings.Join(parts, ".")}
}

// Child returns a new path extending p with name.
func (p Path) Child(name string) Path {
	if p.name == "" {
		return Path{name: name}
	}
	return Path{name: p.name + "." + name}
}

// String returns the dotted path.
func (p Path) String() string { return p.name }

// Eq matches documents where the field equals v. It renders without an
// operator token: {path: v}.
func (p Path) Eq(v any) Expression { return Comparison{Op: OpEq, Path: p, Value: v} }

// Ne matches documents where the field is not equal to v.
func (p Path) Ne(v any) Expression { return Comparison{Op: OpNe, Path: p, Value: v} }

// Gt matches documents where the field is greater than v.
func (p Path) Gt(v any) Expression { return Comparison{Op: OpGt, Path: p, Value: v} }

// Gte matches documents where the field is greater than or equal to v.
func (p Path) Gte(v any) Expression { return Comparison{Op: OpGte, Path: p, Value: v} }

// Lt matches documents where the field is less than v.
func (p Path) Lt(v any) Expression { return Comparison{Op: OpLt, Path: p, Value: v} }

// Lte matches documents where the field is less than or equal to v.
func (p Path) Lte(v any) Expression { return Comparison{Op: OpLte, Path: p, Value: v} }

// In matches documents where the field equals any of the values.
func (p Path) In(values ...any) Expression {
	return Comparison{Op: OpIn, Path: p, Value: list(values)}
}

// Nin matches documents where the field equals none of the values.
func (p Path) Nin(values ...any) Expression {
	return Comparison{Op: OpNin, Path: p, Value: list(values)}
}

// Exists matches documents that have (or lack) the field.
func (p Path) Exists(exists bool) Expression {
	return Element{Op: OpExists, Path: p, Arg: exists}
}

// Type matches documents where the field has the given BSON type. The type
// may be a number or an alias such as "string".
func (p Path) Type(typ any) Expression {
	return Element{Op: OpType, Path: p, Arg: typ}
}

// All matches arrays containing all the values.
func (p Path) All(values ...any) Expression {
	return Array{Op: OpAll, Path: p, Arg: list(values)}
}

// Size matches arrays with exactly n elements.
func (p Path) Size(n int) Expression {
	return Array{Op: OpSize, Path: p, Arg: n}
}

// ElemMatch matches arrays with at least one element matching every
// condition. Conditions on the element itself (e.g. F("").Gt(3)) are written
// with an empty path.
func (p Path) ElemMatch(conditions ...Expression) Expression {
	return Array{Op: OpElemMatch, Path: p, Arg: conditions}
}

// BitsAllClear matches numbers where all the bits in mask are 0.
func (p Path) BitsAllClear(mask any) Expression {
	return Bitwise{Op: OpBitsAllClear, Path: p, Mask: mask}
}

// BitsAllSet matches numbers where all the bits in mask are 1.
func (p Path) BitsAllSet(mask any) Expression {
	return Bitwise{Op: OpBitsAllSet, Path: p, Mask: mask}
}

// BitsAnyClear matches numbers where any of the bits in mask is 0.
func (p Path) BitsAnyClear(mask any) Expression {
	return Bitwise{Op: OpBitsAnyClear, Path: p, Mask: mask}
}

// BitsAnySet matches numbers where any of the bits in mask is 1.
func (p Path) BitsAnySet(mask any) Expression {
	return Bitwise{Op: OpBitsAnySet, Path: p, Mask: mask}
}

// Mod matches numbers whose remainder when divided by divisor is remainder.
func (p Path) Mod(divisor, remainder int) Expression {
	return Evaluation{Op: OpMod, Path: p, Arg: []any{divisor, remainder}}
}

// Regex matches strings against a pattern. Options such as "i" are only
// rendered when not empty.
func (p Path) Regex(pattern, options string) Expression {
	return Evaluation{Op: OpRegex, Path: p, Arg: pattern, Options: options}
}

// GeoIntersects matches geometries intersecting the given one.
func (p Path) GeoIntersects(g Geometry) Expression {
	return Geo{Op: OpGeoIntersects, Path: p, Geometry: g}
}

// GeoWithin matches geometries entirely inside the given one.
func (p Path) GeoWithin(g Geometry) Expression {
	return Geo{Op: OpGeoWithin, Path: p, Geometry: g}
}

// GeoWithinBox matches points inside the rectangle given by its bottom left
// and upper right corners.
func (p Path) GeoWithinBox(bottomLeft, upperRight []float64) Expression {
	return Geo{Op: OpGeoWithin, Path: p, Box: [][]float64{bottomLeft, upperRight}}
}

// Near sorts and filters documents by distance to a point.
func (p Path) Near(g Geometry, opts ...GeoOption) Expression {
	return newGeo(OpNear, p, g, opts)
}

// NearSphere is like Near, with distances computed on a sphere.
func (p Path) NearSphere(g Geometry, opts ...GeoOption) Expression {
	return newGeo(OpNearSphere, p, g, opts)
}

// Asc sorts by p in ascending order.
func (p Path) Asc() domain.SortName { return domain.SortName{Key: p.name, Order: domain.Ascending} }

// Desc sorts by p in descending order.
func (p Path) Desc() domain.SortName { return domain.SortName{Key: p.name, Order: domain.Descending} }

func list(values []any) []any {
	if values == nil {
		return []any{}
	}
	return values
}
