package expr

// Operator is a query language operator token.
type Operator string

// Comparison operators. OpEq is never rendered: equality is written as
// {path: value}.
const (
	OpEq  Operator = "$eq"
	OpNe  Operator = "$ne"
	OpGt  Operator = "$gt"
	OpGte Operator = "$gte"
	OpLt  Operator = "$lt"
	OpLte Operator = "$lte"
	OpIn  Operator = "$in"
	OpNin Operator = "$nin"
)

// Logical operators.
const (
	OpAnd Operator = "$and"
	OpOr  Operator = "$or"
	OpNor Operator = "$nor"
	OpNot Operator = "$not"
)

// Element operators.
const (
	OpExists Operator = "$exists"
	OpType   Operator = "$type"
)

// Array operators.
const (
	OpAll       Operator = "$all"
	OpElemMatch Operator = "$elemMatch"
	OpSize      Operator = "$size"
)

// Bitwise operators.
const (
	OpBitsAllClear Operator = "$bitsAllClear"
	OpBitsAllSet   Operator = "$bitsAllSet"
	OpBitsAnyClear Operator = "$bitsAnyClear"
	OpBitsAnySet   Operator = "$bitsAnySet"
)

// Geospatial operators and their arguments.
const (
	OpGeoIntersects Operator = "$geoIntersects"
	OpGeoWithin     Operator = "$geoWithin"
	OpNear          Operator = "$near"
	OpNearSphere    Operator = "$nearSphere"

	TokenGeometry    = "$geometry"
	TokenBox         = "$box"
	TokenMaxDistance = "$maxDistance"
	TokenMinDistance = "$minDistance"
)

// Evaluation operators.
const (
	OpExpr       Operator = "$expr"
	OpJSONSchema Operator = "$jsonSchema"
	OpMod        Operator = "$mod"
	OpRegex      Operator = "$regex"
	OpText       Operator = "$text"
	OpWhere      Operator = "$where"

	TokenOptions = "$options"
)
