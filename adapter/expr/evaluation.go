package expr

import "github.com/vinicius-lino-figueiredo/godm/adapter/data"

// Expr matches documents satisfying an aggregation expression.
func Expr(expression any) Expression {
	return Evaluation{Op: OpExpr, Arg: expression}
}

// JSONSchema matches documents valid against a JSON schema.
func JSONSchema(schema any) Expression {
	return Evaluation{Op: OpJSONSchema, Arg: schema}
}

// Where matches documents for which a JavaScript function returns true.
func Where(js string) Expression {
	return Evaluation{Op: OpWhere, Arg: js}
}

// TextOption configures a $text search.
type TextOption func(data.M)

// WithLanguage sets the language used to tokenize the search string.
func WithLanguage(language string) TextOption {
	return func(m data.M) { m["$language"] = language }
}

// WithCaseSensitive enables or disables case sensitive matching.
func WithCaseSensitive(b bool) TextOption {
	return func(m data.M) { m["$caseSensitive"] = b }
}

// WithDiacriticSensitive enables or disables diacritic sensitive matching.
func WithDiacriticSensitive(b bool) TextOption {
	return func(m data.M) { m["$diacriticSensitive"] = b }
}

// Text runs a text search on the fields covered by a text index. Both case
// and diacritic sensitivity are off unless enabled by an option.
func Text(search string, opts ...TextOption) Expression {
	arg := data.M{
		"$search":             search,
		"$caseSensitive":      false,
		"$diacriticSensitive": false,
	}
	for _, opt := range opts {
		opt(arg)
	}
	return Evaluation{Op: OpText, Arg: arg}
}
