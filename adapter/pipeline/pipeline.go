// Package pipeline builds aggregation pipeline stages.
package pipeline

import (
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/adapter/expr"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Stage tokens.
const (
	StageMatch     = "$match"
	StageSort      = "$sort"
	StageSkip      = "$skip"
	StageLimit     = "$limit"
	StageProject   = "$project"
	StageGroup     = "$group"
	StageUnwind    = "$unwind"
	StageCount     = "$count"
	StageAddFields = "$addFields"
	StageLookup    = "$lookup"
)

// Stage is one step of an aggregation pipeline, a document with a single
// stage token key.
type Stage = data.M

// Match filters documents with an expression.
func Match(e expr.Expression) Stage {
	return Stage{StageMatch: expr.Render(e)}
}

// Sort orders documents. The sort keeps its field order.
func Sort(s domain.Sort) Stage {
	return Stage{StageSort: append(domain.Sort(nil), s...)}
}

// Skip drops the first n documents.
func Skip(n int64) Stage {
	return Stage{StageSkip: n}
}

// Limit keeps the first n documents.
func Limit(n int64) Stage {
	return Stage{StageLimit: n}
}

// Project reshapes documents.
func Project(spec data.M) Stage {
	return Stage{StageProject: spec}
}

// Group groups documents by id, computing accumulators for each group.
func Group(id any, accumulators data.M) Stage {
	group := data.M{"_id": id}
	for k, v := range accumulators {
		group[k] = v
	}
	return Stage{StageGroup: group}
}

// Unwind outputs one document per element of the array at p.
func Unwind(p expr.Path) Stage {
	return Stage{StageUnwind: "$" + p.String()}
}

// Count replaces the documents by a single document holding their number
// under field.
func Count(field string) Stage {
	return Stage{StageCount: field}
}

// AddFields adds computed fields to documents.
func AddFields(fields data.M) Stage {
	return Stage{StageAddFields: fields}
}

// Lookup joins documents from another collection.
func Lookup(from string, localField, foreignField expr.Path, as string) Stage {
	return Stage{StageLookup: data.M{
		"from":         from,
		"localField":   localField.String(),
		"foreignField": foreignField.String(),
		"as":           as,
	}}
}

// Documents converts stages to the form accepted by [domain.Executor].
func Documents(stages ...Stage) []domain.Document {
	res := make([]domain.Document, len(stages))
	for n, s := range stages {
		res[n] = s
	}
	return res
}
