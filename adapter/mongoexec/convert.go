package mongoexec

import (
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// toBSON converts documents, lists and sorts into their bson counterparts.
// Sorts become bson.D so the field order is kept. Other values are returned
// unchanged and left to the bson encoder.
func toBSON(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case domain.Sort:
		return sortToBSON(t)
	case domain.SortName:
		return bson.D{{Key: t.Key, Value: t.Order}}
	case []any:
		res := make(bson.A, len(t))
		for n, item := range t {
			res[n] = toBSON(item)
		}
		return res
	case bson.D, bson.M, bson.A:
		return t
	}
	if doc, ok := data.AsDocument(v); ok {
		return docToBSON(doc)
	}
	return v
}

func docToBSON(doc domain.Document) bson.M {
	res := make(bson.M, doc.Len())
	for key, value := range doc.Iter() {
		res[key] = toBSON(value)
	}
	return res
}

// filterToBSON never returns nil, as the driver rejects nil filters.
func filterToBSON(filter domain.Document) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return docToBSON(filter)
}

func sortToBSON(sort domain.Sort) bson.D {
	res := make(bson.D, len(sort))
	for n, s := range sort {
		res[n] = bson.E{Key: s.Key, Value: s.Order}
	}
	return res
}

// fromBSON converts decoded bson values into data.M documents and []any
// lists. Dates become UTC times and 32 bit integers int64.
func fromBSON(v any) any {
	switch t := v.(type) {
	case bson.D:
		res := make(data.M, len(t))
		for _, e := range t {
			res[e.Key] = fromBSON(e.Value)
		}
		return res
	case bson.M:
		res := make(data.M, len(t))
		for key, value := range t {
			res[key] = fromBSON(value)
		}
		return res
	case map[string]any:
		return fromBSON(bson.M(t))
	case bson.A:
		return fromBSON([]any(t))
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			res[n] = fromBSON(item)
		}
		return res
	case bson.DateTime:
		return t.Time().UTC()
	case int32:
		return int64(t)
	default:
		return v
	}
}

func docFromBSON(doc bson.D) data.M {
	res, _ := fromBSON(doc).(data.M)
	return res
}
