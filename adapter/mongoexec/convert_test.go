package mongoexec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestToBSON(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	in := M{
		"a":    M{"b": []any{1, M{"c": when}}},
		"raw":  bson.D{{Key: "x", Value: 1}},
		"sort": domain.Sort{{Key: "a", Order: 1}},
		"one":  domain.SortName{Key: "b", Order: -1},
		"nil":  nil,
	}
	assert.Equal(t, bson.M{
		"a":    bson.M{"b": bson.A{1, bson.M{"c": when}}},
		"raw":  bson.D{{Key: "x", Value: 1}},
		"sort": bson.D{{Key: "a", Value: int64(1)}},
		"one":  bson.D{{Key: "b", Value: int64(-1)}},
		"nil":  nil,
	}, toBSON(in))
	assert.Equal(t, bson.M{}, filterToBSON(nil))
}

func TestFromBSON(t *testing.T) {
	when := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	id := bson.NewObjectID()
	in := bson.D{
		{Key: "_id", Value: id},
		{Key: "n", Value: int32(4)},
		{Key: "at", Value: bson.NewDateTimeFromTime(when)},
		{Key: "m", Value: bson.M{"l": bson.A{bson.D{{Key: "k", Value: "v"}}}}},
		{Key: "f", Value: 1.5},
	}
	assert.Equal(t, M{
		"_id": id,
		"n":   int64(4),
		"at":  when,
		"m":   M{"l": []any{M{"k": "v"}}},
		"f":   1.5,
	}, docFromBSON(in))
}
