// Package comparer contains the default [domain.Comparer] implementation.
//
// Values are ordered by type first and by value second. The type order is
// nil, numbers, strings, booleans, dates, arrays, documents and finally any
// other type. Numbers of different Go types are compared by value.
package comparer

import (
	"cmp"
	"math"
	"math/big"
	"slices"
	"time"

	"github.com/goccy/go-reflect"
	"github.com/vinicius-lino-figueiredo/godm/adapter/data"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type rank int

const (
	rankNil rank = iota
	rankNumber
	rankString
	rankBool
	rankTime
	rankArray
	rankDocument
	rankUnknown
)

// Comparer implements domain.Comparer.
type Comparer struct{}

// NewComparer returns a new implementation of domain.Comparer.
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Comparable implements domain.Comparer. Only numbers, strings and dates can
// be used in range comparisons, and only against values of the same kind.
func (c *Comparer) Comparable(a, b any) bool {
	ra := c.rank(a)
	switch ra {
	case rankNumber, rankString, rankTime:
		return ra == c.rank(b)
	default:
		return false
	}
}

// Compare implements domain.Comparer.
func (c *Comparer) Compare(a any, b any) (int, error) {
	ra, rb := c.rank(a), c.rank(b)

	if ra == rankUnknown && rb == rankUnknown {
		return 0, c.cannotCompare(a, b)
	}
	if ra != rb {
		// unknown types sort after every known type
		return cmp.Compare(ra, rb), nil
	}

	switch ra {
	case rankNil:
		return 0, nil
	case rankNumber:
		x, _ := c.asNumber(a)
		y, _ := c.asNumber(b)
		return x.Cmp(y), nil
	case rankString:
		return cmp.Compare(a.(string), b.(string)), nil
	case rankBool:
		return c.compareBool(a.(bool), b.(bool)), nil
	case rankTime:
		return a.(time.Time).Compare(b.(time.Time)), nil
	case rankArray:
		return c.compareArray(a.([]any), b.([]any))
	default:
		x, _ := data.AsDocument(a)
		y, _ := data.AsDocument(b)
		return c.compareDoc(x, y)
	}
}

func (c *Comparer) rank(v any) rank {
	switch v.(type) {
	case nil:
		return rankNil
	case string:
		return rankString
	case bool:
		return rankBool
	case time.Time:
		return rankTime
	case []any:
		return rankArray
	}
	if _, ok := c.asNumber(v); ok {
		return rankNumber
	}
	if data.IsObject(v) {
		return rankDocument
	}
	return rankUnknown
}

func (c *Comparer) cannotCompare(a, b any) error {
	return domain.ErrCannotCompare{A: c.typeName(a), B: c.typeName(b)}
}

func (c *Comparer) typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}

func (c *Comparer) compareArray(a, b []any) (int, error) {
	for i := range min(len(a), len(b)) {
		comp, err := c.Compare(a[i], b[i])
		if err != nil {
			return 0, err
		}
		if comp != 0 {
			return comp, nil
		}
	}

	// Common section was identical, longest one wins
	return cmp.Compare(len(a), len(b)), nil
}

func (c *Comparer) compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if a {
		return 1
	}
	return -1
}

func (c *Comparer) compareDoc(a domain.Document, b domain.Document) (int, error) {
	aKeys := slices.Sorted(a.Keys())
	bKeys := slices.Sorted(b.Keys())

	for i := range min(len(aKeys), len(bKeys)) {
		comp, err := c.Compare(a.Get(aKeys[i]), b.Get(bKeys[i]))
		if err != nil {
			return 0, err
		}
		if comp != 0 {
			return comp, nil
		}
	}

	if comp := cmp.Compare(len(aKeys), len(bKeys)); comp != 0 {
		return comp, nil
	}

	return slices.Compare(aKeys, bKeys), nil
}

func (c *Comparer) asNumber(v any) (*big.Float, bool) {
	r := big.NewFloat(0)
	switch n := v.(type) {
	case int:
		r.SetInt64(int64(n))
	case int8:
		r.SetInt64(int64(n))
	case int16:
		r.SetInt64(int64(n))
	case int32:
		r.SetInt64(int64(n))
	case int64:
		r.SetInt64(n)
	case uint:
		r.SetUint64(uint64(n))
	case uint8:
		r.SetUint64(uint64(n))
	case uint16:
		r.SetUint64(uint64(n))
	case uint32:
		r.SetUint64(uint64(n))
	case uint64:
		r.SetUint64(n)
	case float32:
		if math.IsNaN(float64(n)) {
			return nil, false
		}
		r.SetFloat64(float64(n))
	case float64:
		if math.IsNaN(n) {
			return nil, false
		}
		r.SetFloat64(n)
	default:
		return nil, false
	}
	return r, true
}
