package query

import (
	"fmt"
	"strings"

	"github.com/goccy/go-reflect"
	"github.com/vinicius-lino-figueiredo/godm/adapter/expr"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

// ParseSort appends the sort fields described by arg to dst. Accepted
// arguments are:
//   - nil, which is ignored;
//   - a [domain.SortName], appended as is;
//   - a string, ascending unless prefixed with "-" ("+" is also accepted);
//   - an [expr.Path], ascending;
//   - a two element list holding a field name or [expr.Path] and 1 or -1,
//     read as a single (path, direction) pair;
//   - any other list of the above, parsed element by element.
//
// Anything else fails with [domain.ErrInvalidSortArgument] and dst is
// returned unchanged.
func ParseSort(dst domain.Sort, arg any) (domain.Sort, error) {
	switch t := arg.(type) {
	case nil:
		return dst, nil
	case domain.SortName:
		return append(dst, t), nil
	case expr.Path:
		return append(dst, t.Asc()), nil
	case string:
		name, err := parseSortString(t)
		if err != nil {
			return dst, err
		}
		return append(dst, name), nil
	case domain.Sort:
		return append(dst, t...), nil
	}

	seq, length, err := structure.Seq(arg)
	if err != nil {
		return dst, invalidSort(arg)
	}
	var items []any
	for item := range seq {
		items = append(items, item)
	}
	if length == 2 {
		if name, ok := sortPair(items[0], items[1]); ok {
			return append(dst, name), nil
		}
	}
	res := dst
	for _, item := range items {
		if res, err = ParseSort(res, item); err != nil {
			return dst, err
		}
	}
	return res, nil
}

// sortPair reads key and order as a (path, direction) pair.
func sortPair(key, order any) (domain.SortName, bool) {
	n, ok := structure.AsInteger(order)
	if !ok || n != 1 && n != -1 {
		return domain.SortName{}, false
	}
	switch k := key.(type) {
	case string:
		if k == "" {
			return domain.SortName{}, false
		}
		return domain.SortName{Key: k, Order: int64(n)}, true
	case expr.Path:
		return domain.SortName{Key: k.String(), Order: int64(n)}, true
	}
	return domain.SortName{}, false
}

func parseSortString(s string) (domain.SortName, error) {
	order := domain.Ascending
	key := s
	switch {
	case strings.HasPrefix(s, "-"):
		order, key = domain.Descending, s[1:]
	case strings.HasPrefix(s, "+"):
		key = s[1:]
	}
	if key == "" {
		return domain.SortName{}, invalidSort(s)
	}
	return domain.SortName{Key: key, Order: order}, nil
}

func invalidSort(arg any) error {
	return domain.ErrInvalidSortArgument{
		Type:  reflect.TypeOf(arg).String(),
		Value: fmt.Sprintf("%v", arg),
	}
}
