// Package querier filters, sorts, paginates and projects sequences of stored
// documents.
package querier

import (
	"fmt"
	"iter"
	"slices"

	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/godm/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/godm/adapter/projector"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Querier runs find operations over documents held in memory.
type Querier struct {
	match   domain.Matcher
	order   domain.Comparer
	nav     domain.FieldNavigator
	project domain.Projector
}

// NewQuerier returns a new Querier.
func NewQuerier(opts ...Option) *Querier {
	q := Querier{}
	for _, opt := range opts {
		opt(&q)
	}
	if q.order == nil {
		q.order = comparer.NewComparer()
	}
	if q.nav == nil {
		q.nav = fieldnavigator.NewFieldNavigator()
	}
	if q.project == nil {
		q.project = projector.NewProjector(projector.WithFieldNavigator(q.nav))
	}
	if q.match == nil {
		q.match = matcher.NewMatcher(
			matcher.WithComparer(q.order),
			matcher.WithFieldNavigator(q.nav),
		)
	}
	return &q
}

// Query returns the documents of data matching filter, applying opts. A nil
// filter matches everything.
func (q *Querier) Query(data iter.Seq2[domain.Document, error], filter domain.Document, opts domain.FindOptions) ([]domain.Document, error) {
	if data == nil {
		return make([]domain.Document, 0), nil
	}

	res, err := q.filter(data, filter, opts)
	if err != nil {
		return nil, err
	}

	if len(opts.Sort) > 0 {
		if res, err = q.Sort(res, opts.Sort); err != nil {
			return nil, fmt.Errorf("sorting: %w", err)
		}
		res = q.SkipAndLimit(res, opts.Skip, opts.Limit)
	}

	res, err = q.project.Project(res, opts.Projection)
	if err != nil {
		return nil, fmt.Errorf("projecting: %w", err)
	}
	return res, nil
}

// filter matches documents. Without sorting, skip and limit are applied while
// reading, and reading stops as soon as the limit is reached.
func (q *Querier) filter(data iter.Seq2[domain.Document, error], filter domain.Document, opts domain.FindOptions) ([]domain.Document, error) {
	var skipped int64
	res := make([]domain.Document, 0)
	paginate := len(opts.Sort) == 0

	for doc, err := range data {
		if err != nil {
			return nil, err
		}
		if paginate && opts.Limit > 0 && int64(len(res)) == opts.Limit {
			break
		}
		matches, err := q.Match(doc, filter)
		if err != nil {
			return nil, fmt.Errorf("matching document: %w", err)
		}
		if !matches {
			continue
		}
		if paginate && skipped < opts.Skip {
			skipped++
			continue
		}
		res = append(res, doc)
	}
	return res, nil
}

// Match reports whether doc matches filter. A nil filter matches everything.
func (q *Querier) Match(doc domain.Document, filter domain.Document) (bool, error) {
	if filter == nil || filter.Len() == 0 {
		return true, nil
	}
	return q.match.Match(doc, filter)
}

// Sort returns a sorted copy of data. Documents missing a sort key are
// ordered as if the key was nil.
func (q *Querier) Sort(data []domain.Document, sort domain.Sort) ([]domain.Document, error) {
	res := slices.Clone(data)
	var err error
	slices.SortStableFunc(res, func(a, b domain.Document) int {
		if err != nil {
			return 0
		}
		for _, crit := range sort {
			comp, cErr := q.compareByCriterion(a, b, crit)
			if cErr != nil {
				err = cErr
				return 0
			}
			if comp != 0 {
				return comp
			}
		}
		return 0
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (q *Querier) compareByCriterion(a, b domain.Document, crit domain.SortName) (int, error) {
	addr := q.nav.GetAddress(crit.Key)

	critA := q.sortValue(a, addr)
	critB := q.sortValue(b, addr)

	comp, err := q.order.Compare(critA, critB)
	if err != nil {
		return 0, fmt.Errorf("comparing: %w", err)
	}
	if crit.Order < 0 {
		return -comp, nil
	}
	return comp, nil
}

func (q *Querier) sortValue(doc domain.Document, addr []string) any {
	values, found := q.nav.GetField(doc, addr...)
	switch {
	case !found:
		return nil
	case len(values) == 1:
		return values[0]
	default:
		return values
	}
}

// SkipAndLimit paginates data. A zero limit keeps every document after the
// skipped ones.
func (q *Querier) SkipAndLimit(data []domain.Document, skip, limit int64) []domain.Document {
	length := int64(len(data))

	skip = max(skip, 0)      // skip cannot be negative
	skip = min(skip, length) // cannot skip more than length

	end := length
	if limit > 0 {
		end = min(skip+limit, length)
	}

	return data[skip:end]
}
