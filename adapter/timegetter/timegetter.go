// Package timegetter contains the default [domain.TimeGetter] implementation.
package timegetter

import (
	"time"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// TimeGetter implements [domain.TimeGetter]. Times are in UTC and truncated to
// milliseconds, the precision of stored dates.
type TimeGetter struct {
	now func() time.Time
}

// NewTimeGetter returns a new implementation of domain.TimeGetter.
func NewTimeGetter() domain.TimeGetter {
	return &TimeGetter{now: time.Now}
}

// Fixed returns a domain.TimeGetter that always returns t.
func Fixed(t time.Time) domain.TimeGetter {
	return &TimeGetter{now: func() time.Time { return t }}
}

// GetTime implements [domain.TimeGetter].
func (t *TimeGetter) GetTime() time.Time {
	return t.now().UTC().Truncate(time.Millisecond)
}
