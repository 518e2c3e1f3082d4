// Package daterange iterates inclusive calendar date ranges.
package daterange

import (
	"errors"
	"time"
)

// ErrInverted is returned when the end date precedes the start date.
var ErrInverted = errors.New("daterange: end before start")

// Range is an inclusive span of calendar dates. Both bounds are normalised to
// midnight in the start date's location.
type Range struct {
	Start time.Time
	End   time.Time
}

// New builds a range from start to end inclusive.
func New(start, end time.Time) (Range, error) {
	loc := start.Location()
	s := midnight(start, loc)
	e := midnight(end.In(loc), loc)
	if e.Before(s) {
		return Range{}, ErrInverted
	}
	return Range{Start: s, End: e}, nil
}

// Days returns the number of dates in the range.
func (r Range) Days() int {
	if r.End.Before(r.Start) {
		return 0
	}
	n := 0
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		n++
	}
	return n
}

// Contains reports whether the calendar date of t falls in the range.
func (r Range) Contains(t time.Time) bool {
	d := midnight(t.In(r.Start.Location()), r.Start.Location())
	return !d.Before(r.Start) && !d.After(r.End)
}

// Resume returns the remainder of the range starting at from. An empty range
// (Days() == 0) is returned when from lies past the end.
func (r Range) Resume(from time.Time) Range {
	d := midnight(from.In(r.Start.Location()), r.Start.Location())
	if d.Before(r.Start) {
		d = r.Start
	}
	return Range{Start: d, End: r.End}
}

// Each calls fn for every date in ascending order. Iteration stops at the
// first error, which is returned along with the date that produced it.
func (r Range) Each(fn func(date time.Time) error) (time.Time, error) {
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		if err := fn(d); err != nil {
			return d, err
		}
	}
	return time.Time{}, nil
}

// Dates materialises the range.
func (r Range) Dates() []time.Time {
	out := make([]time.Time, 0, r.Days())
	_, _ = r.Each(func(d time.Time) error {
		out = append(out, d)
		return nil
	})
	return out
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
