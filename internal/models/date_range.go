package models

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateRange selects transactions by calendar date, both ends inclusive.
// A zero From or To leaves that side open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ParseDateRange builds a range from YYYY-MM-DD strings; empty strings are open ends.
func ParseDateRange(from, to string) (DateRange, error) {
	var r DateRange
	var err error
	if from != "" {
		if r.From, err = time.Parse(dateLayout, from); err != nil {
			return DateRange{}, fmt.Errorf("invalid from date %q: %w", from, err)
		}
	}
	if to != "" {
		if r.To, err = time.Parse(dateLayout, to); err != nil {
			return DateRange{}, fmt.Errorf("invalid to date %q: %w", to, err)
		}
	}
	return r, r.Validate()
}

func (r DateRange) Validate() error {
	if !r.From.IsZero() && !r.To.IsZero() && dayOf(r.From).After(dayOf(r.To)) {
		return fmt.Errorf("date range: from %s is after to %s", r.From.Format(dateLayout), r.To.Format(dateLayout))
	}
	return nil
}

// Start is the first instant inside the range, zero if open.
func (r DateRange) Start() time.Time {
	if r.From.IsZero() {
		return time.Time{}
	}
	return dayOf(r.From)
}

// End is the first instant after the range, zero if open.
func (r DateRange) End() time.Time {
	if r.To.IsZero() {
		return time.Time{}
	}
	return dayOf(r.To).AddDate(0, 0, 1)
}

// Contains reports whether t falls on a day inside the range.
func (r DateRange) Contains(t time.Time) bool {
	t = t.UTC()
	if start := r.Start(); !start.IsZero() && t.Before(start) {
		return false
	}
	if end := r.End(); !end.IsZero() && !t.Before(end) {
		return false
	}
	return true
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
