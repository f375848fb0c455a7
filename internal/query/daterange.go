package query

import (
	"strings"
	"time"

	"omni-reports/internal/domain"
)

const dateLayout = "2006-01-02"

// GranularityLevels are the accepted date granularities.
var GranularityLevels = []string{"hour", "day", "month"}

// RangeOption refines a Range call.
type RangeOption func(*rangeOptions)

type rangeOptions struct {
	stop        string
	days        int
	months      int
	granularity string
}

// Until sets an inclusive stop date (YYYY-MM-DD).
func Until(stop string) RangeOption {
	return func(o *rangeOptions) { o.stop = stop }
}

// Days makes the range span n days starting at the start date.
func Days(n int) RangeOption {
	return func(o *rangeOptions) { o.days = n }
}

// Months makes the range span n calendar months starting at the start date.
func Months(n int) RangeOption {
	return func(o *rangeOptions) { o.months = n }
}

// Granularity sets the breakdown period: hour, day or month.
func Granularity(g string) RangeOption {
	return func(o *rangeOptions) { o.granularity = g }
}

// Range sets the report period. A single day becomes {date}; anything longer
// becomes {dateFrom, dateTo}.
func (q *Query) Range(start string, opts ...RangeOption) (*Query, error) {
	var o rangeOptions
	for _, opt := range opts {
		opt(&o)
	}

	from, err := parseDate("start", start)
	if err != nil {
		return nil, err
	}
	if o.days < 0 || o.months < 0 {
		return nil, domain.ErrValidation("days and months must not be negative")
	}

	to := from
	switch {
	case o.days > 0 || o.months > 0:
		if o.stop != "" {
			return nil, domain.ErrValidation("a stop date cannot be combined with days or months")
		}
		to = addMonths(from, o.months).AddDate(0, 0, o.days-1)
	case o.stop != "":
		to, err = parseDate("stop", o.stop)
		if err != nil {
			return nil, err
		}
	}
	if to.Before(from) {
		return nil, domain.ErrValidation("stop date %s is before start date %s", to.Format(dateLayout), from.Format(dateLayout))
	}

	if o.granularity != "" && !validGranularity(o.granularity) {
		return nil, domain.ErrValidation("granularity should be one of: %s", strings.Join(GranularityLevels, ", "))
	}

	c := q.clone()
	d := &DateSpec{}
	if q.spec.Date != nil {
		d.Granularity = q.spec.Date.Granularity
	}
	if o.granularity != "" {
		d.Granularity = o.granularity
	}
	if from.Equal(to) {
		d.Date = from.Format(dateLayout)
	} else {
		d.From = from.Format(dateLayout)
		d.To = to.Format(dateLayout)
	}
	c.spec.Date = d
	return c, nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, domain.ErrValidation("%s date %q must be formatted as YYYY-MM-DD", field, s)
	}
	return t, nil
}

func validGranularity(g string) bool {
	for _, level := range GranularityLevels {
		if g == level {
			return true
		}
	}
	return false
}

// addMonths moves t forward n calendar months, clamping the day to the last
// day of the target month (Jan 31 + 1 month = Feb 28).
func addMonths(t time.Time, n int) time.Time {
	if n == 0 {
		return t
	}
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}
