// Package period selects the contract months (YYYYMM) a collection run covers.
package period

import (
	"errors"
	"fmt"
	"time"
)

const layout = "200601"

// ErrInvalidMonth is returned for month arguments that are not YYYYMM.
var ErrInvalidMonth = errors.New("month must be in YYYYMM format")

// Selection holds the month flags of a run, in precedence order: Prev, then Back/Count, then Months.
type Selection struct {
	Months []string // explicit months
	Back   int      // months before the current one to start at
	Count  int      // consecutive months from the start
	Ranged bool     // Back/Count were given
	Prev   bool     // only the previous month
}

// Parse validates a YYYYMM month.
func Parse(month string) (time.Time, error) {
	if len(month) != len(layout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}

	t, err := time.Parse(layout, month)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidMonth, month)
	}

	return t, nil
}

// Range returns count consecutive months starting back months before now.
// Negative back is treated as zero and non-positive count as one.
func Range(now time.Time, back, count int) []string {
	back = max(back, 0)
	if count <= 0 {
		count = 1
	}

	start := time.Date(now.Year(), now.Month()-time.Month(back), 1, 0, 0, 0, 0, time.UTC)
	months := make([]string, 0, count)
	for i := range count {
		months = append(months, start.AddDate(0, i, 0).Format(layout))
	}

	return months
}

// Resolve returns the months selected by sel. Without flags it falls back to defaults,
// and without defaults to the current month.
func Resolve(now time.Time, sel Selection, defaults []string) ([]string, error) {
	switch {
	case sel.Prev:
		return Range(now, 1, 1), nil
	case sel.Ranged:
		return Range(now, sel.Back, sel.Count), nil
	case len(sel.Months) > 0:
		return validated(sel.Months)
	case len(defaults) > 0:
		return validated(defaults)
	default:
		return Range(now, 0, 1), nil
	}
}

func validated(months []string) ([]string, error) {
	out := make([]string, 0, len(months))
	for _, month := range months {
		if _, err := Parse(month); err != nil {
			return nil, err
		}
		out = append(out, month)
	}

	return out, nil
}
