package datepick

import (
	"fmt"
	"time"
)

// MonthAnchor is the month/year pair a date picker page displays.
type MonthAnchor struct {
	Year  int
	Month time.Month
}

// AnchorOf returns the month a date falls in.
func AnchorOf(date time.Time) MonthAnchor {
	d := DateOf(date)
	return MonthAnchor{Year: d.Year(), Month: d.Month()}
}

// Next moves to the following month, rolling the year over after December.
func (a MonthAnchor) Next() MonthAnchor {
	a.Month++
	if a.Month > time.December {
		a.Month = time.January
		a.Year++
	}
	return a
}

// Before reports whether a is an earlier month than other.
func (a MonthAnchor) Before(other MonthAnchor) bool {
	return a.index() < other.index()
}

// MonthsUntil counts the page turns needed to go from a to other. It is
// negative when other comes first.
func (a MonthAnchor) MonthsUntil(other MonthAnchor) int {
	return other.index() - a.index()
}

// Contains reports whether date falls inside the anchored month.
func (a MonthAnchor) Contains(date time.Time) bool {
	return AnchorOf(date) == a
}

// FirstDay is the first calendar date of the month.
func (a MonthAnchor) FirstDay() time.Time {
	return time.Date(a.Year, a.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days lists every calendar date of the month in order.
func (a MonthAnchor) Days() []time.Time {
	first := a.FirstDay()
	n := daysIn(a.Month, a.Year)
	days := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, first.AddDate(0, 0, i))
	}
	return days
}

func (a MonthAnchor) String() string {
	return fmt.Sprintf("%s %d", a.Month, a.Year)
}

func (a MonthAnchor) index() int {
	return a.Year*12 + int(a.Month) - 1
}

func daysIn(m time.Month, year int) int {
	switch m {
	case time.February:
		if (year%4 == 0 && year%100 != 0) || year%400 == 0 {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}
