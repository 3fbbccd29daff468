// Package period computes the reporting windows of the dashboard snapshot.
//
// A Range is a half-open window of UTC calendar days: Start is included,
// End is not. Fixed lookbacks end at (and exclude) the current day, so two
// consecutive windows of the same length never share a day.
package period

import (
	"time"

	"cloud.google.com/go/civil"
)

// Key identifies a reporting period in the snapshot.
type Key string

const (
	Key7d  Key = "7d"
	Key30d Key = "30d"
	Key90d Key = "90d"
	KeyYTD Key = "ytd"
)

// Keys is the fixed set of periods in the order they are built and logged.
var Keys = []Key{Key7d, Key30d, Key90d, KeyYTD}

// Range is a [Start, End) window of calendar days.
type Range struct {
	Start civil.Date
	End   civil.Date
}

// Days returns the number of calendar days covered by the range.
func (r Range) Days() int {
	return r.End.DaysSince(r.Start)
}

// Empty reports whether the range covers no day at all.
func (r Range) Empty() bool {
	return !r.Start.Before(r.End)
}

// StartTime returns midnight UTC of the first day.
func (r Range) StartTime() time.Time {
	return r.Start.In(time.UTC)
}

// EndTime returns midnight UTC of the excluded end day.
func (r Range) EndTime() time.Time {
	return r.End.In(time.UTC)
}

// LastDay returns the last day covered by the range (End - 1).
func (r Range) LastDay() civil.Date {
	return r.End.AddDays(-1)
}

func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// Today returns the UTC calendar day of now.
func Today(now time.Time) civil.Date {
	return civil.DateOf(now.UTC())
}

// Last returns the window of the given number of days ending today.
func Last(now time.Time, days int) Range {
	if days < 0 {
		days = 0
	}
	today := Today(now)
	return Range{Start: today.AddDays(-days), End: today}
}

// YearToDate returns the window from January 1 of the current UTC year up to today.
func YearToDate(now time.Time) Range {
	today := Today(now)
	return Range{
		Start: civil.Date{Year: today.Year, Month: time.January, Day: 1},
		End:   today,
	}
}

// Previous returns the window of equal length immediately preceding r.
func Previous(r Range) Range {
	return Range{Start: r.Start.AddDays(-r.Days()), End: r.Start}
}

// YearToDatePrevious returns the YTD comparator: a window twice as long as
// the elapsed days of the year, ending today. It overlaps the current YTD
// window and is not a year-over-year comparison.
// TODO: replace with the same calendar span of the prior year once product confirms.
func YearToDatePrevious(now time.Time) Range {
	return Last(now, 2*YearToDate(now).Days())
}

// Window pairs a period with its comparator window.
type Window struct {
	Key      Key
	Current  Range
	Previous Range
}

// Windows returns the four reporting windows in Keys order.
func Windows(now time.Time) []Window {
	lookback := func(k Key, days int) Window {
		cur := Last(now, days)
		return Window{Key: k, Current: cur, Previous: Previous(cur)}
	}
	return []Window{
		lookback(Key7d, 7),
		lookback(Key30d, 30),
		lookback(Key90d, 90),
		{Key: KeyYTD, Current: YearToDate(now), Previous: YearToDatePrevious(now)},
	}
}

// EachDay calls fn for every day of r in ascending order.
func EachDay(r Range, fn func(civil.Date)) {
	for d := r.Start; d.Before(r.End); d = d.AddDays(1) {
		fn(d)
	}
}
