package period

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.October, 19, 23, 30, 0, 0, time.UTC)

func date(y int, m time.Month, d int) civil.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func TestLast(t *testing.T) {
	r := Last(testNow, 7)
	assert.Equal(t, date(2026, time.October, 12), r.Start)
	assert.Equal(t, date(2026, time.October, 19), r.End)
	assert.Equal(t, 7, r.Days())
	assert.Equal(t, date(2026, time.October, 18), r.LastDay())
}

func TestLast_UsesUTCCalendarDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 01:00 on the 20th in UTC+3 is still the 19th in UTC.
	now := time.Date(2026, time.October, 20, 1, 0, 0, 0, loc)
	r := Last(now, 1)
	assert.Equal(t, date(2026, time.October, 19), r.End)
}

func TestYearToDate(t *testing.T) {
	r := YearToDate(testNow)
	assert.Equal(t, date(2026, time.January, 1), r.Start)
	assert.Equal(t, date(2026, time.October, 19), r.End)
	assert.False(t, r.Empty())
}

func TestYearToDate_FirstOfJanuary(t *testing.T) {
	now := time.Date(2026, time.January, 1, 8, 0, 0, 0, time.UTC)
	r := YearToDate(now)
	assert.True(t, r.Empty())
	assert.Equal(t, 0, r.Days())
	assert.False(t, r.End.Before(r.Start))
}

func TestPrevious_IsContiguousAndSameLength(t *testing.T) {
	for _, days := range []int{7, 30, 90} {
		cur := Last(testNow, days)
		prev := Previous(cur)
		assert.Equal(t, cur.Start, prev.End, "days=%d", days)
		assert.Equal(t, cur.Days(), prev.Days(), "days=%d", days)
		assert.Equal(t, Today(testNow).AddDays(-2*days), prev.Start, "days=%d", days)
	}
}

func TestYearToDatePrevious(t *testing.T) {
	elapsed := YearToDate(testNow).Days()
	prev := YearToDatePrevious(testNow)
	assert.Equal(t, 2*elapsed, prev.Days())
	assert.Equal(t, Today(testNow), prev.End)
}

func TestWindows(t *testing.T) {
	ws := Windows(testNow)
	require.Len(t, ws, 4)
	for i, k := range Keys {
		assert.Equal(t, k, ws[i].Key)
		assert.False(t, ws[i].Current.End.Before(ws[i].Current.Start))
	}
	assert.Equal(t, 30, ws[1].Current.Days())
	assert.Equal(t, ws[2].Current.Start, ws[2].Previous.End)
}

func TestEachDay(t *testing.T) {
	var days []string
	EachDay(Last(testNow, 3), func(d civil.Date) {
		days = append(days, d.String())
	})
	assert.Equal(t, []string{"2026-10-16", "2026-10-17", "2026-10-18"}, days)
}
