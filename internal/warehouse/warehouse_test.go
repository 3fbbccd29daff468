package warehouse

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/jekabolt/growth-dashboard/internal/dependency"
	"github.com/jekabolt/growth-dashboard/internal/period"
	"github.com/jekabolt/growth-dashboard/internal/traffic"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/iterator"
)

type fakeIterator struct {
	rows []interface{}
}

func (it *fakeIterator) Next(dst interface{}) error {
	if len(it.rows) == 0 {
		return iterator.Done
	}
	reflect.ValueOf(dst).Elem().Set(reflect.ValueOf(it.rows[0]))
	it.rows = it.rows[1:]
	return nil
}

// fakeRunner serves rows for the first registered fragment found in the query.
type fakeRunner struct {
	mu      sync.Mutex
	results map[string][]interface{}
	err     error
	params  map[string][]bigquery.QueryParameter
	queries map[string]string
}

func (f *fakeRunner) run(_ context.Context, sql string, params []bigquery.QueryParameter) (rowIterator, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for fragment, rows := range f.results {
		if strings.Contains(sql, fragment) {
			if f.params == nil {
				f.params = map[string][]bigquery.QueryParameter{}
			}
			f.params[fragment] = params
			return &fakeIterator{rows: append([]interface{}(nil), rows...)}, nil
		}
	}
	return &fakeIterator{}, nil
}

func testClient(rn runner) *Client {
	return newClient(&Config{ProjectID: "proj", MemberPressDataset: "mp", GA4Dataset: "analytics_1"}, rn)
}

var now = time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

func TestNewClient_TableNames(t *testing.T) {
	c := testClient(&fakeRunner{})
	assert.Equal(t, "`proj.mp.Mepr_Subscriptions`", c.subscriptions)
	assert.Equal(t, "`proj.analytics_1.events_*`", c.events)
	assert.Equal(t, defaultPlanLimit, c.planLimit)
}

func TestFetchSubscriptionMetrics(t *testing.T) {
	r := period.Last(now, 7)
	rn := &fakeRunner{results: map[string][]interface{}{
		"AS new_suspended": {subscriptionSummaryRow{
			NewSubs: 10, NewActive: 8, NewCancelled: 1, NewPending: 1,
			NewMRR: bigquery.NullFloat64{Float64: 159.919, Valid: true},
		}},
		"AS churned": {churnRow{Churned: 2}},
		"GROUP BY day": {
			dailySignupsRow{Day: r.Start.AddDays(2), NewSubs: 3, StillActive: 2},
		},
	}}

	s, err := testClient(rn).FetchSubscriptionMetrics(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Counts.New)
	assert.Equal(t, 8, s.Counts.Active)
	assert.Equal(t, 2, s.Churned)
	assert.Equal(t, 80.0, s.RetentionRate)
	assert.Equal(t, "159.92", s.NewMRR.String())
	require.Len(t, s.Daily, 1)
	assert.Equal(t, 3, s.Daily[0].NewSubs)

	params := rn.params["AS churned"]
	require.Len(t, params, 2)
	assert.Equal(t, r.StartTime(), params[0].Value)
	assert.Equal(t, r.EndTime(), params[1].Value)
}

func TestFetchSubscriptionMetrics_NoRows(t *testing.T) {
	s, err := testClient(&fakeRunner{}).FetchSubscriptionMetrics(context.Background(), period.Last(now, 7))
	require.NoError(t, err)
	assert.Zero(t, s.Counts.New)
	assert.Zero(t, s.RetentionRate)
	assert.True(t, s.NewMRR.IsZero())
}

func TestFetchSubscriptionMetrics_QueryError(t *testing.T) {
	_, err := testClient(&fakeRunner{err: errors.New("quota exceeded")}).
		FetchSubscriptionMetrics(context.Background(), period.Last(now, 7))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestFetchGlobalState(t *testing.T) {
	rn := &fakeRunner{results: map[string][]interface{}{
		"AS total_active": {activeTotalsRow{
			TotalActive: 100, TotalMRR: bigquery.NullFloat64{Float64: 2500.499, Valid: true},
			MonthlySubs: 80, AnnualSubs: 20,
		}},
		"LIMIT @limit": {
			planRow{Price: 19.99, PeriodType: "months", ActiveCount: 80, PlanMRR: 1599.2},
			planRow{Price: 199, PeriodType: "years", ActiveCount: 20, PlanMRR: 3980},
		},
		"AS cnt": {
			statusRow{Status: "active", Count: 100},
			statusRow{Status: "cancelled", Count: 12},
		},
	}}

	s, err := testClient(rn).FetchGlobalState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, s.TotalActive)
	assert.Equal(t, "2500.5", s.TotalMRR.String())
	assert.Equal(t, 80, s.MonthlySubs)
	assert.Equal(t, 20, s.AnnualSubs)
	require.Len(t, s.Plans, 2)
	assert.Equal(t, "19.99", s.Plans[0].Price.String())
	assert.Equal(t, "months", s.Plans[0].PeriodType)
	require.Len(t, s.AllStatuses, 2)
	assert.Equal(t, "cancelled", s.AllStatuses[1].Status)

	params := rn.params["LIMIT @limit"]
	require.Len(t, params, 1)
	assert.Equal(t, defaultPlanLimit, params[0].Value)
}

func TestFetchGlobalState_NullMRR(t *testing.T) {
	s, err := testClient(&fakeRunner{results: map[string][]interface{}{
		"AS total_active": {activeTotalsRow{}},
	}}).FetchGlobalState(context.Background())
	require.NoError(t, err)
	assert.True(t, s.TotalMRR.IsZero())
	assert.NotNil(t, s.Plans)
	assert.NotNil(t, s.AllStatuses)
}

func TestFetchTrialMetrics(t *testing.T) {
	week := civil.Date{Year: 2026, Month: time.September, Day: 28}
	rn := &fakeRunner{results: map[string][]interface{}{
		"GROUP BY week_start": {
			trialCountsRow{WeekStart: week, Started: 6, Converted: 3, InTrial: 1, Cancelled: 2},
		},
		"SELECT \n": {
			trialCountsRow{Started: 10, Converted: 3, InTrial: 6, Cancelled: 1},
		},
	}}
	q := dependency.TrialQuery{
		Since:           time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		TrialPrice:      decimal.NewFromInt(1),
		ConvertedBefore: now.AddDate(0, 0, -30),
	}

	m, err := testClient(rn).FetchTrialMetrics(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 10, m.Started)
	assert.Equal(t, 3, m.Converted)
	assert.Equal(t, 4, m.Completed())
	require.Len(t, m.Cohorts, 1)
	assert.Equal(t, week, m.Cohorts[0].WeekStart)
	assert.Equal(t, 6, m.Cohorts[0].Started)

	params := rn.params["GROUP BY week_start"]
	require.Len(t, params, 3)
	assert.Equal(t, q.Since, params[0].Value)
	assert.Equal(t, 1.0, params[1].Value)
	assert.Equal(t, q.ConvertedBefore, params[2].Value)
}

func TestFetchTrialMetrics_ConversionBoundary(t *testing.T) {
	rn := &fakeRunner{results: map[string][]interface{}{
		"GROUP BY week_start": {trialCountsRow{WeekStart: civil.Date{Year: 2026, Month: time.September, Day: 14}}},
		"SELECT \n":           {trialCountsRow{}},
	}}
	_, err := testClient(rn).FetchTrialMetrics(context.Background(), dependency.TrialQuery{Since: now.AddDate(0, 0, -60), ConvertedBefore: now.AddDate(0, 0, -30)})
	require.NoError(t, err)

	// A trial created exactly at the cutoff has completed its 30 days.
	for _, fragment := range []string{"GROUP BY week_start", "SELECT \n"} {
		sql := rn.queries[fragment]
		assert.Contains(t, sql, "created_at <= @converted_before) AS converted", fragment)
		assert.Contains(t, sql, "created_at > @converted_before) AS in_trial", fragment)
	}
}

func TestFetchTrialMetrics_NoTrials(t *testing.T) {
	m, err := testClient(&fakeRunner{}).FetchTrialMetrics(context.Background(), dependency.TrialQuery{Since: now})
	require.NoError(t, err)
	assert.Zero(t, m.Started)
	assert.NotNil(t, m.Cohorts)
}

func TestFetchSessions(t *testing.T) {
	r := period.Last(now, 7)
	rn := &fakeRunner{results: map[string][]interface{}{
		"GROUP BY source, medium": {
			sourceMediumRow{Source: "google", Medium: "organic", Sessions: 50},
			sourceMediumRow{Source: "(direct)", Medium: "(none)", Sessions: 20},
			sourceMediumRow{Source: "google", Medium: "cpc", Sessions: 5},
			sourceMediumRow{Source: "", Medium: "", Sessions: 3},
		},
	}}

	agg, err := testClient(rn).FetchSessions(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 78, agg.Total)
	assert.Equal(t, 50, agg.ByChannel[traffic.OrganicSearch])
	assert.Equal(t, 23, agg.ByChannel[traffic.Direct])
	assert.Equal(t, 5, agg.ByChannel[traffic.PaidSearch])

	params := rn.params["GROUP BY source, medium"]
	require.Len(t, params, 2)
	assert.Equal(t, "20261012", params[0].Value)
	assert.Equal(t, "20261019", params[1].Value)
}

func TestFetchSessions_EmptyRangeSkipsQuery(t *testing.T) {
	rn := &fakeRunner{err: errors.New("must not be called")}
	agg, err := testClient(rn).FetchSessions(context.Background(), period.YearToDate(time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Zero(t, agg.Total)
	assert.NotNil(t, agg.ByChannel)
}

func TestFetchDailySessions(t *testing.T) {
	rn := &fakeRunner{results: map[string][]interface{}{
		"GROUP BY day": {
			dailySessionsRow{Day: "20261013", Sessions: 11},
			dailySessionsRow{Day: "20261015", Sessions: 7},
		},
	}}
	out, err := testClient(rn).FetchDailySessions(context.Background(), period.Last(now, 7))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, civil.Date{Year: 2026, Month: time.October, Day: 13}, out[0].Day)
	assert.Equal(t, 7, out[1].Sessions)
}

func TestFetchDailySessions_BadSuffix(t *testing.T) {
	rn := &fakeRunner{results: map[string][]interface{}{
		"GROUP BY day": {dailySessionsRow{Day: "intraday_20261019", Sessions: 1}},
	}}
	_, err := testClient(rn).FetchDailySessions(context.Background(), period.Last(now, 7))
	require.Error(t, err)
}
