package store

import (
	"context"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jekabolt/growth-dashboard/internal/dependency"
	"github.com/jekabolt/growth-dashboard/internal/period"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrefix = "gdtest_"

// newTestDB connects to MEMBERPRESS_TEST_DSN and seeds a scratch subscriptions table.
// The DSN must include parseTime=true.
func newTestDB(t *testing.T) *MYSQLStore {
	dsn := os.Getenv("MEMBERPRESS_TEST_DSN")
	if dsn == "" {
		t.Skip("MEMBERPRESS_TEST_DSN not set, skipping integration test")
	}
	ctx := context.Background()

	db, err := New(ctx, Config{DSN: dsn, TablePrefix: testPrefix})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	exec := func(q string, args ...any) {
		rows, err := db.db.QueryxContext(ctx, q, args...)
		require.NoError(t, err)
		rows.Close()
	}
	exec("DROP TABLE IF EXISTS " + testPrefix + "mepr_subscriptions")
	exec(`CREATE TABLE ` + testPrefix + `mepr_subscriptions (
		id INT AUTO_INCREMENT PRIMARY KEY,
		status VARCHAR(32),
		period_type VARCHAR(32),
		total DECIMAL(16,2),
		created_at DATETIME NOT NULL
	)`)
	return db
}

func seed(t *testing.T, db *MYSQLStore, status, periodType string, total string, created time.Time) {
	t.Helper()
	rows, err := db.db.QueryxContext(context.Background(),
		"INSERT INTO "+testPrefix+"mepr_subscriptions (status, period_type, total, created_at) VALUES (?, ?, ?, ?)",
		status, periodType, total, created)
	require.NoError(t, err)
	rows.Close()
}

func TestNewStore_TableName(t *testing.T) {
	ms := newStore(nil, Config{})
	assert.Equal(t, "wp_mepr_subscriptions", ms.subscriptions)
	assert.Equal(t, defaultPlanLimit, ms.planLimit)
	assert.Equal(t, "SELECT * FROM wp_mepr_subscriptions", ms.table("SELECT * FROM {subscriptions}"))

	ms = newStore(nil, Config{TablePrefix: "site2_", PlanLimit: 3})
	assert.Equal(t, "site2_mepr_subscriptions", ms.subscriptions)
	assert.Equal(t, 3, ms.planLimit)
}

func TestTrialCountsSQL_ConversionBoundary(t *testing.T) {
	assert.Contains(t, trialCountsSQL, "created_at <= :convertedBefore THEN 1 END) AS converted")
	assert.Contains(t, trialCountsSQL, "created_at > :convertedBefore THEN 1 END) AS in_trial")
}

func TestSubscriptionMetrics(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	r := period.Last(now, 7)
	inside := r.StartTime().Add(36 * time.Hour)

	seed(t, db, "active", "months", "20.00", inside)
	seed(t, db, "active", "years", "200.00", inside)
	seed(t, db, "cancelled", "months", "20.00", inside)
	seed(t, db, "pending", "months", "20.00", inside)
	seed(t, db, "active", "months", "20.00", r.StartTime().Add(-time.Hour))

	s, err := db.FetchSubscriptionMetrics(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Counts.New)
	assert.Equal(t, 2, s.Counts.Active)
	assert.Equal(t, 1, s.Churned)
	assert.Equal(t, 50.0, s.RetentionRate)
	assert.Equal(t, "220", s.NewMRR.String())
	require.Len(t, s.Daily, 1)
	assert.Equal(t, civil.DateOf(inside), s.Daily[0].Day)

	g, err := db.FetchGlobalState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, g.TotalActive)
	assert.Equal(t, "240", g.TotalMRR.String())
	assert.Equal(t, 2, g.MonthlySubs)
	assert.Equal(t, 1, g.AnnualSubs)
	require.NotEmpty(t, g.Plans)
	assert.Equal(t, 2, g.Plans[0].ActiveCount)
	assert.Equal(t, "active", g.AllStatuses[0].Status)
}

func TestTrialMetrics(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	since := now.AddDate(0, 0, -60)
	cutoff := now.AddDate(0, 0, -30)

	seed(t, db, "active", "months", "1.00", now.AddDate(0, 0, -45))
	seed(t, db, "active", "months", "1.00", now.AddDate(0, 0, -5))
	seed(t, db, "cancelled", "months", "1.00", now.AddDate(0, 0, -40))
	seed(t, db, "active", "months", "20.00", now.AddDate(0, 0, -10))
	seed(t, db, "active", "months", "1.00", cutoff)

	m, err := db.FetchTrialMetrics(ctx, dependency.TrialQuery{
		Since:           since,
		TrialPrice:      decimal.NewFromInt(1),
		ConvertedBefore: cutoff,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, m.Started)
	assert.Equal(t, 2, m.Converted)
	assert.Equal(t, 1, m.InTrial)
	assert.Equal(t, 1, m.Cancelled)
	assert.NotEmpty(t, m.Cohorts)
	for _, c := range m.Cohorts {
		assert.Equal(t, time.Monday, c.WeekStart.In(time.UTC).Weekday())
	}
}
