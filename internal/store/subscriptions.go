package store

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/jekabolt/growth-dashboard/internal/dependency"
	"github.com/jekabolt/growth-dashboard/internal/entity"
	"github.com/jekabolt/growth-dashboard/internal/metrics"
	"github.com/jekabolt/growth-dashboard/internal/period"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var _ dependency.Subscriptions = (*MYSQLStore)(nil)

const (
	trialCountsSQL = `
		COUNT(*) AS started,
		COUNT(CASE WHEN status = 'active' AND created_at <= :convertedBefore THEN 1 END) AS converted,
		COUNT(CASE WHEN status = 'active' AND created_at > :convertedBefore THEN 1 END) AS in_trial,
		COUNT(CASE WHEN status = 'cancelled' THEN 1 END) AS cancelled,
		COUNT(CASE WHEN status = 'pending' THEN 1 END) AS pending`
	trialFilterSQL = `created_at >= :since AND ABS(total - :trialPrice) < 0.005`
)

// table substitutes the configured subscriptions table into query.
func (ms *MYSQLStore) table(query string) string {
	return strings.ReplaceAll(query, "{subscriptions}", ms.subscriptions)
}

type trialCounts struct {
	WeekStart string `db:"week_start"`
	Started   int    `db:"started"`
	Converted int    `db:"converted"`
	InTrial   int    `db:"in_trial"`
	Cancelled int    `db:"cancelled"`
	Pending   int    `db:"pending"`
}

func (t trialCounts) counts() entity.TrialCounts {
	return entity.TrialCounts{
		Started:   t.Started,
		Converted: t.Converted,
		InTrial:   t.InTrial,
		Cancelled: t.Cancelled,
		Pending:   t.Pending,
	}
}

// FetchSubscriptionMetrics aggregates subscriptions created within r.
func (ms *MYSQLStore) FetchSubscriptionMetrics(ctx context.Context, r period.Range) (*entity.SubscriptionSnapshot, error) {
	type summaryRow struct {
		NewSubs      int             `db:"new_subs"`
		NewActive    int             `db:"new_active"`
		NewCancelled int             `db:"new_cancelled"`
		NewPending   int             `db:"new_pending"`
		NewSuspended int             `db:"new_suspended"`
		NewMRR       decimal.Decimal `db:"new_mrr"`
	}
	type churnRow struct {
		Churned int `db:"churned"`
	}
	type dailyRow struct {
		Day         string `db:"day"`
		NewSubs     int    `db:"new_subs"`
		StillActive int    `db:"still_active"`
	}

	params := map[string]any{"from": r.StartTime(), "to": r.EndTime()}
	var (
		summary summaryRow
		churn   churnRow
		daily   []dailyRow
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = QueryNamedOne[summaryRow](ctx, ms.db, ms.table(`
			SELECT
				COUNT(*) AS new_subs,
				COUNT(CASE WHEN status = 'active' THEN 1 END) AS new_active,
				COUNT(CASE WHEN status = 'cancelled' THEN 1 END) AS new_cancelled,
				COUNT(CASE WHEN status = 'pending' THEN 1 END) AS new_pending,
				COUNT(CASE WHEN status = 'suspended' THEN 1 END) AS new_suspended,
				COALESCE(SUM(CASE WHEN status = 'active' THEN total ELSE 0 END), 0) AS new_mrr
			FROM {subscriptions}
			WHERE created_at >= :from AND created_at < :to
		`), params)
		if err != nil {
			return fmt.Errorf("subscription summary: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		churn, err = QueryNamedOne[churnRow](ctx, ms.db, ms.table(`
			SELECT COUNT(*) AS churned
			FROM {subscriptions}
			WHERE status = 'cancelled'
				AND created_at >= :from AND created_at < :to
		`), params)
		if err != nil {
			return fmt.Errorf("churned subscriptions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		daily, err = QueryListNamed[dailyRow](ctx, ms.db, ms.table(`
			SELECT
				DATE_FORMAT(DATE(created_at), '%Y-%m-%d') AS day,
				COUNT(*) AS new_subs,
				COUNT(CASE WHEN status = 'active' THEN 1 END) AS still_active
			FROM {subscriptions}
			WHERE created_at >= :from AND created_at < :to
			GROUP BY DATE(created_at)
			ORDER BY day
		`), params)
		if err != nil {
			return fmt.Errorf("daily signups: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	points := make([]entity.DailySignups, 0, len(daily))
	for _, d := range daily {
		day, err := civil.ParseDate(d.Day)
		if err != nil {
			return nil, fmt.Errorf("parse signup day %q: %w", d.Day, err)
		}
		points = append(points, entity.DailySignups{Day: day, NewSubs: d.NewSubs, StillActive: d.StillActive})
	}

	counts := entity.SubscriptionCounts{
		New:       summary.NewSubs,
		Active:    summary.NewActive,
		Cancelled: summary.NewCancelled,
		Pending:   summary.NewPending,
		Suspended: summary.NewSuspended,
	}
	return metrics.NewSubscriptionSnapshot(counts, summary.NewMRR, churn.Churned, points), nil
}

// FetchGlobalState returns totals over all subscriptions.
func (ms *MYSQLStore) FetchGlobalState(ctx context.Context) (*entity.GlobalSubscriptionState, error) {
	type totalsRow struct {
		TotalActive int             `db:"total_active"`
		TotalMRR    decimal.Decimal `db:"total_mrr"`
		MonthlySubs int             `db:"monthly_subs"`
		AnnualSubs  int             `db:"annual_subs"`
	}
	type planRow struct {
		Price       decimal.Decimal `db:"price"`
		PeriodType  string          `db:"period_type"`
		ActiveCount int             `db:"active_count"`
		PlanMRR     decimal.Decimal `db:"plan_mrr"`
	}
	type statusRow struct {
		Status string `db:"status"`
		Count  int    `db:"cnt"`
	}

	var (
		totals   totalsRow
		plans    []planRow
		statuses []statusRow
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, err = QueryNamedOne[totalsRow](ctx, ms.db, ms.table(`
			SELECT
				COUNT(*) AS total_active,
				COALESCE(SUM(total), 0) AS total_mrr,
				COUNT(CASE WHEN period_type = 'months' THEN 1 END) AS monthly_subs,
				COUNT(CASE WHEN period_type = 'years' THEN 1 END) AS annual_subs
			FROM {subscriptions}
			WHERE status = 'active'
		`), map[string]any{})
		if err != nil {
			return fmt.Errorf("active totals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		plans, err = QueryListNamed[planRow](ctx, ms.db, ms.table(`
			SELECT
				total AS price,
				COALESCE(period_type, '') AS period_type,
				COUNT(*) AS active_count,
				SUM(total) AS plan_mrr
			FROM {subscriptions}
			WHERE status = 'active' AND total > 0
			GROUP BY total, period_type
			ORDER BY active_count DESC
			LIMIT :limit
		`), map[string]any{"limit": ms.planLimit})
		if err != nil {
			return fmt.Errorf("active plans: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		statuses, err = QueryListNamed[statusRow](ctx, ms.db, ms.table(`
			SELECT COALESCE(status, '') AS status, COUNT(*) AS cnt
			FROM {subscriptions}
			GROUP BY status
			ORDER BY cnt DESC
		`), map[string]any{})
		if err != nil {
			return fmt.Errorf("status histogram: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	state := &entity.GlobalSubscriptionState{
		TotalActive: totals.TotalActive,
		TotalMRR:    metrics.RoundMoney(totals.TotalMRR),
		MonthlySubs: totals.MonthlySubs,
		AnnualSubs:  totals.AnnualSubs,
		Plans:       make([]entity.Plan, 0, len(plans)),
		AllStatuses: make([]entity.StatusCount, 0, len(statuses)),
	}
	for _, p := range plans {
		state.Plans = append(state.Plans, entity.Plan{
			Price:       p.Price,
			PeriodType:  p.PeriodType,
			ActiveCount: p.ActiveCount,
			MRR:         metrics.RoundMoney(p.PlanMRR),
		})
	}
	for _, s := range statuses {
		state.AllStatuses = append(state.AllStatuses, entity.StatusCount{Status: s.Status, Count: s.Count})
	}
	return state, nil
}

// FetchTrialMetrics counts the trial campaign's subscriptions, overall and per ISO week.
func (ms *MYSQLStore) FetchTrialMetrics(ctx context.Context, q dependency.TrialQuery) (*entity.TrialMetrics, error) {
	params := map[string]any{
		"since":           q.Since,
		"trialPrice":      q.TrialPrice.InexactFloat64(),
		"convertedBefore": q.ConvertedBefore,
	}

	var (
		summary trialCounts
		cohorts []trialCounts
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = QueryNamedOne[trialCounts](ctx, ms.db, ms.table(`
			SELECT '' AS week_start, `+trialCountsSQL+`
			FROM {subscriptions}
			WHERE `+trialFilterSQL), params)
		if err != nil {
			return fmt.Errorf("trial summary: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cohorts, err = QueryListNamed[trialCounts](ctx, ms.db, ms.table(`
			SELECT
				DATE_FORMAT(DATE_SUB(DATE(created_at), INTERVAL WEEKDAY(created_at) DAY), '%Y-%m-%d') AS week_start,
				`+trialCountsSQL+`
			FROM {subscriptions}
			WHERE `+trialFilterSQL+`
			GROUP BY week_start
			ORDER BY week_start
		`), params)
		if err != nil {
			return fmt.Errorf("trial cohorts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m := &entity.TrialMetrics{
		TrialCounts: summary.counts(),
		Cohorts:     make([]entity.TrialCohort, 0, len(cohorts)),
	}
	for _, c := range cohorts {
		week, err := civil.ParseDate(c.WeekStart)
		if err != nil {
			return nil, fmt.Errorf("parse cohort week %q: %w", c.WeekStart, err)
		}
		m.Cohorts = append(m.Cohorts, entity.TrialCohort{WeekStart: week, TrialCounts: c.counts()})
	}
	return m, nil
}
