package warehouse

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/jekabolt/growth-dashboard/internal/dependency"
	"github.com/jekabolt/growth-dashboard/internal/entity"
	"github.com/jekabolt/growth-dashboard/internal/metrics"
	"github.com/jekabolt/growth-dashboard/internal/period"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var _ dependency.Subscriptions = (*Client)(nil)

type subscriptionSummaryRow struct {
	NewSubs      int64                `bigquery:"new_subs"`
	NewActive    int64                `bigquery:"new_active"`
	NewCancelled int64                `bigquery:"new_cancelled"`
	NewPending   int64                `bigquery:"new_pending"`
	NewSuspended int64                `bigquery:"new_suspended"`
	NewMRR       bigquery.NullFloat64 `bigquery:"new_mrr"`
}

type churnRow struct {
	Churned int64 `bigquery:"churned"`
}

type dailySignupsRow struct {
	Day         civil.Date `bigquery:"day"`
	NewSubs     int64                `bigquery:"new_subs"`
	StillActive int64      `bigquery:"still_active"`
}

type activeTotalsRow struct {
	TotalActive int64                `bigquery:"total_active"`
	TotalMRR    bigquery.NullFloat64 `bigquery:"total_mrr"`
	MonthlySubs int64                `bigquery:"monthly_subs"`
	AnnualSubs  int64                `bigquery:"annual_subs"`
}

type planRow struct {
	Price       float64 `bigquery:"price"`
	PeriodType  string  `bigquery:"period_type"`
	ActiveCount int64   `bigquery:"active_count"`
	PlanMRR     float64 `bigquery:"plan_mrr"`
}

type statusRow struct {
	Status string `bigquery:"status"`
	Count  int64  `bigquery:"cnt"`
}

type trialCountsRow struct {
	WeekStart civil.Date `bigquery:"week_start"`
	Started   int64      `bigquery:"started"`
	Converted int64      `bigquery:"converted"`
	InTrial   int64      `bigquery:"in_trial"`
	Cancelled int64      `bigquery:"cancelled"`
	Pending   int64      `bigquery:"pending"`
}

func (r trialCountsRow) counts() entity.TrialCounts {
	return entity.TrialCounts{
		Started:   int(r.Started),
		Converted: int(r.Converted),
		InTrial:   int(r.InTrial),
		Cancelled: int(r.Cancelled),
		Pending:   int(r.Pending),
	}
}

func windowParams(r period.Range) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "start", Value: r.StartTime()},
		{Name: "end", Value: r.EndTime()},
	}
}

// FetchSubscriptionMetrics aggregates subscriptions created within r.
func (c *Client) FetchSubscriptionMetrics(ctx context.Context, r period.Range) (*entity.SubscriptionSnapshot, error) {
	var (
		summary      subscriptionSummaryRow
		summaryFound bool
		churn        churnRow
		daily        []dailySignupsRow
	)
	params := windowParams(r)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, summaryFound, err = readOne[subscriptionSummaryRow](ctx, c.rn, fmt.Sprintf(`
			SELECT
				COUNT(*) AS new_subs,
				COUNTIF(status = 'active') AS new_active,
				COUNTIF(status = 'cancelled') AS new_cancelled,
				COUNTIF(status = 'pending') AS new_pending,
				COUNTIF(status = 'suspended') AS new_suspended,
				CAST(SUM(IF(status = 'active', total, 0)) AS FLOAT64) AS new_mrr
			FROM %s
			WHERE created_at >= @start AND created_at < @end
		`, c.subscriptions), params)
		if err != nil {
			return fmt.Errorf("subscription summary: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		churn, _, err = readOne[churnRow](ctx, c.rn, fmt.Sprintf(`
			SELECT COUNT(*) AS churned
			FROM %s
			WHERE status = 'cancelled'
				AND created_at >= @start AND created_at < @end
		`, c.subscriptions), params)
		if err != nil {
			return fmt.Errorf("churned subscriptions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		daily, err = readRows[dailySignupsRow](ctx, c.rn, fmt.Sprintf(`
			SELECT DATE(created_at) AS day, COUNT(*) AS new_subs, COUNTIF(status = 'active') AS still_active
			FROM %s
			WHERE created_at >= @start AND created_at < @end
			GROUP BY day
			ORDER BY day
		`, c.subscriptions), params)
		if err != nil {
			return fmt.Errorf("daily signups: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var counts entity.SubscriptionCounts
	newMRR := decimal.Zero
	if summaryFound {
		counts = entity.SubscriptionCounts{
			New:       int(summary.NewSubs),
			Active:    int(summary.NewActive),
			Cancelled: int(summary.NewCancelled),
			Pending:   int(summary.NewPending),
			Suspended: int(summary.NewSuspended),
		}
		if summary.NewMRR.Valid {
			newMRR = decimal.NewFromFloat(summary.NewMRR.Float64)
		}
	}

	points := make([]entity.DailySignups, 0, len(daily))
	for _, d := range daily {
		points = append(points, entity.DailySignups{
			Day:         d.Day,
			NewSubs:     int(d.NewSubs),
			StillActive: int(d.StillActive),
		})
	}

	return metrics.NewSubscriptionSnapshot(counts, newMRR, int(churn.Churned), points), nil
}

// FetchGlobalState returns totals over all subscriptions.
func (c *Client) FetchGlobalState(ctx context.Context) (*entity.GlobalSubscriptionState, error) {
	var (
		totals   activeTotalsRow
		plans    []planRow
		statuses []statusRow
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totals, _, err = readOne[activeTotalsRow](ctx, c.rn, fmt.Sprintf(`
			SELECT
				COUNT(*) AS total_active,
				CAST(SUM(total) AS FLOAT64) AS total_mrr,
				COUNTIF(period_type = 'months') AS monthly_subs,
				COUNTIF(period_type = 'years') AS annual_subs
			FROM %s
			WHERE status = 'active'
		`, c.subscriptions), nil)
		if err != nil {
			return fmt.Errorf("active totals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		plans, err = readRows[planRow](ctx, c.rn, fmt.Sprintf(`
			SELECT
				CAST(total AS FLOAT64) AS price,
				IFNULL(period_type, '') AS period_type,
				COUNT(*) AS active_count,
				CAST(SUM(total) AS FLOAT64) AS plan_mrr
			FROM %s
			WHERE status = 'active' AND total > 0
			GROUP BY total, period_type
			ORDER BY active_count DESC
			LIMIT @limit
		`, c.subscriptions), []bigquery.QueryParameter{{Name: "limit", Value: c.planLimit}})
		if err != nil {
			return fmt.Errorf("active plans: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		statuses, err = readRows[statusRow](ctx, c.rn, fmt.Sprintf(`
			SELECT IFNULL(status, '') AS status, COUNT(*) AS cnt
			FROM %s
			GROUP BY status
			ORDER BY cnt DESC
		`, c.subscriptions), nil)
		if err != nil {
			return fmt.Errorf("status histogram: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	state := &entity.GlobalSubscriptionState{
		TotalActive: int(totals.TotalActive),
		TotalMRR:    decimal.Zero,
		MonthlySubs: int(totals.MonthlySubs),
		AnnualSubs:  int(totals.AnnualSubs),
		Plans:       make([]entity.Plan, 0, len(plans)),
		AllStatuses: make([]entity.StatusCount, 0, len(statuses)),
	}
	if totals.TotalMRR.Valid {
		state.TotalMRR = metrics.RoundMoney(decimal.NewFromFloat(totals.TotalMRR.Float64))
	}
	for _, p := range plans {
		state.Plans = append(state.Plans, entity.Plan{
			Price:       decimal.NewFromFloat(p.Price),
			PeriodType:  p.PeriodType,
			ActiveCount: int(p.ActiveCount),
			MRR:         metrics.RoundMoney(decimal.NewFromFloat(p.PlanMRR)),
		})
	}
	for _, s := range statuses {
		state.AllStatuses = append(state.AllStatuses, entity.StatusCount{Status: s.Status, Count: int(s.Count)})
	}
	return state, nil
}

// FetchTrialMetrics counts the trial campaign's subscriptions, overall and per ISO week.
func (c *Client) FetchTrialMetrics(ctx context.Context, q dependency.TrialQuery) (*entity.TrialMetrics, error) {
	params := []bigquery.QueryParameter{
		{Name: "since", Value: q.Since},
		{Name: "trial_price", Value: q.TrialPrice.InexactFloat64()},
		{Name: "converted_before", Value: q.ConvertedBefore},
	}
	const countsSQL = `
		COUNT(*) AS started,
		COUNTIF(status = 'active' AND created_at <= @converted_before) AS converted,
		COUNTIF(status = 'active' AND created_at > @converted_before) AS in_trial,
		COUNTIF(status = 'cancelled') AS cancelled,
		COUNTIF(status = 'pending') AS pending`
	const filterSQL = `created_at >= @since AND ABS(total - @trial_price) < 0.005`

	var (
		summary trialCountsRow
		cohorts []trialCountsRow
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, _, err = readOne[trialCountsRow](ctx, c.rn, fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE %s
		`, countsSQL, c.subscriptions, filterSQL), params)
		if err != nil {
			return fmt.Errorf("trial summary: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cohorts, err = readRows[trialCountsRow](ctx, c.rn, fmt.Sprintf(`
			SELECT DATE_TRUNC(DATE(created_at), ISOWEEK) AS week_start, %s
			FROM %s
			WHERE %s
			GROUP BY week_start
			ORDER BY week_start
		`, countsSQL, c.subscriptions, filterSQL), params)
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
	for _, r := range cohorts {
		m.Cohorts = append(m.Cohorts, entity.TrialCohort{WeekStart: r.WeekStart, TrialCounts: r.counts()})
	}
	return m, nil
}
