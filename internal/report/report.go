// Package report assembles the dashboard snapshot from the subscription,
// session and ad spend sources.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jekabolt/growth-dashboard/internal/dependency"
	"github.com/jekabolt/growth-dashboard/internal/entity"
	"github.com/jekabolt/growth-dashboard/internal/metrics"
	"github.com/jekabolt/growth-dashboard/internal/period"
	"golang.org/x/sync/errgroup"
)

// Builder runs the fetches for one snapshot.
type Builder struct {
	subs        dependency.Subscriptions
	sessions    dependency.Sessions
	adSpend     dependency.AdSpend
	assumptions entity.TrialAssumptions
	metrics     Metrics
	now         func() time.Time
}

type Option func(*Builder)

// WithMetrics sets the run metrics sink.
func WithMetrics(m Metrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

func New(subs dependency.Subscriptions, sessions dependency.Sessions, adSpend dependency.AdSpend, a entity.TrialAssumptions, opts ...Option) *Builder {
	b := &Builder{
		subs:        subs,
		sessions:    sessions,
		adSpend:     adSpend,
		assumptions: a,
		metrics:     &NoopMetrics{},
		now:         time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// observe times fn and reports it under source/query.
func (b *Builder) observe(source, query string, fn func() error) error {
	start := time.Now()
	err := fn()
	b.metrics.RecordFetch(source, query, time.Since(start), err)
	return err
}

// BuildPeriod fetches both windows of w and assembles the period report.
func (b *Builder) BuildPeriod(ctx context.Context, w period.Window, global *entity.GlobalSubscriptionState) (entity.PeriodReport, error) {
	var in = metrics.PeriodInputs{Range: w.Current, Global: global}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.observe(entity.OriginMemberPress, "subscriptions", func() (err error) {
			in.Subs, err = b.subs.FetchSubscriptionMetrics(ctx, w.Current)
			if err != nil {
				return fmt.Errorf("subscriptions %s: %w", w.Current, err)
			}
			return nil
		})
	})
	g.Go(func() error {
		return b.observe(entity.OriginGA4, "sessions", func() (err error) {
			in.Sessions, err = b.sessions.FetchSessions(ctx, w.Current)
			if err != nil {
				return fmt.Errorf("sessions %s: %w", w.Current, err)
			}
			return nil
		})
	})
	g.Go(func() error {
		return b.observe(entity.OriginMemberPress, "subscriptions", func() (err error) {
			in.PrevSubs, err = b.subs.FetchSubscriptionMetrics(ctx, w.Previous)
			if err != nil {
				return fmt.Errorf("previous subscriptions %s: %w", w.Previous, err)
			}
			return nil
		})
	})
	g.Go(func() error {
		return b.observe(entity.OriginGA4, "sessions", func() (err error) {
			in.PrevSessions, err = b.sessions.FetchSessions(ctx, w.Previous)
			if err != nil {
				return fmt.Errorf("previous sessions %s: %w", w.Previous, err)
			}
			return nil
		})
	})
	g.Go(func() error {
		return b.observe(entity.OriginGA4, "daily_sessions", func() (err error) {
			in.DailySessions, err = b.sessions.FetchDailySessions(ctx, w.Current)
			if err != nil {
				return fmt.Errorf("daily sessions %s: %w", w.Current, err)
			}
			return nil
		})
	})
	if err := g.Wait(); err != nil {
		return entity.PeriodReport{}, fmt.Errorf("period %s: %w", w.Key, err)
	}

	return metrics.PeriodReport(in), nil
}

// BuildTrialROI fetches the trial counts and the ad spend concurrently and
// derives the ROI verdict.
func (b *Builder) BuildTrialROI(ctx context.Context, now time.Time) (entity.TrialROIReport, error) {
	since := b.assumptions.CampaignStart.In(time.UTC)
	q := dependency.TrialQuery{
		Since:           since,
		TrialPrice:      b.assumptions.TrialPrice,
		ConvertedBefore: now.UTC().AddDate(0, 0, -metrics.TrialConversionWindowDays),
	}

	var (
		trials *entity.TrialMetrics
		spend  entity.AdSpend
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.observe(entity.OriginMemberPress, "trials", func() (err error) {
			trials, err = b.subs.FetchTrialMetrics(gctx, q)
			if err != nil {
				return fmt.Errorf("trial metrics: %w", err)
			}
			return nil
		})
	})
	g.Go(func() error {
		start := time.Now()
		spend = b.adSpend.FetchAdSpend(gctx, since, now.UTC())
		var err error
		if spend.Source == entity.AdSpendFallback {
			err = errors.New(spend.Reason)
		}
		b.metrics.RecordFetch(entity.OriginFacebook, "ad_spend", time.Since(start), err)
		b.metrics.RecordAdSpendSource(spend.Source)
		return nil
	})
	if err := g.Wait(); err != nil {
		return entity.TrialROIReport{}, err
	}

	return metrics.TrialROI(b.assumptions, *trials, spend), nil
}

// Run builds the complete snapshot. Any failure other than ad spend aborts it.
func (b *Builder) Run(ctx context.Context) (snap *entity.Snapshot, err error) {
	started := time.Now()
	now := b.now().UTC()
	defer func() {
		b.metrics.RecordRun(time.Now(), time.Since(started), err)
	}()

	var global *entity.GlobalSubscriptionState
	err = b.observe(entity.OriginMemberPress, "global_state", func() (err error) {
		global, err = b.subs.FetchGlobalState(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("global state: %w", err)
	}
	slog.Default().InfoContext(ctx, "global state fetched",
		slog.Int("total_active", global.TotalActive),
		slog.String("total_mrr", global.TotalMRR.String()))

	roi, err := b.BuildTrialROI(ctx, now)
	if err != nil {
		return nil, err
	}
	slog.Default().InfoContext(ctx, "trial roi computed",
		slog.Int("trials_started", roi.Metrics.Started),
		slog.String("ad_spend_source", string(roi.AdSpend.Source)),
		slog.String("status", string(roi.Status)))

	windows := period.Windows(now)
	periods := make(map[period.Key]entity.PeriodReport, len(windows))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, w := range windows {
		w := w
		g.Go(func() error {
			rep, err := b.BuildPeriod(gctx, w, global)
			if err != nil {
				return err
			}
			mu.Lock()
			periods[w.Key] = rep
			mu.Unlock()
			slog.Default().InfoContext(gctx, "period built",
				slog.String("period", string(w.Key)),
				slog.String("range", w.Current.String()),
				slog.Int("new_signups", rep.KPIs.NewSignups),
				slog.Int("sessions", rep.KPIs.WebsiteSessions))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sources := []string{entity.OriginMemberPress, entity.OriginGA4}
	if roi.AdSpend.Authoritative() {
		sources = append(sources, entity.OriginFacebook)
	}

	return &entity.Snapshot{
		GeneratedAt: now,
		Sources:     sources,
		GlobalState: *global,
		TrialROI:    roi,
		Periods:     periods,
	}, nil
}
