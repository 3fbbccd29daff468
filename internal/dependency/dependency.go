package dependency

import (
	"context"
	"time"

	"github.com/jekabolt/growth-dashboard/internal/entity"
	"github.com/jekabolt/growth-dashboard/internal/period"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type (
	// Subscriptions reads MemberPress subscription aggregates.
	Subscriptions interface {
		// FetchSubscriptionMetrics aggregates subscriptions created within r.
		FetchSubscriptionMetrics(ctx context.Context, r period.Range) (*entity.SubscriptionSnapshot, error)
		// FetchGlobalState returns totals over all subscriptions, independent of any window.
		FetchGlobalState(ctx context.Context) (*entity.GlobalSubscriptionState, error)
		// FetchTrialMetrics counts subscriptions priced at the trial price created since q.Since.
		// Active trials created at or before q.ConvertedBefore count as converted.
		FetchTrialMetrics(ctx context.Context, q TrialQuery) (*entity.TrialMetrics, error)
	}

	// Sessions reads GA4 session counts.
	Sessions interface {
		// FetchSessions counts sessions in r by traffic channel.
		FetchSessions(ctx context.Context, r period.Range) (entity.SessionAggregate, error)
		// FetchDailySessions counts sessions in r per calendar day.
		FetchDailySessions(ctx context.Context, r period.Range) ([]entity.DailySessions, error)
	}

	// AdSpend resolves campaign spend. It never fails; degraded results are tagged.
	AdSpend interface {
		FetchAdSpend(ctx context.Context, since, until time.Time) entity.AdSpend
	}

	// Publisher uploads the serialized snapshot somewhere the dashboard can read it.
	Publisher interface {
		Publish(ctx context.Context, data []byte) error
	}

	// DB represents database interface.
	DB interface {
		QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
		QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
		PingContext(ctx context.Context) error
		Close() error
	}
)

// TrialQuery selects the trial campaign's subscriptions.
type TrialQuery struct {
	Since           time.Time
	TrialPrice      decimal.Decimal
	ConvertedBefore time.Time
}

var _ DB = (*sqlx.DB)(nil)
