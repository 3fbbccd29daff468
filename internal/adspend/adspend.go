// Package adspend resolves the campaign's ad spend, degrading to a manual
// override or zero when the ads API is not configured or fails.
package adspend

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/jekabolt/growth-dashboard/internal/dependency"
	"github.com/jekabolt/growth-dashboard/internal/entity"
	gerr "github.com/jekabolt/growth-dashboard/internal/errors"
	"github.com/jekabolt/growth-dashboard/internal/metrics"
	"github.com/shopspring/decimal"
)

// Insights is the ads API call the resolver depends on.
type Insights interface {
	CampaignInsights(ctx context.Context, accountID string, since, until time.Time) ([]entity.Campaign, error)
}

type Resolver struct {
	api          Insights
	accountID    string
	manual       *decimal.Decimal
	currencyRate decimal.Decimal
}

var _ dependency.AdSpend = (*Resolver)(nil)

// NewResolver builds a resolver. api may be nil when no access token is configured.
// currencyRate converts the ad account's currency to USD; zero is treated as 1.
func NewResolver(api Insights, accountID string, manual *decimal.Decimal, currencyRate decimal.Decimal) *Resolver {
	if currencyRate.IsZero() {
		currencyRate = decimal.NewFromInt(1)
	}
	return &Resolver{
		api:          api,
		accountID:    accountID,
		manual:       manual,
		currencyRate: currencyRate,
	}
}

// FetchAdSpend never fails: every problem is reported through the result's source and reason.
func (r *Resolver) FetchAdSpend(ctx context.Context, since, until time.Time) entity.AdSpend {
	if r.api == nil || r.accountID == "" {
		if r.manual != nil {
			slog.Default().InfoContext(ctx, "ads api not configured, using manual ad spend",
				slog.String("amount", r.manual.String()))
			return entity.DegradedAdSpend(entity.AdSpendManual, gerr.ErrMissingCredentials.Error(), r.manual)
		}
		slog.Default().WarnContext(ctx, "ads api not configured and no manual ad spend set")
		return entity.DegradedAdSpend(entity.AdSpendNone, gerr.ErrMissingCredentials.Error(), nil)
	}

	campaigns, err := r.api.CampaignInsights(ctx, r.accountID, since, until)
	if err != nil {
		if errors.Is(err, gerr.ErrMissingCredentials) && r.manual != nil {
			return entity.DegradedAdSpend(entity.AdSpendManual, err.Error(), r.manual)
		}
		slog.Default().ErrorContext(ctx, "ads api failed, falling back",
			slog.String("err", err.Error()),
			slog.Bool("manual_override", r.manual != nil))
		return entity.DegradedAdSpend(entity.AdSpendFallback, err.Error(), r.manual)
	}

	return r.live(campaigns)
}

func (r *Resolver) live(campaigns []entity.Campaign) entity.AdSpend {
	total := decimal.Zero
	converted := make([]entity.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		c.Spend = metrics.RoundMoney(c.Spend.Mul(r.currencyRate))
		total = total.Add(c.Spend)
		converted = append(converted, c)
	}
	sort.SliceStable(converted, func(i, j int) bool {
		return converted[i].Spend.GreaterThan(converted[j].Spend)
	})
	return entity.LiveAdSpend(metrics.RoundMoney(total), converted)
}
