package report

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/jekabolt/growth-dashboard/internal/entity"
	gerr "github.com/jekabolt/growth-dashboard/internal/errors"
	"github.com/shopspring/decimal"
)

// CampaignConfig holds the trial campaign's assumptions and ad spend settings.
type CampaignConfig struct {
	StartDate         string   `mapstructure:"start_date"` // YYYY-MM-DD, UTC
	TrialPrice        float64  `mapstructure:"trial_price"`
	AvgPaidPrice      float64  `mapstructure:"avg_paid_price"`
	AvgMonthsRetained float64  `mapstructure:"avg_months_retained"`
	AdAccountID       string   `mapstructure:"ad_account_id"`
	ManualAdSpend     *float64 `mapstructure:"manual_ad_spend"`
	CurrencyRate      float64  `mapstructure:"currency_rate"`
}

func (c CampaignConfig) Validate() error {
	if _, err := civil.ParseDate(c.StartDate); err != nil {
		return fmt.Errorf("%w: campaign.start_date %q: %v", gerr.ErrInvalidConfig, c.StartDate, err)
	}
	if c.TrialPrice < 0 || c.AvgPaidPrice < 0 || c.AvgMonthsRetained < 0 {
		return fmt.Errorf("%w: campaign prices and retention must not be negative", gerr.ErrInvalidConfig)
	}
	if c.ManualAdSpend != nil && *c.ManualAdSpend < 0 {
		return fmt.Errorf("%w: campaign.manual_ad_spend must not be negative", gerr.ErrInvalidConfig)
	}
	if c.CurrencyRate < 0 {
		return fmt.Errorf("%w: campaign.currency_rate must not be negative", gerr.ErrInvalidConfig)
	}
	return nil
}

// Assumptions converts the config into the ROI calculator's inputs.
func (c CampaignConfig) Assumptions() (entity.TrialAssumptions, error) {
	start, err := civil.ParseDate(c.StartDate)
	if err != nil {
		return entity.TrialAssumptions{}, fmt.Errorf("%w: campaign.start_date: %v", gerr.ErrInvalidConfig, err)
	}
	return entity.TrialAssumptions{
		CampaignStart:     start,
		TrialPrice:        decimal.NewFromFloat(c.TrialPrice),
		AvgPaidPrice:      decimal.NewFromFloat(c.AvgPaidPrice),
		AvgMonthsRetained: decimal.NewFromFloat(c.AvgMonthsRetained),
	}, nil
}

// Manual returns the manual ad spend override, nil when unset.
func (c CampaignConfig) Manual() *decimal.Decimal {
	if c.ManualAdSpend == nil {
		return nil
	}
	d := decimal.NewFromFloat(*c.ManualAdSpend)
	return &d
}

// Rate returns the account currency to USD rate, 1 when unset.
func (c CampaignConfig) Rate() decimal.Decimal {
	if c.CurrencyRate == 0 {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromFloat(c.CurrencyRate)
}
