// Package metrics holds the arithmetic behind the dashboard: rounding,
// percent changes, rates and the ROI verdict. Everything here is pure.
package metrics

import (
	"math"

	"github.com/jekabolt/growth-dashboard/internal/entity"
	"github.com/shopspring/decimal"
)

// TrialConversionWindowDays is how long a trial subscription has to stay
// active before it counts as converted. It is independent of the trial length.
const TrialConversionWindowDays = 30

// ROI thresholds.
const (
	roiPositiveAbove  = 0.2
	roiNegativeAtMost = -0.1
)

// roundHalfUp rounds half-way values towards positive infinity, so the
// dashboard numbers match what the browser computes for the same inputs.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}

// Round1 rounds to one decimal place.
func Round1(x float64) float64 {
	return roundHalfUp(x*10) / 10
}

// Round2 rounds to two decimal places.
func Round2(x float64) float64 {
	return roundHalfUp(x*100) / 100
}

// RoundMoney rounds a monetary amount to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// PctChange returns the percent change from previous to current with one
// decimal. A zero baseline yields 0.
func PctChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return roundHalfUp((current-previous)/previous*1000) / 10
}

// PctChangeInt is PctChange for counts.
func PctChangeInt(current, previous int) float64 {
	return PctChange(float64(current), float64(previous))
}

// RetentionRate is the share of new subscriptions still active, in percent
// with one decimal.
func RetentionRate(c entity.SubscriptionCounts) float64 {
	if c.New <= 0 {
		return 0
	}
	return roundHalfUp(float64(c.Active)/float64(c.New)*1000) / 10
}

// ConversionRate is signups per session in percent with two decimals.
func ConversionRate(signups, sessions int) float64 {
	if sessions <= 0 {
		return 0
	}
	return roundHalfUp(float64(signups)/float64(sessions)*10000) / 100
}

// TrialConversionRate is converted over completed trials in percent with
// one decimal. Pending and in-trial subscriptions are not in the denominator.
func TrialConversionRate(c entity.TrialCounts) float64 {
	return Round1(trialConversionPct(c))
}

// trialConversionPct is TrialConversionRate before rounding.
func trialConversionPct(c entity.TrialCounts) float64 {
	completed := c.Completed()
	if completed <= 0 {
		return 0
	}
	return float64(c.Converted) / float64(completed) * 100
}

// CostPerTrial divides ad spend by trials started; zero trials cost nothing.
func CostPerTrial(spend decimal.Decimal, started int) decimal.Decimal {
	if started <= 0 {
		return decimal.Zero
	}
	return RoundMoney(spend.Div(decimal.NewFromInt(int64(started))))
}

// ProjectedLTV is the expected revenue per trial.
func ProjectedLTV(conversionRate float64, avgPaidPrice, avgMonthsRetained decimal.Decimal) decimal.Decimal {
	return RoundMoney(decimal.NewFromFloat(conversionRate).
		Div(decimal.NewFromInt(100)).
		Mul(avgPaidPrice).
		Mul(avgMonthsRetained))
}

// ROI returns (ltv - cost) / cost, or nil when the cost is zero.
func ROI(ltv, costPerTrial decimal.Decimal) *float64 {
	if costPerTrial.IsZero() {
		return nil
	}
	r := ltv.Sub(costPerTrial).Div(costPerTrial).InexactFloat64()
	return &r
}

// Status classifies an ROI ratio.
func Status(roi *float64) entity.ROIStatus {
	switch {
	case roi == nil:
		return entity.ROIUnknown
	case *roi > roiPositiveAbove:
		return entity.ROIPositive
	case *roi > roiNegativeAtMost:
		return entity.ROINeutral
	default:
		return entity.ROINegative
	}
}
