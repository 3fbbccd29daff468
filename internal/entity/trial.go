package entity

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// TrialCounts counts trial subscriptions by outcome.
type TrialCounts struct {
	Started   int
	Converted int // active and older than the conversion window
	InTrial   int // active and younger than the conversion window
	Cancelled int
	Pending   int
}

// Completed is the number of trials with a final outcome.
func (c TrialCounts) Completed() int {
	return c.Converted + c.Cancelled
}

// TrialCohort groups trials started in the same ISO week.
type TrialCohort struct {
	WeekStart civil.Date // Monday
	TrialCounts
}

type TrialMetrics struct {
	TrialCounts
	Cohorts []TrialCohort // ascending by week
}

// ROIStatus is the verdict on the trial campaign's return.
type ROIStatus string

const (
	ROIPositive ROIStatus = "positive"
	ROINeutral  ROIStatus = "neutral"
	ROINegative ROIStatus = "negative"
	ROIUnknown  ROIStatus = "unknown"
)

type TrialAssumptions struct {
	CampaignStart     civil.Date
	TrialPrice        decimal.Decimal
	AvgPaidPrice      decimal.Decimal
	AvgMonthsRetained decimal.Decimal
}

// TrialROIReport combines trial conversion data with ad spend.
type TrialROIReport struct {
	Assumptions    TrialAssumptions
	Metrics        TrialMetrics
	ConversionRate float64 // percent, one decimal
	AdSpend        AdSpend
	CostPerTrial   decimal.Decimal
	ProjectedLTV   decimal.Decimal
	ROI            *float64 // nil when cost per trial is zero
	Status         ROIStatus
}
