// Package dto defines the JSON document read by the dashboard.
package dto

import (
	"github.com/jekabolt/growth-dashboard/internal/period"
	"github.com/shopspring/decimal"
)

// GeneratedAtLayout matches JavaScript's Date.prototype.toISOString.
const GeneratedAtLayout = "2006-01-02T15:04:05.000Z07:00"

type Snapshot struct {
	Meta        Meta                  `json:"meta"`
	GlobalState GlobalState           `json:"globalState"`
	TrialROI    TrialROI              `json:"trialRoi"`
	Periods     map[period.Key]Period `json:"periods"`
}

type Meta struct {
	GeneratedAt string   `json:"generatedAt"`
	Sources     []string `json:"sources"`
}

type GlobalState struct {
	TotalActive int           `json:"totalActive"`
	TotalMRR    float64       `json:"totalMrr"`
	MonthlySubs int           `json:"monthlySubs"`
	AnnualSubs  int           `json:"annualSubs"`
	Plans       []Plan        `json:"plans"`
	AllStatuses []StatusCount `json:"allStatuses"`
}

type Plan struct {
	Price       float64 `json:"price"`
	PeriodType  string  `json:"periodType"`
	ActiveCount int     `json:"activeCount"`
	MRR         float64 `json:"mrr"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type Period struct {
	StartDate             string                `json:"startDate"`
	EndDate               string                `json:"endDate"` // inclusive
	KPIs                  KPIs                  `json:"kpis"`
	Funnel                []FunnelStage         `json:"funnel"`
	TrafficSources        []TrafficSource       `json:"trafficSources"`
	DailySignups          []DailySignups        `json:"dailySignups"`
	DailySessions         []DailySessions       `json:"dailySessions"`
	SubscriptionBreakdown SubscriptionBreakdown `json:"subscriptionBreakdown"`
}

type KPIs struct {
	TotalActiveSubs  int     `json:"totalActiveSubs"`
	ActiveSubsChange float64 `json:"activeSubsChange"`
	TotalMRR         float64 `json:"totalMrr"`
	NewSignups       int     `json:"newSignups"`
	SignupsChange    float64 `json:"signupsChange"`
	RetentionRate    float64 `json:"retentionRate"`
	RetentionChange  float64 `json:"retentionChange"`
	WebsiteSessions  int     `json:"websiteSessions"`
	SessionsChange   float64 `json:"sessionsChange"`
	ConversionRate   float64 `json:"conversionRate"`
	Churned          int     `json:"churned"`
	ChurnChange      float64 `json:"churnChange"`
}

type FunnelStage struct {
	Stage  string `json:"stage"`
	Value  int    `json:"value"`
	Source string `json:"source"`
}

type TrafficSource struct {
	Source   string `json:"source"`
	Sessions int    `json:"sessions"`
}

type DailySignups struct {
	Day         string `json:"day"`
	NewSubs     int    `json:"newSubs"`
	StillActive int    `json:"stillActive"`
}

type DailySessions struct {
	Day      string `json:"day"`
	Sessions int    `json:"sessions"`
}

type SubscriptionBreakdown struct {
	Monthly      int     `json:"monthly"`
	Annual       int     `json:"annual"`
	NewActive    int     `json:"newActive"`
	NewCancelled int     `json:"newCancelled"`
	NewPending   int     `json:"newPending"`
	NewSuspended int     `json:"newSuspended"`
	NewMRR       float64 `json:"newMrr"`
}

type TrialROI struct {
	Assumptions    TrialAssumptions `json:"assumptions"`
	Trials         TrialCounts      `json:"trials"`
	ConversionRate float64          `json:"conversionRate"`
	Cohorts        []TrialCohort    `json:"cohorts"`
	AdSpend        AdSpend          `json:"adSpend"`
	CostPerTrial   float64          `json:"costPerTrial"`
	ProjectedLTV   float64          `json:"projectedLtv"`
	ROI            *float64         `json:"roi"`
	Status         string           `json:"status"`
}

type TrialAssumptions struct {
	CampaignStart     string  `json:"campaignStart"`
	TrialPrice        float64 `json:"trialPrice"`
	AvgPaidPrice      float64 `json:"avgPaidPrice"`
	AvgMonthsRetained float64 `json:"avgMonthsRetained"`
}

type TrialCounts struct {
	Started   int `json:"started"`
	Converted int `json:"converted"`
	InTrial   int `json:"inTrial"`
	Cancelled int `json:"cancelled"`
	Pending   int `json:"pending"`
}

type TrialCohort struct {
	WeekStart string `json:"weekStart"`
	TrialCounts
}

type AdSpend struct {
	Source    string     `json:"source"`
	TotalUSD  float64    `json:"totalSpendUSD"`
	Campaigns []Campaign `json:"campaigns"`
	Reason    string     `json:"reason,omitempty"`
}

type Campaign struct {
	Name        string  `json:"name"`
	Spend       float64 `json:"spend"`
	Impressions int     `json:"impressions"`
	Clicks      int     `json:"clicks"`
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
