package entity

import (
	"time"

	"github.com/jekabolt/growth-dashboard/internal/period"
	"github.com/jekabolt/growth-dashboard/internal/traffic"
	"github.com/shopspring/decimal"
)

// KPIs are the headline numbers of a period. Change fields are percent
// changes against the comparator window, one decimal.
type KPIs struct {
	TotalActiveSubs  int
	ActiveSubsChange float64
	TotalMRR         decimal.Decimal
	NewSignups       int
	SignupsChange    float64
	RetentionRate    float64
	RetentionChange  float64
	WebsiteSessions  int
	SessionsChange   float64
	ConversionRate   float64
	Churned          int
	ChurnChange      float64
}

// Funnel stage origins.
const (
	OriginGA4         = "ga4"
	OriginMemberPress = "memberpress"
	OriginFacebook    = "facebook"
)

type FunnelStage struct {
	Stage  string
	Value  int
	Origin string
}

type TrafficSource struct {
	Channel  traffic.Channel
	Sessions int
}

type SubscriptionBreakdown struct {
	Monthly      int
	Annual       int
	NewActive    int
	NewCancelled int
	NewPending   int
	NewSuspended int
	NewMRR       decimal.Decimal
}

// PeriodReport is everything the dashboard shows for one period.
type PeriodReport struct {
	Range                 period.Range
	KPIs                  KPIs
	Funnel                []FunnelStage
	TrafficSources        []TrafficSource
	DailySignups          []DailySignups
	DailySessions         []DailySessions
	SubscriptionBreakdown SubscriptionBreakdown
}

// Snapshot is the complete output of one run.
type Snapshot struct {
	GeneratedAt time.Time
	Sources     []string
	GlobalState GlobalSubscriptionState
	TrialROI    TrialROIReport
	Periods     map[period.Key]PeriodReport
}
