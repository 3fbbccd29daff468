package entity

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Subscription statuses as stored by MemberPress.
const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
	StatusPending   = "pending"
	StatusSuspended = "suspended"
)

// Billing period types as stored by MemberPress.
const (
	PeriodTypeMonths = "months"
	PeriodTypeYears  = "years"
)

// SubscriptionCounts counts subscriptions created in a window by their current status.
type SubscriptionCounts struct {
	New       int
	Active    int
	Cancelled int
	Pending   int
	Suspended int
}

// DailySignups is the number of subscriptions created on a day and how many
// of them are still active.
type DailySignups struct {
	Day         civil.Date
	NewSubs     int
	StillActive int
}

// SubscriptionSnapshot aggregates subscriptions created within a window.
type SubscriptionSnapshot struct {
	Counts        SubscriptionCounts
	NewMRR        decimal.Decimal
	Churned       int
	RetentionRate float64 // percent, one decimal
	Daily         []DailySignups
}

// Plan is an active (price, billing period) combination.
type Plan struct {
	Price       decimal.Decimal
	PeriodType  string
	ActiveCount int
	MRR         decimal.Decimal
}

type StatusCount struct {
	Status string
	Count  int
}

// GlobalSubscriptionState is the run-scoped state of all subscriptions,
// independent of any reporting window.
type GlobalSubscriptionState struct {
	TotalActive int
	TotalMRR    decimal.Decimal
	MonthlySubs int
	AnnualSubs  int
	Plans       []Plan        // top plans by active count, descending
	AllStatuses []StatusCount // by count, descending
}
