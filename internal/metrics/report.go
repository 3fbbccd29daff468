package metrics

import (
	"cloud.google.com/go/civil"
	"github.com/jekabolt/growth-dashboard/internal/entity"
	"github.com/jekabolt/growth-dashboard/internal/period"
	"github.com/jekabolt/growth-dashboard/internal/traffic"
	"github.com/shopspring/decimal"
)

// NewSubscriptionSnapshot derives the rounded snapshot from raw query results.
func NewSubscriptionSnapshot(counts entity.SubscriptionCounts, newMRR decimal.Decimal, churned int, daily []entity.DailySignups) *entity.SubscriptionSnapshot {
	if daily == nil {
		daily = []entity.DailySignups{}
	}
	return &entity.SubscriptionSnapshot{
		Counts:        counts,
		NewMRR:        RoundMoney(newMRR),
		Churned:       churned,
		RetentionRate: RetentionRate(counts),
		Daily:         daily,
	}
}

// FillDailySignups returns one point per day of r, zero-filled where the
// warehouse returned no row.
func FillDailySignups(points []entity.DailySignups, r period.Range) []entity.DailySignups {
	byDay := make(map[civil.Date]entity.DailySignups, len(points))
	for _, p := range points {
		byDay[p.Day] = p
	}
	result := make([]entity.DailySignups, 0, r.Days())
	period.EachDay(r, func(d civil.Date) {
		if p, ok := byDay[d]; ok {
			result = append(result, p)
			return
		}
		result = append(result, entity.DailySignups{Day: d})
	})
	return result
}

// FillDailySessions is FillDailySignups for the session series.
func FillDailySessions(points []entity.DailySessions, r period.Range) []entity.DailySessions {
	byDay := make(map[civil.Date]int, len(points))
	for _, p := range points {
		byDay[p.Day] += p.Sessions
	}
	result := make([]entity.DailySessions, 0, r.Days())
	period.EachDay(r, func(d civil.Date) {
		result = append(result, entity.DailySessions{Day: d, Sessions: byDay[d]})
	})
	return result
}

// TrafficSources lists the non-empty channels in canonical order.
func TrafficSources(byChannel map[traffic.Channel]int) []entity.TrafficSource {
	sources := []entity.TrafficSource{}
	for _, ch := range traffic.CanonicalOrder {
		if n := byChannel[ch]; n != 0 {
			sources = append(sources, entity.TrafficSource{Channel: ch, Sessions: n})
		}
	}
	return sources
}

// PeriodInputs is everything fetched for one period.
type PeriodInputs struct {
	Range         period.Range
	Global        *entity.GlobalSubscriptionState
	Subs          *entity.SubscriptionSnapshot
	PrevSubs      *entity.SubscriptionSnapshot
	Sessions      entity.SessionAggregate
	PrevSessions  entity.SessionAggregate
	DailySessions []entity.DailySessions
}

// PeriodReport assembles KPIs, funnel, traffic sources, series and breakdown.
func PeriodReport(in PeriodInputs) entity.PeriodReport {
	g, subs, prev := in.Global, in.Subs, in.PrevSubs

	// Active subscribers at the start of the period are not stored anywhere,
	// so they are reconstructed from the signups of both windows.
	prevActive := g.TotalActive - subs.Counts.Active + prev.Counts.Active

	kpis := entity.KPIs{
		TotalActiveSubs:  g.TotalActive,
		ActiveSubsChange: PctChangeInt(g.TotalActive, prevActive),
		TotalMRR:         g.TotalMRR,
		NewSignups:       subs.Counts.New,
		SignupsChange:    PctChangeInt(subs.Counts.New, prev.Counts.New),
		RetentionRate:    subs.RetentionRate,
		RetentionChange:  PctChange(subs.RetentionRate, prev.RetentionRate),
		WebsiteSessions:  in.Sessions.Total,
		SessionsChange:   PctChangeInt(in.Sessions.Total, in.PrevSessions.Total),
		ConversionRate:   ConversionRate(subs.Counts.New, in.Sessions.Total),
		Churned:          subs.Churned,
		ChurnChange:      PctChangeInt(subs.Churned, prev.Churned),
	}

	return entity.PeriodReport{
		Range: in.Range,
		KPIs:  kpis,
		Funnel: []entity.FunnelStage{
			{Stage: "Sessions", Value: in.Sessions.Total, Origin: entity.OriginGA4},
			{Stage: "New Signups", Value: subs.Counts.New, Origin: entity.OriginMemberPress},
			{Stage: "Active Members", Value: subs.Counts.Active, Origin: entity.OriginMemberPress},
		},
		TrafficSources: TrafficSources(in.Sessions.ByChannel),
		DailySignups:   FillDailySignups(subs.Daily, in.Range),
		DailySessions:  FillDailySessions(in.DailySessions, in.Range),
		SubscriptionBreakdown: entity.SubscriptionBreakdown{
			Monthly:      g.MonthlySubs,
			Annual:       g.AnnualSubs,
			NewActive:    subs.Counts.Active,
			NewCancelled: subs.Counts.Cancelled,
			NewPending:   subs.Counts.Pending,
			NewSuspended: subs.Counts.Suspended,
			NewMRR:       subs.NewMRR,
		},
	}
}

// TrialROI derives cost per trial, projected LTV and the ROI verdict.
func TrialROI(a entity.TrialAssumptions, m entity.TrialMetrics, spend entity.AdSpend) entity.TrialROIReport {
	if m.Cohorts == nil {
		m.Cohorts = []entity.TrialCohort{}
	}
	conv := TrialConversionRate(m.TrialCounts)
	cpt := CostPerTrial(spend.TotalUSD, m.Started)
	// LTV uses the unrounded rate; only the reported rate is rounded.
	ltv := ProjectedLTV(trialConversionPct(m.TrialCounts), a.AvgPaidPrice, a.AvgMonthsRetained)
	roi := ROI(ltv, cpt)

	r := entity.TrialROIReport{
		Assumptions:    a,
		Metrics:        m,
		ConversionRate: conv,
		AdSpend:        spend,
		CostPerTrial:   cpt,
		ProjectedLTV:   ltv,
		Status:         Status(roi),
	}
	if roi != nil {
		rounded := Round2(*roi)
		r.ROI = &rounded
	}
	return r
}
