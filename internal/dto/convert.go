package dto

import (
	"github.com/jekabolt/growth-dashboard/internal/entity"
	"github.com/jekabolt/growth-dashboard/internal/period"
)

// ConvertEntitySnapshot builds the dashboard document. Every slice is non-nil
// so the dashboard never sees null arrays.
func ConvertEntitySnapshot(s *entity.Snapshot) Snapshot {
	sources := append([]string{}, s.Sources...)
	out := Snapshot{
		Meta: Meta{
			GeneratedAt: s.GeneratedAt.UTC().Format(GeneratedAtLayout),
			Sources:     sources,
		},
		GlobalState: convertGlobalState(s.GlobalState),
		TrialROI:    convertTrialROI(s.TrialROI),
		Periods:     make(map[period.Key]Period, len(s.Periods)),
	}
	for k, p := range s.Periods {
		out.Periods[k] = convertPeriod(p)
	}
	return out
}

func convertGlobalState(g entity.GlobalSubscriptionState) GlobalState {
	out := GlobalState{
		TotalActive: g.TotalActive,
		TotalMRR:    money(g.TotalMRR),
		MonthlySubs: g.MonthlySubs,
		AnnualSubs:  g.AnnualSubs,
		Plans:       make([]Plan, 0, len(g.Plans)),
		AllStatuses: make([]StatusCount, 0, len(g.AllStatuses)),
	}
	for _, p := range g.Plans {
		out.Plans = append(out.Plans, Plan{
			Price:       money(p.Price),
			PeriodType:  p.PeriodType,
			ActiveCount: p.ActiveCount,
			MRR:         money(p.MRR),
		})
	}
	for _, s := range g.AllStatuses {
		out.AllStatuses = append(out.AllStatuses, StatusCount{Status: s.Status, Count: s.Count})
	}
	return out
}

func convertPeriod(p entity.PeriodReport) Period {
	k := p.KPIs
	out := Period{
		StartDate: p.Range.Start.String(),
		EndDate:   p.Range.LastDay().String(),
		KPIs: KPIs{
			TotalActiveSubs:  k.TotalActiveSubs,
			ActiveSubsChange: k.ActiveSubsChange,
			TotalMRR:         money(k.TotalMRR),
			NewSignups:       k.NewSignups,
			SignupsChange:    k.SignupsChange,
			RetentionRate:    k.RetentionRate,
			RetentionChange:  k.RetentionChange,
			WebsiteSessions:  k.WebsiteSessions,
			SessionsChange:   k.SessionsChange,
			ConversionRate:   k.ConversionRate,
			Churned:          k.Churned,
			ChurnChange:      k.ChurnChange,
		},
		Funnel:         make([]FunnelStage, 0, len(p.Funnel)),
		TrafficSources: make([]TrafficSource, 0, len(p.TrafficSources)),
		DailySignups:   make([]DailySignups, 0, len(p.DailySignups)),
		DailySessions:  make([]DailySessions, 0, len(p.DailySessions)),
		SubscriptionBreakdown: SubscriptionBreakdown{
			Monthly:      p.SubscriptionBreakdown.Monthly,
			Annual:       p.SubscriptionBreakdown.Annual,
			NewActive:    p.SubscriptionBreakdown.NewActive,
			NewCancelled: p.SubscriptionBreakdown.NewCancelled,
			NewPending:   p.SubscriptionBreakdown.NewPending,
			NewSuspended: p.SubscriptionBreakdown.NewSuspended,
			NewMRR:       money(p.SubscriptionBreakdown.NewMRR),
		},
	}
	for _, f := range p.Funnel {
		out.Funnel = append(out.Funnel, FunnelStage{Stage: f.Stage, Value: f.Value, Source: f.Origin})
	}
	for _, t := range p.TrafficSources {
		out.TrafficSources = append(out.TrafficSources, TrafficSource{Source: string(t.Channel), Sessions: t.Sessions})
	}
	for _, d := range p.DailySignups {
		out.DailySignups = append(out.DailySignups, DailySignups{Day: d.Day.String(), NewSubs: d.NewSubs, StillActive: d.StillActive})
	}
	for _, d := range p.DailySessions {
		out.DailySessions = append(out.DailySessions, DailySessions{Day: d.Day.String(), Sessions: d.Sessions})
	}
	return out
}

func convertTrialCounts(c entity.TrialCounts) TrialCounts {
	return TrialCounts{
		Started:   c.Started,
		Converted: c.Converted,
		InTrial:   c.InTrial,
		Cancelled: c.Cancelled,
		Pending:   c.Pending,
	}
}

func convertTrialROI(r entity.TrialROIReport) TrialROI {
	out := TrialROI{
		Assumptions: TrialAssumptions{
			CampaignStart:     r.Assumptions.CampaignStart.String(),
			TrialPrice:        money(r.Assumptions.TrialPrice),
			AvgPaidPrice:      money(r.Assumptions.AvgPaidPrice),
			AvgMonthsRetained: r.Assumptions.AvgMonthsRetained.InexactFloat64(),
		},
		Trials:         convertTrialCounts(r.Metrics.TrialCounts),
		ConversionRate: r.ConversionRate,
		Cohorts:        make([]TrialCohort, 0, len(r.Metrics.Cohorts)),
		AdSpend: AdSpend{
			Source:    string(r.AdSpend.Source),
			TotalUSD:  money(r.AdSpend.TotalUSD),
			Campaigns: make([]Campaign, 0, len(r.AdSpend.Campaigns)),
			Reason:    r.AdSpend.Reason,
		},
		CostPerTrial: money(r.CostPerTrial),
		ProjectedLTV: money(r.ProjectedLTV),
		ROI:          r.ROI,
		Status:       string(r.Status),
	}
	for _, c := range r.Metrics.Cohorts {
		out.Cohorts = append(out.Cohorts, TrialCohort{WeekStart: c.WeekStart.String(), TrialCounts: convertTrialCounts(c.TrialCounts)})
	}
	for _, c := range r.AdSpend.Campaigns {
		out.AdSpend.Campaigns = append(out.AdSpend.Campaigns, Campaign{
			Name:        c.Name,
			Spend:       money(c.Spend),
			Impressions: c.Impressions,
			Clicks:      c.Clicks,
		})
	}
	return out
}
