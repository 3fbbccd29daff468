package entity

import "github.com/shopspring/decimal"

// AdSpendSource tells which code path produced an ad spend figure.
type AdSpendSource string

const (
	// AdSpendFacebookAPI is live data from the ads API.
	AdSpendFacebookAPI AdSpendSource = "facebook_api"
	// AdSpendManual is the configured override used because no API credentials are set.
	AdSpendManual AdSpendSource = "manual"
	// AdSpendFallback is the override (or zero) used because the API call failed.
	AdSpendFallback AdSpendSource = "fallback"
	// AdSpendNone means neither credentials nor an override are configured.
	AdSpendNone AdSpendSource = "none"
)

type Campaign struct {
	Name        string
	Spend       decimal.Decimal
	Impressions int
	Clicks      int
}

// AdSpend is the result of the ad spend fetch. Only a facebook_api result is
// authoritative; every other source carries the reason it was degraded.
type AdSpend struct {
	Source    AdSpendSource
	TotalUSD  decimal.Decimal
	Campaigns []Campaign
	Reason    string
}

// LiveAdSpend builds an authoritative result from API data.
func LiveAdSpend(total decimal.Decimal, campaigns []Campaign) AdSpend {
	if campaigns == nil {
		campaigns = []Campaign{}
	}
	return AdSpend{Source: AdSpendFacebookAPI, TotalUSD: total, Campaigns: campaigns}
}

// DegradedAdSpend builds a non-authoritative result. A nil override falls back to zero.
func DegradedAdSpend(source AdSpendSource, reason string, override *decimal.Decimal) AdSpend {
	total := decimal.Zero
	if override != nil {
		total = *override
	}
	return AdSpend{Source: source, TotalUSD: total, Campaigns: []Campaign{}, Reason: reason}
}

// Authoritative reports whether the spend came from the ads API.
func (a AdSpend) Authoritative() bool {
	return a.Source == AdSpendFacebookAPI
}
