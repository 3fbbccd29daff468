package traffic

// Channel is a dashboard traffic bucket.
type Channel string

const (
	PaidSearch    Channel = "Paid Search"
	OrganicSearch Channel = "Organic Search"
	Email         Channel = "Email"
	Referral      Channel = "Referral"
	Social        Channel = "Social"
	Direct        Channel = "Direct"
)

// CanonicalOrder is the order in which channels are shown on the dashboard.
var CanonicalOrder = []Channel{OrganicSearch, Direct, Referral, PaidSearch, Email, Social}

// Classify maps a GA4 (source, medium) pair to a channel. Only the medium is
// inspected; anything unrecognised counts as Direct.
func Classify(source, medium string) Channel {
	switch medium {
	case "cpc", "paid":
		return PaidSearch
	case "organic", "organic_search":
		return OrganicSearch
	case "email":
		return Email
	case "referral":
		return Referral
	case "social", "paid_social":
		return Social
	default:
		return Direct
	}
}

// Row is a session count for a single (source, medium) pair.
type Row struct {
	Source   string
	Medium   string
	Sessions int
}

// Fold classifies rows and sums sessions per channel.
func Fold(rows []Row) (total int, byChannel map[Channel]int) {
	byChannel = make(map[Channel]int)
	for _, r := range rows {
		total += r.Sessions
		byChannel[Classify(r.Source, r.Medium)] += r.Sessions
	}
	return total, byChannel
}
