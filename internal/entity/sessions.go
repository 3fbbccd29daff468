package entity

import (
	"cloud.google.com/go/civil"
	"github.com/jekabolt/growth-dashboard/internal/traffic"
)

// SessionAggregate is the number of GA4 sessions in a window, total and per channel.
type SessionAggregate struct {
	Total     int
	ByChannel map[traffic.Channel]int
}

type DailySessions struct {
	Day      civil.Date
	Sessions int
}
