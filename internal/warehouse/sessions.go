package warehouse

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/jekabolt/growth-dashboard/internal/dependency"
	"github.com/jekabolt/growth-dashboard/internal/entity"
	"github.com/jekabolt/growth-dashboard/internal/period"
	"github.com/jekabolt/growth-dashboard/internal/traffic"
)

var _ dependency.Sessions = (*Client)(nil)

const suffixLayout = "20060102"

// A session is a distinct (user_pseudo_id, ga_session_id) pair on a session_start event.
const sessionKeySQL = `COUNT(DISTINCT CONCAT(user_pseudo_id, '-', CAST(
	(SELECT value.int_value FROM UNNEST(event_params) WHERE key = 'ga_session_id') AS STRING)))`

type sourceMediumRow struct {
	Source   string `bigquery:"source"`
	Medium   string `bigquery:"medium"`
	Sessions int64  `bigquery:"sessions"`
}

type dailySessionsRow struct {
	Day      string `bigquery:"day"`
	Sessions int64  `bigquery:"sessions"`
}

func suffixParams(r period.Range) []bigquery.QueryParameter {
	return []bigquery.QueryParameter{
		{Name: "start", Value: r.StartTime().Format(suffixLayout)},
		{Name: "end", Value: r.EndTime().Format(suffixLayout)},
	}
}

// FetchSessions counts sessions in r by traffic channel.
func (c *Client) FetchSessions(ctx context.Context, r period.Range) (entity.SessionAggregate, error) {
	agg := entity.SessionAggregate{ByChannel: map[traffic.Channel]int{}}
	if r.Empty() {
		return agg, nil
	}

	rows, err := readRows[sourceMediumRow](ctx, c.rn, fmt.Sprintf(`
		SELECT
			IFNULL(traffic_source.source, '') AS source,
			IFNULL(traffic_source.medium, '') AS medium,
			%s AS sessions
		FROM %s
		WHERE _TABLE_SUFFIX >= @start AND _TABLE_SUFFIX < @end
			AND event_name = 'session_start'
		GROUP BY source, medium
		ORDER BY sessions DESC
	`, sessionKeySQL, c.events), suffixParams(r))
	if err != nil {
		return agg, fmt.Errorf("sessions by source: %w", err)
	}

	in := make([]traffic.Row, 0, len(rows))
	for _, row := range rows {
		in = append(in, traffic.Row{Source: row.Source, Medium: row.Medium, Sessions: int(row.Sessions)})
	}
	agg.Total, agg.ByChannel = traffic.Fold(in)
	return agg, nil
}

// FetchDailySessions counts sessions in r per export day.
func (c *Client) FetchDailySessions(ctx context.Context, r period.Range) ([]entity.DailySessions, error) {
	if r.Empty() {
		return []entity.DailySessions{}, nil
	}

	rows, err := readRows[dailySessionsRow](ctx, c.rn, fmt.Sprintf(`
		SELECT _TABLE_SUFFIX AS day, %s AS sessions
		FROM %s
		WHERE _TABLE_SUFFIX >= @start AND _TABLE_SUFFIX < @end
			AND event_name = 'session_start'
		GROUP BY day
		ORDER BY day
	`, sessionKeySQL, c.events), suffixParams(r))
	if err != nil {
		return nil, fmt.Errorf("daily sessions: %w", err)
	}

	out := make([]entity.DailySessions, 0, len(rows))
	for _, row := range rows {
		day, err := time.Parse(suffixLayout, row.Day)
		if err != nil {
			return nil, fmt.Errorf("parse export day %q: %w", row.Day, err)
		}
		out = append(out, entity.DailySessions{Day: civil.DateOf(day), Sessions: int(row.Sessions)})
	}
	return out, nil
}
