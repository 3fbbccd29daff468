package ga4

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jekabolt/growth-dashboard/internal/dependency"
	"github.com/jekabolt/growth-dashboard/internal/entity"
	"github.com/jekabolt/growth-dashboard/internal/period"
	"github.com/jekabolt/growth-dashboard/internal/traffic"
	analyticsdata "google.golang.org/api/analyticsdata/v1beta"
	"google.golang.org/api/option"
)

// Config holds GA4 client configuration.
type Config struct {
	PropertyID      string `mapstructure:"property_id"`
	CredentialsJSON string `mapstructure:"credentials_json"` // path to service account JSON file, or raw JSON (for env vars)
	Endpoint        string `mapstructure:"endpoint"`
}

const pageSize = 10000

// Client wraps the GA4 Data API client.
type Client struct {
	service    *analyticsdata.Service
	propertyID string
}

var _ dependency.Sessions = (*Client)(nil)

// NewClient creates a new GA4 client. Extra options are appended after the
// ones derived from cfg.
func NewClient(ctx context.Context, cfg *Config, extra ...option.ClientOption) (*Client, error) {
	if cfg == nil || cfg.PropertyID == "" {
		return nil, fmt.Errorf("ga4 property_id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		jsonBytes := []byte(cfg.CredentialsJSON)
		if jsonBytes[0] == '{' {
			opts = append(opts, option.WithCredentialsJSON(jsonBytes))
		} else {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsJSON))
		}
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	opts = append(opts, extra...)

	service, err := analyticsdata.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GA4 service: %w", err)
	}

	slog.Default().InfoContext(ctx, "GA4 analytics client initialized",
		slog.String("property_id", cfg.PropertyID))

	return &Client{
		service:    service,
		propertyID: cfg.PropertyID,
	}, nil
}

// dateRange converts the half-open window to the API's inclusive dates.
func dateRange(r period.Range) []*analyticsdata.DateRange {
	return []*analyticsdata.DateRange{
		{
			StartDate: r.Start.String(),
			EndDate:   r.LastDay().String(),
		},
	}
}

// runReport pages through the report until every row has been read.
func (c *Client) runReport(ctx context.Context, req *analyticsdata.RunReportRequest) ([]*analyticsdata.Row, error) {
	var rows []*analyticsdata.Row
	req.Limit = pageSize
	for {
		req.Offset = int64(len(rows))
		resp, err := c.service.Properties.RunReport(fmt.Sprintf("properties/%s", c.propertyID), req).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to run GA4 report: %w", err)
		}
		rows = append(rows, resp.Rows...)
		if len(resp.Rows) == 0 || int64(len(rows)) >= resp.RowCount {
			return rows, nil
		}
	}
}

// FetchSessions counts sessions in r by traffic channel.
func (c *Client) FetchSessions(ctx context.Context, r period.Range) (entity.SessionAggregate, error) {
	agg := entity.SessionAggregate{ByChannel: map[traffic.Channel]int{}}
	if r.Empty() {
		return agg, nil
	}

	rows, err := c.runReport(ctx, &analyticsdata.RunReportRequest{
		DateRanges: dateRange(r),
		Dimensions: []*analyticsdata.Dimension{
			{Name: "sessionSource"},
			{Name: "sessionMedium"},
		},
		Metrics: []*analyticsdata.Metric{
			{Name: "sessions"},
		},
		OrderBys: []*analyticsdata.OrderBy{
			{
				Metric: &analyticsdata.MetricOrderBy{MetricName: "sessions"},
				Desc:   true,
			},
		},
	})
	if err != nil {
		return agg, fmt.Errorf("sessions by source: %w", err)
	}

	in := make([]traffic.Row, 0, len(rows))
	for _, row := range rows {
		if len(row.DimensionValues) < 2 || len(row.MetricValues) < 1 {
			continue
		}
		in = append(in, traffic.Row{
			Source:   row.DimensionValues[0].Value,
			Medium:   row.DimensionValues[1].Value,
			Sessions: parseInt(row.MetricValues[0].Value),
		})
	}
	agg.Total, agg.ByChannel = traffic.Fold(in)
	return agg, nil
}

// FetchDailySessions counts sessions in r per calendar day.
func (c *Client) FetchDailySessions(ctx context.Context, r period.Range) ([]entity.DailySessions, error) {
	if r.Empty() {
		return []entity.DailySessions{}, nil
	}

	rows, err := c.runReport(ctx, &analyticsdata.RunReportRequest{
		DateRanges: dateRange(r),
		Dimensions: []*analyticsdata.Dimension{
			{Name: "date"},
		},
		Metrics: []*analyticsdata.Metric{
			{Name: "sessions"},
		},
		OrderBys: []*analyticsdata.OrderBy{
			{
				Dimension: &analyticsdata.DimensionOrderBy{DimensionName: "date"},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("daily sessions: %w", err)
	}

	out := make([]entity.DailySessions, 0, len(rows))
	for _, row := range rows {
		if len(row.DimensionValues) == 0 || len(row.MetricValues) == 0 {
			continue
		}
		dateStr := row.DimensionValues[0].Value
		date, err := time.Parse("20060102", dateStr)
		if err != nil {
			slog.Default().WarnContext(ctx, "failed to parse GA4 date",
				slog.String("date", dateStr),
				slog.String("err", err.Error()))
			continue
		}
		out = append(out, entity.DailySessions{Day: civil.DateOf(date), Sessions: parseInt(row.MetricValues[0].Value)})
	}
	return out, nil
}

func parseInt(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}
