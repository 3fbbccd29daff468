// Package warehouse reads MemberPress subscriptions and the GA4 event export
// from BigQuery.
package warehouse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Config holds BigQuery connection and dataset settings.
type Config struct {
	ProjectID          string `mapstructure:"project_id"`
	Location           string `mapstructure:"location"`
	CredentialsJSON    string `mapstructure:"credentials_json"` // path to service account JSON file, or raw JSON
	MemberPressDataset string `mapstructure:"memberpress_dataset"`
	SubscriptionsTable string `mapstructure:"subscriptions_table"`
	GA4Dataset         string `mapstructure:"ga4_dataset"`
	PlanLimit          int    `mapstructure:"plan_limit"`
}

const (
	defaultSubscriptionsTable = "Mepr_Subscriptions"
	defaultPlanLimit          = 8
)

type rowIterator interface {
	Next(dst interface{}) error
}

// runner executes a query. It exists so tests can serve rows without BigQuery.
type runner interface {
	run(ctx context.Context, sql string, params []bigquery.QueryParameter) (rowIterator, error)
}

type bqRunner struct {
	client *bigquery.Client
}

func (r bqRunner) run(ctx context.Context, sql string, params []bigquery.QueryParameter) (rowIterator, error) {
	q := r.client.Query(sql)
	q.Parameters = params
	return q.Read(ctx)
}

// Client runs the dashboard queries against BigQuery.
type Client struct {
	rn            runner
	bq            *bigquery.Client
	subscriptions string
	events        string
	planLimit     int
}

// New creates a BigQuery-backed client.
func New(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("bigquery project_id is required")
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

	bq, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bigquery client: %w", err)
	}
	if cfg.Location != "" {
		bq.Location = cfg.Location
	}

	slog.Default().InfoContext(ctx, "bigquery client initialized",
		slog.String("project_id", cfg.ProjectID),
		slog.String("location", cfg.Location))

	c := newClient(cfg, bqRunner{client: bq})
	c.bq = bq
	return c, nil
}

func newClient(cfg *Config, rn runner) *Client {
	table := cfg.SubscriptionsTable
	if table == "" {
		table = defaultSubscriptionsTable
	}
	limit := cfg.PlanLimit
	if limit <= 0 {
		limit = defaultPlanLimit
	}
	return &Client{
		rn:            rn,
		subscriptions: fmt.Sprintf("`%s.%s.%s`", cfg.ProjectID, cfg.MemberPressDataset, table),
		events:        fmt.Sprintf("`%s.%s.events_*`", cfg.ProjectID, cfg.GA4Dataset),
		planLimit:     limit,
	}
}

// Close releases the underlying BigQuery client.
func (c *Client) Close() error {
	if c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func readRows[T any](ctx context.Context, rn runner, sql string, params []bigquery.QueryParameter) ([]T, error) {
	it, err := rn.run(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}
	var rows []T
	for {
		var row T
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readOne returns the first row of a single-row aggregate. found is false
// when the query produced no row at all.
func readOne[T any](ctx context.Context, rn runner, sql string, params []bigquery.QueryParameter) (row T, found bool, err error) {
	rows, err := readRows[T](ctx, rn, sql, params)
	if err != nil || len(rows) == 0 {
		return row, false, err
	}
	return rows[0], true, nil
}
