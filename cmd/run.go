package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jekabolt/growth-dashboard/config"
	"github.com/jekabolt/growth-dashboard/internal/adspend"
	"github.com/jekabolt/growth-dashboard/internal/adspend/facebook"
	"github.com/jekabolt/growth-dashboard/internal/analytics/ga4"
	"github.com/jekabolt/growth-dashboard/internal/bucket"
	"github.com/jekabolt/growth-dashboard/internal/dependency"
	"github.com/jekabolt/growth-dashboard/internal/entity"
	"github.com/jekabolt/growth-dashboard/internal/period"
	"github.com/jekabolt/growth-dashboard/internal/report"
	prommetrics "github.com/jekabolt/growth-dashboard/internal/report/metrics/prometheus"
	"github.com/jekabolt/growth-dashboard/internal/snapshot"
	"github.com/jekabolt/growth-dashboard/internal/store"
	"github.com/jekabolt/growth-dashboard/internal/warehouse"
	"github.com/jekabolt/growth-dashboard/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return fmt.Errorf("cannot load a config: %w", err)
	}
	logger := log.Setup(cfg.Logger, os.Stderr)

	if outputPath != "" {
		cfg.Output.Path = outputPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	subs, sessions, closeAll, err := openSources(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	assumptions, err := cfg.Campaign.Assumptions()
	if err != nil {
		return err
	}

	opts := []report.Option{}
	var promMetrics *prommetrics.Metrics
	if cfg.Metrics.TextfilePath != "" {
		promMetrics = prommetrics.NewMetrics(prometheus.NewRegistry(), cfg.Metrics.Namespace)
		opts = append(opts, report.WithMetrics(promMetrics))
		defer func() {
			if err := promMetrics.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
				logger.Error("metrics textfile not written", slog.String("err", err.Error()))
			}
		}()
	}

	builder := report.New(subs, sessions, newAdSpend(cfg), assumptions, opts...)
	snap, err := builder.Run(ctx)
	if err != nil {
		return fmt.Errorf("snapshot not built, previous file left untouched: %w", err)
	}

	data, err := snapshot.Encode(snap)
	if err != nil {
		return err
	}
	if dryRun {
		_, err := os.Stdout.Write(data)
		return err
	}

	if err := snapshot.Write(cfg.Output.Path, data); err != nil {
		return err
	}
	logger.InfoContext(ctx, "snapshot written", slog.String("path", cfg.Output.Path))

	if cfg.Publish.Enabled {
		pub, err := bucket.New(&cfg.Publish)
		if err != nil {
			return err
		}
		if err := publish(ctx, pub, data); err != nil {
			return err
		}
	}

	printSummary(os.Stdout, snap, cfg.Output.Path)
	return nil
}

// openSources connects the configured subscription and session backends.
// The returned func closes whatever was opened.
func openSources(ctx context.Context, cfg *config.Config) (dependency.Subscriptions, dependency.Sessions, func(), error) {
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Default().Warn("failed to close source", slog.String("err", err.Error()))
			}
		}
	}

	var wh *warehouse.Client
	if cfg.UsesBigQuery() {
		var err error
		wh, err = warehouse.New(ctx, &cfg.BigQuery)
		if err != nil {
			return nil, nil, closeAll, err
		}
		closers = append(closers, wh.Close)
	}

	var subs dependency.Subscriptions = wh
	if cfg.MemberPress.Backend == config.BackendMySQL {
		ms, err := store.New(ctx, cfg.MySQL)
		if err != nil {
			closeAll()
			return nil, nil, func() {}, err
		}
		closers = append(closers, ms.Close)
		subs = ms
	}

	var sessions dependency.Sessions = wh
	if cfg.GA4.Backend == config.BackendDataAPI {
		client, err := ga4.NewClient(ctx, &cfg.GA4.Config)
		if err != nil {
			closeAll()
			return nil, nil, func() {}, err
		}
		sessions = client
	}
	return subs, sessions, closeAll, nil
}

func newAdSpend(cfg *config.Config) *adspend.Resolver {
	var api adspend.Insights
	if cfg.Facebook.AccessToken != "" {
		api = facebook.New(&cfg.Facebook)
	}
	return adspend.NewResolver(api, cfg.Campaign.AdAccountID, cfg.Campaign.Manual(), cfg.Campaign.Rate())
}

func publish(ctx context.Context, pub dependency.Publisher, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()
	if err := pub.Publish(ctx, data); err != nil {
		return fmt.Errorf("snapshot written locally but not published: %w", err)
	}
	return nil
}

// printSummary writes the 30 day headline numbers for the cron log.
func printSummary(w io.Writer, snap *entity.Snapshot, path string) {
	p := snap.Periods[period.Key30d]
	k := p.KPIs
	roi := snap.TrialROI

	fmt.Fprintf(w, "snapshot written to %s at %s\n", path, snap.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "30d %s\n", p.Range)
	fmt.Fprintf(w, "  active subs:  %d (%+.1f%%)\n", k.TotalActiveSubs, k.ActiveSubsChange)
	fmt.Fprintf(w, "  total mrr:    $%s\n", k.TotalMRR.StringFixed(2))
	fmt.Fprintf(w, "  new signups:  %d (%+.1f%%)\n", k.NewSignups, k.SignupsChange)
	fmt.Fprintf(w, "  sessions:     %d (%+.1f%%)\n", k.WebsiteSessions, k.SessionsChange)
	fmt.Fprintf(w, "  conversion:   %.2f%%\n", k.ConversionRate)
	fmt.Fprintf(w, "  churned:      %d (%+.1f%%)\n", k.Churned, k.ChurnChange)
	fmt.Fprintf(w, "trial roi: %d started, %.1f%% converted, ad spend $%s (%s), status %s\n",
		roi.Metrics.Started, roi.ConversionRate, roi.AdSpend.TotalUSD.StringFixed(2), roi.AdSpend.Source, roi.Status)
}
