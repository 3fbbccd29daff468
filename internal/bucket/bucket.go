// Package bucket publishes the snapshot to an S3-compatible bucket.
package bucket

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jekabolt/growth-dashboard/internal/dependency"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type Config struct {
	Enabled           bool   `mapstructure:"enabled"`
	S3AccessKey       string `mapstructure:"s3_access_key"`
	S3SecretAccessKey string `mapstructure:"s3_secret_access_key"`
	S3Endpoint        string `mapstructure:"s3_endpoint"`
	S3BucketName      string `mapstructure:"s3_bucket_name"`
	S3BucketLocation  string `mapstructure:"s3_bucket_location"`
	DisableSSL        bool   `mapstructure:"disable_ssl"`
	BaseFolder        string `mapstructure:"base_folder"`
	ObjectName        string `mapstructure:"object_name"`
	CacheControl      string `mapstructure:"cache_control"`
	// HistoryKeep is how many timestamped copies to retain under history/. Zero disables history.
	HistoryKeep       int    `mapstructure:"history_keep"`
}

const (
	defaultObjectName   = "data.json"
	defaultCacheControl = "max-age=300"
	historyFolder       = "history"
)

type Bucket struct {
	*minio.Client
	*Config
}

var _ dependency.Publisher = (*Bucket)(nil)

// New connects to the bucket endpoint. No request is made until Publish.
func New(c *Config) (*Bucket, error) {
	cli, err := minio.New(c.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.S3AccessKey, c.S3SecretAccessKey, ""),
		Secure: !c.DisableSSL,
		Region: c.S3BucketLocation,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return &Bucket{Client: cli, Config: c}, nil
}

// Publish uploads data as the current snapshot and, when history is enabled,
// as a timestamped copy, pruning copies beyond HistoryKeep.
func (b *Bucket) Publish(ctx context.Context, data []byte) error {
	url, err := b.upload(ctx, b.currentKey(), data)
	if err != nil {
		return fmt.Errorf("failed to publish snapshot: %w", err)
	}
	slog.Default().InfoContext(ctx, "snapshot published", slog.String("url", url))

	if b.HistoryKeep <= 0 {
		return nil
	}
	if _, err := b.upload(ctx, b.historyKey(nowFunc()), data); err != nil {
		return fmt.Errorf("failed to archive snapshot: %w", err)
	}
	return b.pruneHistory(ctx)
}

func (b *Bucket) pruneHistory(ctx context.Context) error {
	keys, err := b.listKeys(ctx, b.historyPrefix())
	if err != nil {
		return fmt.Errorf("failed to list snapshot history: %w", err)
	}
	stale := expired(keys, b.HistoryKeep)
	if len(stale) == 0 {
		return nil
	}
	if err := b.DeleteFromBucket(ctx, stale); err != nil {
		return fmt.Errorf("failed to prune snapshot history: %w", err)
	}
	slog.Default().InfoContext(ctx, "snapshot history pruned", slog.Int("removed", len(stale)))
	return nil
}
