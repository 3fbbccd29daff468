// Package store reads MemberPress subscriptions straight from the WordPress MySQL database.
package store

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jekabolt/growth-dashboard/internal/dependency"
	"github.com/jmoiron/sqlx"
)

// Config defines configurations to connect database
type Config struct {
	DSN                string `mapstructure:"dsn"`
	TablePrefix        string `mapstructure:"table_prefix"`
	MaxOpenConnections int    `mapstructure:"max_open_connections"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections"`
	TLSCAPath          string `mapstructure:"tls_ca_path"` // PEM file path, or the PEM itself
	PlanLimit          int    `mapstructure:"plan_limit"`
}

const (
	defaultTablePrefix = "wp_"
	defaultPlanLimit   = 8
)

// MYSQLStore implements dependency.Subscriptions on top of the MemberPress tables.
type MYSQLStore struct {
	db            dependency.DB
	subscriptions string
	planLimit     int
}

// registerTLSConfig registers the CA under the "custom" name; the DSN opts in with tls=custom.
func registerTLSConfig(cfg Config) error {
	if cfg.TLSCAPath == "" {
		return nil
	}

	var caCert []byte
	if strings.HasPrefix(strings.TrimSpace(cfg.TLSCAPath), "-----BEGIN") {
		caCert = []byte(cfg.TLSCAPath)
		slog.Default().Info("using inline CA certificate")
	} else {
		var err error
		caCert, err = os.ReadFile(cfg.TLSCAPath)
		if err != nil {
			return fmt.Errorf("failed to read CA certificate from %s: %w", cfg.TLSCAPath, err)
		}
		slog.Default().Info("using CA certificate from file", "path", cfg.TLSCAPath)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return fmt.Errorf("failed to parse CA certificate")
	}

	return mysql.RegisterTLSConfig("custom", &tls.Config{RootCAs: caCertPool})
}

// New connects to the database and returns a new MYSQLStore object.
func New(ctx context.Context, cfg Config) (*MYSQLStore, error) {
	if err := registerTLSConfig(cfg); err != nil {
		return nil, fmt.Errorf("failed to register TLS config: %w", err)
	}

	d, err := sqlx.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("couldn't open database : %v", err)
	}

	if cfg.MaxOpenConnections > 0 {
		d.SetMaxOpenConns(cfg.MaxOpenConnections)
	}
	if cfg.MaxIdleConnections > 0 {
		d.SetMaxIdleConns(cfg.MaxIdleConnections)
	}
	d.SetConnMaxLifetime(2 * time.Minute)
	d.SetConnMaxIdleTime(30 * time.Second)

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()
	if err := d.PingContext(pingCtx); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Default().InfoContext(ctx, "memberpress database connected",
		slog.String("table_prefix", tablePrefix(cfg)))

	return newStore(d, cfg), nil
}

func newStore(db dependency.DB, cfg Config) *MYSQLStore {
	limit := cfg.PlanLimit
	if limit <= 0 {
		limit = defaultPlanLimit
	}
	return &MYSQLStore{
		db:            db,
		subscriptions: tablePrefix(cfg) + "mepr_subscriptions",
		planLimit:     limit,
	}
}

func tablePrefix(cfg Config) string {
	if cfg.TablePrefix == "" {
		return defaultTablePrefix
	}
	return cfg.TablePrefix
}

func (ms *MYSQLStore) Close() error {
	return ms.db.Close()
}

// Ping checks database connectivity by executing a simple query
func (ms *MYSQLStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result int
	err := ms.db.QueryRowxContext(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
