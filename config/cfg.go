package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/jekabolt/growth-dashboard/internal/adspend/facebook"
	"github.com/jekabolt/growth-dashboard/internal/analytics/ga4"
	"github.com/jekabolt/growth-dashboard/internal/bucket"
	gerr "github.com/jekabolt/growth-dashboard/internal/errors"
	"github.com/jekabolt/growth-dashboard/internal/report"
	"github.com/jekabolt/growth-dashboard/internal/store"
	"github.com/jekabolt/growth-dashboard/internal/warehouse"
	"github.com/jekabolt/growth-dashboard/log"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backends a source can be read from.
const (
	BackendBigQuery = "bigquery"
	BackendMySQL    = "mysql"
	BackendDataAPI  = "data_api"
)

// MemberPressConfig selects where subscriptions are read from.
type MemberPressConfig struct {
	Backend string `mapstructure:"backend"` // bigquery or mysql
}

// GA4Config selects where sessions are read from. The Data API settings are
// only used by the data_api backend.
type GA4Config struct {
	Backend    string `mapstructure:"backend"` // bigquery or data_api
	ga4.Config `mapstructure:",squash"`
}

type OutputConfig struct {
	Path string `mapstructure:"path"`
}

type MetricsConfig struct {
	// TextfilePath enables the node-exporter textfile when set.
	TextfilePath string `mapstructure:"textfile_path"`
	Namespace    string `mapstructure:"namespace"`
}

// Config represents the global configuration of a run.
type Config struct {
	Logger      log.Config            `mapstructure:"logger"`
	BigQuery    warehouse.Config      `mapstructure:"bigquery"`
	MySQL       store.Config          `mapstructure:"mysql"`
	MemberPress MemberPressConfig     `mapstructure:"memberpress"`
	GA4         GA4Config             `mapstructure:"ga4"`
	Facebook    facebook.Config       `mapstructure:"facebook"`
	Campaign    report.CampaignConfig `mapstructure:"campaign"`
	Output      OutputConfig          `mapstructure:"output"`
	Publish     bucket.Config         `mapstructure:"publish"`
	Metrics     MetricsConfig         `mapstructure:"metrics"`
}

// LoadConfig loads the configuration from a file and/or environment variables.
// Environment variables take precedence over config file values. A .env file
// in the working directory is loaded first when present.
// Nested keys map to env vars with double underscores, e.g. BIGQUERY__PROJECT_ID.
func LoadConfig(cfgFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "__"))
	setDefaults(v)
	bindEnvVars(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/config/growth-dashboard")
		v.AddConfigPath("/etc/growth-dashboard")
		_ = v.ReadInConfig()
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config into struct: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", 0)
	v.SetDefault("logger.format", "json")

	v.SetDefault("bigquery.project_id", "lwj-data-storage")
	v.SetDefault("bigquery.location", "US")
	v.SetDefault("bigquery.memberpress_dataset", "LWJ")
	v.SetDefault("bigquery.subscriptions_table", "Mepr_Subscriptions")
	v.SetDefault("bigquery.ga4_dataset", "analytics_301113294")
	v.SetDefault("bigquery.plan_limit", 8)

	v.SetDefault("mysql.table_prefix", "wp_")

	v.SetDefault("memberpress.backend", BackendBigQuery)
	v.SetDefault("ga4.backend", BackendBigQuery)

	v.SetDefault("facebook.base_url", "https://graph.facebook.com")
	v.SetDefault("facebook.api_version", "v19.0")
	v.SetDefault("facebook.timeout", "30s")
	v.SetDefault("facebook.max_pages", 50)

	v.SetDefault("campaign.currency_rate", 1)

	v.SetDefault("output.path", "data.json")

	v.SetDefault("publish.enabled", false)
	v.SetDefault("publish.object_name", "data.json")
	v.SetDefault("publish.cache_control", "max-age=300")

	v.SetDefault("metrics.namespace", "growth_dashboard")
}

// bindEnvVars binds the flat env var names used by the cron environment.
func bindEnvVars(v *viper.Viper) {
	// Logger
	v.BindEnv("logger.level", "LOG_LEVEL")
	v.BindEnv("logger.add_source", "LOG_ADD_SOURCE")
	v.BindEnv("logger.format", "LOG_FORMAT")

	// BigQuery
	v.BindEnv("bigquery.project_id", "BQ_PROJECT_ID")
	v.BindEnv("bigquery.location", "BQ_LOCATION")
	v.BindEnv("bigquery.credentials_json", "GOOGLE_CREDENTIALS_JSON")
	v.BindEnv("bigquery.memberpress_dataset", "BQ_MEMBERPRESS_DATASET")
	v.BindEnv("bigquery.subscriptions_table", "BQ_SUBSCRIPTIONS_TABLE")
	v.BindEnv("bigquery.ga4_dataset", "BQ_GA4_DATASET")

	// MySQL
	v.BindEnv("mysql.dsn", "MYSQL_DSN")
	v.BindEnv("mysql.table_prefix", "MYSQL_TABLE_PREFIX")
	v.BindEnv("mysql.max_open_connections", "MYSQL_MAX_OPEN_CONNECTIONS")
	v.BindEnv("mysql.max_idle_connections", "MYSQL_MAX_IDLE_CONNECTIONS")
	v.BindEnv("mysql.tls_ca_path", "MYSQL_TLS_CA_PATH")

	// Backends
	v.BindEnv("memberpress.backend", "MEMBERPRESS_BACKEND")
	v.BindEnv("ga4.backend", "GA4_BACKEND")
	v.BindEnv("ga4.property_id", "GA4_PROPERTY_ID")
	v.BindEnv("ga4.credentials_json", "GA4_CREDENTIALS_JSON")

	// Facebook
	v.BindEnv("facebook.access_token", "FACEBOOK_ACCESS_TOKEN")
	v.BindEnv("facebook.api_version", "FACEBOOK_API_VERSION")

	// Campaign
	v.BindEnv("campaign.start_date", "CAMPAIGN_START_DATE")
	v.BindEnv("campaign.trial_price", "CAMPAIGN_TRIAL_PRICE")
	v.BindEnv("campaign.avg_paid_price", "CAMPAIGN_AVG_PAID_PRICE")
	v.BindEnv("campaign.avg_months_retained", "CAMPAIGN_AVG_MONTHS_RETAINED")
	v.BindEnv("campaign.ad_account_id", "FACEBOOK_AD_ACCOUNT_ID")
	v.BindEnv("campaign.manual_ad_spend", "MANUAL_AD_SPEND")
	v.BindEnv("campaign.currency_rate", "CURRENCY_RATE")

	// Output
	v.BindEnv("output.path", "OUTPUT_PATH")

	// Publish
	v.BindEnv("publish.enabled", "PUBLISH_ENABLED")
	v.BindEnv("publish.s3_access_key", "BUCKET_S3_ACCESS_KEY")
	v.BindEnv("publish.s3_secret_access_key", "BUCKET_S3_SECRET_ACCESS_KEY")
	v.BindEnv("publish.s3_endpoint", "BUCKET_S3_ENDPOINT")
	v.BindEnv("publish.s3_bucket_name", "BUCKET_S3_BUCKET_NAME")
	v.BindEnv("publish.s3_bucket_location", "BUCKET_S3_BUCKET_LOCATION")
	v.BindEnv("publish.base_folder", "BUCKET_BASE_FOLDER")

	// Metrics
	v.BindEnv("metrics.textfile_path", "METRICS_TEXTFILE_PATH")
}

// Validate checks the settings a run cannot start without.
func (c *Config) Validate() error {
	if err := c.Campaign.Validate(); err != nil {
		return err
	}
	switch c.MemberPress.Backend {
	case BackendBigQuery:
	case BackendMySQL:
		if c.MySQL.DSN == "" {
			return fmt.Errorf("%w: mysql.dsn is required for the mysql backend", gerr.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: memberpress.backend %q", gerr.ErrUnknownBackend, c.MemberPress.Backend)
	}
	switch c.GA4.Backend {
	case BackendBigQuery:
	case BackendDataAPI:
		if c.GA4.PropertyID == "" {
			return fmt.Errorf("%w: ga4.property_id is required for the data_api backend", gerr.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: ga4.backend %q", gerr.ErrUnknownBackend, c.GA4.Backend)
	}
	if c.Output.Path == "" {
		return fmt.Errorf("%w: output.path is empty", gerr.ErrInvalidConfig)
	}
	if c.Publish.Enabled && (c.Publish.S3Endpoint == "" || c.Publish.S3BucketName == "") {
		return fmt.Errorf("%w: publish requires s3_endpoint and s3_bucket_name", gerr.ErrInvalidConfig)
	}
	return nil
}

// UsesBigQuery reports whether any source reads from the warehouse.
func (c *Config) UsesBigQuery() bool {
	return c.MemberPress.Backend == BackendBigQuery || c.GA4.Backend == BackendBigQuery
}
