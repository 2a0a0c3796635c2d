package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"argus/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Telegram      TelegramConfig
	DataAPI       DataAPIConfig
	Rules         RulesConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
	Metrics       MetricsConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"argus"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"argus"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" required:"true"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"argus"`
}

type TelegramConfig struct {
	BotToken    string  `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	AlertChatID int64   `envconfig:"TELEGRAM_ALERT_CHAT_ID" required:"true"`
	AdminIDs    []int64 `envconfig:"TELEGRAM_ADMIN_IDS"`
}

// DataAPIConfig configures the Polymarket Data API client and live feed.
type DataAPIConfig struct {
	BaseURL    string        `envconfig:"DATA_API_BASE_URL" default:"https://data-api.polymarket.com"`
	WSSURL     string        `envconfig:"CLOB_WSS_URL" default:"wss://ws-subscriptions-clob.polymarket.com/ws/market"`
	PageLimit  int           `envconfig:"DATA_API_PAGE_LIMIT" default:"500"`
	Timeout    time.Duration `envconfig:"DATA_API_TIMEOUT" default:"30s"`
	RatePerSec int           `envconfig:"DATA_API_RATE_PER_SEC" default:"5"`
	TakerOnly  bool          `envconfig:"DATA_API_TAKER_ONLY" default:"true"`

	// Outcome token ids the live feed subscribes to. The CLOB market
	// channel delivers nothing for an empty subscription list.
	FeedAssetIDs []string `envconfig:"CLOB_FEED_ASSET_IDS"`
}

// RulesConfig holds every threshold the aggregation and alert pipeline
// consumes. Operators retune these per market regime, so they are injected
// rather than hardcoded.
type RulesConfig struct {
	// Aggregation
	WindowMinutes    int     `envconfig:"RULES_WINDOW_MINUTES" default:"5"`
	MinTotalNotional float64 `envconfig:"RULES_MIN_TOTAL_NOTIONAL" default:"10000"`

	// Alert logic
	NewUserMaxTrades     int     `envconfig:"RULES_NEW_USER_MAX_TRADES" default:"20"`
	DormantDays          int     `envconfig:"RULES_DORMANT_DAYS" default:"30"`
	MinWindowNotional    float64 `envconfig:"RULES_MIN_WINDOW_NOTIONAL" default:"10000"`
	MinVsMedianMult      float64 `envconfig:"RULES_MIN_VS_MEDIAN_MULT" default:"5"`
	MinWindowTrades      int     `envconfig:"RULES_MIN_WINDOW_TRADES" default:"2"`
	TrackSellsSeparately bool    `envconfig:"RULES_TRACK_SELLS_SEPARATELY" default:"true"`

	// User state
	ActiveTradesThreshold int `envconfig:"RULES_ACTIVE_TRADES_THRESHOLD" default:"50"`
	MedianSampleSize      int `envconfig:"RULES_MEDIAN_SAMPLE_SIZE" default:"25"`
}

// Validate fails fast on thresholds that would make the pipeline misbehave.
func (r RulesConfig) Validate() error {
	if r.WindowMinutes <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "window_minutes must be positive, got %d", r.WindowMinutes)
	}
	if r.MinTotalNotional < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "min_total_notional must be non-negative, got %f", r.MinTotalNotional)
	}
	if r.MinWindowNotional < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "min_window_notional must be non-negative, got %f", r.MinWindowNotional)
	}
	if r.MinVsMedianMult <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "min_vs_median_mult must be positive, got %f", r.MinVsMedianMult)
	}
	if r.MinWindowTrades < 1 {
		return errors.Wrapf(errors.ErrConfigInvalid, "min_window_trades must be at least 1, got %d", r.MinWindowTrades)
	}
	if r.NewUserMaxTrades < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "new_user_max_trades must be non-negative, got %d", r.NewUserMaxTrades)
	}
	if r.DormantDays <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "dormant_days must be positive, got %d", r.DormantDays)
	}
	if r.ActiveTradesThreshold <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "active_trades_threshold must be positive, got %d", r.ActiveTradesThreshold)
	}
	if r.MedianSampleSize <= 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "median_sample_size must be positive, got %d", r.MedianSampleSize)
	}
	return nil
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for the background workers.
type WorkerConfig struct {
	FeedPollInterval time.Duration `envconfig:"WORKER_FEED_POLL_INTERVAL" default:"15s"`
	FeedPollEnabled  bool          `envconfig:"WORKER_FEED_POLL_ENABLED" default:"true"`
	FeedBatchLimit   int           `envconfig:"WORKER_FEED_BATCH_LIMIT" default:"200"`

	LiveFeedEnabled bool `envconfig:"WORKER_LIVE_FEED_ENABLED" default:"false"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Addr    string `envconfig:"METRICS_ADDR" default:":9090"`
}

// Load reads configuration from environment variables.
// It first tries to load a .env file (useful for local development).
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Rules.Validate(); err != nil {
		return nil, err
	}

	if cfg.Workers.LiveFeedEnabled && len(cfg.DataAPI.FeedAssetIDs) == 0 {
		return nil, errors.Wrap(errors.ErrConfigInvalid, "live feed enabled but CLOB_FEED_ASSET_IDS is empty")
	}

	return &cfg, nil
}
