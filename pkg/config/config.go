package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" env:"ENVIRONMENT" default:"development" validate:"required"`
	Server      ServerConfig     `yaml:"server"`
	Log         LogConfig        `yaml:"log"`
	Webhook     WebhookConfig    `yaml:"webhook"`
	Alerts      AlertsConfig     `yaml:"alerts"`
	Pivot       PivotConfig      `yaml:"pivot"`
	MarketData  MarketDataConfig `yaml:"market_data"`
	Redis       RedisConfig      `yaml:"redis"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" env:"PORT" default:"3000" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	CORS            bool          `yaml:"cors" default:"true"`
	SlowRequest     time.Duration `yaml:"slow_request" default:"1s"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" default:"console" validate:"oneof=console json"`
	Output string `yaml:"output" default:"stdout"`
}

type WebhookConfig struct {
	// Secret empty means every caller is accepted.
	Secret       string          `yaml:"secret" env:"TV_WEBHOOK_SECRET"`
	DedupeWindow time.Duration   `yaml:"dedupe_window" default:"5s" validate:"gt=0"`
	Replay       string          `yaml:"replay" default:"memory" validate:"oneof=memory redis"`
	MaxBodyBytes int64           `yaml:"max_body_bytes" default:"1048576" validate:"gt=0"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	// Capacity 0 disables the limiter.
	Capacity     float64       `yaml:"capacity" validate:"gte=0"`
	RefillPerSec float64       `yaml:"refill_per_sec" validate:"gte=0"`
	IdleTTL      time.Duration `yaml:"idle_ttl" default:"10m"`
}

type AlertsConfig struct {
	Backend          string   `yaml:"backend" env:"ALERTS_BACKEND" default:"file" validate:"oneof=file redis"`
	DataDir          string   `yaml:"data_dir" env:"DATA_DIR" default:"data" validate:"required"`
	FileName         string   `yaml:"file_name" default:"alerts.json" validate:"required"`
	MaxRows          int      `yaml:"max_rows" default:"500" validate:"gt=0"`
	Timeframes       []string `yaml:"timeframes" default:"[\"AI_5m\",\"AI_15m\",\"AI_1h\"]" validate:"min=1,dive,required"`
	PrimaryTimeframe string   `yaml:"primary_timeframe" default:"AI_5m" validate:"required"`
	// AcceptUnknownTimeframes turns an unlisted timeframe into a new signal
	// column instead of rejecting the alert.
	AcceptUnknownTimeframes bool          `yaml:"accept_unknown_timeframes"`
	Timezone                string        `yaml:"timezone" env:"TZ_NAME" default:"Local"`
	StoreTimeout            time.Duration `yaml:"store_timeout" default:"5s" validate:"gt=0"`
}

type PivotConfig struct {
	Enabled  bool          `yaml:"enabled" default:"true"`
	Interval time.Duration `yaml:"interval" default:"60s" validate:"gte=1s"`
	// IntervalMS overrides Interval when set through the environment.
	IntervalMS   int64         `yaml:"-" env:"PIVOT_INTERVAL_MS"`
	Tickers      []string      `yaml:"tickers" env:"PIVOT_TICKERS" envSeparator:","`
	TickersFile  string        `yaml:"tickers_file" env:"PIVOT_TICKERS_FILE"`
	Concurrency  int           `yaml:"concurrency" default:"8" validate:"gt=0"`
	FetchTimeout time.Duration `yaml:"fetch_timeout" default:"15s" validate:"gt=0"`
	MA20Enabled  bool          `yaml:"ma20_enabled"`
}

type MarketDataConfig struct {
	Provider     string        `yaml:"provider" env:"MARKET_DATA_PROVIDER" default:"yahoo" validate:"oneof=yahoo finnhub"`
	APIKey       string        `yaml:"api_key" env:"MARKET_DATA_API_KEY"`
	BaseURL      string        `yaml:"base_url" env:"MARKET_DATA_BASE_URL"`
	Timeout      time.Duration `yaml:"timeout" default:"10s" validate:"gt=0"`
	Cache        string        `yaml:"cache" default:"memory" validate:"oneof=memory redis layered none"`
	DailyBarsTTL time.Duration `yaml:"daily_bars_ttl" default:"15m"`
}

type RedisConfig struct {
	Addr      string `yaml:"addr" env:"REDIS_ADDR"`
	Password  string `yaml:"password" env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"REDIS_DB"`
	KeyPrefix string `yaml:"key_prefix" default:"signaldesk:"`
}

type KafkaConfig struct {
	Brokers        []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	BroadcastTopic string   `yaml:"broadcast_topic" default:"signaldesk.broadcast"`
	// AlertsTopic empty disables alert ingestion from the bus.
	AlertsTopic  string `yaml:"alerts_topic" env:"KAFKA_ALERTS_TOPIC"`
	RequiredAcks int    `yaml:"required_acks" default:"-1" validate:"oneof=-1 0 1"`
	Compression  string `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer     struct {
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"50ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		// BroadcastBuffer bounds envelopes queued for the broadcast topic.
		BroadcastBuffer int `yaml:"broadcast_buffer" default:"256" validate:"gt=0"`
	} `yaml:"producer"`
	Consumer struct {
		GroupID    string        `yaml:"group_id" default:"signaldesk"`
		Workers    int           `yaml:"workers" default:"1" validate:"gt=0"`
		RetryMax   int           `yaml:"retry_max" default:"3"`
		BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
		BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
	} `yaml:"consumer"`
}

type ClickHouseConfig struct {
	Enabled      bool          `yaml:"enabled" env:"CLICKHOUSE_ENABLED"`
	Host         string        `yaml:"host" env:"CLICKHOUSE_HOST" default:"localhost"`
	Port         int           `yaml:"port" default:"9000"`
	Database     string        `yaml:"database" default:"signaldesk"`
	User         string        `yaml:"user" default:"default"`
	Password     string        `yaml:"password" env:"CLICKHOUSE_PASSWORD"`
	UseHTTP      bool          `yaml:"use_http"`
	AsyncInsert  bool          `yaml:"async_insert" default:"true"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
}

var validate = validator.New()

// Load reads a YAML configuration file on top of the struct defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML, then applies .env and process
// environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	c, err := load(path)
	if err != nil {
		return nil, err
	}

	_ = godotenv.Load()

	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if c.Pivot.IntervalMS > 0 {
		c.Pivot.Interval = time.Duration(c.Pivot.IntervalMS) * time.Millisecond
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	return &c, nil
}

// Validate checks struct rules and cross-section requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("alerts.timezone: %w", err)
	}

	primaryKnown := false
	for _, tf := range c.Alerts.Timeframes {
		if tf == c.Alerts.PrimaryTimeframe {
			primaryKnown = true
			break
		}
	}
	if !primaryKnown {
		return fmt.Errorf("alerts.primary_timeframe %q is not listed in alerts.timeframes", c.Alerts.PrimaryTimeframe)
	}

	if c.RedisRequired() && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when a redis backend is selected")
	}
	if c.MarketData.Provider == "finnhub" && c.MarketData.APIKey == "" {
		return fmt.Errorf("market_data.api_key is required for finnhub")
	}
	if c.Kafka.AlertsTopic != "" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka.alerts_topic is set")
	}
	return nil
}

// Location resolves the zone used to render alert times.
func (c *Config) Location() (*time.Location, error) {
	if c.Alerts.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Alerts.Timezone)
}

// RedisRequired reports whether any component is configured to use Redis.
func (c *Config) RedisRequired() bool {
	return c.Webhook.Replay == "redis" ||
		c.Alerts.Backend == "redis" ||
		c.MarketData.Cache == "redis" ||
		c.MarketData.Cache == "layered"
}

// KafkaEnabled reports whether broadcast publishing to Kafka is configured.
func (c *Config) KafkaEnabled() bool { return len(c.Kafka.Brokers) > 0 }
