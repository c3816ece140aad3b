// Package config はYAMLファイル・環境変数・デフォルト値からアプリケーション設定を組み立てます。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"gopkg.in/yaml.v3"
)

// DefaultPath は CONFIG_PATH が未設定のときに読む設定ファイルです。
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Exchange  ExchangeConfig  `yaml:"exchange"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	Admission AdmissionConfig `yaml:"admission"`
	Render    RenderConfig    `yaml:"render"`
	S3        S3Config        `yaml:"s3"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	TrustedProxies  []string      `yaml:"trusted_proxies"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DataConfig struct {
	// Dir は相対ロケーションの基準ディレクトリです。
	Dir           string `yaml:"dir"`
	DefaultTicker string `yaml:"default_ticker"`
	DefaultDate   string `yaml:"default_date"`
	// FilterEarly は読み込み時に対象日以外の行を捨てるかどうかです（未指定はtrue）。
	FilterEarly *bool `yaml:"filter_early"`
}

type ExchangeConfig struct {
	Timezone     string `yaml:"timezone"`
	SessionOpen  string `yaml:"session_open"`
	SessionClose string `yaml:"session_close"`
}

type CatalogConfig struct {
	// Source は "config"（Symbolsを使用）または "database"
	Source   string         `yaml:"source"`
	Symbols  []SymbolConfig `yaml:"symbols"`
	Database DatabaseConfig `yaml:"database"`
}

type SymbolConfig struct {
	Code      string   `yaml:"code"`
	Name      string   `yaml:"name"`
	Locations []string `yaml:"locations"`
}

type DatabaseConfig struct {
	Driver         string        `yaml:"driver"`
	DSN            string        `yaml:"dsn"`
	Migrate        bool          `yaml:"migrate"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

type RateLimitConfig struct {
	// Requests はWindowあたりのクライアントごとの上限です。
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	// Backend は "memory" または "redis"
	Backend   string `yaml:"backend"`
	SweepCron string `yaml:"sweep_cron"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AdmissionConfig struct {
	MaxInFlight int64 `yaml:"max_in_flight"`
}

type RenderConfig struct {
	WidthInch  float64 `yaml:"width_inch"`
	HeightInch float64 `yaml:"height_inch"`
	MaxBars    int     `yaml:"max_bars"`
}

type S3Config struct {
	Region          string        `yaml:"region"`
	Endpoint        string        `yaml:"endpoint"`
	PathStyle       bool          `yaml:"path_style"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	Timeout         time.Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// PathFromEnv は CONFIG_PATH か DefaultPath を返します。
func PathFromEnv() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads config from a YAML file, then applies environment variable overrides and defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, nil
}

// applyEnv は環境変数で設定を上書きします。
func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"SERVER_ADDR":           &cfg.Server.Addr,
		"DATA_DIR":              &cfg.Data.Dir,
		"DEFAULT_TICKER":        &cfg.Data.DefaultTicker,
		"DEFAULT_DATE":          &cfg.Data.DefaultDate,
		"EXCHANGE_TIMEZONE":     &cfg.Exchange.Timezone,
		"CATALOG_SOURCE":        &cfg.Catalog.Source,
		"DB_DRIVER":             &cfg.Catalog.Database.Driver,
		"DB_DSN":                &cfg.Catalog.Database.DSN,
		"RATE_LIMIT_BACKEND":    &cfg.RateLimit.Backend,
		"REDIS_ADDR":            &cfg.Redis.Addr,
		"REDIS_PASSWORD":        &cfg.Redis.Password,
		"S3_REGION":             &cfg.S3.Region,
		"S3_ENDPOINT":           &cfg.S3.Endpoint,
		"AWS_ACCESS_KEY_ID":     &cfg.S3.AccessKeyID,
		"AWS_SECRET_ACCESS_KEY": &cfg.S3.SecretAccessKey,
		"LOG_LEVEL":             &cfg.Log.Level,
		"LOG_FORMAT":            &cfg.Log.Format,
		"LOG_FILE":              &cfg.Log.File,
	}
	for name, dst := range str {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	// PORT はCloud Runなどのホスティング環境向け
	if v := os.Getenv("PORT"); v != "" && os.Getenv("SERVER_ADDR") == "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("RATE_LIMIT_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_REQUESTS: %w", err)
		}
		cfg.RateLimit.Requests = n
	}
	if v := os.Getenv("RATE_LIMIT_WINDOW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_WINDOW: %w", err)
		}
		cfg.RateLimit.Window = d
	}
	if v := os.Getenv("FILTER_EARLY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("FILTER_EARLY: %w", err)
		}
		cfg.Data.FilterEarly = &b
	}
	if v := os.Getenv("ADMISSION_MAX_IN_FLIGHT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("ADMISSION_MAX_IN_FLIGHT: %w", err)
		}
		cfg.Admission.MaxInFlight = n
	}
	if v := os.Getenv("TRUSTED_PROXIES"); v != "" {
		cfg.Server.TrustedProxies = strings.Split(v, ",")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Data.DefaultTicker == "" {
		cfg.Data.DefaultTicker = "QQQ"
	}
	if cfg.Data.DefaultDate == "" {
		cfg.Data.DefaultDate = "2015-01-02"
	}
	if cfg.Data.FilterEarly == nil {
		t := true
		cfg.Data.FilterEarly = &t
	}
	if cfg.Exchange.Timezone == "" {
		cfg.Exchange.Timezone = "America/New_York"
	}
	if cfg.Exchange.SessionOpen == "" {
		cfg.Exchange.SessionOpen = "09:30"
	}
	if cfg.Exchange.SessionClose == "" {
		cfg.Exchange.SessionClose = "16:00"
	}
	if cfg.Catalog.Source == "" {
		cfg.Catalog.Source = "config"
	}
	if cfg.Catalog.Source == "config" && len(cfg.Catalog.Symbols) == 0 {
		cfg.Catalog.Symbols = DefaultSymbols()
	}
	if cfg.Catalog.Database.Driver == "" {
		cfg.Catalog.Database.Driver = "sqlite"
	}
	if cfg.Catalog.Database.DSN == "" {
		cfg.Catalog.Database.DSN = "data/catalog.db"
	}
	if cfg.Catalog.Database.ConnectTimeout == 0 {
		cfg.Catalog.Database.ConnectTimeout = 60 * time.Second
	}
	if cfg.RateLimit.Requests == 0 {
		cfg.RateLimit.Requests = 5
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = 24 * time.Hour
	}
	if cfg.RateLimit.Backend == "" {
		cfg.RateLimit.Backend = "memory"
	}
	if cfg.RateLimit.SweepCron == "" {
		cfg.RateLimit.SweepCron = "0 */10 * * * *"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Admission.MaxInFlight == 0 {
		cfg.Admission.MaxInFlight = 4
	}
	if cfg.S3.Timeout == 0 {
		cfg.S3.Timeout = 60 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// DefaultSymbols returns the built-in catalog of ten tickers, two chunk files each.
func DefaultSymbols() []SymbolConfig {
	parts := func(prefix string) []string {
		return []string{prefix + "_part1.csv", prefix + "_part2.csv"}
	}
	return []SymbolConfig{
		{Code: "AAPL", Name: "Apple Inc.", Locations: parts("AAPL_1min_candles_10years")},
		{Code: "META", Name: "Meta Platforms", Locations: parts("META_1min_candles_10years")},
		{Code: "MSFT", Name: "Microsoft", Locations: parts("MSFT_1min_candles_10years")},
		{Code: "MSTR", Name: "MicroStrategy", Locations: parts("MSTR_1min_candles_10years")},
		{Code: "NVDA", Name: "NVIDIA", Locations: parts("NVDA_1min_candles_10years")},
		{Code: "ORCL", Name: "Oracle", Locations: parts("ORCL_1min_candles_10years")},
		{Code: "PLTR", Name: "Palantir", Locations: parts("PLTR_1min_candles_10years")},
		{Code: "QQQ", Name: "Invesco QQQ Trust", Locations: parts("qqq_10yr_1min")},
		{Code: "TSLA", Name: "Tesla", Locations: parts("TSLA_1min_candles_10years")},
		{Code: "UBER", Name: "Uber Technologies", Locations: parts("UBER_1min_candles_10years")},
	}
}

// Validate checks that all settings are consistent.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Exchange.Timezone); err != nil {
		return fmt.Errorf("exchange.timezone: %w", err)
	}
	if _, err := civil.ParseDate(c.Data.DefaultDate); err != nil {
		return fmt.Errorf("data.default_date: %w", err)
	}
	switch c.Catalog.Source {
	case "config":
		if len(c.Catalog.Symbols) == 0 {
			return errors.New("catalog.symbols is required when catalog.source is config")
		}
	case "database":
		if c.Catalog.Database.DSN == "" {
			return errors.New("catalog.database.dsn is required when catalog.source is database")
		}
		switch c.Catalog.Database.Driver {
		case "sqlite", "postgres":
		default:
			return fmt.Errorf("catalog.database.driver must be sqlite or postgres, got %q", c.Catalog.Database.Driver)
		}
	default:
		return fmt.Errorf("catalog.source must be config or database, got %q", c.Catalog.Source)
	}
	if c.RateLimit.Requests <= 0 {
		return errors.New("rate_limit.requests must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.window must be positive")
	}
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("rate_limit.backend must be memory or redis, got %q", c.RateLimit.Backend)
	}
	if c.Admission.MaxInFlight < 0 {
		return errors.New("admission.max_in_flight must not be negative")
	}
	if c.Render.WidthInch < 0 || c.Render.HeightInch < 0 || c.Render.MaxBars < 0 {
		return errors.New("render sizes must not be negative")
	}
	return nil
}

// DefaultDate は data.default_date を解析して返します。Validate済みであること。
func (c *Config) DefaultDate() civil.Date {
	d, _ := civil.ParseDate(c.Data.DefaultDate)
	return d
}
