// Package config defines the top-level configuration for the empirescan bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by EMPIRESCAN_* environment variables.
type Config struct {
	Empire   EmpireConfig   `toml:"empire"`
	Session  SessionConfig  `toml:"session"`
	Scanner  ScannerConfig  `toml:"scanner"`
	Supabase SupabaseConfig `toml:"supabase"`
	Redis    RedisConfig    `toml:"redis"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// EmpireConfig holds CSGOEmpire API access parameters.
type EmpireConfig struct {
	Domain string `toml:"domain"`
	APIKey string `toml:"api_key"`
}

// SessionConfig holds the websocket session lifecycle parameters.
type SessionConfig struct {
	// StalenessWindow is how long the session tolerates zero inbound frames
	// before declaring the connection stale and reconnecting.
	StalenessWindow duration `toml:"staleness_window"`
	// PingInterval is the default engine.io heartbeat interval, used until
	// the server advertises its own in the open frame.
	PingInterval    duration `toml:"ping_interval"`
	BackoffBase     duration `toml:"backoff_base"`
	BackoffCap      duration `toml:"backoff_cap"`
	StabilityWindow duration `toml:"stability_window"`
	IdentifyRetries int      `toml:"identify_retries"`
	IdentifyTimeout duration `toml:"identify_timeout"`
	// FailureCeiling is the number of consecutive session failures that
	// triggers a full transport teardown instead of incremental retry.
	FailureCeiling int `toml:"failure_ceiling"`
	EventBuffer    int `toml:"event_buffer"`
	// PriceFilterMin and PriceFilterMax bound the filters frame sent to the
	// server, in coin minor units.
	PriceFilterMin int64 `toml:"price_filter_min"`
	PriceFilterMax int64 `toml:"price_filter_max"`
}

// ScannerConfig holds the opportunity evaluation thresholds and pipeline
// sizing.
type ScannerConfig struct {
	MinProfitPercent  float64  `toml:"min_profit_percent"`
	MinLiquidityScore float64  `toml:"min_liquidity_score"`
	MinPriceUSD       float64  `toml:"min_price_usd"`
	MaxPriceUSD       float64  `toml:"max_price_usd"`
	CoinToUSDFactor   float64  `toml:"coin_to_usd_factor"`
	DedupTTL          duration `toml:"dedup_ttl"`
	QueueSize         int      `toml:"queue_size"`
	Workers           int      `toml:"workers"`
}

// SupabaseConfig holds PostgreSQL / Supabase connection parameters for the
// reference-data store.
type SupabaseConfig struct {
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// RedisConfig holds Redis connection parameters. An empty Addr disables Redis
// entirely; the scanner then falls back to in-process deduplication and
// uncached lookups.
type RedisConfig struct {
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	ReferenceTTL duration `toml:"reference_ttl"`
}

// ServerConfig holds the health endpoint parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Empire: EmpireConfig{
			Domain: "csgoempire.com",
		},
		Session: SessionConfig{
			StalenessWindow: duration{5 * time.Minute},
			PingInterval:    duration{25 * time.Second},
			BackoffBase:     duration{1 * time.Second},
			BackoffCap:      duration{300 * time.Second},
			StabilityWindow: duration{30 * time.Second},
			IdentifyRetries: 3,
			IdentifyTimeout: duration{10 * time.Second},
			FailureCeiling:  10,
			EventBuffer:     256,
			PriceFilterMax:  9999999,
		},
		Scanner: ScannerConfig{
			MinProfitPercent:  5.0,
			MinLiquidityScore: 0.7,
			MinPriceUSD:       1.0,
			MaxPriceUSD:       1000.0,
			CoinToUSDFactor:   0.614,
			DedupTTL:          duration{5 * time.Minute},
			QueueSize:         512,
			Workers:           4,
		},
		Supabase: SupabaseConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "postgres",
			User:         "postgres",
			SSLMode:      "disable",
			PoolMaxConns: 10,
			PoolMinConns: 2,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DB:           0,
			PoolSize:     20,
			MaxRetries:   3,
			TLSEnabled:   false,
			ReferenceTTL: duration{10 * time.Minute},
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8000,
		},
		Notify: NotifyConfig{
			Events: []string{"opportunity", "session", "error"},
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":   true,
	"health": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, health)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	scanning := strings.ToLower(c.Mode) == "scan"

	// Empire
	if c.Empire.Domain == "" {
		errs = append(errs, "empire: domain must not be empty")
	}
	if scanning && c.Empire.APIKey == "" {
		errs = append(errs, "empire: api_key is required for scan mode")
	}

	// Session
	if c.Session.BackoffBase.Duration <= 0 {
		errs = append(errs, "session: backoff_base must be > 0")
	}
	if c.Session.BackoffCap.Duration < c.Session.BackoffBase.Duration {
		errs = append(errs, "session: backoff_cap must be >= backoff_base")
	}
	if c.Session.StalenessWindow.Duration <= 0 {
		errs = append(errs, "session: staleness_window must be > 0")
	}
	if c.Session.IdentifyRetries < 1 {
		errs = append(errs, "session: identify_retries must be >= 1")
	}
	if c.Session.FailureCeiling < 1 {
		errs = append(errs, "session: failure_ceiling must be >= 1")
	}
	if c.Session.EventBuffer < 1 {
		errs = append(errs, "session: event_buffer must be >= 1")
	}

	// Scanner
	if c.Scanner.MinLiquidityScore < 0 {
		errs = append(errs, "scanner: min_liquidity_score must be >= 0")
	}
	if c.Scanner.CoinToUSDFactor <= 0 {
		errs = append(errs, "scanner: coin_to_usd_factor must be > 0")
	}
	if c.Scanner.MinPriceUSD < 0 {
		errs = append(errs, "scanner: min_price_usd must be >= 0")
	}
	if c.Scanner.MaxPriceUSD <= c.Scanner.MinPriceUSD {
		errs = append(errs, "scanner: max_price_usd must exceed min_price_usd")
	}
	if c.Scanner.DedupTTL.Duration <= 0 {
		errs = append(errs, "scanner: dedup_ttl must be > 0")
	}
	if c.Scanner.QueueSize < 1 {
		errs = append(errs, "scanner: queue_size must be >= 1")
	}
	if c.Scanner.Workers < 1 {
		errs = append(errs, "scanner: workers must be >= 1")
	}

	// Supabase — required in scan mode; the lookup store is not optional.
	if scanning {
		if strings.TrimSpace(c.Supabase.DSN) == "" {
			if c.Supabase.Host == "" {
				errs = append(errs, "supabase: host must not be empty (or set supabase.dsn)")
			}
			if c.Supabase.Port <= 0 || c.Supabase.Port > 65535 {
				errs = append(errs, fmt.Sprintf("supabase: port must be 1-65535, got %d", c.Supabase.Port))
			}
			if c.Supabase.Database == "" {
				errs = append(errs, "supabase: database must not be empty")
			}
		}
		if c.Supabase.PoolMaxConns < 1 {
			errs = append(errs, "supabase: pool_max_conns must be >= 1")
		}
		if c.Supabase.PoolMinConns < 0 {
			errs = append(errs, "supabase: pool_min_conns must be >= 0")
		}
		if c.Supabase.PoolMinConns > c.Supabase.PoolMaxConns {
			errs = append(errs, "supabase: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis — optional, but when configured the pool must be sane.
	if c.Redis.Addr != "" && c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
