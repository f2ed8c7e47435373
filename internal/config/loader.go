package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies EMPIRESCAN_* environment variable overrides, and
// returns the final Config. A missing file is not an error: defaults plus
// environment overrides are a complete configuration on their own. The
// returned Config has NOT been validated; the caller should invoke
// Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known EMPIRESCAN_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Empire ──
	setStr(&cfg.Empire.Domain, "EMPIRESCAN_EMPIRE_DOMAIN")
	setStr(&cfg.Empire.APIKey, "EMPIRESCAN_EMPIRE_API_KEY")
	setStr(&cfg.Empire.APIKey, "CSGOEMPIRE_API_KEY") // compatibility alias

	// ── Session ──
	setDur(&cfg.Session.StalenessWindow, "EMPIRESCAN_SESSION_STALENESS_WINDOW")
	setDur(&cfg.Session.BackoffBase, "EMPIRESCAN_SESSION_BACKOFF_BASE")
	setDur(&cfg.Session.BackoffCap, "EMPIRESCAN_SESSION_BACKOFF_CAP")
	setDur(&cfg.Session.StabilityWindow, "EMPIRESCAN_SESSION_STABILITY_WINDOW")
	setInt(&cfg.Session.IdentifyRetries, "EMPIRESCAN_SESSION_IDENTIFY_RETRIES")
	setInt(&cfg.Session.FailureCeiling, "EMPIRESCAN_SESSION_FAILURE_CEILING")

	// ── Scanner ──
	setFloat64(&cfg.Scanner.MinProfitPercent, "EMPIRESCAN_SCANNER_MIN_PROFIT_PERCENT")
	setFloat64(&cfg.Scanner.MinProfitPercent, "MIN_PROFIT_PERCENTAGE") // compatibility alias
	setFloat64(&cfg.Scanner.MinLiquidityScore, "EMPIRESCAN_SCANNER_MIN_LIQUIDITY_SCORE")
	setFloat64(&cfg.Scanner.MinLiquidityScore, "MIN_LIQUIDITY_SCORE") // compatibility alias
	setFloat64(&cfg.Scanner.MinPriceUSD, "EMPIRESCAN_SCANNER_MIN_PRICE_USD")
	setFloat64(&cfg.Scanner.MaxPriceUSD, "EMPIRESCAN_SCANNER_MAX_PRICE_USD")
	setFloat64(&cfg.Scanner.CoinToUSDFactor, "EMPIRESCAN_SCANNER_COIN_TO_USD_FACTOR")
	setDur(&cfg.Scanner.DedupTTL, "EMPIRESCAN_SCANNER_DEDUP_TTL")
	setInt(&cfg.Scanner.QueueSize, "EMPIRESCAN_SCANNER_QUEUE_SIZE")
	setInt(&cfg.Scanner.Workers, "EMPIRESCAN_SCANNER_WORKERS")

	// ── Supabase ──
	setStr(&cfg.Supabase.DSN, "EMPIRESCAN_SUPABASE_DSN")
	setStr(&cfg.Supabase.DSN, "SUPABASE_URL") // compatibility alias
	setStr(&cfg.Supabase.Host, "EMPIRESCAN_SUPABASE_HOST")
	setInt(&cfg.Supabase.Port, "EMPIRESCAN_SUPABASE_PORT")
	setStr(&cfg.Supabase.Database, "EMPIRESCAN_SUPABASE_DATABASE")
	setStr(&cfg.Supabase.User, "EMPIRESCAN_SUPABASE_USER")
	setStr(&cfg.Supabase.Password, "EMPIRESCAN_SUPABASE_PASSWORD")
	setStr(&cfg.Supabase.SSLMode, "EMPIRESCAN_SUPABASE_SSLMODE")
	setInt(&cfg.Supabase.PoolMaxConns, "EMPIRESCAN_SUPABASE_POOL_MAX_CONNS")
	setInt(&cfg.Supabase.PoolMinConns, "EMPIRESCAN_SUPABASE_POOL_MIN_CONNS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "EMPIRESCAN_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "EMPIRESCAN_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "EMPIRESCAN_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "EMPIRESCAN_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "EMPIRESCAN_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "EMPIRESCAN_REDIS_TLS_ENABLED")
	setDur(&cfg.Redis.ReferenceTTL, "EMPIRESCAN_REDIS_REFERENCE_TTL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "EMPIRESCAN_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "EMPIRESCAN_SERVER_PORT")
	setInt(&cfg.Server.Port, "PORT") // platform-injected port (Railway, Heroku)

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "EMPIRESCAN_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "EMPIRESCAN_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "EMPIRESCAN_NOTIFY_DISCORD_WEBHOOK_URL")
	setStr(&cfg.Notify.DiscordWebhookURL, "DISCORD_WEBHOOK_URL") // compatibility alias
	if v := os.Getenv("EMPIRESCAN_NOTIFY_EVENTS"); v != "" {
		parts := strings.Split(v, ",")
		events := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				events = append(events, p)
			}
		}
		cfg.Notify.Events = events
	}

	// ── Top level ──
	setStr(&cfg.Mode, "EMPIRESCAN_MODE")
	setStr(&cfg.LogLevel, "EMPIRESCAN_LOG_LEVEL")
	setStr(&cfg.LogLevel, "LOG_LEVEL") // compatibility alias
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.ToLower(v)); err == nil {
			*dst = b
		}
	}
}

func setDur(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
