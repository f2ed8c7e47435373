package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skintools/empirescan/internal/cache/memory"
	"github.com/skintools/empirescan/internal/cache/redis"
	"github.com/skintools/empirescan/internal/config"
	"github.com/skintools/empirescan/internal/domain"
	"github.com/skintools/empirescan/internal/notify"
	"github.com/skintools/empirescan/internal/platform/csgoempire"
	"github.com/skintools/empirescan/internal/scanner"
	"github.com/skintools/empirescan/internal/store/postgres"
)

// Delivery cap per notification channel. Discord webhooks throttle around 30
// requests per minute; staying under that avoids 429 retries entirely.
const (
	notifyRateLimit  = 25
	notifyRateWindow = time.Minute
)

// Dependencies bundles everything the operating modes need. Constructed by
// Wire, torn down by the returned cleanup function.
type Dependencies struct {
	Session *csgoempire.Session
	Scanner *scanner.Scanner

	Lookup   domain.PriceLookup
	Dedup    domain.DedupCache
	Notifier *notify.Notifier
	Sink     domain.NotificationSink
}

// Wire constructs the concrete dependency graph from cfg. Only scan mode gets
// the full pipeline; health mode wires nothing but the server's inputs.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	scanning := strings.ToLower(cfg.Mode) == "scan"
	if !scanning {
		return deps, cleanup, nil
	}

	// --- Reference-data store (Supabase PostgreSQL) ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Supabase.DSN,
		Host:     cfg.Supabase.Host,
		Port:     cfg.Supabase.Port,
		Database: cfg.Supabase.Database,
		User:     cfg.Supabase.User,
		Password: cfg.Supabase.Password,
		SSLMode:  cfg.Supabase.SSLMode,
		MaxConns: cfg.Supabase.PoolMaxConns,
		MinConns: cfg.Supabase.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if err := pgClient.RunMigrations(ctx); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
	}

	deps.Lookup = postgres.NewMarketDataStore(pgClient.Pool())

	// --- Redis (optional): shared dedup, reference cache, rate limiting ---
	var limiter domain.RateLimiter
	if cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Dedup = redis.NewDedupCache(redisClient, cfg.Scanner.DedupTTL.Duration)
		deps.Lookup = redis.NewReferenceCache(redisClient, deps.Lookup, cfg.Redis.ReferenceTTL.Duration, logger)
		limiter = redis.NewRateLimiter(redisClient)
	} else {
		logger.Info("redis not configured, using in-process dedup")
		deps.Dedup = memory.NewDedupCache(cfg.Scanner.DedupTTL.Duration)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)
	if limiter != nil {
		deps.Notifier.WithRateLimit(limiter, notifyRateLimit, notifyRateWindow)
	}
	deps.Sink = notify.NewOpportunitySink(deps.Notifier, cfg.Empire.Domain)

	// --- Marketplace session ---
	empireClient := csgoempire.NewClient(cfg.Empire.Domain, cfg.Empire.APIKey)
	provider := csgoempire.NewCredentialProvider(empireClient, 0)

	sessionCfg := csgoempire.DefaultSessionConfig(cfg.Empire.Domain)
	applySessionConfig(&sessionCfg, cfg.Session)
	deps.Session = csgoempire.NewSession(sessionCfg, provider, logger)

	// --- Pipeline ---
	deps.Scanner = scanner.New(cfg.Scanner, deps.Session, deps.Lookup, deps.Dedup, deps.Sink, logger)

	return deps, cleanup, nil
}

// applySessionConfig overlays the configured session parameters onto the
// defaults, leaving zero values alone.
func applySessionConfig(dst *csgoempire.SessionConfig, src config.SessionConfig) {
	if src.StalenessWindow.Duration > 0 {
		dst.StalenessWindow = src.StalenessWindow.Duration
	}
	if src.PingInterval.Duration > 0 {
		dst.PingInterval = src.PingInterval.Duration
	}
	if src.BackoffBase.Duration > 0 {
		dst.BackoffBase = src.BackoffBase.Duration
	}
	if src.BackoffCap.Duration > 0 {
		dst.BackoffCap = src.BackoffCap.Duration
	}
	if src.StabilityWindow.Duration > 0 {
		dst.StabilityWindow = src.StabilityWindow.Duration
	}
	if src.IdentifyRetries > 0 {
		dst.IdentifyRetries = src.IdentifyRetries
	}
	if src.IdentifyTimeout.Duration > 0 {
		dst.IdentifyTimeout = src.IdentifyTimeout.Duration
	}
	if src.FailureCeiling > 0 {
		dst.FailureCeiling = src.FailureCeiling
	}
	if src.EventBuffer > 0 {
		dst.EventBuffer = src.EventBuffer
	}
	if src.PriceFilterMin > 0 {
		dst.PriceFilterMin = src.PriceFilterMin
	}
	if src.PriceFilterMax > 0 {
		dst.PriceFilterMax = src.PriceFilterMax
	}
}
