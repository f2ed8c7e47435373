package scanner

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/skintools/empirescan/internal/config"
	"github.com/skintools/empirescan/internal/domain"
	"github.com/skintools/empirescan/internal/platform/csgoempire"
)

// EventSource is the slice of the session the scanner consumes: the inbound
// event channel plus the lifecycle signals the router feeds back.
type EventSource interface {
	Events() <-chan csgoempire.Event
	CurrentState() domain.ConnectionState
	DroppedEvents() int64
	ConfirmAuth(authenticated, guest bool)
	AuthError(msg string)
}

// Status is a point-in-time snapshot of the pipeline, served by the status
// endpoint.
type Status struct {
	SessionState  string           `json:"session_state"`
	Received      int64            `json:"received"`
	QueueDepth    int              `json:"queue_depth"`
	QueueDropped  int64            `json:"queue_dropped"`
	EventsDropped int64            `json:"events_dropped"`
	Opportunities int64            `json:"opportunities"`
	Rejects       map[string]int64 `json:"rejects"`
}

// Scanner wires the ingestion pipeline together: the router normalizes,
// band-filters, and deduplicates listings synchronously in arrival order,
// then hands survivors to a bounded queue drained by a pool of enrichment
// workers. Per-item failures are counted and dropped; nothing an item does
// can take the pipeline down.
type Scanner struct {
	cfg    config.ScannerConfig
	source EventSource
	lookup domain.PriceLookup
	dedup  domain.DedupCache
	sink   domain.NotificationSink
	logger *slog.Logger

	norm   *Normalizer
	eval   *Evaluator
	router *Router

	queue chan domain.NormalizedItem

	received      atomic.Int64
	queueDropped  atomic.Int64
	opportunities atomic.Int64

	rejectMu sync.Mutex
	rejects  map[domain.RejectReason]int64
}

// New creates a scanner over the given session and backends.
func New(cfg config.ScannerConfig, source EventSource, lookup domain.PriceLookup, dedup domain.DedupCache, sink domain.NotificationSink, logger *slog.Logger) *Scanner {
	s := &Scanner{
		cfg:     cfg,
		source:  source,
		lookup:  lookup,
		dedup:   dedup,
		sink:    sink,
		logger:  logger.With(slog.String("component", "scanner")),
		norm:    NewNormalizer(cfg.CoinToUSDFactor),
		eval:    NewEvaluator(cfg.MinProfitPercent, cfg.MinLiquidityScore, cfg.MinPriceUSD, cfg.MaxPriceUSD),
		queue:   make(chan domain.NormalizedItem, cfg.QueueSize),
		rejects: make(map[domain.RejectReason]int64),
	}
	s.router = NewRouter(source, s.ingest, logger)
	return s
}

// Run processes events until ctx is cancelled. It blocks; run it on its own
// goroutine.
func (s *Scanner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.routeLoop(ctx)
	})
	for i := 0; i < s.cfg.Workers; i++ {
		g.Go(func() error {
			return s.worker(ctx)
		})
	}

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// Status returns a snapshot of the pipeline counters.
func (s *Scanner) Status() Status {
	s.rejectMu.Lock()
	rejects := make(map[string]int64, len(s.rejects))
	for reason, n := range s.rejects {
		rejects[string(reason)] = n
	}
	s.rejectMu.Unlock()

	return Status{
		SessionState:  s.source.CurrentState().String(),
		Received:      s.received.Load(),
		QueueDepth:    len(s.queue),
		QueueDropped:  s.queueDropped.Load(),
		EventsDropped: s.source.DroppedEvents(),
		Opportunities: s.opportunities.Load(),
		Rejects:       rejects,
	}
}

func (s *Scanner) routeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-s.source.Events():
			if !ok {
				return nil
			}
			s.router.Route(ctx, ev)
		}
	}
}

// ingest is the synchronous half of the pipeline, invoked by the router for
// each listing in payload order: normalize, band-filter, deduplicate,
// enqueue. Keeping dedup on this side preserves first-wins semantics for
// duplicates inside a single batch.
func (s *Scanner) ingest(ctx context.Context, raw domain.RawListing) {
	s.received.Add(1)

	item := s.norm.Normalize(raw)
	if !s.eval.InBand(item) {
		s.reject(item, domain.RejectPriceOutOfBand)
		return
	}

	seen, err := s.dedup.Seen(ctx, item.ID)
	if err != nil {
		// Fail open: a broken dedup backend must not silence the stream.
		// The worst case is a repeated notification, not a missed one.
		s.logger.Warn("dedup check failed",
			slog.String("listing", item.ListingRef()),
			slog.String("error", err.Error()),
		)
	} else if seen {
		s.reject(item, domain.RejectDuplicate)
		return
	}

	select {
	case s.queue <- item:
	default:
		n := s.queueDropped.Add(1)
		s.logger.Warn("pipeline queue full, dropping listing",
			slog.String("listing", item.ListingRef()),
			slog.Int64("dropped_total", n),
		)
	}
}

func (s *Scanner) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item := <-s.queue:
			s.process(ctx, item)
		}
	}
}

// process enriches and evaluates one item. Every exit path either counts an
// opportunity or counts a rejection; items never fail silently.
func (s *Scanner) process(ctx context.Context, item domain.NormalizedItem) {
	ref, found, err := s.lookup.Lookup(ctx, item.Signature)
	if err != nil {
		s.logger.Warn("reference lookup failed",
			slog.String("listing", item.ListingRef()),
			slog.String("error", err.Error()),
		)
		s.reject(item, domain.RejectNoReferenceData)
		return
	}

	enriched, reason := s.eval.Evaluate(item, ref, found)
	if reason != domain.RejectNone {
		s.reject(item, reason)
		return
	}

	s.opportunities.Add(1)
	s.logger.Info("opportunity found",
		slog.String("listing", item.ListingRef()),
		slog.Float64("price_usd", enriched.PriceUSD),
		slog.Float64("ref_price_usd", enriched.RefPriceUSD),
		slog.Float64("profit_percent", enriched.ProfitPercent),
		slog.Float64("liquidity", enriched.LiquidityScore),
	)

	if err := s.sink.Notify(ctx, enriched); err != nil {
		s.logger.Warn("notification delivery failed",
			slog.String("listing", item.ListingRef()),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Scanner) reject(item domain.NormalizedItem, reason domain.RejectReason) {
	s.rejectMu.Lock()
	s.rejects[reason]++
	s.rejectMu.Unlock()

	s.logger.Debug("listing rejected",
		slog.String("listing", item.ListingRef()),
		slog.String("reason", string(reason)),
	)
}
