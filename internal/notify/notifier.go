// Package notify delivers opportunity alerts over one or more channels
// (Telegram, Discord webhook). Channels are independent: one failing never
// blocks the others, and delivery failures never propagate into the pipeline.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/skintools/empirescan/internal/domain"
)

// Sender is a single notification channel.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs (e.g. "discord").
	Name() string
}

// Notifier fans a notification out to every configured sender, filtered by
// event type. An optional rate limiter caps delivery per channel so a burst
// of opportunities cannot trip webhook rate limits.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	limiter domain.RateLimiter
	limit   int
	window  time.Duration
	logger  *slog.Logger
}

// NewNotifier creates a Notifier over the given senders. Only events named in
// events are forwarded; an empty list allows everything.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// WithRateLimit caps delivery at limit sends per window per channel.
// Notifications over the cap are dropped with a warning, not queued.
func (n *Notifier) WithRateLimit(limiter domain.RateLimiter, limit int, window time.Duration) *Notifier {
	n.limiter = limiter
	n.limit = limit
	n.window = window
	return n
}

// Notify delivers to all senders when the event type is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out", slog.String("event", event))
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// NotifyAll delivers to all senders regardless of event type.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []error
	for _, s := range n.senders {
		if !n.admit(ctx, s.Name()) {
			n.logger.WarnContext(ctx, "notification rate limited",
				slog.String("sender", s.Name()),
				slog.String("title", title),
			)
			continue
		}
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	return errors.Join(errs...)
}

// admit asks the rate limiter whether this channel may send now. Limiter
// failure admits the send; dropping alerts because Redis blinked would be
// worse than an occasional burst.
func (n *Notifier) admit(ctx context.Context, sender string) bool {
	if n.limiter == nil {
		return true
	}
	ok, err := n.limiter.Allow(ctx, "notify:"+sender, n.limit, n.window)
	if err != nil {
		n.logger.WarnContext(ctx, "rate limiter check failed",
			slog.String("sender", sender),
			slog.String("error", err.Error()),
		)
		return true
	}
	return ok
}
