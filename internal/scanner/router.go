package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/skintools/empirescan/internal/domain"
	"github.com/skintools/empirescan/internal/platform/csgoempire"
)

// SessionControl is the slice of the session the router needs: reporting the
// outcome of the authentication handshake back to the run loop.
type SessionControl interface {
	ConfirmAuth(authenticated, guest bool)
	AuthError(msg string)
}

// ListingHandler receives listings in the order they appeared inside a single
// event payload. ctx is the pipeline context; handlers must honor its
// cancellation on any blocking call.
type ListingHandler func(ctx context.Context, listing domain.RawListing)

// Router dispatches decoded stream events. Listing events fan out to the
// handler one listing at a time, in payload order; lifecycle events feed the
// session; everything else is logged and dropped. A malformed payload never
// takes down the stream.
type Router struct {
	session SessionControl
	handle  ListingHandler
	logger  *slog.Logger
}

// NewRouter creates a router delivering listings to handle.
func NewRouter(session SessionControl, handle ListingHandler, logger *slog.Logger) *Router {
	return &Router{
		session: session,
		handle:  handle,
		logger:  logger.With(slog.String("component", "router")),
	}
}

// Route dispatches a single event.
func (r *Router) Route(ctx context.Context, ev csgoempire.Event) {
	switch ev.Name {
	case "init":
		var init csgoempire.InitPayload
		if err := json.Unmarshal(ev.Payload, &init); err != nil {
			r.logger.Warn("malformed init payload", slog.String("error", err.Error()))
			return
		}
		r.logger.Info("init received",
			slog.Bool("authenticated", init.Authenticated),
			slog.Bool("guest", init.IsGuest),
			slog.String("name", init.Name),
		)
		r.session.ConfirmAuth(init.Authenticated, init.IsGuest)

	case "new_item", "updated_item":
		listings, err := decodeListings(ev.Payload)
		if err != nil {
			r.logger.Warn("malformed listing payload",
				slog.String("event", ev.Name),
				slog.String("error", err.Error()),
			)
			return
		}
		for _, l := range listings {
			r.handle(ctx, l)
		}

	case "deleted_item":
		ids, err := decodeIDs(ev.Payload)
		if err != nil {
			r.logger.Warn("malformed deleted_item payload", slog.String("error", err.Error()))
			return
		}
		r.logger.Debug("listings withdrawn", slog.Int("count", len(ids)))

	case "timesync":
		r.logger.Debug("timesync", slog.String("payload", string(ev.Payload)))

	case "err":
		var ep csgoempire.ErrPayload
		if err := json.Unmarshal(ev.Payload, &ep); err != nil || ep.Error == "" {
			ep.Error = string(ev.Payload)
		}
		r.logger.Warn("server error event", slog.String("error", ep.Error))
		r.session.AuthError(ep.Error)

	default:
		r.logger.Debug("unhandled event", slog.String("event", ev.Name))
	}
}

// decodeListings accepts both payload shapes the stream uses: a single
// listing object or an array of them.
func decodeListings(payload json.RawMessage) ([]domain.RawListing, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("scanner: empty listing payload")
	}

	if trimmed[0] == '[' {
		var listings []domain.RawListing
		if err := json.Unmarshal(trimmed, &listings); err != nil {
			return nil, fmt.Errorf("scanner: decode listing array: %w", err)
		}
		return listings, nil
	}

	var listing domain.RawListing
	if err := json.Unmarshal(trimmed, &listing); err != nil {
		return nil, fmt.Errorf("scanner: decode listing: %w", err)
	}
	return []domain.RawListing{listing}, nil
}

// decodeIDs accepts a bare id, an array of ids, or an object/array of objects
// carrying an id field.
func decodeIDs(payload json.RawMessage) ([]int64, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var ids []int64
	if err := json.Unmarshal(trimmed, &ids); err == nil {
		return ids, nil
	}
	var id int64
	if err := json.Unmarshal(trimmed, &id); err == nil {
		return []int64{id}, nil
	}

	type withID struct {
		ID int64 `json:"id"`
	}
	var objs []withID
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &objs); err != nil {
			return nil, fmt.Errorf("scanner: decode id array: %w", err)
		}
	} else {
		var obj withID
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("scanner: decode id object: %w", err)
		}
		objs = []withID{obj}
	}
	out := make([]int64, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.ID)
	}
	return out, nil
}
