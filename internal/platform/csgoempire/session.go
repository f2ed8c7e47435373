package csgoempire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/skintools/empirescan/internal/domain"
)

const handshakeTimeout = 15 * time.Second

// SessionConfig holds the lifecycle parameters of the trade-stream session.
type SessionConfig struct {
	// Endpoint is the websocket URL without engine.io query parameters,
	// e.g. "wss://trade.csgoempire.com/trade".
	Endpoint  string
	Namespace string

	StalenessWindow time.Duration
	PingInterval    time.Duration
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	StabilityWindow time.Duration
	IdentifyRetries int
	IdentifyTimeout time.Duration
	FailureCeiling  int
	EventBuffer     int

	PriceFilterMin int64
	PriceFilterMax int64
	AllowedEvents  []string
}

// DefaultSessionConfig returns the session parameters for the given
// marketplace domain.
func DefaultSessionConfig(domain string) SessionConfig {
	return SessionConfig{
		Endpoint:        "wss://trade." + domain + "/trade",
		Namespace:       "/trade",
		StalenessWindow: 5 * time.Minute,
		PingInterval:    25 * time.Second,
		BackoffBase:     1 * time.Second,
		BackoffCap:      300 * time.Second,
		StabilityWindow: 30 * time.Second,
		IdentifyRetries: 3,
		IdentifyTimeout: 10 * time.Second,
		FailureCeiling:  10,
		EventBuffer:     256,
		PriceFilterMax:  9999999,
		AllowedEvents:   []string{"new_item", "updated_item", "deleted_item", "auction_update", "timesync"},
	}
}

// Event is a decoded inbound stream event, published to the router in
// arrival order.
type Event struct {
	Name    string
	Payload json.RawMessage
}

// authSignal carries the router's interpretation of an init or err event
// back into the session's run loop.
type authSignal struct {
	authenticated bool
	guest         bool
	errMsg        string
}

// Session owns the connection state machine: acquiring credentials,
// connecting, identifying, configuring subscriptions, heartbeating, detecting
// staleness, and reconnecting with backoff. All state transitions happen on
// the single run-loop goroutine; other actors communicate through channels.
type Session struct {
	cfg    SessionConfig
	creds  *CredentialProvider
	logger *slog.Logger

	dialer *websocket.Dialer

	state       atomic.Int32
	lastInbound atomic.Int64 // unix nanos of the most recent inbound frame
	dropped     atomic.Int64

	events chan Event
	authc  chan authSignal

	mu      sync.Mutex
	running bool
	stopc   chan struct{}
	donec   chan struct{}
}

// NewSession creates a Session over the given credential provider.
func NewSession(cfg SessionConfig, creds *CredentialProvider, logger *slog.Logger) *Session {
	if cfg.EventBuffer < 1 {
		cfg.EventBuffer = 256
	}
	s := &Session{
		cfg:    cfg,
		creds:  creds,
		logger: logger.With(slog.String("component", "session")),
		dialer: &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		events: make(chan Event, cfg.EventBuffer),
		authc:  make(chan authSignal, 4),
	}
	s.state.Store(int32(domain.StateDisconnected))
	return s
}

// Start launches the session run loop. It is idempotent while the session is
// already running.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	s.stopc = make(chan struct{})
	s.donec = make(chan struct{})
	go s.run(ctx, s.stopc, s.donec)
	return nil
}

// Stop tears the session down: the transport is closed, the run loop drained,
// and the credential cache released. It blocks until the run loop has exited
// or ctx expires.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopc, donec := s.stopc, s.donec
	s.mu.Unlock()

	select {
	case <-stopc:
	default:
		close(stopc)
	}

	select {
	case <-donec:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.creds.Invalidate()
	return nil
}

// Events returns the channel of decoded inbound events. When the buffer is
// full the newest events are dropped, never the read loop blocked.
func (s *Session) Events() <-chan Event {
	return s.events
}

// CurrentState returns the connection state.
func (s *Session) CurrentState() domain.ConnectionState {
	return domain.ConnectionState(s.state.Load())
}

// DroppedEvents returns how many inbound events were discarded due to
// backpressure.
func (s *Session) DroppedEvents() int64 {
	return s.dropped.Load()
}

// ConfirmAuth reports the content of an inbound init event. The router calls
// this; the state transition itself happens on the run loop.
func (s *Session) ConfirmAuth(authenticated, guest bool) {
	select {
	case s.authc <- authSignal{authenticated: authenticated, guest: guest}:
	default:
	}
}

// AuthError reports an inbound err event that indicates identify failure.
func (s *Session) AuthError(msg string) {
	select {
	case s.authc <- authSignal{errMsg: msg}:
	default:
	}
}

func (s *Session) setState(st domain.ConnectionState) {
	old := domain.ConnectionState(s.state.Swap(int32(st)))
	if old != st {
		s.logger.Info("state transition",
			slog.String("from", old.String()),
			slog.String("to", st.String()),
		)
	}
}

// run drives connect attempts until stopped, applying exponential backoff
// between failures and a full transport teardown once the failure ceiling is
// reached.
func (s *Session) run(ctx context.Context, stopc, donec chan struct{}) {
	defer close(donec)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()
	defer s.setState(domain.StateDisconnected)

	backoff := s.cfg.BackoffBase
	failures := 0

	for {
		err := s.runOnce(ctx, stopc, &backoff, &failures)
		if err == nil {
			return // clean stop
		}
		if ctx.Err() != nil || closed(stopc) {
			return
		}

		failures++
		s.logger.Warn("session attempt failed",
			slog.String("error", err.Error()),
			slog.Int("consecutive_failures", failures),
			slog.Duration("retry_in", backoff),
		)

		if failures >= s.cfg.FailureCeiling {
			// A wedged transport can report connected while never
			// delivering a frame; replace it wholesale.
			s.logger.Warn("failure ceiling reached, tearing down transport",
				slog.Int("failures", failures),
			)
			s.dialer = &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
			s.creds.Invalidate()
			failures = 0
			backoff = s.cfg.BackoffBase
		}

		s.setState(domain.StateReconnecting)
		select {
		case <-time.After(backoff):
		case <-stopc:
			return
		case <-ctx.Done():
			return
		}
		backoff = nextBackoff(backoff, s.cfg.BackoffCap)
	}
}

// runOnce performs a single connect → identify → supervise cycle. A nil
// return means clean shutdown; any error is a session-level failure that the
// caller answers with backoff.
func (s *Session) runOnce(ctx context.Context, stopc chan struct{}, backoff *time.Duration, failures *int) error {
	s.setState(domain.StateMetadataFetching)
	creds, err := s.creds.Get(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.setState(domain.StateDisconnected)
		return err
	}

	s.setState(domain.StateConnecting)
	conn, err := s.dial(ctx, creds)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.setState(domain.StateDisconnected)
		return fmt.Errorf("%w: %v", domain.ErrTransportConnect, err)
	}
	defer conn.Close()

	s.setState(domain.StateConnected)
	s.touchInbound()

	var writeMu sync.Mutex
	write := func(data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	openc := make(chan openPayload, 1)
	readErr := make(chan error, 1)
	go s.readPump(conn, write, openc, readErr)

	// Engine.io handshake: the server speaks first with the open packet.
	pingInterval := s.cfg.PingInterval
	select {
	case open := <-openc:
		if open.PingInterval > 0 {
			pingInterval = time.Duration(open.PingInterval) * time.Millisecond
		}
	case err := <-readErr:
		s.setState(domain.StateDisconnected)
		return fmt.Errorf("%w: %v", domain.ErrTransportConnect, err)
	case <-time.After(s.cfg.IdentifyTimeout):
		s.setState(domain.StateDisconnected)
		return fmt.Errorf("%w: no open frame", domain.ErrTransportConnect)
	case <-stopc:
		return nil
	case <-ctx.Done():
		return nil
	}

	if err := write(encodeNamespaceConnect(s.cfg.Namespace)); err != nil {
		s.setState(domain.StateDisconnected)
		return fmt.Errorf("%w: namespace connect: %v", domain.ErrTransportConnect, err)
	}

	if err := s.identify(ctx, stopc, write, readErr); err != nil {
		if ctx.Err() != nil || closed(stopc) {
			return nil
		}
		s.setState(domain.StateDisconnected)
		return err
	}

	s.setState(domain.StateAuthenticated)
	if err := s.configure(write); err != nil {
		s.setState(domain.StateDegraded)
		return err
	}

	err = s.supervise(ctx, stopc, write, readErr, pingInterval, backoff, failures)
	if err == nil {
		// Clean stop: best-effort close handshake.
		writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		return nil
	}
	s.setState(domain.StateDegraded)
	return err
}

// identify runs the bounded authentication handshake. Every attempt uses
// credentials fetched immediately beforehand: the token/signature pair is
// time-bound and not idempotent against staleness.
func (s *Session) identify(ctx context.Context, stopc chan struct{}, write func([]byte) error, readErr chan error) error {
	s.setState(domain.StateIdentifying)

	// Drop stale signals from a previous connection.
	for {
		select {
		case <-s.authc:
			continue
		default:
		}
		break
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.IdentifyRetries; attempt++ {
		if attempt > 1 {
			s.creds.Invalidate()
		}
		creds, err := s.creds.Get(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		data, err := encodeEvent(s.cfg.Namespace, "identify", identifyFrame{
			UID:                creds.UserID,
			Model:              creds.UserModel,
			AuthorizationToken: creds.Token,
			Signature:          creds.Signature,
			UUID:               "bot-" + uuid.New().String(),
		})
		if err != nil {
			return err
		}
		if err := write(data); err != nil {
			return fmt.Errorf("%w: send identify: %v", domain.ErrTransportConnect, err)
		}

		timer := time.NewTimer(s.cfg.IdentifyTimeout)
	wait:
		for {
			select {
			case sig := <-s.authc:
				if sig.authenticated {
					timer.Stop()
					return nil
				}
				if sig.errMsg != "" {
					lastErr = fmt.Errorf("%w: %s", domain.ErrAuthFailed, sig.errMsg)
				} else if sig.guest {
					lastErr = fmt.Errorf("%w: guest session", domain.ErrAuthFailed)
				} else {
					lastErr = fmt.Errorf("%w: identify not acknowledged", domain.ErrAuthFailed)
				}
				timer.Stop()
				break wait
			case err := <-readErr:
				timer.Stop()
				return fmt.Errorf("%w: %v", domain.ErrTransportConnect, err)
			case <-timer.C:
				lastErr = fmt.Errorf("%w: identify timeout", domain.ErrAuthFailed)
				break wait
			case <-stopc:
				timer.Stop()
				return domain.ErrSessionClosed
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		s.logger.Warn("identify attempt failed",
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)
	}

	if lastErr == nil {
		lastErr = domain.ErrAuthFailed
	}
	return lastErr
}

// configure sends the subscription configuration, exactly once per
// authenticated session.
func (s *Session) configure(write func([]byte) error) error {
	data, err := encodeEvent(s.cfg.Namespace, "filters", filtersFrame{
		PriceMin: s.cfg.PriceFilterMin,
		PriceMax: s.cfg.PriceFilterMax,
	})
	if err != nil {
		return err
	}
	if err := write(data); err != nil {
		return fmt.Errorf("%w: send filters: %v", domain.ErrTransportConnect, err)
	}

	if len(s.cfg.AllowedEvents) > 0 {
		data, err := encodeEvent(s.cfg.Namespace, "allowedEvents", allowedEventsFrame{Events: s.cfg.AllowedEvents})
		if err != nil {
			return err
		}
		if err := write(data); err != nil {
			return fmt.Errorf("%w: send allowedEvents: %v", domain.ErrTransportConnect, err)
		}
	}
	return nil
}

// supervise keeps an authenticated session alive: heartbeats on a fixed
// timer, staleness detection independent of the read loop, and backoff reset
// once the session has been stable long enough.
func (s *Session) supervise(ctx context.Context, stopc chan struct{}, write func([]byte) error, readErr chan error, pingInterval time.Duration, backoff *time.Duration, failures *int) error {
	heartbeat := time.NewTicker(pingInterval)
	defer heartbeat.Stop()

	staleCheck := s.cfg.StalenessWindow / 4
	if staleCheck < time.Second {
		staleCheck = time.Second
	}
	stale := time.NewTicker(staleCheck)
	defer stale.Stop()

	stability := time.NewTimer(s.cfg.StabilityWindow)
	defer stability.Stop()

	for {
		select {
		case <-stopc:
			return nil
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return fmt.Errorf("%w: %v", domain.ErrStaleConnection, err)
		case sig := <-s.authc:
			if !sig.authenticated {
				// The server revoked the session; identify must start over
				// with fresh credentials.
				return fmt.Errorf("%w: authentication revoked", domain.ErrAuthFailed)
			}
		case <-heartbeat.C:
			if err := write(encodePing()); err != nil {
				return fmt.Errorf("%w: heartbeat write: %v", domain.ErrStaleConnection, err)
			}
		case <-stale.C:
			idle := time.Since(time.Unix(0, s.lastInbound.Load()))
			if idle > s.cfg.StalenessWindow {
				return fmt.Errorf("%w: no inbound data for %s", domain.ErrStaleConnection, idle.Round(time.Second))
			}
		case <-stability.C:
			*failures = 0
			*backoff = s.cfg.BackoffBase
			s.logger.Debug("session stable, backoff reset",
				slog.Duration("window", s.cfg.StabilityWindow),
			)
		}
	}
}

// readPump is the transport read loop. It decodes inbound frames, answers
// engine.io pings, records inbound liveness, and publishes events without
// ever blocking on a slow consumer.
func (s *Session) readPump(conn *websocket.Conn, write func([]byte) error, openc chan<- openPayload, readErr chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		s.touchInbound()

		f, err := decodeFrame(data)
		if err != nil {
			s.logger.Debug("skipping malformed frame", slog.String("error", err.Error()))
			continue
		}

		switch f.kind {
		case frameOpen:
			select {
			case openc <- f.open:
			default:
			}
		case framePing:
			if err := write([]byte{eioPong}); err != nil {
				readErr <- err
				return
			}
		case frameClose, frameDisconnect:
			readErr <- fmt.Errorf("server closed session")
			return
		case frameError:
			s.publish(Event{Name: "err", Payload: f.payload})
		case frameEvent:
			s.publish(Event{Name: f.event, Payload: f.payload})
		}
	}
}

// publish forwards an event to the router, dropping the newest event when the
// buffer is full: missed arbitrage windows are unrecoverable, so freshness
// beats completeness.
func (s *Session) publish(ev Event) {
	select {
	case s.events <- ev:
	default:
		n := s.dropped.Add(1)
		s.logger.Warn("event buffer full, dropping event",
			slog.String("event", ev.Name),
			slog.Int64("dropped_total", n),
		)
	}
}

func (s *Session) dial(ctx context.Context, creds domain.SessionCredentials) (*websocket.Conn, error) {
	q := url.Values{}
	q.Set("EIO", "3")
	q.Set("transport", "websocket")
	q.Set("uid", strconv.FormatInt(creds.UserID, 10))
	q.Set("token", creds.Token)

	header := make(map[string][]string)
	header["User-Agent"] = []string{strconv.FormatInt(creds.UserID, 10) + " API Bot"}

	conn, _, err := s.dialer.DialContext(ctx, s.cfg.Endpoint+"/?"+q.Encode(), header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *Session) touchInbound() {
	s.lastInbound.Store(time.Now().UnixNano())
}

// nextBackoff doubles the delay up to the configured cap.
func nextBackoff(cur, cap time.Duration) time.Duration {
	next := cur * 2
	if next > cap {
		next = cap
	}
	return next
}

func closed(c chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}
