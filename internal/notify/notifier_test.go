package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type recordingSender struct {
	name   string
	titles []string
	err    error
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

type fakeLimiter struct {
	allow bool
	err   error
	calls int
}

func (f *fakeLimiter) Allow(_ context.Context, _ string, _ int, _ time.Duration) (bool, error) {
	f.calls++
	return f.allow, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyFiltersByEvent(t *testing.T) {
	s := &recordingSender{name: "a"}
	n := NewNotifier([]Sender{s}, []string{"opportunity"}, testLogger())

	ctx := context.Background()
	if err := n.Notify(ctx, "opportunity", "t1", "m"); err != nil {
		t.Fatalf("Notify error = %v", err)
	}
	if err := n.Notify(ctx, "debug", "t2", "m"); err != nil {
		t.Fatalf("Notify error = %v", err)
	}

	if len(s.titles) != 1 || s.titles[0] != "t1" {
		t.Errorf("titles = %v, want [t1]", s.titles)
	}
}

func TestNotifyEmptyEventListAllowsAll(t *testing.T) {
	s := &recordingSender{name: "a"}
	n := NewNotifier([]Sender{s}, nil, testLogger())

	if err := n.Notify(context.Background(), "anything", "t", "m"); err != nil {
		t.Fatalf("Notify error = %v", err)
	}
	if len(s.titles) != 1 {
		t.Errorf("titles = %v, want one delivery", s.titles)
	}
}

func TestNotifyOneSenderFailingDoesNotBlockOthers(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("boom")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.NotifyAll(context.Background(), "t", "m")
	if err == nil {
		t.Fatal("NotifyAll = nil, want combined error")
	}
	if len(good.titles) != 1 {
		t.Errorf("good sender deliveries = %d, want 1", len(good.titles))
	}
}

func TestNotifyRateLimited(t *testing.T) {
	s := &recordingSender{name: "a"}
	limiter := &fakeLimiter{allow: false}
	n := NewNotifier([]Sender{s}, nil, testLogger()).
		WithRateLimit(limiter, 1, time.Minute)

	if err := n.NotifyAll(context.Background(), "t", "m"); err != nil {
		t.Fatalf("NotifyAll error = %v", err)
	}
	if len(s.titles) != 0 {
		t.Errorf("deliveries = %d, want 0 (rate limited)", len(s.titles))
	}
	if limiter.calls != 1 {
		t.Errorf("limiter calls = %d, want 1", limiter.calls)
	}
}

func TestNotifyLimiterFailureAdmits(t *testing.T) {
	s := &recordingSender{name: "a"}
	limiter := &fakeLimiter{err: errors.New("redis down")}
	n := NewNotifier([]Sender{s}, nil, testLogger()).
		WithRateLimit(limiter, 1, time.Minute)

	if err := n.NotifyAll(context.Background(), "t", "m"); err != nil {
		t.Fatalf("NotifyAll error = %v", err)
	}
	if len(s.titles) != 1 {
		t.Errorf("deliveries = %d, want 1 (fail open)", len(s.titles))
	}
}

func TestNotifyNoSenders(t *testing.T) {
	n := NewNotifier(nil, nil, testLogger())
	if err := n.NotifyAll(context.Background(), "t", "m"); err != nil {
		t.Fatalf("NotifyAll error = %v", err)
	}
}
