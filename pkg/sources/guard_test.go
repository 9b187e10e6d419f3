package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/samvad-hq/samvad-newsfeed/internal/domain"
)

func TestGuardOpensAfterConsecutiveFailures(t *testing.T) {
	cfg := DefaultGuardConfig("test")
	cfg.ConsecutiveFailures = 2
	g := NewGuard(cfg, nil)

	boom := errors.New("boom")
	for i := 0; i < 2; i++ {
		if _, err := g.Do(context.Background(), func() ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected boom, got %v", i, err)
		}
	}
	if g.State() != gobreaker.StateOpen {
		t.Fatalf("expected open breaker, got %s", g.State())
	}

	called := false
	_, err := g.Do(context.Background(), func() ([]byte, error) {
		called = true
		return nil, nil
	})
	if !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("expected ErrBreakerOpen, got %v", err)
	}
	if called {
		t.Fatalf("expected call to be short-circuited")
	}
}

func TestGuardIgnoresCallerCancellation(t *testing.T) {
	cfg := DefaultGuardConfig("test")
	cfg.ConsecutiveFailures = 1
	g := NewGuard(cfg, nil)

	_, _ = g.Do(context.Background(), func() ([]byte, error) { return nil, context.Canceled })
	if g.State() != gobreaker.StateClosed {
		t.Fatalf("cancellation should not trip the breaker")
	}
}

func TestGuardLimiterHonoursContext(t *testing.T) {
	cfg := DefaultGuardConfig("test")
	cfg.RequestsPerSecond = 0.001
	cfg.MaxWait = time.Hour
	g := NewGuard(cfg, nil)

	if _, err := g.Do(context.Background(), func() ([]byte, error) { return []byte("ok"), nil }); err != nil {
		t.Fatalf("first call should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Do(ctx, func() ([]byte, error) { return []byte("ok"), nil }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error from limiter wait, got %v", err)
	}
}

func TestGuardRejectsWaitBeyondMax(t *testing.T) {
	cfg := DefaultGuardConfig("test")
	cfg.RequestsPerSecond = 0.1
	cfg.MaxWait = 50 * time.Millisecond
	g := NewGuard(cfg, nil)

	if _, err := g.Do(context.Background(), func() ([]byte, error) { return []byte("ok"), nil }); err != nil {
		t.Fatalf("first call should use the burst token: %v", err)
	}

	called := false
	start := time.Now()
	_, err := g.Do(context.Background(), func() ([]byte, error) {
		called = true
		return nil, nil
	})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if called {
		t.Fatalf("call should not run when the limiter slot is too far away")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("rejection took %s", elapsed)
	}
	if g.State() != gobreaker.StateClosed {
		t.Fatalf("rate limit rejection should not touch the breaker")
	}
}

func TestGuardWaitsWithinMax(t *testing.T) {
	cfg := DefaultGuardConfig("test")
	cfg.RequestsPerSecond = 20
	cfg.MaxWait = time.Second
	g := NewGuard(cfg, nil)

	for i := 0; i < 3; i++ {
		if _, err := g.Do(context.Background(), func() ([]byte, error) { return []byte("ok"), nil }); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestAdapterReportsRateLimited(t *testing.T) {
	cfg := DefaultGuardConfig("nyt")
	cfg.RequestsPerSecond = 0.1
	cfg.MaxWait = 10 * time.Millisecond
	client := &mockHTTPClient{err: errors.New("down")}
	obs := &recordingObserver{}
	a := NewNYTAdapter(testSource(t, domain.SourceNYT), "k", client, WithGuard(NewGuard(cfg, nil)), WithObserver(obs))

	a.Fetch(context.Background(), domain.Query{Page: 1, PageSize: 10})
	res := a.Fetch(context.Background(), domain.Query{Page: 2, PageSize: 10})

	assertEmptyResult(t, res)
	if client.calls() != 1 {
		t.Fatalf("expected one HTTP call, got %d", client.calls())
	}
	if rec := obs.last(t); rec.outcome != OutcomeRateLimited {
		t.Fatalf("expected rate limited outcome, got %+v", rec)
	}
}

func TestAdapterReportsOpenBreaker(t *testing.T) {
	cfg := DefaultGuardConfig("nyt")
	cfg.ConsecutiveFailures = 1
	client := &mockHTTPClient{err: errors.New("down")}
	obs := &recordingObserver{}
	a := NewNYTAdapter(testSource(t, domain.SourceNYT), "k", client, WithGuard(NewGuard(cfg, nil)), WithObserver(obs))

	a.Fetch(context.Background(), domain.Query{Page: 1, PageSize: 10})
	res := a.Fetch(context.Background(), domain.Query{Page: 1, PageSize: 10})

	assertEmptyResult(t, res)
	if client.calls() != 1 {
		t.Fatalf("expected one HTTP call, got %d", client.calls())
	}
	if rec := obs.last(t); rec.outcome != OutcomeBreaker {
		t.Fatalf("expected breaker outcome, got %+v", rec)
	}
}
