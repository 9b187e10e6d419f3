package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/samvad-hq/samvad-newsfeed/internal/logger"
)

var (
	// ErrBreakerOpen is returned while a vendor's circuit is open.
	ErrBreakerOpen = errors.New("vendor circuit open")
	// ErrRateLimited is returned when the next limiter slot is further away
	// than GuardConfig.MaxWait.
	ErrRateLimited = errors.New("vendor rate limit exceeded")
)

// DefaultMaxWait bounds how long a call queues for the limiter.
const DefaultMaxWait = 15 * time.Second

// GuardConfig tunes the per-vendor breaker and limiter.
type GuardConfig struct {
	Name string

	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32
	Interval    time.Duration
	// Timeout is how long the circuit stays open before a trial call.
	Timeout time.Duration
	// ConsecutiveFailures trips the circuit.
	ConsecutiveFailures uint32

	// RequestsPerSecond <= 0 disables the limiter.
	RequestsPerSecond float64
	// MaxWait caps the limiter delay; zero means DefaultMaxWait.
	MaxWait time.Duration
}

// DefaultGuardConfig returns the settings used for vendor APIs.
func DefaultGuardConfig(name string) GuardConfig {
	return GuardConfig{
		Name:                name,
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
		MaxWait:             DefaultMaxWait,
	}
}

// Guard wraps vendor calls in a circuit breaker and an optional rate limiter.
type Guard struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	maxWait time.Duration
	log     logger.Logger
}

// NewGuard builds a guard from cfg.
func NewGuard(cfg GuardConfig, log logger.Logger) *Guard {
	log = logger.Ensure(log)
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	maxWait := cfg.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	g := &Guard{
		maxWait: maxWait,
		log:     log,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        cfg.Name,
			MaxRequests: cfg.MaxRequests,
			Interval:    cfg.Interval,
			Timeout:     cfg.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			// Caller cancellation says nothing about vendor health.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.WarnObj("vendor circuit state changed", "circuit", map[string]string{
					"name": name,
					"from": from.String(),
					"to":   to.String(),
				})
			},
		}),
	}
	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return g
}

// Do waits for the limiter then runs fn through the breaker.
func (g *Guard) Do(ctx context.Context, fn func() ([]byte, error)) ([]byte, error) {
	if g == nil {
		return fn()
	}
	if err := g.wait(ctx); err != nil {
		return nil, err
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s", ErrBreakerOpen, g.breaker.Name())
	}
	if err != nil {
		return nil, err
	}
	body, _ := out.([]byte)
	return body, nil
}

// wait holds the call until the limiter admits it. A slot further away than
// maxWait fails at once instead of stalling the page.
func (g *Guard) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	r := g.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("%w: %s", ErrRateLimited, g.breaker.Name())
	}
	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	if delay > g.maxWait {
		r.Cancel()
		return fmt.Errorf("%w: %s needs %s, max %s", ErrRateLimited, g.breaker.Name(), delay.Round(time.Millisecond), g.maxWait)
	}

	g.log.InfoObj("waiting for vendor rate limit", "rate_limit", map[string]string{
		"name":  g.breaker.Name(),
		"delay": delay.Round(time.Millisecond).String(),
	})
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		r.Cancel()
		return fmt.Errorf("rate limit wait: %w", ctx.Err())
	}
}

// State reports the breaker state.
func (g *Guard) State() gobreaker.State {
	if g == nil {
		return gobreaker.StateClosed
	}
	return g.breaker.State()
}
