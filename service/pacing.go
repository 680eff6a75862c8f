package service

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out entity ingestion in batch runs.
type Pacer interface {
	// Wait blocks before the next entity is ingested.
	Wait(ctx context.Context) error

	// Backoff blocks after a failed entity; consecutiveFailures starts at 1.
	Backoff(ctx context.Context, consecutiveFailures int) error
}

// NoPacing never waits.
type NoPacing struct{}

func (NoPacing) Wait(ctx context.Context) error { return ctx.Err() }

func (NoPacing) Backoff(ctx context.Context, _ int) error { return ctx.Err() }

const (
	DefaultBaseBackoff = 500 * time.Millisecond
	DefaultMaxBackoff  = 30 * time.Second
)

// RatePacer limits ingestion to a steady rate with a token bucket and backs
// off exponentially after failures.
type RatePacer struct {
	limiter     *rate.Limiter
	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// RatePacerOption configures a RatePacer.
type RatePacerOption func(*RatePacer)

// WithBackoff sets the first backoff step and its cap.
func WithBackoff(base, max time.Duration) RatePacerOption {
	return func(p *RatePacer) {
		if base > 0 {
			p.baseBackoff = base
		}
		if max >= p.baseBackoff {
			p.maxBackoff = max
		}
	}
}

// NewRatePacer allows perSecond entities per second. A non-positive rate
// disables throttling but keeps the backoff.
func NewRatePacer(perSecond float64, burst int, opts ...RatePacerOption) *RatePacer {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	p := &RatePacer{
		limiter:     rate.NewLimiter(limit, burst),
		baseBackoff: DefaultBaseBackoff,
		maxBackoff:  DefaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Wait implements Pacer.
func (p *RatePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Backoff implements Pacer.
func (p *RatePacer) Backoff(ctx context.Context, consecutiveFailures int) error {
	d := p.backoffDuration(consecutiveFailures)
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *RatePacer) backoffDuration(consecutiveFailures int) time.Duration {
	if consecutiveFailures < 1 {
		return 0
	}
	d := p.baseBackoff
	for i := 1; i < consecutiveFailures; i++ {
		d *= 2
		if d >= p.maxBackoff {
			return p.maxBackoff
		}
	}
	if d > p.maxBackoff {
		return p.maxBackoff
	}
	return d
}
