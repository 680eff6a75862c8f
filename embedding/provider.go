package embedding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"
)

// Provider turns text into a fixed-length vector.
type Provider interface {
	// Embed returns a vector of exactly Dimensions() values.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the configured vector length.
	Dimensions() int

	// Name identifies the provider in logs.
	Name() string
}

var (
	ErrEmptyEmbedding    = errors.New("provider returned an empty embedding")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// DefaultTimeout bounds a single primary embedding call.
const DefaultTimeout = 15 * time.Second

// FallbackProvider calls the primary provider and swaps in the deterministic
// local result whenever the primary fails, times out or returns a vector of the
// wrong length. Callers only see an error when the fallback itself fails.
type FallbackProvider struct {
	primary  Provider
	fallback Provider
	timeout  time.Duration
	degraded atomic.Int64
}

// FallbackOption configures a FallbackProvider.
type FallbackOption func(*FallbackProvider)

// WithTimeout overrides the primary call timeout.
func WithTimeout(d time.Duration) FallbackOption {
	return func(p *FallbackProvider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithFallback replaces the default hash fallback.
func WithFallback(fallback Provider) FallbackOption {
	return func(p *FallbackProvider) {
		p.fallback = fallback
	}
}

// NewFallbackProvider wraps primary with a HashProvider of the same dimension.
// A nil primary means every call goes straight to the fallback.
func NewFallbackProvider(primary Provider, dimensions int, opts ...FallbackOption) *FallbackProvider {
	if primary != nil {
		dimensions = primary.Dimensions()
	}
	p := &FallbackProvider{
		primary:  primary,
		fallback: NewHashProvider(dimensions),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Embed implements Provider.
func (p *FallbackProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.primary != nil {
		vec, err := p.embedPrimary(ctx, text)
		if err == nil {
			return vec, nil
		}
		p.degraded.Add(1)
		log.Printf("Warning: embedding provider %s degraded, using %s fallback: %v", p.primary.Name(), p.fallback.Name(), err)
	}

	vec, err := p.fallback.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("fallback embedding failed: %w", err)
	}
	return vec, nil
}

func (p *FallbackProvider) embedPrimary(ctx context.Context, text string) ([]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	vec, err := p.primary.Embed(callCtx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) == 0 {
		return nil, ErrEmptyEmbedding
	}
	if len(vec) != p.Dimensions() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), p.Dimensions())
	}
	return vec, nil
}

// Dimensions implements Provider.
func (p *FallbackProvider) Dimensions() int {
	return p.fallback.Dimensions()
}

// Name implements Provider.
func (p *FallbackProvider) Name() string {
	if p.primary == nil {
		return p.fallback.Name()
	}
	return p.primary.Name() + "+" + p.fallback.Name()
}

// DegradedCalls returns how many calls were answered by the fallback after a primary failure.
func (p *FallbackProvider) DegradedCalls() int64 {
	return p.degraded.Load()
}

// normalize scales v to unit L2 length in place.
func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sumSq))
	for i := range v {
		v[i] *= inv
	}
}
