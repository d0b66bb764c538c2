// Package backoff computes exponential retry delays with jitter.
package backoff

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy defines exponential backoff parameters.
type Policy struct {
	// Initial is the delay after the first failed attempt.
	Initial time.Duration `yaml:"initial"`
	// Max caps every delay.
	Max time.Duration `yaml:"max"`
	// Factor multiplies the delay after each attempt.
	Factor float64 `yaml:"factor"`
	// Jitter is the randomization fraction (0.0 to 1.0) added on top of the base delay.
	Jitter float64 `yaml:"jitter"`
}

// DefaultPolicy is tuned for reconnecting to a local websocket endpoint.
// Initial: 200ms, Max: 5s, Factor: 2, Jitter: 10%
func DefaultPolicy() Policy {
	return Policy{
		Initial: 200 * time.Millisecond,
		Max:     5 * time.Second,
		Factor:  2,
		Jitter:  0.1,
	}
}

// Delay returns the wait before retrying after the given attempt (1-indexed).
func (p Policy) Delay(attempt int) time.Duration {
	return p.DelayWithRand(attempt, rand.Float64()) // #nosec G404 -- jitter does not require cryptographic randomness
}

// DelayWithRand is Delay with a caller-supplied random value in [0.0, 1.0).
// base = initial * factor^(attempt-1); result = min(max, base + base*jitter*rand)
func (p Policy) DelayWithRand(attempt int, randomValue float64) time.Duration {
	exp := math.Max(float64(attempt-1), 0)
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	base := float64(p.Initial) * math.Pow(factor, exp)
	total := base + base*p.Jitter*randomValue
	if p.Max > 0 {
		total = math.Min(float64(p.Max), total)
	}
	return time.Duration(math.Round(total))
}

// Sleep waits for the delay of attempt, returning early with ctx.Err() on cancellation.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	return SleepWithContext(ctx, p.Delay(attempt))
}

// SleepWithContext sleeps for d, respecting context cancellation.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
