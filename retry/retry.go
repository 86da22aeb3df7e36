// Package retry reruns transient remote failures with exponential backoff.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/yairfalse/kartta/telemetry"
	"github.com/yairfalse/kartta/types"
)

// Policy defines retry behavior for remote calls.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

// DefaultPolicy returns the retry policy used when config leaves it unset.
func DefaultPolicy() *Policy {
	return &Policy{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// Execute runs fn, retrying transient failures until the attempt budget
// runs out. Non-retryable errors return immediately.
func (p *Policy) Execute(ctx context.Context, op string, fn func() error) error {
	return p.ExecuteNotify(ctx, op, fn, nil)
}

// ExecuteNotify is Execute with a quota hook: onRateLimit fires after
// every rate-limited rejection, before the backoff wait, so the caller
// can shrink its throttle while this item is still in flight.
func (p *Policy) ExecuteNotify(ctx context.Context, op string, fn func() error, onRateLimit func()) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		if !types.IsRetryable(err) {
			return err
		}
		lastErr = err

		if types.IsRateLimited(err) && onRateLimit != nil {
			onRateLimit()
		}

		if attempt == attempts-1 {
			break
		}

		telemetry.RecordRetryAttempt(ctx, op)

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return types.NewError(types.ErrTransient, op, ctx.Err())
		case <-timer.C:
		}
	}

	return types.NewError(types.ErrRetryExhausted, op, lastErr)
}

// GetDelay returns the backoff delay for a given attempt.
func (p *Policy) GetDelay(attempt int) time.Duration {
	return p.delay(attempt)
}

func (p *Policy) delay(attempt int) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))

	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}

	if p.Jitter > 0 {
		delta := delay * p.Jitter
		delay = delay - delta + rand.Float64()*2*delta
	}

	return time.Duration(delay)
}
