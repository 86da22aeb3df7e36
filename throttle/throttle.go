// Package throttle bounds per-service call rates during extraction runs.
package throttle

import (
	"context"
	"sync"
	"time"
)

// Options tunes bucket defaults and the quota backoff coupling.
type Options struct {
	DefaultRate  float64
	DefaultBurst int
	MinRate      float64
	DecreaseStep float64
	RecoveryStep float64
	CoolDown     time.Duration
}

// ServiceLimits overrides the default bucket for one service tag.
type ServiceLimits struct {
	Rate  float64
	Burst int
}

// Stats reports one bucket's current state.
type Stats struct {
	Rate     float64 `json:"rate"`
	BaseRate float64 `json:"base_rate"`
	Burst    int     `json:"burst"`
	Tokens   float64 `json:"tokens"`
	Issued   int64   `json:"issued"`
	Rejected int64   `json:"rejected"`
}

// Throttle hands out per-service admission tokens. Buckets are created
// lazily on first acquire and shared by every worker touching the tag.
type Throttle struct {
	opts      Options
	overrides map[string]ServiceLimits

	mu      sync.Mutex
	buckets map[string]*bucket
}

// New creates a Throttle with per-service overrides applied on top of defaults.
func New(opts Options, overrides map[string]ServiceLimits) *Throttle {
	return &Throttle{
		opts:      opts,
		overrides: overrides,
		buckets:   make(map[string]*bucket),
	}
}

// Acquire blocks until a token is available for the service or ctx is done.
func (t *Throttle) Acquire(ctx context.Context, serviceTag string) error {
	return t.bucket(serviceTag).wait(ctx)
}

// Allow consumes a token if one is available without blocking.
func (t *Throttle) Allow(serviceTag string) bool {
	return t.bucket(serviceTag).allow()
}

// OnRateLimited applies an additive rate decrease for the service and
// restarts its recovery cool-down. Returns the new rate.
func (t *Throttle) OnRateLimited(serviceTag string) float64 {
	return t.bucket(serviceTag).signal()
}

// Rate returns the service's current admission rate.
func (t *Throttle) Rate(serviceTag string) float64 {
	b := t.bucket(serviceTag)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance(time.Now())
	return b.rate
}

// GetStats returns the service's bucket state.
func (t *Throttle) GetStats(serviceTag string) Stats {
	b := t.bucket(serviceTag)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance(time.Now())
	return Stats{
		Rate:     b.rate,
		BaseRate: b.baseRate,
		Burst:    b.burst,
		Tokens:   b.tokens,
		Issued:   b.issued,
		Rejected: b.rejected,
	}
}

func (t *Throttle) bucket(serviceTag string) *bucket {
	t.mu.Lock()
	defer t.mu.Unlock()

	if b, ok := t.buckets[serviceTag]; ok {
		return b
	}

	rate := t.opts.DefaultRate
	burst := t.opts.DefaultBurst
	if o, ok := t.overrides[serviceTag]; ok {
		if o.Rate > 0 {
			rate = o.Rate
		}
		if o.Burst > 0 {
			burst = o.Burst
		}
	}

	b := &bucket{
		rate:         rate,
		baseRate:     rate,
		burst:        burst,
		minRate:      t.opts.MinRate,
		decreaseStep: t.opts.DecreaseStep,
		recoveryStep: t.opts.RecoveryStep,
		coolDown:     t.opts.CoolDown,
		tokens:       float64(burst),
		lastRefill:   time.Now(),
	}
	t.buckets[serviceTag] = b
	return b
}

// bucket is a token bucket whose rate shrinks on quota rejections and
// creeps back toward baseRate once the service stays quiet.
type bucket struct {
	mu sync.Mutex

	rate     float64
	baseRate float64
	burst    int
	minRate  float64

	decreaseStep float64
	recoveryStep float64
	coolDown     time.Duration

	tokens       float64
	lastRefill   time.Time
	lastSignal   time.Time
	lastRecovery time.Time

	issued   int64
	rejected int64
}

func (b *bucket) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.advance(time.Now())

	if b.tokens >= 1.0 {
		b.tokens--
		b.issued++
		return true
	}
	return false
}

func (b *bucket) wait(ctx context.Context) error {
	for {
		b.mu.Lock()
		b.advance(time.Now())

		if b.tokens >= 1.0 {
			b.tokens--
			b.issued++
			b.mu.Unlock()
			return nil
		}

		deficit := 1.0 - b.tokens
		waitTime := time.Duration(deficit / b.rate * float64(time.Second))
		b.mu.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

func (b *bucket) signal() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.advance(now)

	b.rate -= b.decreaseStep
	if b.rate < b.minRate {
		b.rate = b.minRate
	}
	b.lastSignal = now
	b.rejected++
	return b.rate
}

// advance refills tokens for elapsed time and applies linear rate
// recovery once the cool-down since the last quota signal has passed.
func (b *bucket) advance(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.rate
		if b.tokens > float64(b.burst) {
			b.tokens = float64(b.burst)
		}
		b.lastRefill = now
	}

	if b.rate >= b.baseRate || b.lastSignal.IsZero() {
		return
	}

	eligible := b.lastSignal.Add(b.coolDown)
	if now.Before(eligible) {
		return
	}

	from := b.lastRecovery
	if from.Before(eligible) {
		from = eligible
	}

	b.rate += b.recoveryStep * now.Sub(from).Seconds()
	if b.rate > b.baseRate {
		b.rate = b.baseRate
	}
	b.lastRecovery = now
}
