// Package ratelimit paces outbound vendor calls with an adaptive token
// bucket. The bucket shrinks when the vendor signals throttling and slowly
// recovers toward its configured ceiling after a streak of successes.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrInvalidConfig indicates an unusable limiter configuration.
var ErrInvalidConfig = errors.New("ratelimit: invalid configuration")

// Config holds the adaptive limiter parameters.
type Config struct {
	// RatePerSecond is the initial refill rate and the recovery ceiling.
	RatePerSecond float64
	// Burst is the initial token capacity.
	Burst int
	// MinRatePerSecond is the floor the rate can shrink to.
	MinRatePerSecond float64
	// ShrinkFactor multiplies rate and capacity on each throttle signal.
	// Must be in (0, 1).
	ShrinkFactor float64
	// RecoverFactor multiplies the rate on each recovery step. Must be > 1.
	RecoverFactor float64
	// SuccessThreshold is the success streak length that triggers one
	// recovery step.
	SuccessThreshold int
	// CooldownBase is the cooldown after the first throttle signal; it
	// doubles with each consecutive signal.
	CooldownBase time.Duration
	// CooldownMax caps the cooldown.
	CooldownMax time.Duration
}

// DefaultConfig returns limiter parameters suitable for a typical vendor API.
func DefaultConfig() Config {
	return Config{
		RatePerSecond:    4,
		Burst:            8,
		MinRatePerSecond: 0.5,
		ShrinkFactor:     0.7,
		RecoverFactor:    1.25,
		SuccessThreshold: 10,
		CooldownBase:     time.Second,
		CooldownMax:      30 * time.Second,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.RatePerSecond <= 0 || c.Burst <= 0 {
		return ErrInvalidConfig
	}
	if c.MinRatePerSecond <= 0 || c.MinRatePerSecond > c.RatePerSecond {
		return ErrInvalidConfig
	}
	if c.ShrinkFactor <= 0 || c.ShrinkFactor >= 1 {
		return ErrInvalidConfig
	}
	if c.RecoverFactor <= 1 {
		return ErrInvalidConfig
	}
	if c.SuccessThreshold <= 0 {
		return ErrInvalidConfig
	}
	if c.CooldownBase <= 0 || c.CooldownMax < c.CooldownBase {
		return ErrInvalidConfig
	}
	return nil
}

// Snapshot is an observable view of the limiter state.
type Snapshot struct {
	// RatePerSecond is the current refill rate.
	RatePerSecond float64
	// Burst is the current token capacity.
	Burst int
	// BackoffUntil is the end of the active cooldown window, zero when none.
	BackoffUntil time.Time
	// ThrottleStreak is the count of consecutive throttle signals.
	ThrottleStreak int
}

// Limiter is the shared adaptive throttle. All state transitions happen under
// one mutex; the token arithmetic itself is delegated to rate.Limiter, which
// keeps tokens within [0, burst] by construction.
type Limiter struct {
	cfg Config

	mu             sync.Mutex
	bucket         *rate.Limiter
	currentRate    float64
	currentBurst   int
	backoffUntil   time.Time
	throttleStreak int
	successStreak  int

	now func() time.Time
}

// New creates a Limiter from the configuration.
func New(cfg Config) (*Limiter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Limiter{
		cfg:          cfg,
		bucket:       rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		currentRate:  cfg.RatePerSecond,
		currentBurst: cfg.Burst,
		now:          time.Now,
	}, nil
}

// Acquire blocks until cost tokens are available and any active cooldown
// window has elapsed. It only fails when ctx is done. The worst-case wait is
// cost divided by the current refill rate plus the cooldown remainder.
func (l *Limiter) Acquire(ctx context.Context, cost int) error {
	if cost <= 0 {
		cost = 1
	}
	if err := l.waitBackoff(ctx); err != nil {
		return err
	}
	if err := l.bucket.WaitN(ctx, cost); err != nil {
		return err
	}
	// A throttle signal may have opened a new window while this caller was
	// blocked on the bucket; the grant must not leave during it.
	return l.waitBackoff(ctx)
}

// waitBackoff blocks until the cooldown window, if any, has elapsed.
func (l *Limiter) waitBackoff(ctx context.Context) error {
	for {
		l.mu.Lock()
		wait := l.backoffUntil.Sub(l.now())
		l.mu.Unlock()
		if wait <= 0 {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// HandleThrottled reacts to an explicit vendor throttle signal: rate and
// capacity shrink (floor-bounded) and a cooldown window opens. The cooldown
// doubles with each consecutive signal up to CooldownMax.
func (l *Limiter) HandleThrottled() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.successStreak = 0
	l.throttleStreak++

	l.currentRate *= l.cfg.ShrinkFactor
	if l.currentRate < l.cfg.MinRatePerSecond {
		l.currentRate = l.cfg.MinRatePerSecond
	}
	l.currentBurst = int(float64(l.currentBurst) * l.cfg.ShrinkFactor)
	if l.currentBurst < 1 {
		l.currentBurst = 1
	}
	l.bucket.SetLimit(rate.Limit(l.currentRate))
	l.bucket.SetBurst(l.currentBurst)

	cooldown := l.cfg.CooldownBase << (l.throttleStreak - 1)
	if cooldown > l.cfg.CooldownMax || cooldown <= 0 {
		cooldown = l.cfg.CooldownMax
	}
	l.backoffUntil = l.now().Add(cooldown)
}

// HandleSuccess notes one successful call. After SuccessThreshold consecutive
// successes the rate takes one recovery step toward the configured ceiling
// and the throttle streak resets.
func (l *Limiter) HandleSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.successStreak++
	if l.successStreak < l.cfg.SuccessThreshold {
		return
	}
	l.successStreak = 0
	l.throttleStreak = 0

	l.currentRate *= l.cfg.RecoverFactor
	if l.currentRate > l.cfg.RatePerSecond {
		l.currentRate = l.cfg.RatePerSecond
	}
	if l.currentBurst < l.cfg.Burst {
		l.currentBurst++
	}
	l.bucket.SetLimit(rate.Limit(l.currentRate))
	l.bucket.SetBurst(l.currentBurst)
}

// Snapshot returns the current limiter state.
func (l *Limiter) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		RatePerSecond:  l.currentRate,
		Burst:          l.currentBurst,
		BackoffUntil:   l.backoffUntil,
		ThrottleStreak: l.throttleStreak,
	}
}
