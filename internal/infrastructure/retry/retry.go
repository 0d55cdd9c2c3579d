// Package retry centralizes the retry/backoff policy for every remote
// catalog call. Call sites never hand-roll their own loops: all network-bound
// operations go through one Executor, which paces attempts through the shared
// rate limiter, classifies failures, and feeds throttle signals back into the
// limiter's adaptive state.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/shopbridge/backend/internal/domain/catalog"
)

// ErrInvalidConfig indicates an unusable retry configuration.
var ErrInvalidConfig = errors.New("retry: invalid configuration")

// Pacer is the limiter surface the executor depends on. Implemented by
// ratelimit.Limiter.
type Pacer interface {
	// Acquire blocks until the call may be placed.
	Acquire(ctx context.Context, cost int) error
	// HandleThrottled reports an explicit vendor throttle signal.
	HandleThrottled()
	// HandleSuccess reports a successful call.
	HandleSuccess()
}

// Config holds the retry schedule parameters.
type Config struct {
	// MaxAttempts is the total attempt budget per call, first try included.
	MaxAttempts int
	// InitialInterval is the first backoff delay.
	InitialInterval time.Duration
	// MaxInterval caps individual backoff delays.
	MaxInterval time.Duration
	// Multiplier is the exponential growth factor between delays.
	Multiplier float64
	// RandomizationFactor jitters each delay by +-factor.
	RandomizationFactor float64
}

// DefaultConfig returns a retry schedule suitable for vendor APIs.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:         6,
		InitialInterval:     500 * time.Millisecond,
		MaxInterval:         15 * time.Second,
		Multiplier:          2,
		RandomizationFactor: 0.3,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.MaxAttempts <= 0 {
		return ErrInvalidConfig
	}
	if c.InitialInterval <= 0 || c.MaxInterval < c.InitialInterval {
		return ErrInvalidConfig
	}
	if c.Multiplier < 1 {
		return ErrInvalidConfig
	}
	if c.RandomizationFactor < 0 || c.RandomizationFactor >= 1 {
		return ErrInvalidConfig
	}
	return nil
}

// Executor runs remote operations under the retry policy.
type Executor struct {
	cfg    Config
	pacer  Pacer
	logger *zap.Logger

	// sleep is a test seam; production uses a context-aware timer sleep.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an Executor. pacer may be nil for unpaced use in tests.
func NewExecutor(cfg Config, pacer Pacer, logger *zap.Logger) (*Executor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		cfg:    cfg,
		pacer:  pacer,
		logger: logger,
		sleep:  sleepCtx,
	}, nil
}

// Do executes fn under the retry policy. Terminal errors propagate on first
// occurrence with no delay. Transient errors are retried on an exponential
// schedule with jitter; throttle errors additionally shrink the shared rate
// budget. When the attempt budget is spent the last transient cause is
// wrapped in a terminal RetryExhaustedError.
func (e *Executor) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = e.cfg.InitialInterval
	schedule.MaxInterval = e.cfg.MaxInterval
	schedule.Multiplier = e.cfg.Multiplier
	schedule.RandomizationFactor = e.cfg.RandomizationFactor

	var lastErr error
	failures := 0

	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		if e.pacer != nil {
			if err := e.pacer.Acquire(ctx, 1); err != nil {
				return err
			}
		}

		err := fn(ctx)
		if err == nil {
			if e.pacer != nil {
				e.pacer.HandleSuccess()
			}
			if failures > 0 {
				e.logger.Info("remote call recovered",
					zap.String("op", op),
					zap.Int("failed_attempts", failures),
				)
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !catalog.IsRetryable(err) {
			return err
		}

		failures++
		lastErr = err
		if errors.Is(err, catalog.ErrThrottled) && e.pacer != nil {
			e.pacer.HandleThrottled()
		}
		if attempt == e.cfg.MaxAttempts {
			break
		}

		delay := schedule.NextBackOff()
		e.logger.Debug("retrying remote call",
			zap.String("op", op),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := e.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return &catalog.RetryExhaustedError{Op: op, Attempts: e.cfg.MaxAttempts, Err: lastErr}
}

// DoValue executes fn under the retry policy and returns its value.
func DoValue[T any](ctx context.Context, e *Executor, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := e.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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
