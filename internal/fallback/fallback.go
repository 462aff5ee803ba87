// Package fallback wraps unreliable external calls: bounded retries with exponential
// backoff, then a canonical neutral result instead of an error.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"stock-analyst/internal/logger"
	"stock-analyst/internal/types"
)

// DegradedReasoning is the fixed diagnostic carried by every substituted signal.
const DegradedReasoning = "analysis unavailable: external service failed after retries; holding a neutral stance"

// NeutralConfidence is the confidence of the substituted signal.
const NeutralConfidence = 0.5

// ErrRetryExhausted wraps the last error once every attempt failed.
var ErrRetryExhausted = errors.New("retries exhausted")

// Policy configures retries. Zero fields take the defaults of DefaultPolicy.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	// AttemptTimeout bounds each single call.
	AttemptTimeout time.Duration
}

// DefaultPolicy: 3 attempts, waiting 1s then 2s, each attempt capped at 30s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2,
		AttemptTimeout: 30 * time.Second,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = d.InitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = d.MaxBackoff
	}
	if p.Multiplier < 1 {
		p.Multiplier = d.Multiplier
	}
	if p.AttemptTimeout <= 0 {
		p.AttemptTimeout = d.AttemptTimeout
	}
	return p
}

// Backoff returns the wait after the given zero-based failed attempt.
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	wait := float64(p.InitialBackoff) * math.Pow(p.Multiplier, float64(attempt))
	if wait > float64(p.MaxBackoff) {
		return p.MaxBackoff
	}
	return time.Duration(wait)
}

// Retry calls op until it succeeds or the attempts run out. Each call gets its own
// AttemptTimeout. Cancelling ctx stops further attempts.
func Retry[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()

	var zero T
	var lastErr error
	attempts := 0
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		attempts++
		v, err := call(ctx, p.AttemptTimeout, op)
		if err == nil {
			return v, nil
		}
		lastErr = err

		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, perm.err)
		}
		if attempt == p.MaxAttempts-1 {
			break
		}
		wait := p.Backoff(attempt)
		logger.Debug(ctx, "External call failed, backing off", "attempt", attempt+1, "max_attempts", p.MaxAttempts, "wait", wait, "error", err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, errors.Join(lastErr, ctx.Err()))
		case <-timer.C:
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, lastErr)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; Retry gives up on it at once.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func call[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return op(attemptCtx)
}

// Do runs op under the policy and returns fallback when every attempt failed.
// It never returns an error; the failure is logged under name.
func Do[T any](ctx context.Context, p Policy, name string, op func(ctx context.Context) (T, error), fallback T) T {
	v, err := Retry(ctx, p, op)
	if err != nil {
		logger.Warn(ctx, "External call degraded to fallback", "call", name, "error", err)
		return fallback
	}
	return v
}

// Neutral is the canonical degraded signal.
func Neutral() types.Signal {
	return types.Signal{
		Action:     types.Neutral,
		Confidence: NeutralConfidence,
		Reasoning:  DegradedReasoning,
	}
}

// Signal runs an analyst call under the policy, substituting Neutral on exhaustion.
func Signal(ctx context.Context, p Policy, name string, op func(ctx context.Context) (types.Signal, error)) types.Signal {
	return Do(ctx, p, name, op, Neutral())
}
