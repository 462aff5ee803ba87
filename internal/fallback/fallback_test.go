package fallback

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/types"
)

func fastPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     4 * time.Millisecond,
		Multiplier:     2,
		AttemptTimeout: 50 * time.Millisecond,
	}
}

func TestBackoffGrowsAndCaps(t *testing.T) {
	p := Policy{InitialBackoff: time.Second, MaxBackoff: 5 * time.Second, Multiplier: 2}
	assert.Equal(t, time.Second, p.Backoff(0))
	assert.Equal(t, 2*time.Second, p.Backoff(1))
	assert.Equal(t, 4*time.Second, p.Backoff(2))
	assert.Equal(t, 5*time.Second, p.Backoff(3))
	assert.Equal(t, 5*time.Second, p.Backoff(10))
}

func TestZeroPolicyUsesDefaults(t *testing.T) {
	p := Policy{}.withDefaults()
	assert.Equal(t, DefaultPolicy(), p)
}

func TestSignalAlwaysFailingYieldsNeutral(t *testing.T) {
	for i := 0; i < 5; i++ {
		var calls atomic.Int32
		sig := Signal(context.Background(), fastPolicy(), "short_term", func(context.Context) (types.Signal, error) {
			calls.Add(1)
			return types.Signal{}, errors.New("upstream 503")
		})

		assert.Equal(t, Neutral(), sig)
		assert.Equal(t, types.Neutral, sig.Action)
		assert.Equal(t, 0.5, sig.Confidence)
		assert.Equal(t, DegradedReasoning, sig.Reasoning)
		assert.EqualValues(t, 3, calls.Load())
	}
}

func TestSignalRecoversWithinBound(t *testing.T) {
	var calls atomic.Int32
	sig := Signal(context.Background(), fastPolicy(), "long_term", func(context.Context) (types.Signal, error) {
		if calls.Add(1) < 3 {
			return types.Signal{}, errors.New("flaky")
		}
		return types.Signal{Action: types.Bullish, Confidence: 0.8, Reasoning: "strong cash flow"}, nil
	})

	assert.Equal(t, types.Bullish, sig.Action)
	assert.Equal(t, 0.8, sig.Confidence)
	assert.EqualValues(t, 3, calls.Load())
}

func TestRetryAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	start := time.Now()
	_, err := Retry(context.Background(), fastPolicy(), func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-ctx.Done()
		return "", ctx.Err()
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 3, calls.Load())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRetryStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	p := fastPolicy()
	p.InitialBackoff = time.Hour
	p.MaxBackoff = time.Hour

	done := make(chan error, 1)
	go func() {
		_, err := Retry(ctx, p, func(context.Context) (int, error) {
			calls.Add(1)
			return 0, errors.New("down")
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrRetryExhausted)
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestDoReturnsFallbackText(t *testing.T) {
	out := Do(context.Background(), fastPolicy(), "narrative", func(context.Context) (string, error) {
		return "", errors.New("no provider")
	}, "fixed reasoning")
	assert.Equal(t, "fixed reasoning", out)

	out = Do(context.Background(), fastPolicy(), "narrative", func(context.Context) (string, error) {
		return "model text", nil
	}, "fixed reasoning")
	assert.Equal(t, "model text", out)
}

func TestRetryGivesUpOnPermanentError(t *testing.T) {
	var calls atomic.Int32
	notFound := errors.New("404")
	_, err := Retry(context.Background(), fastPolicy(), func(context.Context) (int, error) {
		calls.Add(1)
		return 0, Permanent(notFound)
	})
	assert.ErrorIs(t, err, ErrRetryExhausted)
	assert.ErrorIs(t, err, notFound)
	assert.EqualValues(t, 1, calls.Load())
}
