package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transientErr(msg string) error {
	return &APIError{Provider: "test", Status: 503, Body: msg}
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	var delays []time.Duration
	last := time.Now()

	cfg := RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   20 * time.Millisecond,
		OnRetry: func(attempt int, err error) {
			delays = append(delays, time.Since(last))
			last = time.Now()
		},
	}

	val, err := Retry(context.Background(), cfg, func(ctx context.Context) (string, error) {
		calls++
		if calls <= 2 {
			return "", transientErr("unavailable")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, calls)
	require.Len(t, delays, 2)
}

func TestRetryBackoffDoubles(t *testing.T) {
	calls := 0
	start := time.Now()
	var attemptTimes []time.Duration

	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: 30 * time.Millisecond}

	_, err := Retry(context.Background(), cfg, func(ctx context.Context) (int, error) {
		attemptTimes = append(attemptTimes, time.Since(start))
		calls++
		return 0, transientErr("nope")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	require.Equal(t, 3, calls)

	// Sleeps are base then 2*base: attempt gaps of ~30ms and ~60ms.
	gap1 := attemptTimes[1] - attemptTimes[0]
	gap2 := attemptTimes[2] - attemptTimes[1]
	assert.GreaterOrEqual(t, gap1, 25*time.Millisecond)
	assert.GreaterOrEqual(t, gap2, 55*time.Millisecond)
	assert.Less(t, gap2, 200*time.Millisecond)
}

func TestRetryDoesNotRetryPermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"extraction", &ExtractionError{Reason: "no json"}},
		{"validation", &ValidationError{Reason: "missing fields"}},
		{"configuration", &ConfigurationError{Reason: "no sheet"}},
		{"api_400", &APIError{Provider: "openai", Status: 400, Body: "bad request"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			_, err := Retry(context.Background(), RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond},
				func(ctx context.Context) (string, error) {
					calls++
					return "", tt.err
				})
			require.Error(t, err)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := Retry(ctx, RetryConfig{MaxAttempts: 5, BaseDelay: 10 * time.Second},
		func(ctx context.Context) (string, error) {
			calls++
			cancel()
			return "", transientErr("slow")
		})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryWrappedError(t *testing.T) {
	underlying := eris.Wrap(transientErr("down"), "perplexity: send request")
	_, err := Retry(context.Background(), RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond},
		func(ctx context.Context) (string, error) {
			return "", underlying
		})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")

	var ae *APIError
	assert.ErrorAs(t, err, &ae)
}
