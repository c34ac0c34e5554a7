package components

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rateLimited() error {
	return NewProviderError("OpenAI", errors.New("429 Too Many Requests"), true)
}

func TestRetryPolicyDefaults(t *testing.T) {
	p := NewRetryPolicy()
	assert.Equal(t, DefaultRetryAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultRetryDelay, p.Backoff(1))
	assert.NotNil(t, p.Logger)
	assert.Zero(t, p.Retries())
}

func TestRetry(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		failures    int
		failure     func() error
		wantCalls   int
		wantRetries int64
		wantErr     []error
		notErr      []error
	}{
		{
			name:        "succeeds first time",
			maxAttempts: 3,
			wantCalls:   1,
		},
		{
			name:        "rate limited then succeeds",
			maxAttempts: 3,
			failures:    2,
			failure:     rateLimited,
			wantCalls:   3,
			wantRetries: 2,
		},
		{
			name:        "exhausted",
			maxAttempts: 3,
			failures:    5,
			failure:     rateLimited,
			wantCalls:   3,
			wantRetries: 2,
			wantErr:     []error{ErrProvider, ErrRetryExhausted},
			notErr:      []error{ErrRateLimited},
		},
		{
			name:        "other provider failure is not retried",
			maxAttempts: 3,
			failures:    1,
			failure: func() error {
				return NewProviderError("OpenAI", errors.New("invalid api key"), false)
			},
			wantCalls: 1,
			wantErr:   []error{ErrProvider},
			notErr:    []error{ErrRateLimited, ErrRetryExhausted},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRetryPolicy(
				RetryWithProvider("OpenAI"),
				RetryWithMaxAttempts(tt.maxAttempts),
				RetryWithBackoff(ConstantBackoff(0)),
			)
			var calls int
			got, err := Retry(context.Background(), p, func(context.Context) (int, error) {
				calls++
				if calls <= tt.failures {
					return 0, tt.failure()
				}
				return 42, nil
			})
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantRetries, p.Retries())
			if len(tt.wantErr) == 0 {
				require.NoError(t, err)
				assert.Equal(t, 42, got)
				return
			}
			require.Error(t, err)
			for _, target := range tt.wantErr {
				assert.True(t, errors.Is(err, target), "expecting %v", target)
			}
			for _, target := range tt.notErr {
				assert.False(t, errors.Is(err, target), "not expecting %v", target)
			}
		})
	}
}

func TestRetryHonoursContext(t *testing.T) {
	p := NewRetryPolicy(
		RetryWithMaxAttempts(10),
		RetryWithBackoff(ConstantBackoff(time.Hour)),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := p.Do(ctx, func(context.Context) error {
		return rateLimited()
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), time.Minute)
}

func TestRetryMinimumOneAttempt(t *testing.T) {
	p := NewRetryPolicy(RetryWithMaxAttempts(0), RetryWithBackoff(nil))
	var calls int
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return rateLimited()
	})
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, ErrRetryExhausted))
}
