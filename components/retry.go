package components

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	// DefaultRetryAttempts is the number of calls made before a rate limited call is given up
	DefaultRetryAttempts = 10
	// DefaultRetryDelay is the fixed wait between two rate limited calls
	DefaultRetryDelay = 10 * time.Second
)

// BackoffFunc returns the wait before the next attempt, attempt starts at 1.
type BackoffFunc func(attempt int) time.Duration

// ConstantBackoff waits the same delay between every attempt.
func ConstantBackoff(delay time.Duration) BackoffFunc {
	return func(int) time.Duration {
		return delay
	}
}

// RetryPolicy retries a single provider call while it fails with ErrRateLimited.
// Any other failure is returned immediately.
type RetryPolicy struct {
	// Provider names the wrapped provider in escalated errors and logs
	Provider string
	// MaxAttempts is the total number of calls, including the first one
	MaxAttempts int
	// Backoff computes the wait between attempts
	Backoff BackoffFunc
	// Logger receives a warning for every rate limited attempt
	Logger *zap.Logger

	retries *atomic.Int64
}

// RetryOption is a function type for configuring RetryPolicy instances.
type RetryOption func(*RetryPolicy)

func RetryWithMaxAttempts(n int) RetryOption {
	return func(p *RetryPolicy) {
		p.MaxAttempts = n
	}
}

func RetryWithBackoff(fn BackoffFunc) RetryOption {
	return func(p *RetryPolicy) {
		p.Backoff = fn
	}
}

func RetryWithLogger(l *zap.Logger) RetryOption {
	return func(p *RetryPolicy) {
		p.Logger = l
	}
}

func RetryWithProvider(provider string) RetryOption {
	return func(p *RetryPolicy) {
		p.Provider = provider
	}
}

// NewRetryPolicy creates a RetryPolicy, 10 attempts 10 seconds apart by default.
func NewRetryPolicy(opts ...RetryOption) *RetryPolicy {
	p := &RetryPolicy{
		MaxAttempts: DefaultRetryAttempts,
		Backoff:     ConstantBackoff(DefaultRetryDelay),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Backoff == nil {
		p.Backoff = ConstantBackoff(0)
	}
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	p.retries = atomic.NewInt64(0)
	return p
}

// Retries returns how many times the policy has retried since it was created.
func (p *RetryPolicy) Retries() int64 {
	if p.retries == nil {
		return 0
	}
	return p.retries.Load()
}

// Do calls fn until it succeeds, fails with a non rate limit error, or MaxAttempts is reached.
func (p *RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	_, err := Retry(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Retry is the generic form of RetryPolicy.Do returning the value produced by fn.
func Retry[T any](ctx context.Context, p *RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero T
		last error
	)
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	attempts := max(p.MaxAttempts, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		ret, err := fn(ctx)
		if err == nil {
			return ret, nil
		}
		if !IsRateLimited(err) {
			return zero, err
		}
		last = err
		if attempt == attempts {
			break
		}
		wait := time.Duration(0)
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		logger.Warn("hit rate limiter, retrying",
			zap.String("provider", p.Provider),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		if p.retries != nil {
			p.retries.Inc()
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
	return zero, &ProviderError{
		Provider: p.Provider,
		Err:      errors.Wrapf(ErrRetryExhausted, "after %d attempts: %v", attempts, last),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
