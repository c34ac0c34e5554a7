package components

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrProvider is matched by every failure returned from an embedding or completion provider.
	ErrProvider = errors.New("provider error")
	// ErrRateLimited marks a provider failure caused by rate limiting. It is the only retryable provider failure.
	ErrRateLimited = errors.New("rate limited")
	// ErrRetryExhausted is matched once a RetryPolicy gave up on a rate limited call.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)

// ProviderError wraps an error returned by an external provider SDK.
type ProviderError struct {
	// Provider is the name of the provider which failed, e.g. "OpenAI"
	Provider string
	// RateLimited reports whether the provider rejected the call because of rate limiting
	RateLimited bool
	// Err is the underlying SDK error
	Err error
}

var _ error = (*ProviderError)(nil)

// NewProviderError wraps err as a ProviderError, nil stays nil.
func NewProviderError(provider string, err error, rateLimited bool) error {
	if err == nil {
		return nil
	}
	return &ProviderError{
		Provider:    provider,
		RateLimited: rateLimited,
		Err:         err,
	}
}

func (e *ProviderError) Error() string {
	if e.RateLimited {
		return fmt.Sprintf("%s: %s: %v", e.Provider, ErrRateLimited, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes ProviderError match ErrProvider, and ErrRateLimited when RateLimited is set.
func (e *ProviderError) Is(target error) bool {
	switch target {
	case ErrProvider:
		return true
	case ErrRateLimited:
		return e.RateLimited
	}
	return false
}

// IsRateLimited reports whether err is a retryable rate limit failure.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
