package embedder

import (
	"context"

	"github.com/pkg/errors"

	"github.com/bububa/docqa/components"
)

// ErrDimension is wrapped in the ProviderError returned when a provider
// answers with a vector of unexpected length.
var ErrDimension = errors.New("unexpected embedding dimension")

// Retrying wraps an Embedder so that every call goes through a RetryPolicy.
// When Dimension is positive, returned vectors are checked against it.
type Retrying struct {
	Embedder
	policy    *components.RetryPolicy
	dimension int
}

var _ Embedder = (*Retrying)(nil)

// NewRetrying wraps e with policy. A nil policy uses components.NewRetryPolicy defaults.
func NewRetrying(e Embedder, policy *components.RetryPolicy, dimension int) *Retrying {
	if policy == nil {
		policy = components.NewRetryPolicy(components.RetryWithProvider(e.Provider()))
	}
	if policy.Provider == "" {
		policy.Provider = e.Provider()
	}
	return &Retrying{
		Embedder:  e,
		policy:    policy,
		dimension: dimension,
	}
}

func (r *Retrying) Policy() *components.RetryPolicy {
	return r.policy
}

func (r *Retrying) Dimension() int {
	return r.dimension
}

func (r *Retrying) Embed(ctx context.Context, text string, usage *components.LLMUsage) ([]float32, error) {
	v, err := components.Retry(ctx, r.policy, func(ctx context.Context) ([]float32, error) {
		return r.Embedder.Embed(ctx, text, usage)
	})
	if err != nil {
		return nil, err
	}
	if err := r.check(v); err != nil {
		return nil, err
	}
	return v, nil
}

func (r *Retrying) BatchEmbed(ctx context.Context, parts []string, usage *components.LLMUsage) ([][]float32, error) {
	vs, err := components.Retry(ctx, r.policy, func(ctx context.Context) ([][]float32, error) {
		return r.Embedder.BatchEmbed(ctx, parts, usage)
	})
	if err != nil {
		return nil, err
	}
	for _, v := range vs {
		if err := r.check(v); err != nil {
			return nil, err
		}
	}
	return vs, nil
}

func (r *Retrying) check(v []float32) error {
	if r.dimension > 0 && len(v) != r.dimension {
		return components.NewProviderError(r.Provider(), errors.Wrapf(ErrDimension, "want %d, got %d", r.dimension, len(v)), false)
	}
	return nil
}
