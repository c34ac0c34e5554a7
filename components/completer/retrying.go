package completer

import (
	"context"

	"github.com/bububa/docqa/components"
)

// Retrying wraps a Completer so that every call goes through a RetryPolicy.
type Retrying struct {
	Completer
	policy *components.RetryPolicy
}

var _ Completer = (*Retrying)(nil)

// NewRetrying wraps c with policy. A nil policy uses components.NewRetryPolicy defaults.
func NewRetrying(c Completer, policy *components.RetryPolicy) *Retrying {
	if policy == nil {
		policy = components.NewRetryPolicy(components.RetryWithProvider(c.Provider()))
	}
	if policy.Provider == "" {
		policy.Provider = c.Provider()
	}
	return &Retrying{
		Completer: c,
		policy:    policy,
	}
}

func (r *Retrying) Complete(ctx context.Context, prompt string, usage *components.LLMUsage, opts ...Param) (string, error) {
	return components.Retry(ctx, r.policy, func(ctx context.Context) (string, error) {
		return r.Completer.Complete(ctx, prompt, usage, opts...)
	})
}
