package completer

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bububa/docqa/components"
)

type fakeCompleter struct {
	Options
	rateLimits int
	calls      int
	got        Params
}

func (f *fakeCompleter) Provider() Provider { return "Fake" }

func (f *fakeCompleter) Complete(_ context.Context, prompt string, usage *components.LLMUsage, opts ...Param) (string, error) {
	f.calls++
	if f.calls <= f.rateLimits {
		return "", components.NewProviderError(f.Provider(), errors.New("slow down"), true)
	}
	f.got = f.Params(opts...)
	usage.Merge(&components.LLMUsage{InputTokens: 3, OutputTokens: 1})
	return "answer to " + prompt, nil
}

func TestParams(t *testing.T) {
	opts := NewOptions("model-a", WithParams(Params{MaxTokens: 64, TopP: 0.5}))
	assert.Equal(t, "model-a", opts.Model())
	assert.NotNil(t, opts.Logger())
	assert.Equal(t, Params{MaxTokens: 64, TopP: 0.5}, opts.Params())
	assert.Equal(t, Params{MaxTokens: 10, Temperature: 0.7, TopP: 0.5, FrequencyPenalty: 1, PresencePenalty: 2},
		opts.Params(WithMaxTokens(10), WithTemperature(0.7), WithFrequencyPenalty(1), WithPresencePenalty(2)))

	def := DefaultParams()
	assert.Equal(t, DefaultMaxTokens, def.MaxTokens)
	assert.Zero(t, def.Temperature)
	assert.EqualValues(t, 1, def.TopP)
}

func TestRetrying(t *testing.T) {
	fake := &fakeCompleter{Options: NewOptions("fake"), rateLimits: 2}
	policy := components.NewRetryPolicy(components.RetryWithBackoff(components.ConstantBackoff(0)))
	c := NewRetrying(fake, policy)
	usage := new(components.LLMUsage)
	got, err := c.Complete(context.Background(), "question", usage, WithTopP(0.9))
	require.NoError(t, err)
	assert.Equal(t, "answer to question", got)
	assert.Equal(t, 3, fake.calls)
	assert.EqualValues(t, 0.9, fake.got.TopP)
	assert.EqualValues(t, 4, usage.Total())
	assert.Equal(t, "Fake", policy.Provider)
}

func TestRetryingExhausted(t *testing.T) {
	fake := &fakeCompleter{Options: NewOptions("fake"), rateLimits: 100}
	c := NewRetrying(fake, components.NewRetryPolicy(
		components.RetryWithMaxAttempts(4),
		components.RetryWithBackoff(components.ConstantBackoff(0)),
	))
	_, err := c.Complete(context.Background(), "question", nil)
	assert.True(t, errors.Is(err, components.ErrRetryExhausted))
	assert.True(t, errors.Is(err, components.ErrProvider))
	assert.False(t, errors.Is(err, components.ErrRateLimited))
	assert.Equal(t, 4, fake.calls)
}
