package openai

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/bububa/docqa/components"
	"github.com/bububa/docqa/components/completer"
)

// DefaultModel is the completion model used when none is configured
const DefaultModel = openai.GPT3Dot5TurboInstruct

// Completer calls the OpenAI legacy completions endpoint.
type Completer struct {
	*openai.Client
	completer.Options
}

var _ completer.Completer = (*Completer)(nil)

func New(client *openai.Client, opts ...completer.Option) *Completer {
	return &Completer{
		Client:  client,
		Options: completer.NewOptions(DefaultModel, opts...),
	}
}

func (c *Completer) Provider() completer.Provider {
	return completer.ProviderOpenAI
}

func (c *Completer) Complete(ctx context.Context, prompt string, usage *components.LLMUsage, opts ...completer.Param) (string, error) {
	params := c.Params(opts...)
	c.Logger().Debug("calling completion API", zap.String("model", c.Model()), zap.Int("max_tokens", params.MaxTokens))
	resp, err := c.CreateCompletion(ctx, openai.CompletionRequest{
		Model:            c.Model(),
		Prompt:           prompt,
		MaxTokens:        params.MaxTokens,
		Temperature:      params.Temperature,
		TopP:             params.TopP,
		FrequencyPenalty: params.FrequencyPenalty,
		PresencePenalty:  params.PresencePenalty,
	})
	if err != nil {
		return "", components.NewProviderError(c.Provider(), err, IsRateLimited(err))
	}
	if usage != nil {
		usage.InputTokens += int64(resp.Usage.PromptTokens)
		usage.OutputTokens += int64(resp.Usage.CompletionTokens)
	}
	if len(resp.Choices) == 0 {
		return "", components.NewProviderError(c.Provider(), errors.New("empty completion response"), false)
	}
	return strings.TrimSpace(resp.Choices[0].Text), nil
}

// IsRateLimited reports whether an openai client error is a 429 answer.
func IsRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
