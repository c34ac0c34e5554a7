package anthropic

import (
	"context"
	"net/http"
	"strings"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bububa/docqa/components"
	"github.com/bububa/docqa/components/completer"
)

// DefaultModel is the model used when none is configured
const DefaultModel = string(anthropic.ModelClaude3Haiku20240307)

// Completer sends the prompt as a single user message to the Messages API.
type Completer struct {
	*anthropic.Client
	completer.Options
}

var _ completer.Completer = (*Completer)(nil)

func New(client *anthropic.Client, opts ...completer.Option) *Completer {
	return &Completer{
		Client:  client,
		Options: completer.NewOptions(DefaultModel, opts...),
	}
}

func (c *Completer) Provider() completer.Provider {
	return completer.ProviderAnthropic
}

func (c *Completer) Complete(ctx context.Context, prompt string, usage *components.LLMUsage, opts ...completer.Param) (string, error) {
	params := c.Params(opts...)
	c.Logger().Debug("calling messages API", zap.String("model", c.Model()), zap.Int("max_tokens", params.MaxTokens))
	temperature := params.Temperature
	topP := params.TopP
	resp, err := c.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(c.Model()),
		Messages:    []anthropic.Message{anthropic.NewUserTextMessage(prompt)},
		MaxTokens:   params.MaxTokens,
		Temperature: &temperature,
		TopP:        &topP,
	})
	if err != nil {
		return "", components.NewProviderError(c.Provider(), err, IsRateLimited(err))
	}
	if usage != nil {
		usage.InputTokens += int64(resp.Usage.InputTokens)
		usage.OutputTokens += int64(resp.Usage.OutputTokens)
	}
	return strings.TrimSpace(resp.GetFirstContentText()), nil
}

// IsRateLimited reports whether an anthropic client error is a rate limit rejection.
func IsRateLimited(err error) bool {
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRateLimitErr()
	}
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
