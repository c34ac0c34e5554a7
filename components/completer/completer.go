package completer

import (
	"context"

	"go.uber.org/zap"

	"github.com/bububa/docqa/components"
)

type Provider = string

const (
	ProviderOpenAI    Provider = "OpenAI"
	ProviderAnthropic Provider = "Anthropic"
)

// DefaultMaxTokens is the completion budget used when none is configured
const DefaultMaxTokens = 1024

// Completer generates a continuation of a prompt. Implementations report
// failures as *components.ProviderError, with RateLimited set when the
// provider throttled the call.
type Completer interface {
	Provider() Provider
	Model() string
	Complete(ctx context.Context, prompt string, usage *components.LLMUsage, opts ...Param) (string, error)
}

// Params are the sampling parameters of a completion call.
type Params struct {
	MaxTokens        int
	Temperature      float32
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
}

// DefaultParams is a deterministic completion: temperature 0, top_p 1, no penalties.
func DefaultParams() Params {
	return Params{
		MaxTokens: DefaultMaxTokens,
		TopP:      1,
	}
}

// Param is a function type adjusting Params of a single call.
type Param func(*Params)

func WithMaxTokens(n int) Param {
	return func(p *Params) {
		p.MaxTokens = n
	}
}

func WithTemperature(t float32) Param {
	return func(p *Params) {
		p.Temperature = t
	}
}

func WithTopP(v float32) Param {
	return func(p *Params) {
		p.TopP = v
	}
}

func WithFrequencyPenalty(v float32) Param {
	return func(p *Params) {
		p.FrequencyPenalty = v
	}
}

func WithPresencePenalty(v float32) Param {
	return func(p *Params) {
		p.PresencePenalty = v
	}
}

// BuildParams applies opts over base.
func BuildParams(base Params, opts ...Param) Params {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

// Options holds the configuration shared by the provider backed completers.
type Options struct {
	model  string
	params Params
	logger *zap.Logger
}

// Option is a function type for configuring provider completers.
type Option func(*Options)

func WithModel(model string) Option {
	return func(o *Options) {
		o.model = model
	}
}

// WithParams sets the default sampling parameters of every call.
func WithParams(params Params) Option {
	return func(o *Options) {
		o.params = params
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.logger = l
	}
}

// NewOptions applies opts over the defaults.
func NewOptions(model string, opts ...Option) Options {
	o := Options{
		model:  model,
		params: DefaultParams(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o
}

func (o Options) Model() string {
	return o.model
}

func (o Options) Params(opts ...Param) Params {
	return BuildParams(o.params, opts...)
}

func (o Options) Logger() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}
