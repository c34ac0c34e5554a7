package embedder

import "go.uber.org/zap"

// Options holds the configuration shared by the provider backed embedders.
type Options struct {
	// provider names the embedding service (e.g., "OpenAI", "Cohere")
	provider Provider
	// model is the provider model name
	model string
	// logger receives a debug entry per provider call
	logger *zap.Logger
}

// Option is a function type for configuring provider embedders.
// It follows the functional options pattern for clean and flexible configuration.
type Option func(*Options)

func WithProvider(provider Provider) Option {
	return func(o *Options) {
		o.provider = provider
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.model = model
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.logger = l
	}
}

func (o Options) Provider() Provider {
	return o.provider
}

func (o Options) Model() string {
	return o.model
}

// Logger never returns nil.
func (o Options) Logger() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}
