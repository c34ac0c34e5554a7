package vectordb

import "go.uber.org/zap"

// OverwritePolicy decides what Put does with a key already stored in the index.
type OverwritePolicy int

const (
	// OverwriteReplace replaces the stored record, the record keeps its first insertion position
	OverwriteReplace OverwritePolicy = iota
	// OverwriteReject fails with ErrKeyExists and leaves the index unchanged
	OverwriteReject
)

func (p OverwritePolicy) String() string {
	switch p {
	case OverwriteReject:
		return "reject"
	default:
		return "replace"
	}
}

// ParseOverwritePolicy maps "replace" and "reject" to their policy.
func ParseOverwritePolicy(s string) (OverwritePolicy, bool) {
	switch s {
	case "", "replace":
		return OverwriteReplace, true
	case "reject":
		return OverwriteReject, true
	}
	return OverwriteReplace, false
}

// Options configures an Index. A Registry applies its options to every index it creates.
type Options struct {
	overwrite OverwritePolicy
	store     Store
	logger    *zap.Logger
	metrics   *Metrics
}

// Option is a function type for configuring Index instances.
// It follows the functional options pattern for clean and flexible configuration.
type Option func(*Options)

// WithOverwritePolicy sets the behaviour of Put on an existing key.
//
// Example:
//
//	idx := NewIndex("docs",
//	    WithOverwritePolicy(OverwriteReject), // keys are written once
//	)
func WithOverwritePolicy(p OverwritePolicy) Option {
	return func(o *Options) {
		o.overwrite = p
	}
}

// WithStore plugs a durability layer under the index.
// CreateIndex, Put and DropIndex write through to the store, Restore replays it.
func WithStore(s Store) Option {
	return func(o *Options) {
		o.store = s
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		o.logger = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(o *Options) {
		o.metrics = m
	}
}

func (o Options) OverwritePolicy() OverwritePolicy {
	return o.overwrite
}

func (o Options) Store() Store {
	return o.store
}
