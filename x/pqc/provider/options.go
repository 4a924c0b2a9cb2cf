package provider

import (
	"cosmossdk.io/log"

	"pqsig/x/pqc/types"
)

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger used for resolution and verification events.
func WithLogger(logger log.Logger) Option {
	return func(f *Factory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithParams replaces the factory params. They are validated by NewFactory.
func WithParams(params types.Params) Option {
	return func(f *Factory) {
		f.params = params
	}
}

// WithAllowedAlgorithms restricts resolution to the given parameter sets.
func WithAllowedAlgorithms(algs ...string) Option {
	return func(f *Factory) {
		f.params.AllowedAlgorithms = append([]string(nil), algs...)
	}
}

// WithCacheIdentity selects how adapter cache keys are derived.
func WithCacheIdentity(mode types.CacheIdentity) Option {
	return func(f *Factory) {
		f.params.CacheIdentity = mode
	}
}

// WithoutMetrics disables Prometheus observation.
func WithoutMetrics() Option {
	return func(f *Factory) {
		f.metrics = false
	}
}
