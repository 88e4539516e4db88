// Package config carries the small set of knobs the cache and trace
// enrichments need. A library with no daemon of its own has no business
// reading environment variables for itself, so this is a plain struct
// built with functional options rather than a global/viper-style loader
// (SPEC_FULL.md §4.8); only cmd/isaacmap assembles one from flags/env.
package config

import "symcore/internal/dtype"

// MapperConfig bundles the mapping pass's tunables.
type MapperConfig struct {
	DefaultType  dtype.Type
	ReuseArrayID bool
	CacheDSN     string
	TraceAddr    string
}

// Option mutates a MapperConfig during construction.
type Option func(*MapperConfig)

// New builds a MapperConfig with the library's defaults (double
// precision, array id reuse enabled, no cache, no trace) and applies
// opts in order.
func New(opts ...Option) MapperConfig {
	c := MapperConfig{
		DefaultType:  dtype.Float64,
		ReuseArrayID: true,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithDefaultType sets MapperConfig.DefaultType. No code in this module
// reads that field: mapper.Build falls back to the expression's own
// DType when it cannot infer a node's type.
func WithDefaultType(t dtype.Type) Option {
	return func(c *MapperConfig) { c.DefaultType = t }
}

// WithReuseArrayID sets MapperConfig.ReuseArrayID. No code in this module
// reads that field: binder.Binder always hands out the same id to an
// array read multiple times within one mapping pass.
func WithReuseArrayID(reuse bool) Option {
	return func(c *MapperConfig) { c.ReuseArrayID = reuse }
}

// WithCacheDSN enables the kernel-source cache against the given
// database/sql DSN (e.g. "sqlite3://./kernels.db"; see cache.Open for
// which drivers the cache's SQL runs on). Empty disables caching.
func WithCacheDSN(dsn string) Option {
	return func(c *MapperConfig) { c.CacheDSN = dsn }
}

// WithTrace enables the mapping trace websocket server on addr. Empty
// disables tracing.
func WithTrace(addr string) Option {
	return func(c *MapperConfig) { c.TraceAddr = addr }
}
