package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/timzifer/dashwidget/telemetry"
	"github.com/timzifer/dashwidget/widget"
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger.With().Str("component", "resolver").Logger()
	}
}

// WithCollector sets the telemetry collector.
func WithCollector(collector telemetry.Collector) Option {
	return func(r *Resolver) {
		if collector != nil {
			r.telemetry = collector
		}
	}
}

// WithArrayCombiner replaces the combiner used for list-valued options.
func WithArrayCombiner(combine widget.ArrayCombiner) Option {
	return func(r *Resolver) {
		if combine != nil {
			r.combine = combine
		}
	}
}

// Resolver computes effective widget configs from a registry and memoizes
// every config it resolves, base configs included.
type Resolver struct {
	mu         sync.RWMutex
	reg        *Registry
	cache      map[ConfigID]widget.Config
	generation uint64

	group     singleflight.Group
	combine   widget.ArrayCombiner
	logger    zerolog.Logger
	telemetry telemetry.Collector
}

// NewResolver creates a resolver for reg.
func NewResolver(reg *Registry, opts ...Option) *Resolver {
	r := &Resolver{
		reg:       reg,
		cache:     make(map[ConfigID]widget.Config),
		combine:   widget.UnionArrays,
		logger:    zerolog.Nop(),
		telemetry: telemetry.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	r.reportRegistrySize(reg)
	return r
}

// Registry returns the registry currently used for resolution.
func (r *Resolver) Registry() *Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.reg
}

// SetRegistry swaps the registry and drops every memoized result.
func (r *Resolver) SetRegistry(reg *Registry) {
	r.mu.Lock()
	r.reg = reg
	r.cache = make(map[ConfigID]widget.Config)
	r.generation++
	r.mu.Unlock()
	r.reportRegistrySize(reg)
	r.logger.Info().Int("configs", reg.Len()).Msg("registry replaced")
}

// Clear drops every memoized result.
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.cache = make(map[ConfigID]widget.Config)
	r.generation++
	r.mu.Unlock()
}

// Resolve returns the effective config of id: its base configs resolved
// depth-first, merged left to right, with the config's own fields on top.
func (r *Resolver) Resolve(id ConfigID) (widget.Config, error) {
	r.mu.RLock()
	cfg, ok := r.cache[id]
	reg, gen := r.reg, r.generation
	r.mu.RUnlock()
	if ok {
		r.telemetry.IncResolution(telemetry.ResultHit)
		return cfg.Clone(), nil
	}

	key := fmt.Sprintf("%d/%s", gen, id)
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		return r.resolve(reg, gen, id, nil)
	})
	if err != nil {
		r.recordFailure(id, err)
		return widget.Config{}, err
	}
	r.telemetry.IncResolution(telemetry.ResultResolved)
	return v.(widget.Config).Clone(), nil
}

// ResolveAll resolves every widget config of the current registry. Failures
// are collected instead of stopping at the first one.
func (r *Resolver) ResolveAll() (map[ConfigID]widget.Config, error) {
	reg := r.Registry()
	out := make(map[ConfigID]widget.Config)
	var errs []error
	for _, id := range reg.WidgetIDs() {
		cfg, err := r.Resolve(id)
		if err != nil {
			errs = append(errs, fmt.Errorf("resolve %s: %w", id, err))
			continue
		}
		out[id] = cfg
	}
	return out, errors.Join(errs...)
}

func (r *Resolver) resolve(reg *Registry, gen uint64, id ConfigID, chain []ConfigID) (widget.Config, error) {
	for _, seen := range chain {
		if seen == id {
			return widget.Config{}, &CyclicConfigError{Chain: appendChain(chain, id)}
		}
	}
	if cfg, ok := r.cached(gen, id); ok {
		return cfg, nil
	}
	own, ok := reg.Lookup(id)
	if !ok {
		return widget.Config{}, &ConfigNotFoundError{ID: id, Chain: append([]ConfigID(nil), chain...)}
	}
	if len(own.BaseConfigs) == 0 {
		r.store(gen, id, own)
		return own, nil
	}

	next := appendChain(chain, id)
	var merged widget.Config
	for _, base := range own.BaseConfigs {
		resolved, err := r.resolve(reg, gen, ConfigID(base.ConfigID), next)
		if err != nil {
			return widget.Config{}, err
		}
		merged = widget.MergeConfig(merged, resolved, r.combine)
	}
	effective := widget.MergeConfig(merged, own, r.combine)
	effective.ID = own.ID
	effective.Abstract = own.Abstract

	r.logger.Debug().Str("config", string(id)).Int("bases", len(own.BaseConfigs)).Msg("config resolved")
	r.store(gen, id, effective)
	return effective, nil
}

func (r *Resolver) cached(gen uint64, id ConfigID) (widget.Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if gen != r.generation {
		return widget.Config{}, false
	}
	cfg, ok := r.cache[id]
	if !ok {
		return widget.Config{}, false
	}
	return cfg.Clone(), true
}

// store skips results computed against a registry that has since been replaced.
func (r *Resolver) store(gen uint64, id ConfigID, cfg widget.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		return
	}
	r.cache[id] = cfg.Clone()
}

func (r *Resolver) recordFailure(id ConfigID, err error) {
	var notFound *ConfigNotFoundError
	var cycle *CyclicConfigError
	switch {
	case errors.As(err, &notFound):
		r.telemetry.IncResolution(telemetry.ResultNotFound)
	case errors.As(err, &cycle):
		r.telemetry.IncResolution(telemetry.ResultCycle)
	}
	r.logger.Warn().Err(err).Str("config", string(id)).Msg("config resolution failed")
}

func (r *Resolver) reportRegistrySize(reg *Registry) {
	widgets := len(reg.WidgetIDs())
	r.telemetry.SetRegistrySize("widget", widgets)
	r.telemetry.SetRegistrySize("base", reg.Len()-widgets)
}

func appendChain(chain []ConfigID, id ConfigID) []ConfigID {
	out := make([]ConfigID, 0, len(chain)+1)
	out = append(out, chain...)
	return append(out, id)
}
