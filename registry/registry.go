// Package registry holds the widget and base config definitions and resolves
// a widget config together with all of its base configs into the effective
// config a widget is rendered from.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/timzifer/dashwidget/widget"
)

// ConfigID identifies a widget or base config.
type ConfigID string

func (id ConfigID) String() string { return string(id) }

// SourceBuiltin is reported by Registry.Source for compiled-in configs.
const SourceBuiltin = "builtin"

// Registry is an immutable set of config definitions keyed by ID.
type Registry struct {
	configs map[ConfigID]widget.Config
	sources map[ConfigID]string
}

// New creates a registry from the given configs. Every config needs a unique,
// non-empty ID.
func New(configs ...widget.Config) (*Registry, error) {
	r := &Registry{
		configs: make(map[ConfigID]widget.Config, len(configs)),
		sources: make(map[ConfigID]string, len(configs)),
	}
	for _, cfg := range configs {
		if err := r.add(cfg, ""); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(cfg widget.Config, source string) error {
	if cfg.ID == "" {
		if source != "" {
			return fmt.Errorf("%s: widget config id must not be empty", source)
		}
		return errors.New("widget config id must not be empty")
	}
	id := ConfigID(cfg.ID)
	if _, exists := r.configs[id]; exists {
		if prev := r.sources[id]; prev != "" && source != "" {
			return fmt.Errorf("widget config %s defined in %s and %s", id, prev, source)
		}
		return fmt.Errorf("widget config %s already registered", id)
	}
	r.configs[id] = cfg.Clone()
	if source != "" {
		r.sources[id] = source
	}
	return nil
}

// Lookup returns a copy of the raw, unresolved definition of id.
func (r *Registry) Lookup(id ConfigID) (widget.Config, bool) {
	if r == nil {
		return widget.Config{}, false
	}
	cfg, ok := r.configs[id]
	if !ok {
		return widget.Config{}, false
	}
	return cfg.Clone(), true
}

// Has reports whether id is defined.
func (r *Registry) Has(id ConfigID) bool {
	if r == nil {
		return false
	}
	_, ok := r.configs[id]
	return ok
}

// Len returns the number of definitions.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.configs)
}

// IDs returns all config IDs in sorted order.
func (r *Registry) IDs() []ConfigID {
	if r == nil {
		return nil
	}
	ids := make([]ConfigID, 0, len(r.configs))
	for id := range r.configs {
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// WidgetIDs returns the IDs of configs that can be placed on a dashboard,
// leaving out abstract base configs.
func (r *Registry) WidgetIDs() []ConfigID {
	if r == nil {
		return nil
	}
	ids := make([]ConfigID, 0, len(r.configs))
	for id, cfg := range r.configs {
		if cfg.Abstract {
			continue
		}
		ids = append(ids, id)
	}
	sortIDs(ids)
	return ids
}

// Source returns the file a config was loaded from, or SourceBuiltin.
func (r *Registry) Source(id ConfigID) string {
	if r == nil {
		return ""
	}
	if _, ok := r.configs[id]; !ok {
		return ""
	}
	if src := r.sources[id]; src != "" {
		return src
	}
	return SourceBuiltin
}

// SourceFiles returns the distinct files the registry was loaded from.
func (r *Registry) SourceFiles() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(r.sources))
	files := make([]string, 0, len(r.sources))
	for _, src := range r.sources {
		if _, ok := seen[src]; ok {
			continue
		}
		seen[src] = struct{}{}
		files = append(files, src)
	}
	sort.Strings(files)
	return files
}

// Layer flattens registries into one. Definitions of later registries replace
// those of earlier ones with the same ID. Nil registries are skipped.
func Layer(regs ...*Registry) *Registry {
	out := &Registry{
		configs: make(map[ConfigID]widget.Config),
		sources: make(map[ConfigID]string),
	}
	for _, reg := range regs {
		if reg == nil {
			continue
		}
		for id, cfg := range reg.configs {
			out.configs[id] = cfg
			if src, ok := reg.sources[id]; ok {
				out.sources[id] = src
			} else {
				delete(out.sources, id)
			}
		}
	}
	return out
}

func sortIDs(ids []ConfigID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
