// Package widget models dashboard widget configurations and turns them,
// together with the options stored per widget and the variables of the
// surrounding dashboard, into the option set a widget is rendered with.
package widget

import "sort"

// Scope restricts where a widget may be placed.
type Scope string

const (
	ScopeDomain    Scope = "DOMAIN"
	ScopeWorkspace Scope = "WORKSPACE"
	ScopeProject   Scope = "PROJECT"
)

// Size is a layout size class supported by a widget.
type Size string

const (
	SizeSmall  Size = "sm"
	SizeMedium Size = "md"
	SizeLarge  Size = "lg"
	SizeXLarge Size = "xl"
	SizeFull   Size = "full"
)

// FiltersKey is the reserved option key holding a FiltersMap.
const FiltersKey = "filters"

// FilterOptionPrefix marks inherit option keys that target a filter.
const FilterOptionPrefix = FiltersKey + "."

// OperatorEqual is the only operator produced by SetFilter.
const OperatorEqual = "="

// BaseConfigInfo references a configuration this one is derived from.
type BaseConfigInfo struct {
	ConfigID string `yaml:"config_id" json:"config_id"`
	Version  string `yaml:"version,omitempty" json:"version,omitempty"`
}

// Description carries catalogue metadata for a widget.
type Description struct {
	TranslationID string `yaml:"translation_id,omitempty" json:"translation_id,omitempty"`
	PreviewImage  string `yaml:"preview_image,omitempty" json:"preview_image,omitempty"`
}

// Theme controls whether a widget inherits the dashboard colour theme.
type Theme struct {
	Inherit      *bool `yaml:"inherit,omitempty" json:"inherit,omitempty"`
	InheritCount int   `yaml:"inherit_count,omitempty" json:"inherit_count,omitempty"`
}

// PropertySchema describes a single configurable widget option.
type PropertySchema struct {
	Key             string `yaml:"key,omitempty" json:"key,omitempty"`
	Name            string `yaml:"name,omitempty" json:"name,omitempty"`
	SelectionType   string `yaml:"selection_type,omitempty" json:"selection_type,omitempty"`
	InheritanceMode string `yaml:"inheritance_mode,omitempty" json:"inheritance_mode,omitempty"`
	Fixed           bool   `yaml:"fixed,omitempty" json:"fixed,omitempty"`
}

// Inheritance modes of a PropertySchema.
const (
	InheritanceNone                  = "NONE"
	InheritanceKeyMatching           = "KEY_MATCHING"
	InheritanceSelectionTypeMatching = "SELECTION_TYPE_MATCHING"
)

// OptionsSchema declares which options a widget exposes.
type OptionsSchema struct {
	DefaultProperties     []string                  `yaml:"default_properties,omitempty" json:"default_properties,omitempty"`
	InheritableProperties []string                  `yaml:"inheritable_properties,omitempty" json:"inheritable_properties,omitempty"`
	Properties            map[string]PropertySchema `yaml:"properties,omitempty" json:"properties,omitempty"`
	Order                 []string                  `yaml:"order,omitempty" json:"order,omitempty"`
}

// Config describes a widget kind, or a base configuration when Abstract is set.
type Config struct {
	ID            string           `yaml:"widget_config_id" json:"widget_config_id"`
	BaseConfigs   []BaseConfigInfo `yaml:"base_configs,omitempty" json:"base_configs,omitempty"`
	Abstract      bool             `yaml:"abstract,omitempty" json:"abstract,omitempty"`
	Title         string           `yaml:"title,omitempty" json:"title,omitempty"`
	Labels        []string         `yaml:"labels,omitempty" json:"labels,omitempty"`
	Description   *Description     `yaml:"description,omitempty" json:"description,omitempty"`
	Scopes        []Scope          `yaml:"scopes,omitempty" json:"scopes,omitempty"`
	Theme         *Theme           `yaml:"theme,omitempty" json:"theme,omitempty"`
	Sizes         []Size           `yaml:"sizes,omitempty" json:"sizes,omitempty"`
	Options       Options          `yaml:"options,omitempty" json:"options,omitempty"`
	OptionsSchema *OptionsSchema   `yaml:"options_schema,omitempty" json:"options_schema,omitempty"`
}

// Options maps option keys to JSON-shaped values.
type Options map[string]interface{}

// Filter is a single console filter clause.
type Filter struct {
	K string      `yaml:"k" json:"k" firestore:"k"`
	V interface{} `yaml:"v" json:"v" firestore:"v"`
	O string      `yaml:"o" json:"o" firestore:"o"`
}

// FiltersMap groups filter clauses by filter key.
type FiltersMap map[string][]Filter

// InheritOption binds a widget option to a dashboard variable.
type InheritOption struct {
	Enabled     bool   `yaml:"enabled,omitempty" json:"enabled,omitempty" firestore:"enabled,omitempty"`
	VariableKey string `yaml:"variable_key,omitempty" json:"variable_key,omitempty" firestore:"variable_key,omitempty"`
}

// InheritOptions maps option keys to their variable bindings.
type InheritOptions map[string]InheritOption

// DashboardVariables holds the current value of every dashboard variable.
type DashboardVariables map[string]interface{}

// VariableSchema describes a dashboard variable.
type VariableSchema struct {
	Name          string `yaml:"name,omitempty" json:"name,omitempty" firestore:"name,omitempty"`
	VariableType  string `yaml:"variable_type,omitempty" json:"variable_type,omitempty" firestore:"variable_type,omitempty"`
	Use           bool   `yaml:"use,omitempty" json:"use,omitempty" firestore:"use,omitempty"`
	SelectionType string `yaml:"selection_type,omitempty" json:"selection_type,omitempty" firestore:"selection_type,omitempty"`
}

// VariablesSchema describes all variables of a dashboard.
type VariablesSchema struct {
	Properties map[string]VariableSchema `yaml:"properties,omitempty" json:"properties,omitempty" firestore:"properties,omitempty"`
	Order      []string                  `yaml:"order,omitempty" json:"order,omitempty" firestore:"order,omitempty"`
}

// OptionsErrorMap flags inherit option keys that must not be applied.
type OptionsErrorMap map[string]bool

// SupportsSize reports whether the config declares the given size.
func (c Config) SupportsSize(size Size) bool {
	for _, s := range c.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// SchemaPropertyNames returns the declared option property names in schema order.
func (c Config) SchemaPropertyNames() []string {
	if c.OptionsSchema == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(c.OptionsSchema.Properties))
	names := make([]string, 0, len(c.OptionsSchema.Properties))
	for _, name := range c.OptionsSchema.Order {
		if _, ok := c.OptionsSchema.Properties[name]; !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	rest := make([]string, 0)
	for name := range c.OptionsSchema.Properties {
		if _, ok := seen[name]; !ok {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

// ErrorConfigID identifies the placeholder rendered for unresolvable widgets.
const ErrorConfigID = "Error"

// ErrorConfig returns the placeholder definition substituted when a widget
// references a configuration that cannot be resolved.
func ErrorConfig() Config {
	return Config{
		ID:     ErrorConfigID,
		Title:  "Error",
		Scopes: []Scope{ScopeDomain, ScopeWorkspace, ScopeProject},
		Sizes:  []Size{SizeMedium, SizeFull},
	}
}
