package widget

import (
	"sort"
	"strings"
)

// InheritOptionsErrorMap flags the enabled inherit options of the given schema
// properties that cannot be applied: the bound variable is not in use on the
// dashboard, or its selection type differs from the widget property's.
func InheritOptionsErrorMap(schemaProperties []string, inherit InheritOptions, optionsSchema *OptionsSchema, varsSchema *VariablesSchema) OptionsErrorMap {
	errs := OptionsErrorMap{}
	if len(inherit) == 0 {
		return errs
	}
	for _, name := range schemaProperties {
		opt, ok := inherit[name]
		if !ok || !opt.Enabled || opt.VariableKey == "" {
			continue
		}
		variable, ok := lookupVariable(varsSchema, opt.VariableKey)
		if !ok || !variable.Use {
			errs[name] = true
			continue
		}
		var propertyType string
		if optionsSchema != nil {
			propertyType = optionsSchema.Properties[name].SelectionType
		}
		if variable.SelectionType != propertyType {
			errs[name] = true
		}
	}
	return errs
}

// InitialInheritOptions computes the inherit options a widget starts with on a
// dashboard. Stored bindings are kept while their variable stays available;
// missing bindings are derived from the property's inheritance mode.
func InitialInheritOptions(cfg Config, stored InheritOptions, varsSchema *VariablesSchema) InheritOptions {
	out := InheritOptions{}
	if cfg.OptionsSchema == nil {
		return out
	}
	for _, name := range cfg.SchemaPropertyNames() {
		prop := cfg.OptionsSchema.Properties[name]
		current, hasStored := stored[name]
		switch prop.InheritanceMode {
		case InheritanceNone:
			continue
		case InheritanceSelectionTypeMatching:
			if hasStored && !current.Enabled {
				out[name] = current
				continue
			}
			if hasStored && variableAvailable(varsSchema, current.VariableKey) {
				out[name] = current
				continue
			}
			if key, ok := variableBySelectionType(varsSchema, prop.SelectionType); ok {
				out[name] = InheritOption{Enabled: true, VariableKey: key}
			}
		default:
			key := propertyVariableKey(name, prop)
			if !variableAvailable(varsSchema, key) {
				continue
			}
			if hasStored {
				out[name] = current
				continue
			}
			out[name] = InheritOption{Enabled: true, VariableKey: key}
		}
	}
	return out
}

// InheritingOptionKeys returns the option keys bound to the given variable.
func InheritingOptionKeys(variableKey string, inherit InheritOptions) []string {
	var keys []string
	for _, key := range sortedInheritKeys(inherit) {
		if inherit[key].VariableKey == variableKey {
			keys = append(keys, key)
		}
	}
	return keys
}

func propertyVariableKey(name string, prop PropertySchema) string {
	if prop.Key != "" {
		return prop.Key
	}
	return strings.TrimPrefix(name, FilterOptionPrefix)
}

func lookupVariable(schema *VariablesSchema, key string) (VariableSchema, bool) {
	if schema == nil || key == "" {
		return VariableSchema{}, false
	}
	v, ok := schema.Properties[key]
	return v, ok
}

func variableAvailable(schema *VariablesSchema, key string) bool {
	v, ok := lookupVariable(schema, key)
	return ok && v.Use
}

func variableBySelectionType(schema *VariablesSchema, selectionType string) (string, bool) {
	if schema == nil {
		return "", false
	}
	for _, key := range schema.Keys() {
		v := schema.Properties[key]
		if v.Use && v.SelectionType == selectionType {
			return key, true
		}
	}
	return "", false
}

// Keys returns the variable keys in declared order followed by the
// undeclared ones sorted.
func (s *VariablesSchema) Keys() []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(s.Properties))
	keys := make([]string, 0, len(s.Properties))
	for _, key := range s.Order {
		if _, ok := s.Properties[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	rest := make([]string, 0)
	for key := range s.Properties {
		if _, ok := seen[key]; !ok {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}
