package widget

import (
	"sort"
	"strings"
)

// Refine computes the options a widget is rendered with.
//
// The declared options of cfg are overlaid with the stored widget options.
// When both inherit and vars are given, every enabled binding that is not
// flagged in errs pulls the current value of its dashboard variable on top:
// "filters.<key>" bindings become "=" filter clauses, any other binding
// replaces the option of the same name. Absent or empty variables are skipped.
//
// Filter clauses still keyed by their option key, as written by older
// widgets, are moved to the data field of that key.
func Refine(cfg Config, stored Options, inherit InheritOptions, vars DashboardVariables, errs OptionsErrorMap) Options {
	refined := MergeOptions(cfg.Options, stored, ReplaceArrays)
	if inherit != nil && vars != nil {
		refined = MergeOptions(refined, inheritedOptions(inherit, vars, errs), ReplaceArrays)
	}
	applyFilterDataKeys(refined)
	return refined
}

func applyFilterDataKeys(options Options) {
	filters, ok := FiltersFrom(options[FiltersKey])
	if !ok {
		return
	}
	filters = filters.Clone()
	for key, clauses := range filters {
		for i := range clauses {
			if clauses[i].K == key {
				clauses[i].K = FilterDataKey(key)
			}
		}
	}
	options[FiltersKey] = filters
}

func inheritedOptions(inherit InheritOptions, vars DashboardVariables, errs OptionsErrorMap) Options {
	filters := FiltersMap{}
	parent := Options{}
	for _, key := range sortedInheritKeys(inherit) {
		opt := inherit[key]
		if errs[key] {
			continue
		}
		if !opt.Enabled || opt.VariableKey == "" {
			continue
		}
		value, ok := vars[opt.VariableKey]
		if !ok || isEmptyValue(value) {
			continue
		}
		if !strings.HasPrefix(key, FilterOptionPrefix) {
			parent[key] = cloneValue(value)
			continue
		}
		filterKey := strings.TrimPrefix(key, FilterOptionPrefix)
		values, isList := asList(value)
		if !isList {
			values = []interface{}{value}
		}
		for _, v := range values {
			filters = SetFilter(filters, filterKey, cloneValue(v))
		}
	}
	parent[FiltersKey] = filters
	return parent
}

func sortedInheritKeys(inherit InheritOptions) []string {
	keys := make([]string, 0, len(inherit))
	for k := range inherit {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
