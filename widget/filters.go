package widget

import (
	"sort"
	"strings"
)

var filterDataKeys = map[string]string{
	"project":            "project_id",
	"project_group":      "project_group_id",
	"service_account":    "service_account_id",
	"region":             "region_code",
	"cloud_service_type": "cloud_service_type_id",
	"user":               "user_id",
}

// FilterDataKey returns the data field a filter key is queried with.
func FilterDataKey(key string) string {
	if dataKey, ok := filterDataKeys[key]; ok {
		return dataKey
	}
	return key
}

// Clone returns a deep copy of the filters map.
func (m FiltersMap) Clone() FiltersMap {
	if m == nil {
		return nil
	}
	out := make(FiltersMap, len(m))
	for k, clauses := range m {
		out[k] = cloneFilters(clauses)
	}
	return out
}

func cloneFilters(clauses []Filter) []Filter {
	if clauses == nil {
		return nil
	}
	out := make([]Filter, len(clauses))
	for i, clause := range clauses {
		out[i] = Filter{K: clause.K, V: cloneValue(clause.V), O: clause.O}
	}
	return out
}

// Keys returns the filter keys in sorted order.
func (m FiltersMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetFilter adds value to the "=" clause of key and returns the updated map.
// The input map is left untouched.
//
// A clause whose value is a scalar is replaced by a single-element list
// holding only the new value; the previous scalar is dropped.
func SetFilter(m FiltersMap, key string, value interface{}) FiltersMap {
	out := m.Clone()
	if out == nil {
		out = make(FiltersMap)
	}
	addFilterValue(out, key, key, value, OperatorEqual)
	return out
}

// addFilterValue mutates m in place.
func addFilterValue(m FiltersMap, key, k string, value interface{}, op string) {
	clauses := m[key]
	for i := range clauses {
		if clauses[i].O != op {
			continue
		}
		values, ok := asList(clauses[i].V)
		if !ok {
			clauses[i].V = []interface{}{value}
			return
		}
		for _, existing := range values {
			if ValuesEqual(existing, value) {
				return
			}
		}
		clauses[i].V = append(append(make([]interface{}, 0, len(values)+1), values...), value)
		return
	}
	m[key] = append(clauses, Filter{K: k, V: []interface{}{value}, O: op})
}

// MergeFilters folds every clause of overlay into base with SetFilter
// semantics, generalised to the clause operator. Neither input is modified.
func MergeFilters(base, overlay FiltersMap) FiltersMap {
	out := base.Clone()
	if out == nil {
		out = make(FiltersMap, len(overlay))
	}
	for _, key := range overlay.Keys() {
		for _, clause := range overlay[key] {
			op := clause.O
			if op == "" {
				op = OperatorEqual
			}
			k := clause.K
			if k == "" {
				k = key
			}
			values, ok := asList(clause.V)
			if !ok {
				values = []interface{}{clause.V}
			}
			if len(values) == 0 {
				if !hasOperator(out[key], op) {
					out[key] = append(out[key], Filter{K: k, V: []interface{}{}, O: op})
				}
				continue
			}
			for _, v := range values {
				addFilterValue(out, key, k, cloneValue(v), op)
			}
		}
	}
	return out
}

func hasOperator(clauses []Filter, op string) bool {
	for _, clause := range clauses {
		if clause.O == op {
			return true
		}
	}
	return false
}

// FiltersFrom converts a decoded filters value into a FiltersMap. Values
// coming back from JSON, YAML or Firestore arrive as generic maps and lists.
func FiltersFrom(v interface{}) (FiltersMap, bool) {
	switch m := v.(type) {
	case FiltersMap:
		return m, true
	case map[string][]Filter:
		return FiltersMap(m), true
	case nil:
		return nil, false
	}
	raw, ok := asMap(v)
	if !ok {
		return nil, false
	}
	out := make(FiltersMap, len(raw))
	for key, item := range raw {
		if clauses, ok := item.([]Filter); ok {
			out[key] = clauses
			continue
		}
		list, ok := asList(item)
		if !ok {
			return nil, false
		}
		clauses := make([]Filter, 0, len(list))
		for _, entry := range list {
			switch e := entry.(type) {
			case Filter:
				clauses = append(clauses, e)
			default:
				fields, ok := asMap(entry)
				if !ok {
					return nil, false
				}
				clause := Filter{V: fields["v"]}
				clause.K, _ = fields["k"].(string)
				clause.O, _ = fields["o"].(string)
				clauses = append(clauses, clause)
			}
		}
		out[key] = clauses
	}
	return out, true
}

// ConsoleFilters flattens a filters map into a clause list ordered by key.
func ConsoleFilters(m FiltersMap) []Filter {
	out := make([]Filter, 0, len(m))
	for _, key := range m.Keys() {
		out = append(out, cloneFilters(m[key])...)
	}
	return out
}

// BudgetConsoleFilters converts widget filters into budget query filters.
// Project filters are used as is; every other clause is rewritten to the
// matching cost_types field and also matches budgets without that field.
func BudgetConsoleFilters(m FiltersMap) []Filter {
	out := make([]Filter, 0, len(m))
	for _, key := range m.Keys() {
		clauses := m[key]
		if len(clauses) == 0 {
			continue
		}
		if key == "project" || key == "project_group" {
			out = append(out, cloneFilters(clauses)...)
			continue
		}
		for _, clause := range clauses {
			values, ok := asList(clause.V)
			if !ok {
				values = []interface{}{clause.V}
			}
			v := make([]interface{}, 0, len(values)+1)
			v = append(v, nil)
			v = append(v, values...)
			k := clause.K
			if k == "" {
				k = key
			}
			if !strings.HasPrefix(k, "cost_types.") {
				k = "cost_types." + k
			}
			out = append(out, Filter{K: k, V: v, O: clause.O})
		}
	}
	return out
}
