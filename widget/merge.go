package widget

import "reflect"

// ArrayCombiner decides how two list values are combined during a merge.
type ArrayCombiner func(dst, src []interface{}) []interface{}

// UnionArrays keeps every distinct element in first-seen order.
func UnionArrays(dst, src []interface{}) []interface{} {
	out := make([]interface{}, 0, len(dst)+len(src))
	add := func(item interface{}) {
		for _, existing := range out {
			if ValuesEqual(existing, item) {
				return
			}
		}
		out = append(out, cloneValue(item))
	}
	for _, item := range dst {
		add(item)
	}
	for _, item := range src {
		add(item)
	}
	return out
}

// ReplaceArrays lets the source list win.
func ReplaceArrays(_, src []interface{}) []interface{} {
	out := make([]interface{}, len(src))
	for i, item := range src {
		out[i] = cloneValue(item)
	}
	return out
}

// MergeOptions merges src on top of dst and returns a new map. Scalars from
// src win, nested maps are merged recursively and lists are combined with
// combine. The filters entry is merged clause by clause, see MergeFilters.
func MergeOptions(dst, src Options, combine ArrayCombiner) Options {
	if combine == nil {
		combine = ReplaceArrays
	}
	out := dst.Clone()
	if out == nil {
		out = make(Options, len(src))
	}
	for key, value := range src {
		if key == FiltersKey {
			if merged, ok := mergeFiltersValue(out[key], value); ok {
				out[key] = merged
				continue
			}
		}
		existing, ok := out[key]
		if !ok {
			out[key] = normalizeValue(key, value)
			continue
		}
		out[key] = mergeValue(existing, value, combine)
	}
	return out
}

func mergeFiltersValue(dst, src interface{}) (FiltersMap, bool) {
	overlay, ok := FiltersFrom(src)
	if !ok {
		return nil, false
	}
	if dst == nil {
		return overlay.Clone(), true
	}
	base, ok := FiltersFrom(dst)
	if !ok {
		return nil, false
	}
	if reflect.DeepEqual(base, overlay) {
		return base.Clone(), true
	}
	return MergeFilters(base, overlay), true
}

func normalizeValue(key string, value interface{}) interface{} {
	if key == FiltersKey {
		if filters, ok := FiltersFrom(value); ok {
			return filters.Clone()
		}
	}
	return cloneValue(value)
}

func mergeValue(dst, src interface{}, combine ArrayCombiner) interface{} {
	if dm, ok := asMap(dst); ok {
		if sm, ok := asMap(src); ok {
			out := make(map[string]interface{}, len(dm)+len(sm))
			for k, v := range dm {
				out[k] = cloneValue(v)
			}
			for k, v := range sm {
				if existing, ok := out[k]; ok {
					out[k] = mergeValue(existing, v, combine)
					continue
				}
				out[k] = cloneValue(v)
			}
			return out
		}
	}
	if dl, ok := asList(dst); ok {
		if sl, ok := asList(src); ok {
			return combine(dl, sl)
		}
	}
	return cloneValue(src)
}

// MergeConfig layers src on top of dst. Non-empty scalars of src win, list
// fields are unioned and options are merged with combine.
func MergeConfig(dst, src Config, combine ArrayCombiner) Config {
	out := dst.Clone()
	if src.ID != "" {
		out.ID = src.ID
	}
	out.BaseConfigs = unionBaseConfigs(out.BaseConfigs, src.BaseConfigs)
	if src.Title != "" {
		out.Title = src.Title
	}
	out.Labels = unionStrings(out.Labels, src.Labels)
	if src.Description != nil {
		desc := Description{}
		if out.Description != nil {
			desc = *out.Description
		}
		if src.Description.TranslationID != "" {
			desc.TranslationID = src.Description.TranslationID
		}
		if src.Description.PreviewImage != "" {
			desc.PreviewImage = src.Description.PreviewImage
		}
		out.Description = &desc
	}
	out.Scopes = unionScopes(out.Scopes, src.Scopes)
	if src.Theme != nil {
		theme := Theme{}
		if out.Theme != nil {
			theme = *out.Theme
		}
		if src.Theme.Inherit != nil {
			inherit := *src.Theme.Inherit
			theme.Inherit = &inherit
		}
		if src.Theme.InheritCount != 0 {
			theme.InheritCount = src.Theme.InheritCount
		}
		out.Theme = &theme
	}
	out.Sizes = unionSizes(out.Sizes, src.Sizes)
	if src.Options != nil {
		out.Options = MergeOptions(out.Options, src.Options, combine)
	}
	if src.OptionsSchema != nil {
		out.OptionsSchema = mergeOptionsSchema(out.OptionsSchema, src.OptionsSchema)
	}
	return out
}

func mergeOptionsSchema(dst, src *OptionsSchema) *OptionsSchema {
	out := &OptionsSchema{}
	if dst != nil {
		out = dst.Clone()
	}
	out.DefaultProperties = unionStrings(out.DefaultProperties, src.DefaultProperties)
	out.InheritableProperties = unionStrings(out.InheritableProperties, src.InheritableProperties)
	out.Order = unionStrings(out.Order, src.Order)
	if len(src.Properties) > 0 && out.Properties == nil {
		out.Properties = make(map[string]PropertySchema, len(src.Properties))
	}
	for name, prop := range src.Properties {
		merged := out.Properties[name]
		if prop.Key != "" {
			merged.Key = prop.Key
		}
		if prop.Name != "" {
			merged.Name = prop.Name
		}
		if prop.SelectionType != "" {
			merged.SelectionType = prop.SelectionType
		}
		if prop.InheritanceMode != "" {
			merged.InheritanceMode = prop.InheritanceMode
		}
		if prop.Fixed {
			merged.Fixed = true
		}
		out.Properties[name] = merged
	}
	return out
}

func unionStrings(dst, src []string) []string {
	if len(src) == 0 {
		return append([]string(nil), dst...)
	}
	seen := make(map[string]struct{}, len(dst)+len(src))
	out := make([]string, 0, len(dst)+len(src))
	for _, list := range [][]string{dst, src} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func unionScopes(dst, src []Scope) []Scope {
	if len(src) == 0 {
		return append([]Scope(nil), dst...)
	}
	out := append([]Scope(nil), dst...)
	for _, s := range src {
		found := false
		for _, existing := range out {
			if existing == s {
				found = true
				break
			}
		}
		if !found {
			out = append(out, s)
		}
	}
	return out
}

func unionSizes(dst, src []Size) []Size {
	if len(src) == 0 {
		return append([]Size(nil), dst...)
	}
	out := append([]Size(nil), dst...)
	for _, s := range src {
		found := false
		for _, existing := range out {
			if existing == s {
				found = true
				break
			}
		}
		if !found {
			out = append(out, s)
		}
	}
	return out
}

func unionBaseConfigs(dst, src []BaseConfigInfo) []BaseConfigInfo {
	if len(src) == 0 {
		return append([]BaseConfigInfo(nil), dst...)
	}
	out := append([]BaseConfigInfo(nil), dst...)
	for _, info := range src {
		found := false
		for _, existing := range out {
			if existing == info {
				found = true
				break
			}
		}
		if !found {
			out = append(out, info)
		}
	}
	return out
}

// Clone returns a deep copy of the config.
func (c Config) Clone() Config {
	out := c
	out.BaseConfigs = append([]BaseConfigInfo(nil), c.BaseConfigs...)
	out.Labels = append([]string(nil), c.Labels...)
	out.Scopes = append([]Scope(nil), c.Scopes...)
	out.Sizes = append([]Size(nil), c.Sizes...)
	if c.Description != nil {
		desc := *c.Description
		out.Description = &desc
	}
	if c.Theme != nil {
		theme := *c.Theme
		if c.Theme.Inherit != nil {
			inherit := *c.Theme.Inherit
			theme.Inherit = &inherit
		}
		out.Theme = &theme
	}
	out.Options = c.Options.Clone()
	if c.OptionsSchema != nil {
		out.OptionsSchema = c.OptionsSchema.Clone()
	}
	if len(c.BaseConfigs) == 0 {
		out.BaseConfigs = nil
	}
	if len(c.Labels) == 0 {
		out.Labels = nil
	}
	if len(c.Scopes) == 0 {
		out.Scopes = nil
	}
	if len(c.Sizes) == 0 {
		out.Sizes = nil
	}
	return out
}

// Clone returns a deep copy of the schema.
func (s *OptionsSchema) Clone() *OptionsSchema {
	if s == nil {
		return nil
	}
	out := &OptionsSchema{
		DefaultProperties:     append([]string(nil), s.DefaultProperties...),
		InheritableProperties: append([]string(nil), s.InheritableProperties...),
		Order:                 append([]string(nil), s.Order...),
	}
	if s.Properties != nil {
		out.Properties = make(map[string]PropertySchema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = v
		}
	}
	return out
}
