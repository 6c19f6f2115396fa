package widget

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestMergeOptionsPrecedence(t *testing.T) {
	dst := Options{
		"granularity": "DAILY",
		"chart_type":  "LINE",
		"pagination_options": map[string]interface{}{
			"enabled":   true,
			"page_size": 10,
		},
	}
	src := Options{
		"granularity": "MONTHLY",
		"pagination_options": map[string]interface{}{
			"page_size": 20,
		},
	}

	got := MergeOptions(dst, src, ReplaceArrays)

	want := Options{
		"granularity": "MONTHLY",
		"chart_type":  "LINE",
		"pagination_options": map[string]interface{}{
			"enabled":   true,
			"page_size": 20,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected options (-want +got):\n%s", diff)
	}
	require.Equal(t, "DAILY", dst["granularity"])
}

func TestMergeOptionsArrays(t *testing.T) {
	dst := Options{"tags": []interface{}{"x"}}
	src := Options{"tags": []interface{}{"x", "y"}}

	require.Equal(t, []interface{}{"x", "y"}, MergeOptions(dst, src, UnionArrays)["tags"])

	dst = Options{"tags": []interface{}{"a", "b"}}
	src = Options{"tags": []interface{}{"c"}}
	require.Equal(t, []interface{}{"a", "b", "c"}, MergeOptions(dst, src, UnionArrays)["tags"])
	require.Equal(t, []interface{}{"c"}, MergeOptions(dst, src, ReplaceArrays)["tags"])
	require.Equal(t, []interface{}{"c"}, MergeOptions(dst, src, nil)["tags"])
}

func TestMergeOptionsNullOverrides(t *testing.T) {
	got := MergeOptions(Options{"granularity": "DAILY"}, Options{"granularity": nil}, ReplaceArrays)

	value, ok := got["granularity"]
	require.True(t, ok)
	require.Nil(t, value)
}

func TestMergeOptionsFilters(t *testing.T) {
	dst := Options{
		FiltersKey: FiltersMap{
			"provider": {{K: "provider", V: []interface{}{"aws"}, O: OperatorEqual}},
		},
	}
	src := Options{
		FiltersKey: map[string]interface{}{
			"provider": []interface{}{
				map[string]interface{}{"k": "provider", "v": []interface{}{"azure"}, "o": "="},
			},
		},
	}

	got := MergeOptions(dst, src, ReplaceArrays)

	want := FiltersMap{
		"provider": {{K: "provider", V: []interface{}{"aws", "azure"}, O: OperatorEqual}},
	}
	if diff := cmp.Diff(want, got[FiltersKey]); diff != "" {
		t.Fatalf("unexpected filters (-want +got):\n%s", diff)
	}
}

func TestMergeOptionsEqualFiltersKeepClauses(t *testing.T) {
	filters := FiltersMap{
		"region": {{K: "region_code", V: "eu", O: OperatorEqual}},
	}
	got := MergeOptions(Options{FiltersKey: filters}, Options{FiltersKey: filters.Clone()}, ReplaceArrays)

	require.Equal(t, filters, got[FiltersKey])
}

func TestMergeConfig(t *testing.T) {
	yes := true
	base := Config{
		ID:      "base",
		Title:   "Base",
		Labels:  []string{"Cost"},
		Sizes:   []Size{SizeMedium},
		Theme:   &Theme{Inherit: &yes},
		Options: Options{"granularity": "DAILY", "group": []interface{}{"x"}},
		OptionsSchema: &OptionsSchema{
			Properties: map[string]PropertySchema{"granularity": {Name: "Granularity"}},
			Order:      []string{"granularity"},
		},
	}
	own := Config{
		ID:      "child",
		Labels:  []string{"Cost", "Chart"},
		Sizes:   []Size{SizeMedium, SizeFull},
		Options: Options{"group": []interface{}{"x", "y"}},
		OptionsSchema: &OptionsSchema{
			Properties: map[string]PropertySchema{"filters.region": {Key: "region"}},
			Order:      []string{"filters.region"},
		},
	}

	got := MergeConfig(base, own, UnionArrays)

	require.Equal(t, "child", got.ID)
	require.Equal(t, "Base", got.Title)
	require.Equal(t, []string{"Cost", "Chart"}, got.Labels)
	require.Equal(t, []Size{SizeMedium, SizeFull}, got.Sizes)
	require.True(t, *got.Theme.Inherit)
	require.Equal(t, Options{"granularity": "DAILY", "group": []interface{}{"x", "y"}}, got.Options)
	require.Equal(t, []string{"granularity", "filters.region"}, got.SchemaPropertyNames())

	*got.Theme.Inherit = false
	require.True(t, *base.Theme.Inherit)
}
