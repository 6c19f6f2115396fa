package registry

import (
	"sync"

	"github.com/timzifer/dashwidget/widget"
)

// Built-in base configs.
const (
	BaseCommon        ConfigID = "baseCommon"
	BaseCostWidget    ConfigID = "baseCostWidget"
	BaseAssetWidget   ConfigID = "baseAssetWidget"
	BaseTrendChart    ConfigID = "baseTrendChart"
	BaseTableWidget   ConfigID = "baseTableWidget"
	BaseSummaryWidget ConfigID = "baseSummaryWidget"
)

// Built-in widget configs.
const (
	CostTrend                ConfigID = "costTrend"
	CostTrendStacked         ConfigID = "costTrendStacked"
	CostByRegion             ConfigID = "costByRegion"
	CostByProvider           ConfigID = "costByProvider"
	CostByProject            ConfigID = "costByProject"
	MonthlyCostSummary       ConfigID = "monthlyCostSummary"
	BudgetUsageSummary       ConfigID = "budgetUsageSummary"
	AWSDataTransferCostTrend ConfigID = "awsDataTransferCostTrend"
	ComplianceStatus         ConfigID = "complianceStatus"
	SeverityStatusByService  ConfigID = "severityStatusByService"
)

func boolPtr(v bool) *bool { return &v }

func filterProperty(key, name string) widget.PropertySchema {
	return widget.PropertySchema{
		Key:             key,
		Name:            name,
		SelectionType:   "MULTI",
		InheritanceMode: widget.InheritanceKeyMatching,
	}
}

var builtinConfigs = map[ConfigID]widget.Config{
	BaseCommon: {
		Abstract: true,
		Scopes:   []widget.Scope{widget.ScopeDomain, widget.ScopeWorkspace, widget.ScopeProject},
		Theme:    &widget.Theme{Inherit: boolPtr(false)},
		Options: widget.Options{
			"legend_options": map[string]interface{}{"enabled": true, "show_at": "chart"},
		},
	},
	BaseCostWidget: {
		Abstract:    true,
		BaseConfigs: []widget.BaseConfigInfo{{ConfigID: string(BaseCommon)}},
		Labels:      []string{widget.LabelCost},
		Options: widget.Options{
			"cost_data_source": "",
			"cost_data_type":   "cost",
			"granularity":      "MONTHLY",
		},
		OptionsSchema: &widget.OptionsSchema{
			DefaultProperties:     []string{"filters.provider", "filters.project"},
			InheritableProperties: []string{"filters.provider", "filters.project", "filters.project_group", "filters.service_account", "filters.region"},
			Properties: map[string]widget.PropertySchema{
				"filters.provider":        filterProperty("provider", "Provider"),
				"filters.project":         filterProperty("project", "Project"),
				"filters.project_group":   filterProperty("project_group", "Project Group"),
				"filters.service_account": filterProperty("service_account", "Service Account"),
				"filters.region":          filterProperty("region", "Region"),
				"granularity": {
					Name:            "Granularity",
					SelectionType:   "SINGLE",
					InheritanceMode: widget.InheritanceNone,
					Fixed:           true,
				},
			},
			Order: []string{"granularity", "filters.provider", "filters.project", "filters.project_group", "filters.service_account", "filters.region"},
		},
	},
	BaseAssetWidget: {
		Abstract:    true,
		BaseConfigs: []widget.BaseConfigInfo{{ConfigID: string(BaseCommon)}},
		Labels:      []string{widget.LabelAsset},
		Options: widget.Options{
			"data_criteria": "realtime",
		},
		OptionsSchema: &widget.OptionsSchema{
			DefaultProperties:     []string{"filters.provider"},
			InheritableProperties: []string{"filters.provider", "filters.project", "filters.region"},
			Properties: map[string]widget.PropertySchema{
				"filters.provider": filterProperty("provider", "Provider"),
				"filters.project":  filterProperty("project", "Project"),
				"filters.region":   filterProperty("region", "Region"),
			},
			Order: []string{"filters.provider", "filters.project", "filters.region"},
		},
	},
	BaseTrendChart: {
		Abstract:    true,
		BaseConfigs: []widget.BaseConfigInfo{{ConfigID: string(BaseCostWidget)}},
		Labels:      []string{"Chart"},
		Sizes:       []widget.Size{widget.SizeMedium, widget.SizeFull},
		Options: widget.Options{
			"chart_type": "LINE",
			"legend_options": map[string]interface{}{
				"show_at": "table",
			},
		},
	},
	BaseTableWidget: {
		Abstract: true,
		Labels:   []string{"Table"},
		Sizes:    []widget.Size{widget.SizeFull},
		Options: widget.Options{
			"pagination_options": map[string]interface{}{"enabled": true, "page_size": 10},
		},
	},
	BaseSummaryWidget: {
		Abstract: true,
		Labels:   []string{"Summary"},
		Sizes:    []widget.Size{widget.SizeFull},
		Theme:    &widget.Theme{Inherit: boolPtr(true), InheritCount: 1},
	},

	CostTrend: {
		BaseConfigs: []widget.BaseConfigInfo{{ConfigID: string(BaseTrendChart)}},
		Title:       "Cost Trend",
		Labels:      []string{"Trend"},
		Description: &widget.Description{TranslationID: "DASHBOARDS.WIDGET.COST_TREND.DESC", PreviewImage: "cost-trend.png"},
		Options: widget.Options{
			"cost_data_field": []interface{}{"provider"},
			"granularity":     "DAILY",
		},
	},
	CostTrendStacked: {
		BaseConfigs: []widget.BaseConfigInfo{{ConfigID: string(BaseTrendChart)}},
		Title:       "Cost Trend (Stacked)",
		Labels:      []string{"Trend"},
		Options: widget.Options{
			"chart_type":      "STACKED_COLUMN",
			"cost_data_field": []interface{}{"project_id"},
		},
	},
	CostByRegion: {
		BaseConfigs: []widget.BaseConfigInfo{{ConfigID: string(BaseCostWidget)}, {ConfigID: string(BaseTableWidget)}},
		Title:       "Cost by Region",
		Sizes:       []widget.Size{widget.SizeFull},
		Options: widget.Options{
			"chart_type":      "MAP",
			"cost_group_by":   "region_code",
			"cost_data_field": []interface{}{"region_code"},
		},
	},
	CostByProvider: {
		BaseConfigs: []widget.BaseConfigInfo{{ConfigID: string(BaseCostWidget)}},
		Title:       "Cost by Provider",
		Sizes:       []widget.Size{widget.SizeMedium},
		Options: widget.Options{
			"chart_type":      "DONUT",
			"cost_group_by":   "provider",
			"cost_data_field": []interface{}{"provider"},
		},
	},
	CostByProject: {
		BaseConfigs: []widget.BaseConfigInfo{{ConfigID: string(BaseCostWidget)}, {ConfigID: string(BaseTableWidget)}},
		Title:       "Cost by Project",
		Options: widget.Options{
			"chart_type":      "TREEMAP",
			"cost_group_by":   "project_id",
			"cost_data_field": []interface{}{"project_id"},
			"pagination_options": map[string]interface{}{
				"page_size": 20,
			},
		},
	},
	MonthlyCostSummary: {
		BaseConfigs: []widget.BaseConfigInfo{{ConfigID: string(BaseCostWidget)}, {ConfigID: string(BaseSummaryWidget)}},
		Title:       "Monthly Cost Summary",
		Options: widget.Options{
			"chart_type":      "STACKED_COLUMN",
			"cost_data_field": []interface{}{"provider"},
			"cost_group_by":   "provider",
		},
	},
	BudgetUsageSummary: {
		BaseConfigs: []widget.BaseConfigInfo{{ConfigID: string(BaseCostWidget)}, {ConfigID: string(BaseSummaryWidget)}},
		Title:       "Budget Usage Summary",
		Labels:      []string{"Budget"},
		Scopes:      []widget.Scope{widget.ScopeWorkspace, widget.ScopeProject},
	},
	AWSDataTransferCostTrend: {
		BaseConfigs: []widget.BaseConfigInfo{{ConfigID: string(CostTrend)}},
		Title:       "AWS Data Transfer Cost Trend",
		Options: widget.Options{
			"cost_data_field": []interface{}{"usage_type"},
			widget.FiltersKey: widget.FiltersMap{
				"provider": {{K: "provider", V: []interface{}{"aws"}, O: widget.OperatorEqual}},
				"product":  {{K: "product", V: []interface{}{"AWSDataTransfer"}, O: widget.OperatorEqual}},
			},
		},
	},
	ComplianceStatus: {
		BaseConfigs: []widget.BaseConfigInfo{{ConfigID: string(BaseAssetWidget)}},
		Title:       "Compliance Status",
		Labels:      []string{"Compliance"},
		Sizes:       []widget.Size{widget.SizeMedium},
		Options: widget.Options{
			"chart_type":     "WAFFLE",
			"asset_group_by": "cloud_service_type",
		},
	},
	SeverityStatusByService: {
		BaseConfigs: []widget.BaseConfigInfo{{ConfigID: string(BaseAssetWidget)}, {ConfigID: string(BaseTableWidget)}},
		Title:       "Severity Status by Service",
		Options: widget.Options{
			"asset_group_by": "additional_info.service",
			"chart_type":     "TREEMAP",
		},
	},
}

var (
	builtinOnce     sync.Once
	builtinRegistry *Registry
)

// Builtin returns the registry of compiled-in widget and base configs.
func Builtin() *Registry {
	builtinOnce.Do(func() {
		r := &Registry{
			configs: make(map[ConfigID]widget.Config, len(builtinConfigs)),
			sources: make(map[ConfigID]string),
		}
		for id, cfg := range builtinConfigs {
			cfg = cfg.Clone()
			cfg.ID = string(id)
			r.configs[id] = cfg
		}
		builtinRegistry = r
	})
	return builtinRegistry
}
