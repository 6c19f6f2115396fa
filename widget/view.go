package widget

// Labels that select the group-by option of a widget.
const (
	LabelCost  = "Cost"
	LabelAsset = "Asset"
)

// DefaultCurrency is used for cost widgets when the dashboard does not pin one.
const DefaultCurrency = "USD"

// Props is the per-instance state of a widget placed on a dashboard.
type Props struct {
	Title          string
	Size           Size
	Options        Options
	InheritOptions InheritOptions
	Variables      DashboardVariables
	Currency       string
}

// View is the render-ready state of a widget.
type View struct {
	ConfigID             string          `json:"widget_config_id"`
	Title                string          `json:"title"`
	Size                 Size            `json:"size,omitempty"`
	Options              Options         `json:"options"`
	OptionsErrors        OptionsErrorMap `json:"options_errors,omitempty"`
	Currency             string          `json:"currency,omitempty"`
	GroupBy              string          `json:"group_by,omitempty"`
	Granularity          string          `json:"granularity,omitempty"`
	PageSize             *int            `json:"page_size,omitempty"`
	ConsoleFilters       []Filter        `json:"console_filters"`
	BudgetConsoleFilters []Filter        `json:"budget_console_filters"`
}

// NewView refines the options of a widget instance and derives the values
// a renderer needs from them.
func NewView(cfg Config, props Props, errs OptionsErrorMap) View {
	options := Refine(cfg, props.Options, props.InheritOptions, props.Variables, errs)
	v := View{
		ConfigID:      cfg.ID,
		Title:         props.Title,
		Size:          props.Size,
		Options:       options,
		OptionsErrors: errs,
	}
	if v.Title == "" {
		v.Title = cfg.Title
	}
	if v.Size == "" || !cfg.SupportsSize(v.Size) {
		v.Size = ""
		if len(cfg.Sizes) > 0 {
			v.Size = cfg.Sizes[0]
		}
	}
	switch {
	case hasLabel(cfg, LabelCost):
		v.Currency = props.Currency
		if v.Currency == "" {
			v.Currency = DefaultCurrency
		}
		v.GroupBy, _ = options["cost_group_by"].(string)
	case hasLabel(cfg, LabelAsset):
		v.GroupBy, _ = options["asset_group_by"].(string)
	}
	v.Granularity, _ = options["granularity"].(string)
	v.PageSize = pageSize(options)

	filters, _ := FiltersFrom(options[FiltersKey])
	v.ConsoleFilters = ConsoleFilters(filters)
	v.BudgetConsoleFilters = BudgetConsoleFilters(filters)
	return v
}

func hasLabel(cfg Config, label string) bool {
	for _, l := range cfg.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func pageSize(options Options) *int {
	pagination, ok := asMap(options["pagination_options"])
	if !ok {
		return nil
	}
	if enabled, _ := pagination["enabled"].(bool); !enabled {
		return nil
	}
	d, ok := toDecimal(pagination["page_size"])
	if !ok {
		return nil
	}
	n := int(d.IntPart())
	return &n
}
