package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/timzifer/dashwidget/internal/errs"
	"github.com/timzifer/dashwidget/registry"
	"github.com/timzifer/dashwidget/telemetry"
	"github.com/timzifer/dashwidget/widget"
)

// WidgetVersion is stamped on every widget placed by the service.
const WidgetVersion = "1"

// ConfigResolver returns the effective configuration of a widget kind.
type ConfigResolver interface {
	Resolve(id registry.ConfigID) (widget.Config, error)
}

// CreateDashboardRequest holds the fields of a new dashboard.
type CreateDashboardRequest struct {
	Name            string                    `json:"name"`
	Labels          []string                  `json:"labels,omitempty"`
	Variables       widget.DashboardVariables `json:"variables,omitempty"`
	VariablesSchema widget.VariablesSchema    `json:"variables_schema"`
	Settings        Settings                  `json:"settings"`
}

// UpdateVariablesRequest replaces the variable values and, when set, the
// variable schema of a dashboard.
type UpdateVariablesRequest struct {
	Variables       widget.DashboardVariables `json:"variables"`
	VariablesSchema *widget.VariablesSchema   `json:"variables_schema,omitempty"`
}

// AddWidgetRequest places a widget of the given kind on a dashboard.
type AddWidgetRequest struct {
	WidgetName    string         `json:"widget_name"`
	Title         string         `json:"title,omitempty"`
	Size          widget.Size    `json:"size,omitempty"`
	WidgetOptions widget.Options `json:"widget_options,omitempty"`
	Layout        int            `json:"layout,omitempty"`
}

// UpdateWidgetRequest changes the stored state of a widget. Unset fields are
// left untouched.
type UpdateWidgetRequest struct {
	Title          *string               `json:"title,omitempty"`
	Size           widget.Size           `json:"size,omitempty"`
	WidgetOptions  widget.Options        `json:"widget_options,omitempty"`
	InheritOptions widget.InheritOptions `json:"inherit_options,omitempty"`
}

// RenderedWidget is the view of a widget together with its key.
type RenderedWidget struct {
	WidgetKey string `json:"widget_key"`
	widget.View
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger.With().Str("component", "dashboard").Logger()
	}
}

// WithCollector sets the telemetry collector.
func WithCollector(collector telemetry.Collector) ServiceOption {
	return func(s *Service) {
		if collector != nil {
			s.telemetry = collector
		}
	}
}

// Service manages dashboards and renders their widgets.
type Service struct {
	store     Store
	resolver  ConfigResolver
	logger    zerolog.Logger
	telemetry telemetry.Collector
}

// NewService creates a dashboard service.
func NewService(store Store, resolver ConfigResolver, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		resolver:  resolver,
		logger:    zerolog.Nop(),
		telemetry: telemetry.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CreateDashboard stores a new dashboard with a single empty layout.
func (s *Service) CreateDashboard(ctx context.Context, req CreateDashboardRequest) (*Dashboard, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errs.NewValidationError("dashboard name is required")
	}
	d := &Dashboard{
		DashboardID:     "dash-" + uuid.New().String(),
		Name:            name,
		Labels:          req.Labels,
		Layouts:         []Layout{{Widgets: []WidgetInfo{}}},
		Variables:       req.Variables.Clone(),
		VariablesSchema: req.VariablesSchema,
		Settings:        req.Settings,
	}
	if err := s.store.Create(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info().Str("dashboard", d.DashboardID).Msg("dashboard created")
	return d, nil
}

// GetDashboard loads a dashboard by ID.
func (s *Service) GetDashboard(ctx context.Context, dashboardID string) (*Dashboard, error) {
	return s.store.Get(ctx, dashboardID)
}

// ListDashboards returns every stored dashboard.
func (s *Service) ListDashboards(ctx context.Context) ([]*Dashboard, error) {
	return s.store.List(ctx)
}

// DeleteDashboard removes a dashboard and its widgets.
func (s *Service) DeleteDashboard(ctx context.Context, dashboardID string) error {
	return s.store.Delete(ctx, dashboardID)
}

// UpdateVariables stores new variable values. A new variable schema also
// refreshes the inherit options of every widget: bindings to variables that
// are still in use are kept, the rest are derived again.
func (s *Service) UpdateVariables(ctx context.Context, dashboardID string, req UpdateVariablesRequest) (*Dashboard, error) {
	d, err := s.store.Get(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	d.Variables = req.Variables.Clone()
	if req.VariablesSchema != nil {
		d.VariablesSchema = *req.VariablesSchema
		for li := range d.Layouts {
			for wi := range d.Layouts[li].Widgets {
				info := &d.Layouts[li].Widgets[wi]
				cfg, err := s.resolver.Resolve(registry.ConfigID(info.WidgetName))
				if err != nil {
					s.logger.Warn().Err(err).Str("widget", info.WidgetKey).Msg("skip inherit options of unresolvable widget")
					continue
				}
				info.InheritOptions = widget.InitialInheritOptions(cfg, info.InheritOptions, &d.VariablesSchema)
			}
		}
	}
	if err := s.store.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// AddWidget places a new widget instance of a resolvable, non-abstract config.
func (s *Service) AddWidget(ctx context.Context, dashboardID string, req AddWidgetRequest) (*WidgetInfo, error) {
	cfg, err := s.widgetConfig(req.WidgetName)
	if err != nil {
		return nil, err
	}
	size := req.Size
	if size == "" && len(cfg.Sizes) > 0 {
		size = cfg.Sizes[0]
	}
	if !cfg.SupportsSize(size) {
		return nil, errs.NewValidationError(fmt.Sprintf("widget config %q does not support size %q", cfg.ID, size))
	}

	d, err := s.store.Get(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	if len(d.Layouts) == 0 {
		d.Layouts = []Layout{{}}
	}
	if req.Layout < 0 || req.Layout >= len(d.Layouts) {
		return nil, errs.NewValidationError(fmt.Sprintf("layout %d does not exist", req.Layout))
	}

	info := WidgetInfo{
		WidgetName:       cfg.ID,
		WidgetKey:        uuid.New().String(),
		Title:            req.Title,
		WidgetOptions:    req.WidgetOptions.Clone(),
		Size:             size,
		Version:          WidgetVersion,
		InheritOptions:   widget.InitialInheritOptions(cfg, nil, &d.VariablesSchema),
		SchemaProperties: cfg.SchemaPropertyNames(),
	}
	d.Layouts[req.Layout].Widgets = append(d.Layouts[req.Layout].Widgets, info)
	if err := s.store.Update(ctx, d); err != nil {
		return nil, err
	}
	s.logger.Info().Str("dashboard", dashboardID).Str("widget", info.WidgetKey).Str("config", cfg.ID).Msg("widget added")
	return &info, nil
}

// UpdateWidget applies the set fields of req to an existing widget.
func (s *Service) UpdateWidget(ctx context.Context, dashboardID, widgetKey string, req UpdateWidgetRequest) (*WidgetInfo, error) {
	d, err := s.store.Get(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	_, li, wi, ok := d.Widget(widgetKey)
	if !ok {
		return nil, errs.NewNotFoundError("widget not found")
	}
	info := &d.Layouts[li].Widgets[wi]
	if req.Title != nil {
		info.Title = *req.Title
	}
	if req.Size != "" {
		cfg, err := s.widgetConfig(info.WidgetName)
		if err != nil {
			return nil, err
		}
		if !cfg.SupportsSize(req.Size) {
			return nil, errs.NewValidationError(fmt.Sprintf("widget config %q does not support size %q", cfg.ID, req.Size))
		}
		info.Size = req.Size
	}
	if req.WidgetOptions != nil {
		info.WidgetOptions = req.WidgetOptions.Clone()
	}
	if req.InheritOptions != nil {
		info.InheritOptions = req.InheritOptions.Clone()
	}
	if err := s.store.Update(ctx, d); err != nil {
		return nil, err
	}
	updated := *info
	return &updated, nil
}

// DeleteWidget removes a widget from its layout.
func (s *Service) DeleteWidget(ctx context.Context, dashboardID, widgetKey string) error {
	d, err := s.store.Get(ctx, dashboardID)
	if err != nil {
		return err
	}
	_, li, wi, ok := d.Widget(widgetKey)
	if !ok {
		return errs.NewNotFoundError("widget not found")
	}
	widgets := d.Layouts[li].Widgets
	d.Layouts[li].Widgets = append(widgets[:wi:wi], widgets[wi+1:]...)
	return s.store.Update(ctx, d)
}

// WidgetView renders a single widget of a dashboard.
func (s *Service) WidgetView(ctx context.Context, dashboardID, widgetKey string) (RenderedWidget, error) {
	d, err := s.store.Get(ctx, dashboardID)
	if err != nil {
		return RenderedWidget{}, err
	}
	info, _, _, ok := d.Widget(widgetKey)
	if !ok {
		return RenderedWidget{}, errs.NewNotFoundError("widget not found")
	}
	return s.render(d, info), nil
}

// DashboardViews renders every widget of a dashboard in layout order.
func (s *Service) DashboardViews(ctx context.Context, dashboardID string) ([]RenderedWidget, error) {
	d, err := s.store.Get(ctx, dashboardID)
	if err != nil {
		return nil, err
	}
	widgets := d.Widgets()
	views := make([]RenderedWidget, 0, len(widgets))
	for _, info := range widgets {
		views = append(views, s.render(d, info))
	}
	return views, nil
}

// render falls back to the error placeholder when the widget config cannot
// be resolved.
func (s *Service) render(d *Dashboard, info WidgetInfo) RenderedWidget {
	cfg, err := s.resolver.Resolve(registry.ConfigID(info.WidgetName))
	if err != nil {
		s.logger.Error().Err(err).
			Str("dashboard", d.DashboardID).
			Str("widget", info.WidgetKey).
			Str("config", info.WidgetName).
			Msg("render widget with error placeholder")
		cfg = widget.ErrorConfig()
	}
	properties := info.SchemaProperties
	if len(properties) == 0 {
		properties = cfg.SchemaPropertyNames()
	}
	optionsErrors := widget.InheritOptionsErrorMap(properties, info.InheritOptions, cfg.OptionsSchema, &d.VariablesSchema)

	var currency string
	if d.Settings.Currency.Enabled {
		currency = d.Settings.Currency.Value
	}
	s.telemetry.IncRefine(cfg.ID)
	view := widget.NewView(cfg, widget.Props{
		Title:          info.Title,
		Size:           info.Size,
		Options:        info.WidgetOptions,
		InheritOptions: info.InheritOptions,
		Variables:      d.Variables,
		Currency:       currency,
	}, optionsErrors)
	return RenderedWidget{WidgetKey: info.WidgetKey, View: view}
}

// widgetConfig resolves a placeable widget config.
func (s *Service) widgetConfig(name string) (widget.Config, error) {
	if strings.TrimSpace(name) == "" {
		return widget.Config{}, errs.NewValidationError("widget name is required")
	}
	cfg, err := s.resolver.Resolve(registry.ConfigID(name))
	if err != nil {
		return widget.Config{}, errs.NewValidationError(err.Error())
	}
	if cfg.Abstract {
		return widget.Config{}, errs.NewValidationError(fmt.Sprintf("widget config %q is a base config and cannot be placed", name))
	}
	return cfg, nil
}
