package dashboard

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/dashwidget/internal/errs"
	"github.com/timzifer/dashwidget/registry"
	"github.com/timzifer/dashwidget/telemetry"
	"github.com/timzifer/dashwidget/widget"
)

type countingCollector struct {
	telemetry.Collector
	refined map[string]int
}

func (c *countingCollector) IncRefine(configID string) {
	c.refined[configID]++
}

func providerSchema() widget.VariablesSchema {
	return widget.VariablesSchema{
		Properties: map[string]widget.VariableSchema{
			"provider": {Name: "Provider", Use: true, SelectionType: "MULTI"},
			"project":  {Name: "Project", Use: false, SelectionType: "MULTI"},
		},
		Order: []string{"provider", "project"},
	}
}

func newTestService(t *testing.T, opts ...ServiceOption) (*Service, *BoltStore) {
	t.Helper()
	st := openTestStore(t)
	resolver := registry.NewResolver(registry.Builtin())
	return NewService(st, resolver, opts...), st
}

func TestCreateDashboardValidatesName(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateDashboard(context.Background(), CreateDashboardRequest{Name: "  "})
	var validation *errs.ValidationError
	require.True(t, errors.As(err, &validation))

	d, err := svc.CreateDashboard(context.Background(), CreateDashboardRequest{Name: "Costs"})
	require.NoError(t, err)
	require.NotEmpty(t, d.DashboardID)
	require.Len(t, d.Layouts, 1)

	list, err := svc.ListDashboards(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestAddWidgetDerivesInheritOptions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	d, err := svc.CreateDashboard(ctx, CreateDashboardRequest{Name: "Costs", VariablesSchema: providerSchema()})
	require.NoError(t, err)

	info, err := svc.AddWidget(ctx, d.DashboardID, AddWidgetRequest{WidgetName: string(registry.CostTrend)})
	require.NoError(t, err)
	require.NotEmpty(t, info.WidgetKey)
	require.Equal(t, widget.SizeMedium, info.Size)
	require.Equal(t, WidgetVersion, info.Version)
	require.Equal(t, widget.InheritOptions{
		"filters.provider": {Enabled: true, VariableKey: "provider"},
	}, info.InheritOptions)
	require.Contains(t, info.SchemaProperties, "granularity")

	stored, err := svc.GetDashboard(ctx, d.DashboardID)
	require.NoError(t, err)
	require.Len(t, stored.Widgets(), 1)
}

func TestAddWidgetRejectsInvalidRequests(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	d, err := svc.CreateDashboard(ctx, CreateDashboardRequest{Name: "Costs"})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  AddWidgetRequest
	}{
		{name: "missing name", req: AddWidgetRequest{}},
		{name: "unknown config", req: AddWidgetRequest{WidgetName: "noSuchWidget"}},
		{name: "base config", req: AddWidgetRequest{WidgetName: string(registry.BaseCostWidget)}},
		{name: "unsupported size", req: AddWidgetRequest{WidgetName: string(registry.CostByProvider), Size: widget.SizeFull}},
		{name: "missing layout", req: AddWidgetRequest{WidgetName: string(registry.CostTrend), Layout: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddWidget(ctx, d.DashboardID, tt.req)
			var validation *errs.ValidationError
			require.True(t, errors.As(err, &validation), "got %v", err)
		})
	}

	_, err = svc.AddWidget(ctx, "missing", AddWidgetRequest{WidgetName: string(registry.CostTrend)})
	var notFound *errs.NotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestWidgetViewAppliesDashboardVariables(t *testing.T) {
	ctx := context.Background()
	collector := &countingCollector{Collector: telemetry.Noop(), refined: map[string]int{}}
	svc, _ := newTestService(t, WithCollector(collector))
	d, err := svc.CreateDashboard(ctx, CreateDashboardRequest{
		Name:            "Costs",
		VariablesSchema: providerSchema(),
		Variables:       widget.DashboardVariables{"provider": []interface{}{"aws", "google_cloud"}},
		Settings:        Settings{Currency: Currency{Enabled: true, Value: "EUR"}},
	})
	require.NoError(t, err)
	info, err := svc.AddWidget(ctx, d.DashboardID, AddWidgetRequest{WidgetName: string(registry.CostTrend), Title: "My Costs"})
	require.NoError(t, err)

	view, err := svc.WidgetView(ctx, d.DashboardID, info.WidgetKey)
	require.NoError(t, err)
	require.Equal(t, info.WidgetKey, view.WidgetKey)
	require.Equal(t, string(registry.CostTrend), view.ConfigID)
	require.Equal(t, "My Costs", view.Title)
	require.Equal(t, "EUR", view.Currency)
	require.Equal(t, "DAILY", view.Granularity)
	require.Empty(t, view.OptionsErrors)
	want := []widget.Filter{{K: "provider", V: []interface{}{"aws", "google_cloud"}, O: widget.OperatorEqual}}
	if diff := cmp.Diff(want, view.ConsoleFilters); diff != "" {
		t.Fatalf("console filters mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 1, collector.refined[string(registry.CostTrend)])
}

func TestWidgetViewFlagsUnusedVariable(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	d, err := svc.CreateDashboard(ctx, CreateDashboardRequest{
		Name:            "Costs",
		VariablesSchema: providerSchema(),
		Variables:       widget.DashboardVariables{"project": []interface{}{"project-a"}},
	})
	require.NoError(t, err)
	info, err := svc.AddWidget(ctx, d.DashboardID, AddWidgetRequest{WidgetName: string(registry.CostTrend)})
	require.NoError(t, err)

	inherit := widget.InheritOptions{"filters.project": {Enabled: true, VariableKey: "project"}}
	_, err = svc.UpdateWidget(ctx, d.DashboardID, info.WidgetKey, UpdateWidgetRequest{InheritOptions: inherit})
	require.NoError(t, err)

	view, err := svc.WidgetView(ctx, d.DashboardID, info.WidgetKey)
	require.NoError(t, err)
	require.Equal(t, widget.OptionsErrorMap{"filters.project": true}, view.OptionsErrors)
	require.Empty(t, view.ConsoleFilters)
}

func TestDashboardViewsRendersErrorPlaceholder(t *testing.T) {
	ctx := context.Background()
	svc, st := newTestService(t)
	d, err := svc.CreateDashboard(ctx, CreateDashboardRequest{Name: "Costs"})
	require.NoError(t, err)
	_, err = svc.AddWidget(ctx, d.DashboardID, AddWidgetRequest{WidgetName: string(registry.ComplianceStatus)})
	require.NoError(t, err)

	stored, err := st.Get(ctx, d.DashboardID)
	require.NoError(t, err)
	stored.Layouts[0].Widgets = append(stored.Layouts[0].Widgets, WidgetInfo{WidgetName: "retiredWidget", WidgetKey: "old"})
	require.NoError(t, st.Update(ctx, stored))

	views, err := svc.DashboardViews(ctx, d.DashboardID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, string(registry.ComplianceStatus), views[0].ConfigID)
	require.Equal(t, "cloud_service_type", views[0].GroupBy)
	require.Equal(t, widget.ErrorConfigID, views[1].ConfigID)
	require.Equal(t, "old", views[1].WidgetKey)
	require.Equal(t, widget.SizeMedium, views[1].Size)
}

func TestUpdateWidgetChangesStoredState(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	d, err := svc.CreateDashboard(ctx, CreateDashboardRequest{Name: "Costs"})
	require.NoError(t, err)
	info, err := svc.AddWidget(ctx, d.DashboardID, AddWidgetRequest{WidgetName: string(registry.CostTrend)})
	require.NoError(t, err)

	title := "Renamed"
	updated, err := svc.UpdateWidget(ctx, d.DashboardID, info.WidgetKey, UpdateWidgetRequest{
		Title:         &title,
		Size:          widget.SizeFull,
		WidgetOptions: widget.Options{"granularity": "MONTHLY"},
	})
	require.NoError(t, err)
	require.Equal(t, "Renamed", updated.Title)
	require.Equal(t, widget.SizeFull, updated.Size)

	view, err := svc.WidgetView(ctx, d.DashboardID, info.WidgetKey)
	require.NoError(t, err)
	require.Equal(t, "MONTHLY", view.Granularity)

	_, err = svc.UpdateWidget(ctx, d.DashboardID, info.WidgetKey, UpdateWidgetRequest{Size: widget.SizeSmall})
	var validation *errs.ValidationError
	require.True(t, errors.As(err, &validation))

	_, err = svc.UpdateWidget(ctx, d.DashboardID, "missing", UpdateWidgetRequest{})
	var notFound *errs.NotFoundError
	require.True(t, errors.As(err, &notFound))
}

func TestDeleteWidget(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	d, err := svc.CreateDashboard(ctx, CreateDashboardRequest{Name: "Costs"})
	require.NoError(t, err)
	first, err := svc.AddWidget(ctx, d.DashboardID, AddWidgetRequest{WidgetName: string(registry.CostTrend)})
	require.NoError(t, err)
	second, err := svc.AddWidget(ctx, d.DashboardID, AddWidgetRequest{WidgetName: string(registry.CostByProvider)})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteWidget(ctx, d.DashboardID, first.WidgetKey))
	stored, err := svc.GetDashboard(ctx, d.DashboardID)
	require.NoError(t, err)
	widgets := stored.Widgets()
	require.Len(t, widgets, 1)
	require.Equal(t, second.WidgetKey, widgets[0].WidgetKey)

	var notFound *errs.NotFoundError
	require.True(t, errors.As(svc.DeleteWidget(ctx, d.DashboardID, first.WidgetKey), &notFound))
}

func TestUpdateVariablesRefreshesInheritOptions(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	d, err := svc.CreateDashboard(ctx, CreateDashboardRequest{Name: "Costs", VariablesSchema: providerSchema()})
	require.NoError(t, err)
	info, err := svc.AddWidget(ctx, d.DashboardID, AddWidgetRequest{WidgetName: string(registry.CostTrend)})
	require.NoError(t, err)

	schema := providerSchema()
	project := schema.Properties["project"]
	project.Use = true
	schema.Properties["project"] = project

	updated, err := svc.UpdateVariables(ctx, d.DashboardID, UpdateVariablesRequest{
		Variables:       widget.DashboardVariables{"project": []interface{}{"project-a"}},
		VariablesSchema: &schema,
	})
	require.NoError(t, err)
	stored, _, _, ok := updated.Widget(info.WidgetKey)
	require.True(t, ok)
	require.Equal(t, widget.InheritOptions{
		"filters.provider": {Enabled: true, VariableKey: "provider"},
		"filters.project":  {Enabled: true, VariableKey: "project"},
	}, stored.InheritOptions)

	view, err := svc.WidgetView(ctx, d.DashboardID, info.WidgetKey)
	require.NoError(t, err)
	require.Equal(t, []widget.Filter{{K: "project_id", V: []interface{}{"project-a"}, O: widget.OperatorEqual}}, view.ConsoleFilters)
}

func TestServiceWithPrometheusCollector(t *testing.T) {
	collector, err := telemetry.NewPrometheusCollector(prometheus.NewRegistry())
	require.NoError(t, err)
	svc, _ := newTestService(t, WithCollector(collector))
	ctx := context.Background()
	d, err := svc.CreateDashboard(ctx, CreateDashboardRequest{Name: "Costs"})
	require.NoError(t, err)
	_, err = svc.AddWidget(ctx, d.DashboardID, AddWidgetRequest{WidgetName: string(registry.CostTrend)})
	require.NoError(t, err)
	views, err := svc.DashboardViews(ctx, d.DashboardID)
	require.NoError(t, err)
	require.Len(t, views, 1)
}
