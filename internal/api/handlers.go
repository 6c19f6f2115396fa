package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/timzifer/dashwidget/dashboard"
	"github.com/timzifer/dashwidget/registry"
	"github.com/timzifer/dashwidget/widget"
)

type dashboardService interface {
	CreateDashboard(ctx context.Context, req dashboard.CreateDashboardRequest) (*dashboard.Dashboard, error)
	GetDashboard(ctx context.Context, dashboardID string) (*dashboard.Dashboard, error)
	ListDashboards(ctx context.Context) ([]*dashboard.Dashboard, error)
	DeleteDashboard(ctx context.Context, dashboardID string) error
	UpdateVariables(ctx context.Context, dashboardID string, req dashboard.UpdateVariablesRequest) (*dashboard.Dashboard, error)
	AddWidget(ctx context.Context, dashboardID string, req dashboard.AddWidgetRequest) (*dashboard.WidgetInfo, error)
	UpdateWidget(ctx context.Context, dashboardID, widgetKey string, req dashboard.UpdateWidgetRequest) (*dashboard.WidgetInfo, error)
	DeleteWidget(ctx context.Context, dashboardID, widgetKey string) error
	WidgetView(ctx context.Context, dashboardID, widgetKey string) (dashboard.RenderedWidget, error)
	DashboardViews(ctx context.Context, dashboardID string) ([]dashboard.RenderedWidget, error)
}

type configCatalog interface {
	Registry() *registry.Registry
	Resolve(id registry.ConfigID) (widget.Config, error)
}

type handlers struct {
	dashboards dashboardService
	configs    configCatalog
}

// listWidgetConfigs returns the resolved placeable configs. With ?all=true
// base configs are included.
func (h *handlers) listWidgetConfigs(w http.ResponseWriter, r *http.Request) {
	reg := h.configs.Registry()
	ids := reg.WidgetIDs()
	if r.URL.Query().Get("all") == "true" {
		ids = reg.IDs()
	}
	configs := make([]widget.Config, 0, len(ids))
	for _, id := range ids {
		cfg, err := h.configs.Resolve(id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		configs = append(configs, cfg)
	}
	writeSuccess(w, r, http.StatusOK, configs)
}

func (h *handlers) getWidgetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configs.Resolve(registry.ConfigID(chi.URLParam(r, "configId")))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, cfg)
}

func (h *handlers) createDashboard(w http.ResponseWriter, r *http.Request) {
	var req dashboard.CreateDashboardRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	d, err := h.dashboards.CreateDashboard(r.Context(), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusCreated, d)
}

func (h *handlers) listDashboards(w http.ResponseWriter, r *http.Request) {
	list, err := h.dashboards.ListDashboards(r.Context())
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, list)
}

func (h *handlers) getDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboards.GetDashboard(r.Context(), chi.URLParam(r, "dashboardId"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, d)
}

func (h *handlers) deleteDashboard(w http.ResponseWriter, r *http.Request) {
	if err := h.dashboards.DeleteDashboard(r.Context(), chi.URLParam(r, "dashboardId")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) updateVariables(w http.ResponseWriter, r *http.Request) {
	var req dashboard.UpdateVariablesRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	d, err := h.dashboards.UpdateVariables(r.Context(), chi.URLParam(r, "dashboardId"), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, d)
}

func (h *handlers) listWidgets(w http.ResponseWriter, r *http.Request) {
	views, err := h.dashboards.DashboardViews(r.Context(), chi.URLParam(r, "dashboardId"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, views)
}

func (h *handlers) addWidget(w http.ResponseWriter, r *http.Request) {
	var req dashboard.AddWidgetRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	info, err := h.dashboards.AddWidget(r.Context(), chi.URLParam(r, "dashboardId"), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusCreated, info)
}

func (h *handlers) getWidget(w http.ResponseWriter, r *http.Request) {
	view, err := h.dashboards.WidgetView(r.Context(), chi.URLParam(r, "dashboardId"), chi.URLParam(r, "widgetKey"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, view)
}

func (h *handlers) updateWidget(w http.ResponseWriter, r *http.Request) {
	var req dashboard.UpdateWidgetRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, r, err)
		return
	}
	info, err := h.dashboards.UpdateWidget(r.Context(), chi.URLParam(r, "dashboardId"), chi.URLParam(r, "widgetKey"), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeSuccess(w, r, http.StatusOK, info)
}

func (h *handlers) deleteWidget(w http.ResponseWriter, r *http.Request) {
	if err := h.dashboards.DeleteWidget(r.Context(), chi.URLParam(r, "dashboardId"), chi.URLParam(r, "widgetKey")); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
