package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/dashwidget/dashboard"
	"github.com/timzifer/dashwidget/internal/errs"
	"github.com/timzifer/dashwidget/registry"
	"github.com/timzifer/dashwidget/telemetry"
	"github.com/timzifer/dashwidget/widget"
)

// --- Stub service ---

type stubDashboardService struct {
	dashboard    *dashboard.Dashboard
	widget       *dashboard.WidgetInfo
	views        []dashboard.RenderedWidget
	err          error
	lastID       string
	lastKey      string
	lastAddReq   dashboard.AddWidgetRequest
	lastVarsReq  dashboard.UpdateVariablesRequest
	lastCreate   dashboard.CreateDashboardRequest
	deleteCalled bool
}

func (s *stubDashboardService) CreateDashboard(_ context.Context, req dashboard.CreateDashboardRequest) (*dashboard.Dashboard, error) {
	s.lastCreate = req
	return s.dashboard, s.err
}

func (s *stubDashboardService) GetDashboard(_ context.Context, id string) (*dashboard.Dashboard, error) {
	s.lastID = id
	return s.dashboard, s.err
}

func (s *stubDashboardService) ListDashboards(context.Context) ([]*dashboard.Dashboard, error) {
	if s.dashboard == nil {
		return nil, s.err
	}
	return []*dashboard.Dashboard{s.dashboard}, s.err
}

func (s *stubDashboardService) DeleteDashboard(_ context.Context, id string) error {
	s.lastID = id
	s.deleteCalled = true
	return s.err
}

func (s *stubDashboardService) UpdateVariables(_ context.Context, id string, req dashboard.UpdateVariablesRequest) (*dashboard.Dashboard, error) {
	s.lastID = id
	s.lastVarsReq = req
	return s.dashboard, s.err
}

func (s *stubDashboardService) AddWidget(_ context.Context, id string, req dashboard.AddWidgetRequest) (*dashboard.WidgetInfo, error) {
	s.lastID = id
	s.lastAddReq = req
	return s.widget, s.err
}

func (s *stubDashboardService) UpdateWidget(_ context.Context, id, key string, _ dashboard.UpdateWidgetRequest) (*dashboard.WidgetInfo, error) {
	s.lastID, s.lastKey = id, key
	return s.widget, s.err
}

func (s *stubDashboardService) DeleteWidget(_ context.Context, id, key string) error {
	s.lastID, s.lastKey = id, key
	s.deleteCalled = true
	return s.err
}

func (s *stubDashboardService) WidgetView(_ context.Context, id, key string) (dashboard.RenderedWidget, error) {
	s.lastID, s.lastKey = id, key
	if len(s.views) == 0 {
		return dashboard.RenderedWidget{}, s.err
	}
	return s.views[0], s.err
}

func (s *stubDashboardService) DashboardViews(_ context.Context, id string) ([]dashboard.RenderedWidget, error) {
	s.lastID = id
	return s.views, s.err
}

func newTestRouter(svc *stubDashboardService, gatherer prometheus.Gatherer) http.Handler {
	return NewRouter(RouterConfig{
		Dashboards: svc,
		Configs:    registry.NewResolver(registry.Builtin()),
		Logger:     zerolog.Nop(),
		Gatherer:   gatherer,
	})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NoError(t, json.Unmarshal(envelope.Data, dst))
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

// --- Tests ---

func TestListWidgetConfigs(t *testing.T) {
	h := newTestRouter(&stubDashboardService{}, nil)

	rr := do(t, h, http.MethodGet, "/widget-configs", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var configs []widget.Config
	decodeData(t, rr, &configs)
	require.Len(t, configs, len(registry.Builtin().WidgetIDs()))
	for _, cfg := range configs {
		require.False(t, cfg.Abstract, cfg.ID)
	}

	rr = do(t, h, http.MethodGet, "/widget-configs?all=true", "")
	require.Equal(t, http.StatusOK, rr.Code)
	decodeData(t, rr, &configs)
	require.Len(t, configs, registry.Builtin().Len())
}

func TestGetWidgetConfig(t *testing.T) {
	h := newTestRouter(&stubDashboardService{}, nil)

	rr := do(t, h, http.MethodGet, "/widget-configs/"+string(registry.CostTrend), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var cfg widget.Config
	decodeData(t, rr, &cfg)
	require.Equal(t, string(registry.CostTrend), cfg.ID)
	require.Contains(t, cfg.Labels, widget.LabelCost)

	rr = do(t, h, http.MethodGet, "/widget-configs/unknown", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "not_found", decodeError(t, rr).Code)
}

func TestCreateDashboard(t *testing.T) {
	svc := &stubDashboardService{dashboard: &dashboard.Dashboard{DashboardID: "dash-1", Name: "Costs"}}
	h := newTestRouter(svc, nil)

	rr := do(t, h, http.MethodPost, "/dashboards", `{"name":"Costs"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "Costs", svc.lastCreate.Name)

	rr = do(t, h, http.MethodPost, "/dashboards", "not-json")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "invalid_input", decodeError(t, rr).Code)
}

func TestDashboardRoutesPassParameters(t *testing.T) {
	svc := &stubDashboardService{
		dashboard: &dashboard.Dashboard{DashboardID: "dash-1"},
		widget:    &dashboard.WidgetInfo{WidgetKey: "w1"},
		views:     []dashboard.RenderedWidget{{WidgetKey: "w1", View: widget.View{ConfigID: "costTrend"}}},
	}
	h := newTestRouter(svc, nil)

	rr := do(t, h, http.MethodGet, "/dashboards/dash-1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "dash-1", svc.lastID)

	rr = do(t, h, http.MethodPut, "/dashboards/dash-2/variables", `{"variables":{"provider":["aws"]}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "dash-2", svc.lastID)
	require.Equal(t, widget.DashboardVariables{"provider": []interface{}{"aws"}}, svc.lastVarsReq.Variables)

	rr = do(t, h, http.MethodPost, "/dashboards/dash-3/widgets", `{"widget_name":"costTrend","size":"full"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "dash-3", svc.lastID)
	require.Equal(t, widget.SizeFull, svc.lastAddReq.Size)

	rr = do(t, h, http.MethodGet, "/dashboards/dash-4/widgets/w1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "w1", svc.lastKey)
	var view dashboard.RenderedWidget
	decodeData(t, rr, &view)
	require.Equal(t, "costTrend", view.ConfigID)

	rr = do(t, h, http.MethodGet, "/dashboards/dash-4/widgets", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodPut, "/dashboards/dash-5/widgets/w2", `{"title":"Renamed"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "w2", svc.lastKey)

	rr = do(t, h, http.MethodDelete, "/dashboards/dash-6/widgets/w3", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.True(t, svc.deleteCalled)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "not found", err: errs.NewNotFoundError("dashboard not found"), status: http.StatusNotFound, code: "not_found"},
		{name: "exists", err: errs.NewAlreadyExistsError("dashboard already exists"), status: http.StatusConflict, code: "already_exists"},
		{name: "validation", err: errs.NewValidationError("bad size"), status: http.StatusBadRequest, code: "invalid_input"},
		{name: "database", err: errs.NewDatabaseError("read", "failed", errors.New("disk")), status: http.StatusInternalServerError, code: "internal_error"},
		{name: "cycle", err: &registry.CyclicConfigError{Chain: []registry.ConfigID{"a", "b", "a"}}, status: http.StatusUnprocessableEntity, code: "invalid_config"},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError, code: "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&stubDashboardService{err: tt.err}, nil)
			rr := do(t, h, http.MethodGet, "/dashboards/dash-1", "")
			require.Equal(t, tt.status, rr.Code)
			require.Equal(t, tt.code, decodeError(t, rr).Code)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := telemetry.NewPrometheusCollector(reg)
	require.NoError(t, err)
	collector.IncRefine("costTrend")

	h := newTestRouter(&stubDashboardService{}, reg)
	rr := do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "dashwidget_options_refined_total")

	h = newTestRouter(&stubDashboardService{}, nil)
	rr = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServerShutsDownOnCancel(t *testing.T) {
	srv, err := Listen("127.0.0.1:0", newTestRouter(&stubDashboardService{}, nil), zerolog.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + srv.Addr() + "/widget-configs")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
