// Package api exposes widget configs and dashboards over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterConfig wires the router to its backends.
type RouterConfig struct {
	Dashboards  dashboardService
	Configs     configCatalog
	Logger      zerolog.Logger
	Gatherer    prometheus.Gatherer
	MetricsPath string
}

// NewRouter builds the HTTP routes. Metrics are served only when a gatherer is set.
func NewRouter(cfg RouterConfig) chi.Router {
	h := &handlers{dashboards: cfg.Dashboards, configs: cfg.Configs}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger(cfg.Logger)...)
	r.Use(chimiddleware.Recoverer)

	r.Route("/widget-configs", func(r chi.Router) {
		r.Get("/", h.listWidgetConfigs)
		r.Get("/{configId}", h.getWidgetConfig)
	})
	r.Route("/dashboards", func(r chi.Router) {
		r.Post("/", h.createDashboard)
		r.Get("/", h.listDashboards)
		r.Route("/{dashboardId}", func(r chi.Router) {
			r.Get("/", h.getDashboard)
			r.Delete("/", h.deleteDashboard)
			r.Put("/variables", h.updateVariables)
			r.Get("/widgets", h.listWidgets)
			r.Post("/widgets", h.addWidget)
			r.Get("/widgets/{widgetKey}", h.getWidget)
			r.Put("/widgets/{widgetKey}", h.updateWidget)
			r.Delete("/widgets/{widgetKey}", h.deleteWidget)
		})
	})

	if cfg.Gatherer != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Server serves a handler until its context is cancelled.
type Server struct {
	logger zerolog.Logger
	server *http.Server
	ln     net.Listener
}

// Listen binds the listen address.
func Listen(listen string, handler http.Handler, logger zerolog.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	return &Server{
		logger: logger,
		server: &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second},
		ln:     ln,
	}, nil
}

// Addr returns the bound address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Serve blocks until ctx is cancelled and the server has shut down.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(s.ln)
	}()
	s.logger.Info().Str("listen", s.Addr()).Msg("api server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	s.logger.Info().Msg("api server stopped")
	return nil
}
