package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/timzifer/dashwidget/config"
	"github.com/timzifer/dashwidget/dashboard"
	"github.com/timzifer/dashwidget/internal/api"
	"github.com/timzifer/dashwidget/internal/logging"
	"github.com/timzifer/dashwidget/internal/reload"
	"github.com/timzifer/dashwidget/registry"
	"github.com/timzifer/dashwidget/telemetry"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx, cfg, func() (*config.Config, error) { return opts.loadConfig(cmd) })
		},
	}
}

// serve runs the API until ctx is cancelled. reloadConfig re-reads the
// configuration when hot reload detects a change.
func serve(ctx context.Context, cfg *config.Config, reloadConfig func() (*config.Config, error)) error {
	logger, cleanup, err := logging.Setup(cfg.Logging, cfg.ServiceName())
	if err != nil {
		return fmt.Errorf("setup logger: %w", err)
	}
	defer cleanup()
	log.Logger = logger

	collector, gatherer, err := newTelemetryCollector(cfg.Telemetry)
	if err != nil {
		logger.Warn().Err(err).Msg("telemetry disabled")
		collector, gatherer = telemetry.Noop(), nil
	}

	reg, err := buildRegistry(cfg)
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	resolver := registry.NewResolver(reg,
		registry.WithLogger(logger),
		registry.WithCollector(collector),
	)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := dashboard.NewService(store, resolver,
		dashboard.WithLogger(logger),
		dashboard.WithCollector(collector),
	)
	router := api.NewRouter(api.RouterConfig{
		Dashboards:  svc,
		Configs:     resolver,
		Logger:      logging.Component(logger, "http"),
		Gatherer:    gatherer,
		MetricsPath: cfg.MetricsPath(),
	})
	srv, err := api.Listen(cfg.ListenAddr(), router, logging.Component(logger, "api"))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx)
	})
	if cfg.HotReload.Enabled {
		g.Go(func() error {
			return watchRegistry(gctx, cfg, reloadConfig, resolver, collector, logger)
		})
	}
	return g.Wait()
}

// watchRegistry rebuilds the registry whenever the configuration or one of
// the registry source files changes. A configuration or registry that fails
// to load keeps the previous registry active.
func watchRegistry(ctx context.Context, cfg *config.Config, reloadConfig func() (*config.Config, error), resolver *registry.Resolver, collector telemetry.Collector, logger zerolog.Logger) error {
	watchPaths := func(cfg *config.Config, reg *registry.Registry) []string {
		paths := append([]string{}, cfg.Sources...)
		paths = append(paths, cfg.Registry.Paths...)
		return append(paths, reg.SourceFiles()...)
	}

	watcher, err := reload.NewWatcher(logger, watchPaths(cfg, resolver.Registry())...)
	if err != nil {
		return fmt.Errorf("create registry watcher: %w", err)
	}
	return watcher.Run(ctx, cfg.ReloadInterval(), func(changed []string) {
		newCfg, err := reloadConfig()
		if err != nil {
			logger.Error().Err(err).Msg("failed to reload configuration")
			return
		}
		reg, err := buildRegistry(newCfg)
		if err != nil {
			logger.Error().Err(err).Msg("reloaded registry invalid")
			return
		}
		resolver.SetRegistry(reg)
		for _, file := range changed {
			collector.IncHotReload(file)
		}
		cfg = newCfg
		if err := watcher.Update(watchPaths(cfg, reg)...); err != nil {
			logger.Error().Err(err).Msg("failed to update watcher state")
		}
	})
}

func newTelemetryCollector(cfg config.TelemetryConfig) (telemetry.Collector, prometheus.Gatherer, error) {
	if !cfg.Enabled {
		return telemetry.Noop(), nil, nil
	}
	collector, err := telemetry.NewPrometheusCollector(prometheus.DefaultRegisterer)
	if err != nil {
		return nil, nil, err
	}
	return collector, prometheus.DefaultGatherer, nil
}

func openStore(ctx context.Context, cfg *config.Config) (dashboard.Store, func(), error) {
	switch cfg.StoreDriver() {
	case config.StoreFirestore:
		if host := cfg.Store.Firestore.EmulatorHost; host != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", host); err != nil {
				return nil, nil, err
			}
		}
		client, err := dashboard.NewFirestoreClient(ctx, cfg.Store.Firestore.ProjectID, cfg.Store.Firestore.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return dashboard.NewFirestoreStore(client, cfg.FirestoreCollection()), func() { client.Close() }, nil
	default:
		store, err := dashboard.OpenBoltStore(cfg.BoltPath(), cfg.Store.Bolt.Timeout.Duration)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
}
