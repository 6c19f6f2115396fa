package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/timzifer/dashwidget/config"
)

// Setup creates the service logger writing to stdout and, when enabled, to Loki.
// The returned cleanup flushes pending Loki batches.
func Setup(cfg config.LoggingConfig, service string) (zerolog.Logger, func(), error) {
	return SetupWithWriter(cfg, service, os.Stdout)
}

// SetupWithWriter is Setup with a custom primary writer.
func SetupWithWriter(cfg config.LoggingConfig, service string, out io.Writer) (zerolog.Logger, func(), error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	primary := out
	switch strings.ToLower(cfg.Format) {
	case "", "json":
	case "text":
		primary = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return zerolog.Logger{}, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	writers := []io.Writer{primary}
	cleanup := func() {}

	if cfg.Loki.Enabled {
		lokiWriter, closer, err := newLokiWriter(cfg.Loki, service)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, lokiWriter)
		cleanup = closer
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger()
	return logger, cleanup, nil
}

// Component derives a logger tagged with a component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func newLokiWriter(cfg config.LokiConfig, service string) (io.Writer, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create loki client: %w", err)
	}
	return &lokiWriter{client: client, labels: lokiLabels(cfg.Labels, service)}, client.Stop, nil
}

func lokiLabels(configured map[string]string, service string) model.LabelSet {
	labels := model.LabelSet{}
	for k, v := range configured {
		labels[model.LabelName(k)] = model.LabelValue(v)
	}
	if _, ok := labels["app"]; !ok {
		app := service
		if app == "" {
			app = "dashwidget"
		}
		labels["app"] = model.LabelValue(app)
	}
	return labels
}

type lokiWriter struct {
	client *loki.Client
	labels model.LabelSet
}

func (l *lokiWriter) Write(p []byte) (int, error) {
	entry := strings.TrimSpace(string(p))
	if entry == "" {
		return len(p), nil
	}
	err := l.client.Handle(l.labels, time.Now(), entry)
	return len(p), err
}
