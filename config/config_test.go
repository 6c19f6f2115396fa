package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadModules(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "config.yaml")
	modulePath := filepath.Join(dir, "store.yaml")

	writeConfig(t, modulePath, `store:
  driver: bolt
  bolt:
    path: data/dashboards.db
registry:
  paths:
    - extra-widgets
`)
	writeConfig(t, mainPath, `name: console
listen: ":9090"
modules:
  - store.yaml
registry:
  paths:
    - widgets
hot_reload:
  enabled: true
  interval: 2s
`)

	cfg, err := Load(mainPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.ServiceName() != "console" {
		t.Fatalf("expected name console, got %q", cfg.ServiceName())
	}
	if cfg.ListenAddr() != ":9090" {
		t.Fatalf("expected listen :9090, got %q", cfg.ListenAddr())
	}
	want := []string{filepath.Join(dir, "widgets"), filepath.Join(dir, "extra-widgets")}
	if len(cfg.Registry.Paths) != len(want) {
		t.Fatalf("expected %d registry paths, got %v", len(want), cfg.Registry.Paths)
	}
	for i := range want {
		if cfg.Registry.Paths[i] != want[i] {
			t.Fatalf("registry path %d: expected %s, got %s", i, want[i], cfg.Registry.Paths[i])
		}
	}
	if cfg.StoreDriver() != StoreBolt {
		t.Fatalf("expected bolt store, got %q", cfg.StoreDriver())
	}
	if cfg.BoltPath() != filepath.Join(dir, "data", "dashboards.db") {
		t.Fatalf("unexpected bolt path %q", cfg.BoltPath())
	}
	if cfg.ReloadInterval() != 2*time.Second {
		t.Fatalf("expected 2s reload interval, got %s", cfg.ReloadInterval())
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("expected 2 source files, got %v", cfg.Sources)
	}
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, filepath.Join(dir, "a.yaml"), "modules:\n  - b.yaml\n")
	writeConfig(t, filepath.Join(dir, "b.yaml"), "modules:\n  - a.yaml\n")

	_, err := Load(filepath.Join(dir, "a.yaml"))
	if err == nil || !strings.Contains(err.Error(), "include cycle") {
		t.Fatalf("expected include cycle error, got %v", err)
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "hot_reload:\n  enabled: true\n  interval: soon\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected duration error")
	}
}

func TestDefaults(t *testing.T) {
	var cfg *Config
	if cfg.ListenAddr() != ":8080" {
		t.Fatalf("unexpected default listen %q", cfg.ListenAddr())
	}
	if !cfg.UseBuiltinRegistry() {
		t.Fatal("builtin registry should be enabled by default")
	}
	if cfg.MetricsPath() != "/metrics" {
		t.Fatalf("unexpected metrics path %q", cfg.MetricsPath())
	}
	if cfg.ReloadInterval() != 5*time.Second {
		t.Fatalf("unexpected reload interval %s", cfg.ReloadInterval())
	}
	if cfg.FirestoreCollection() != "dashboards" {
		t.Fatalf("unexpected collection %q", cfg.FirestoreCollection())
	}
}

func TestValidate(t *testing.T) {
	disabled := false
	cases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "defaults", cfg: Config{}},
		{name: "firestore without project", cfg: Config{Store: StoreConfig{Driver: "firestore"}}, wantErr: "project_id"},
		{name: "unknown driver", cfg: Config{Store: StoreConfig{Driver: "postgres"}}, wantErr: "unknown store driver"},
		{name: "loki without url", cfg: Config{Logging: LoggingConfig{Loki: LokiConfig{Enabled: true}}}, wantErr: "loki.url"},
		{name: "no registry", cfg: Config{Registry: RegistryConfig{Builtin: &disabled}}, wantErr: "registry.paths"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}
