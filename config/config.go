package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// ModuleInclude describes a referenced configuration module.
type ModuleInclude struct {
	Path string
}

// UnmarshalYAML allows module includes to be declared either as scalar strings or structured objects.
func (m *ModuleInclude) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return errors.New("module include node is nil")
	}
	switch value.Kind {
	case yaml.ScalarNode:
		var path string
		if err := value.Decode(&path); err != nil {
			return fmt.Errorf("decode module path: %w", err)
		}
		m.Path = strings.TrimSpace(path)
		return nil
	case yaml.MappingNode:
		var raw struct {
			Path string `yaml:"path"`
		}
		if err := value.Decode(&raw); err != nil {
			return fmt.Errorf("decode module include: %w", err)
		}
		if raw.Path == "" {
			return errors.New("module include missing path")
		}
		m.Path = raw.Path
		return nil
	default:
		return fmt.Errorf("unsupported module include node kind %d", value.Kind)
	}
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki"`
}

// TelemetryConfig configures the metrics endpoint.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// RegistryConfig lists the widget registry sources.
type RegistryConfig struct {
	Paths []string `yaml:"paths"`
	// Builtin controls whether the compiled-in configs form the lowest layer.
	Builtin *bool `yaml:"builtin,omitempty"`
}

// Store drivers.
const (
	StoreBolt      = "bolt"
	StoreFirestore = "firestore"
)

// BoltConfig configures the local dashboard store.
type BoltConfig struct {
	Path    string   `yaml:"path"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

// FirestoreConfig configures the cloud dashboard store.
type FirestoreConfig struct {
	ProjectID       string `yaml:"project_id"`
	Collection      string `yaml:"collection,omitempty"`
	CredentialsFile string `yaml:"credentials_file,omitempty"`
	EmulatorHost    string `yaml:"emulator_host,omitempty"`
}

// StoreConfig selects and configures the dashboard store.
type StoreConfig struct {
	Driver    string          `yaml:"driver"`
	Bolt      BoltConfig      `yaml:"bolt"`
	Firestore FirestoreConfig `yaml:"firestore"`
}

// HotReloadConfig controls watching of registry files.
type HotReloadConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval,omitempty"`
}

// Config is the service configuration.
type Config struct {
	Name      string          `yaml:"name"`
	Listen    string          `yaml:"listen"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Registry  RegistryConfig  `yaml:"registry"`
	Store     StoreConfig     `yaml:"store"`
	HotReload HotReloadConfig `yaml:"hot_reload"`
	Modules   []ModuleInclude `yaml:"modules"`

	// Sources lists every file that contributed to the configuration.
	Sources []string `yaml:"-"`
}

// Load reads and decodes the configuration file from disk. Included modules
// are merged into the including file; values set by the including file win.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg, err := loadFile(abs, make(map[string]struct{}))
	if err != nil {
		return nil, err
	}
	sort.Strings(cfg.Sources)
	return cfg, nil
}

func loadFile(path string, visited map[string]struct{}) (*Config, error) {
	if _, ok := visited[path]; ok {
		return nil, fmt.Errorf("config include cycle detected at %s", path)
	}
	visited[path] = struct{}{}
	defer delete(visited, path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var document yaml.Node
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if len(document.Content) == 0 || document.Content[0] == nil {
		return nil, fmt.Errorf("config %s is empty", path)
	}
	root := document.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config %s: top-level YAML document must be a mapping", path)
	}

	var cfg Config
	if err := root.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	baseDir := filepath.Dir(path)
	cfg.Registry.Paths = resolvePaths(baseDir, cfg.Registry.Paths)
	if cfg.Store.Bolt.Path != "" && !filepath.IsAbs(cfg.Store.Bolt.Path) {
		cfg.Store.Bolt.Path = filepath.Join(baseDir, cfg.Store.Bolt.Path)
	}
	cfg.Sources = []string{path}

	modules := cfg.Modules
	cfg.Modules = nil
	for _, module := range modules {
		if module.Path == "" {
			continue
		}
		modulePath := module.Path
		if !filepath.IsAbs(modulePath) {
			modulePath = filepath.Join(baseDir, module.Path)
		}
		included, err := loadFile(modulePath, visited)
		if err != nil {
			return nil, fmt.Errorf("load module %s: %w", module.Path, err)
		}
		mergeConfig(&cfg, included)
	}
	return &cfg, nil
}

func resolvePaths(baseDir string, paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(baseDir, p)
		}
		out = append(out, p)
	}
	return out
}

// mergeConfig fills unset values of dst from src and appends list values.
func mergeConfig(dst, src *Config) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Listen == "" {
		dst.Listen = src.Listen
	}
	if dst.Logging.Level == "" {
		dst.Logging.Level = src.Logging.Level
	}
	if dst.Logging.Format == "" {
		dst.Logging.Format = src.Logging.Format
	}
	if !dst.Logging.Loki.Enabled && src.Logging.Loki.Enabled {
		dst.Logging.Loki = src.Logging.Loki
	}
	if !dst.Telemetry.Enabled && src.Telemetry.Enabled {
		dst.Telemetry = src.Telemetry
	}
	dst.Registry.Paths = append(dst.Registry.Paths, src.Registry.Paths...)
	if dst.Registry.Builtin == nil {
		dst.Registry.Builtin = src.Registry.Builtin
	}
	if dst.Store.Driver == "" {
		dst.Store = src.Store
	}
	if !dst.HotReload.Enabled && src.HotReload.Enabled {
		dst.HotReload = src.HotReload
	}
	dst.Sources = append(dst.Sources, src.Sources...)
}

// ListenAddr returns the HTTP listen address.
func (c *Config) ListenAddr() string {
	if c == nil || c.Listen == "" {
		return ":8080"
	}
	return c.Listen
}

// ServiceName returns the configured service name.
func (c *Config) ServiceName() string {
	if c == nil || c.Name == "" {
		return "dashwidget"
	}
	return c.Name
}

// UseBuiltinRegistry reports whether the compiled-in configs are loaded.
func (c *Config) UseBuiltinRegistry() bool {
	if c == nil || c.Registry.Builtin == nil {
		return true
	}
	return *c.Registry.Builtin
}

// MetricsPath returns the path the metrics endpoint is served on.
func (c *Config) MetricsPath() string {
	if c == nil || c.Telemetry.Path == "" {
		return "/metrics"
	}
	return c.Telemetry.Path
}

// ReloadInterval returns the fallback polling interval for hot reload.
func (c *Config) ReloadInterval() time.Duration {
	if c == nil || c.HotReload.Interval.Duration <= 0 {
		return 5 * time.Second
	}
	return c.HotReload.Interval.Duration
}

// StoreDriver returns the configured store driver.
func (c *Config) StoreDriver() string {
	if c == nil || c.Store.Driver == "" {
		return StoreBolt
	}
	return strings.ToLower(c.Store.Driver)
}

// BoltPath returns the bolt database file.
func (c *Config) BoltPath() string {
	if c == nil || c.Store.Bolt.Path == "" {
		return "dashwidget.db"
	}
	return c.Store.Bolt.Path
}

// FirestoreCollection returns the collection holding dashboard documents.
func (c *Config) FirestoreCollection() string {
	if c == nil || c.Store.Firestore.Collection == "" {
		return "dashboards"
	}
	return c.Store.Firestore.Collection
}

// Validate checks the configuration for inconsistent settings.
func (c *Config) Validate() error {
	switch c.StoreDriver() {
	case StoreBolt:
	case StoreFirestore:
		if c.Store.Firestore.ProjectID == "" {
			return errors.New("store.firestore.project_id is required")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Logging.Loki.Enabled && c.Logging.Loki.URL == "" {
		return errors.New("logging.loki.url is required when loki is enabled")
	}
	if !c.UseBuiltinRegistry() && len(c.Registry.Paths) == 0 {
		return errors.New("registry.paths is required when the builtin registry is disabled")
	}
	return nil
}
