package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/timzifer/dashwidget/widget"
)

// ModuleInclude references another registry file or directory.
type ModuleInclude struct {
	Path        string
	Name        string
	Description string
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
		type rawModule struct {
			Path        string `yaml:"path"`
			Name        string `yaml:"name"`
			Description string `yaml:"description"`
		}
		var raw rawModule
		if err := value.Decode(&raw); err != nil {
			return fmt.Errorf("decode module include: %w", err)
		}
		if raw.Path == "" {
			return errors.New("module include missing path")
		}
		m.Path = raw.Path
		m.Name = raw.Name
		m.Description = raw.Description
		return nil
	default:
		return fmt.Errorf("unsupported module include node kind %d", value.Kind)
	}
}

type document struct {
	Modules []ModuleInclude `yaml:"modules"`
	Configs []widget.Config `yaml:"configs"`
}

// Load reads registry files. Each path may be a YAML file or a directory of
// YAML files; files may pull in further files through "modules". Every file
// is validated against the registry schema before it is decoded.
func Load(paths ...string) (*Registry, error) {
	r := &Registry{
		configs: make(map[ConfigID]widget.Config),
		sources: make(map[ConfigID]string),
	}
	loaded := make(map[string]struct{})
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			return nil, errors.New("registry path must not be empty")
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve registry path: %w", err)
		}
		if err := loadPath(r, abs, make(map[string]struct{}), loaded); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func loadPath(r *Registry, path string, visited, loaded map[string]struct{}) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat registry path: %w", err)
	}
	if info.IsDir() {
		return loadDir(r, path, visited, loaded)
	}
	return loadFile(r, path, visited, loaded)
}

func loadFile(r *Registry, path string, visited, loaded map[string]struct{}) error {
	if _, ok := visited[path]; ok {
		return fmt.Errorf("registry include cycle detected at %s", path)
	}
	if _, ok := loaded[path]; ok {
		return nil
	}
	visited[path] = struct{}{}
	defer delete(visited, path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read registry %s: %w", path, err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return fmt.Errorf("unmarshal registry %s: %w", path, err)
	}
	if len(node.Content) == 0 || node.Content[0] == nil {
		return fmt.Errorf("registry %s is empty", path)
	}
	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("registry %s: top-level YAML document must be a mapping", path)
	}

	var generic interface{}
	if err := root.Decode(&generic); err != nil {
		return fmt.Errorf("decode registry %s: %w", path, err)
	}
	if err := validateDocument(path, generic); err != nil {
		return err
	}

	var doc document
	if err := root.Decode(&doc); err != nil {
		return fmt.Errorf("decode registry %s: %w", path, err)
	}
	loaded[path] = struct{}{}

	for _, cfg := range doc.Configs {
		normalizeFilters(&cfg)
		if err := r.add(cfg, path); err != nil {
			return err
		}
	}

	baseDir := filepath.Dir(path)
	for _, module := range doc.Modules {
		if module.Path == "" {
			continue
		}
		modulePath := module.Path
		if !filepath.IsAbs(modulePath) {
			modulePath = filepath.Join(baseDir, module.Path)
		}
		if err := loadPath(r, modulePath, visited, loaded); err != nil {
			return fmt.Errorf("load module %s: %w", module.Path, err)
		}
	}
	return nil
}

func loadDir(r *Registry, path string, visited, loaded map[string]struct{}) error {
	if _, ok := visited[path]; ok {
		return fmt.Errorf("registry include cycle detected at %s", path)
	}
	visited[path] = struct{}{}
	defer delete(visited, path)

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("read registry dir %s: %w", path, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !IsRegistryFile(entry.Name()) {
			continue
		}
		if err := loadFile(r, filepath.Join(path, entry.Name()), visited, loaded); err != nil {
			return err
		}
	}
	return nil
}

// IsRegistryFile reports whether name has a registry file extension.
func IsRegistryFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func normalizeFilters(cfg *widget.Config) {
	value, ok := cfg.Options[widget.FiltersKey]
	if !ok {
		return
	}
	if filters, ok := widget.FiltersFrom(value); ok {
		cfg.Options[widget.FiltersKey] = filters
	}
}
