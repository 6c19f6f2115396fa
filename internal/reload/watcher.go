package reload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/timzifer/dashwidget/registry"
)

const debounceInterval = 100 * time.Millisecond

type fileState struct {
	modTime time.Time
	size    int64
	dir     bool
}

// Watcher keeps track of registry and configuration source files and detects
// modifications. Directories are tracked together with the registry files
// they contain, so added files show up as a directory change.
type Watcher struct {
	mu     sync.Mutex
	roots  []string
	files  map[string]fileState
	logger zerolog.Logger
}

// NewWatcher builds a watcher tracking the given files and directories.
func NewWatcher(logger zerolog.Logger, paths ...string) (*Watcher, error) {
	watcher := &Watcher{logger: logger.With().Str("component", "reload").Logger()}
	if err := watcher.Update(paths...); err != nil {
		return nil, err
	}
	return watcher, nil
}

// Update replaces the tracked paths and snapshots their current state.
func (w *Watcher) Update(paths ...string) error {
	if w == nil {
		return nil
	}
	roots := make([]string, 0, len(paths))
	for _, path := range uniquePaths(paths) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve watch path %s: %w", path, err)
		}
		roots = append(roots, abs)
	}
	roots = uniquePaths(roots)
	states := snapshot(roots)

	w.mu.Lock()
	w.roots = roots
	w.files = states
	w.mu.Unlock()
	return nil
}

// Files returns the tracked paths in sorted order.
func (w *Watcher) Files() []string {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	files := make([]string, 0, len(w.files))
	for path := range w.files {
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}

// Check reports the files that changed since the last snapshot.
func (w *Watcher) Check() ([]string, error) {
	if w == nil {
		return nil, nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	changed := make([]string, 0)
	for path, state := range w.files {
		info, err := os.Stat(path)
		if err != nil {
			changed = append(changed, path)
			continue
		}
		if info.IsDir() != state.dir {
			changed = append(changed, path)
			continue
		}
		if info.ModTime().After(state.modTime) {
			changed = append(changed, path)
			continue
		}
		if !state.dir && info.Size() != state.size {
			changed = append(changed, path)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

// Run watches the tracked paths until ctx is cancelled. File system events
// trigger a check after a short debounce; interval drives a fallback check for
// file systems without change notifications. onChange receives the changed
// paths and may call Update; the snapshot is refreshed afterwards.
func (w *Watcher) Run(ctx context.Context, interval time.Duration, onChange func(changed []string)) error {
	if w == nil {
		return nil
	}
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer notify.Close()

	watched := make(map[string]struct{})
	w.watchDirs(notify, watched)

	if interval <= 0 {
		interval = 5 * time.Second
	}
	fallback := time.NewTicker(interval)
	defer fallback.Stop()
	debounce := time.NewTicker(debounceInterval)
	defer debounce.Stop()

	pending := false
	check := func() {
		changed, err := w.Check()
		if err != nil {
			w.logger.Error().Err(err).Msg("check watched files")
			return
		}
		if len(changed) == 0 {
			return
		}
		w.logger.Info().Strs("files", changed).Msg("source files changed")
		if onChange != nil {
			onChange(changed)
		}
		w.refresh()
		w.watchDirs(notify, watched)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-notify.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				pending = true
			}
		case err, ok := <-notify.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("file watcher error")
		case <-debounce.C:
			if pending {
				pending = false
				check()
			}
		case <-fallback.C:
			check()
		}
	}
}

func (w *Watcher) refresh() {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	states := snapshot(roots)
	w.mu.Lock()
	w.files = states
	w.mu.Unlock()
}

// watchDirs registers the directories holding tracked paths with notify.
func (w *Watcher) watchDirs(notify *fsnotify.Watcher, watched map[string]struct{}) {
	w.mu.Lock()
	dirs := make([]string, 0, len(w.files))
	for path, state := range w.files {
		if state.dir {
			dirs = append(dirs, path)
			continue
		}
		dirs = append(dirs, filepath.Dir(path))
	}
	w.mu.Unlock()

	for _, dir := range uniquePaths(dirs) {
		if _, ok := watched[dir]; ok {
			continue
		}
		if err := notify.Add(dir); err != nil {
			w.logger.Warn().Err(err).Str("dir", dir).Msg("watch directory")
			continue
		}
		watched[dir] = struct{}{}
	}
}

func snapshot(roots []string) map[string]fileState {
	states := make(map[string]fileState, len(roots))
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			states[root] = fileState{modTime: info.ModTime(), size: info.Size()}
			continue
		}
		states[root] = fileState{modTime: info.ModTime(), dir: true}
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !registry.IsRegistryFile(entry.Name()) {
				continue
			}
			path := filepath.Join(root, entry.Name())
			if info, err := os.Stat(path); err == nil {
				states[path] = fileState{modTime: info.ModTime(), size: info.Size()}
			}
		}
	}
	return states
}

func uniquePaths(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	result := make([]string, 0, len(paths))
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		result = append(result, path)
	}
	return result
}
