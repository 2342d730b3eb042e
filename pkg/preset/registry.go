package preset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/fsnotify.v1"
)

// Change events passed to the SetOnChange callback.
const (
	EventCreate = "create"
	EventModify = "modify"
	EventRemove = "remove"
)

// Registry manages a collection of extraction presets.
type Registry interface {
	// Register adds a preset to the registry
	Register(p *Preset) error

	// Unregister removes a preset from the registry
	Unregister(name string) error

	// Get returns a preset by name
	Get(name string) (*Preset, bool)

	// List returns all registered presets sorted by name
	List() []*Preset

	// Reload reloads all presets from the configured directory
	Reload() error

	// Watch starts watching the preset directory for changes
	Watch() error

	// StopWatch stops watching the preset directory
	StopWatch()

	// LoadDirectory loads all presets from a directory
	LoadDirectory(dir string) error

	// LoadFile loads a single preset file
	LoadFile(path string) error
}

// DefaultRegistry is the default implementation of Registry.
type DefaultRegistry struct {
	mu       sync.RWMutex
	presets  map[string]*Preset
	files    map[string]string // path -> preset name
	dir      string
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	onChange func(event string, p *Preset)
}

// NewRegistry creates an empty registry. A nil logger discards diagnostics.
func NewRegistry(logger *zap.Logger) *DefaultRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultRegistry{
		presets: make(map[string]*Preset),
		files:   make(map[string]string),
		logger:  logger,
	}
}

// NewRegistryWithDirectory creates a registry and loads presets from dir.
func NewRegistryWithDirectory(dir string, logger *zap.Logger) (*DefaultRegistry, error) {
	r := NewRegistry(logger)
	if err := r.LoadDirectory(dir); err != nil {
		return nil, err
	}
	return r, nil
}

// Register adds a preset. A preset with the same name replaces the existing
// one when its version differs or when it was reloaded from the same file.
func (r *DefaultRegistry) Register(p *Preset) error {
	if p == nil {
		return fmt.Errorf("preset cannot be nil")
	}

	if err := p.Validate(); err != nil {
		return fmt.Errorf("invalid preset: %w", err)
	}

	if !p.IsCompiled() {
		if err := p.Compile(); err != nil {
			return fmt.Errorf("compiling preset %q: %w", p.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.presets[p.Name]; ok && existing.Version == p.Version && (p.Source == "" || existing.Source != p.Source) {
		return fmt.Errorf("preset %q version %s already registered", p.Name, p.Version)
	}

	r.presets[p.Name] = p
	if p.Source != "" {
		r.files[p.Source] = p.Name
	}
	return nil
}

// Unregister removes a preset by name.
func (r *DefaultRegistry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.presets[name]
	if !ok {
		return fmt.Errorf("preset %q not found", name)
	}
	delete(r.presets, name)
	if p.Source != "" {
		delete(r.files, p.Source)
	}
	return nil
}

// Get returns a preset by name.
func (r *DefaultRegistry) Get(name string) (*Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.presets[name]
	return p, ok
}

// List returns all registered presets sorted by name.
func (r *DefaultRegistry) List() []*Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	presets := make([]*Preset, 0, len(r.presets))
	for _, p := range r.presets {
		presets = append(presets, p)
	}
	sort.Slice(presets, func(i, j int) bool { return presets[i].Name < presets[j].Name })
	return presets
}

// Count returns the number of registered presets.
func (r *DefaultRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.presets)
}

// Dir returns the configured preset directory.
func (r *DefaultRegistry) Dir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dir
}

// LoadDirectory loads all YAML preset files from dir. A missing directory is
// not an error. Every file is attempted; failures are reported together.
func (r *DefaultRegistry) LoadDirectory(dir string) error {
	r.mu.Lock()
	r.dir = dir
	r.mu.Unlock()

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Debug("preset directory does not exist", zap.String("dir", dir))
			return nil
		}
		return fmt.Errorf("checking directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}

	var loadErrors []string
	for _, entry := range entries {
		if entry.IsDir() || !isPresetFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := r.LoadFile(path); err != nil {
			loadErrors = append(loadErrors, fmt.Sprintf("%s: %v", entry.Name(), err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("errors loading presets: %s", strings.Join(loadErrors, "; "))
	}
	r.logger.Info("presets loaded", zap.String("dir", dir), zap.Int("count", r.Count()))
	return nil
}

// LoadFile loads a single preset file.
func (r *DefaultRegistry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return err
	}
	p.Source = path

	if err := r.Register(p); err != nil {
		return fmt.Errorf("registering preset: %w", err)
	}
	return nil
}

// Reload clears the registry and reloads the configured directory.
func (r *DefaultRegistry) Reload() error {
	dir := r.Dir()
	if dir == "" {
		return fmt.Errorf("no directory configured for reload")
	}

	r.Clear()
	return r.LoadDirectory(dir)
}

// SetOnChange sets a callback invoked after the watcher applies a change.
// For EventRemove the preset is the one that was removed, or nil if the
// file held no registered preset.
func (r *DefaultRegistry) SetOnChange(fn func(event string, p *Preset)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Watch starts watching the preset directory for changes.
func (r *DefaultRegistry) Watch() error {
	dir := r.Dir()
	if dir == "" {
		return fmt.Errorf("no directory configured for watching")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}

	r.watcher = watcher
	r.stopChan = make(chan struct{})
	go r.watchLoop(watcher, r.stopChan)

	r.logger.Info("watching preset directory", zap.String("dir", dir))
	return nil
}

func (r *DefaultRegistry) watchLoop(watcher *fsnotify.Watcher, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !isPresetFile(event.Name) {
				continue
			}

			switch {
			case event.Op&fsnotify.Create == fsnotify.Create:
				r.handleFileChange(event.Name, EventCreate)
			case event.Op&fsnotify.Write == fsnotify.Write:
				r.handleFileChange(event.Name, EventModify)
			case event.Op&fsnotify.Remove == fsnotify.Remove,
				event.Op&fsnotify.Rename == fsnotify.Rename:
				r.handleFileRemove(event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("preset watcher error", zap.Error(err))
		}
	}
}

func (r *DefaultRegistry) handleFileChange(path, event string) {
	if err := r.LoadFile(path); err != nil {
		r.logger.Warn("preset not reloaded", zap.String("file", path), zap.String("event", event), zap.Error(err))
		return
	}

	p, ok := r.presetByFile(path)
	if !ok {
		return
	}
	r.logger.Info("preset reloaded",
		zap.String("file", path),
		zap.String("event", event),
		zap.String("preset", p.Name),
		zap.String("version", p.Version),
	)
	r.notify(event, p)
}

func (r *DefaultRegistry) handleFileRemove(path string) {
	p, ok := r.presetByFile(path)
	if ok {
		if err := r.Unregister(p.Name); err != nil {
			r.logger.Warn("preset not removed", zap.String("file", path), zap.Error(err))
		} else {
			r.logger.Info("preset removed", zap.String("file", path), zap.String("preset", p.Name))
		}
	}
	r.notify(EventRemove, p)
}

func (r *DefaultRegistry) notify(event string, p *Preset) {
	r.mu.RLock()
	fn := r.onChange
	r.mu.RUnlock()
	if fn != nil {
		fn(event, p)
	}
}

// presetByFile returns the preset loaded from path.
func (r *DefaultRegistry) presetByFile(path string) (*Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	name, ok := r.files[path]
	if !ok {
		return nil, false
	}
	p, ok := r.presets[name]
	return p, ok
}

// StopWatch stops watching the preset directory.
func (r *DefaultRegistry) StopWatch() {
	if r.stopChan != nil {
		close(r.stopChan)
		r.stopChan = nil
	}
	if r.watcher != nil {
		r.watcher.Close()
		r.watcher = nil
	}
}

// Clear removes all presets from the registry.
func (r *DefaultRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets = make(map[string]*Preset)
	r.files = make(map[string]string)
}

func isPresetFile(name string) bool {
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}
