package preset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func presetDoc(name, version string) string {
	return "name: " + name + "\nversion: \"" + version + "\"\nrules:\n  - {field: isbn, tag: \"020\", subfields: a}\n"
}

func writePreset(t *testing.T, dir, file, doc string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry(nil)
	if registry == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if registry.Count() != 0 {
		t.Errorf("Count() = %d, want 0", registry.Count())
	}
}

func TestRegistryRegister(t *testing.T) {
	registry := NewRegistry(zaptest.NewLogger(t))

	p := mustParse(t, presetDoc("local", "1.0.0"))
	if err := registry.Register(p); err != nil {
		t.Errorf("Register() error = %v", err)
	}
	if registry.Count() != 1 {
		t.Errorf("Count() = %d, want 1", registry.Count())
	}

	if err := registry.Register(nil); err == nil {
		t.Error("Register(nil) should return error")
	}

	if err := registry.Register(mustParse(t, presetDoc("local", "1.0.0"))); err == nil {
		t.Error("Register() duplicate should return error")
	}

	if err := registry.Register(mustParse(t, presetDoc("local", "2.0.0"))); err != nil {
		t.Errorf("Register() new version error = %v", err)
	}
	got, _ := registry.Get("local")
	if got.Version != "2.0.0" {
		t.Errorf("Version = %q, want 2.0.0", got.Version)
	}
}

func TestRegistryRegisterInvalid(t *testing.T) {
	registry := NewRegistry(nil)

	if err := registry.Register(&Preset{Name: "Invalid"}); err == nil {
		t.Error("Register() invalid preset should return error")
	}

	bad := &Preset{Name: "bad", Version: "1.0.0", Rules: []Rule{{Field: "isbn", Tag: "020", Pattern: "[invalid"}}}
	if err := registry.Register(bad); err == nil {
		t.Error("Register() preset with invalid pattern should return error")
	}

	// Register compiles presets built in code.
	built := &Preset{Name: "built", Version: "1.0.0", Rules: []Rule{{Field: "isbn", Value: "x"}}}
	if err := registry.Register(built); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !built.IsCompiled() {
		t.Error("Register() did not compile the preset")
	}
}

func TestRegistryUnregister(t *testing.T) {
	registry := NewRegistry(nil)
	if err := registry.Register(mustParse(t, presetDoc("gone", "1.0.0"))); err != nil {
		t.Fatal(err)
	}

	if err := registry.Unregister("gone"); err != nil {
		t.Errorf("Unregister() error = %v", err)
	}
	if registry.Count() != 0 {
		t.Errorf("Count() = %d, want 0", registry.Count())
	}
	if err := registry.Unregister("gone"); err == nil {
		t.Error("Unregister() missing preset should return error")
	}
}

func TestRegistryList(t *testing.T) {
	registry := NewRegistry(nil)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := registry.Register(mustParse(t, presetDoc(name, "1.0.0"))); err != nil {
			t.Fatal(err)
		}
	}

	var names []string
	for _, p := range registry.List() {
		names = append(names, p.Name)
	}
	if strings.Join(names, ",") != "alpha,mid,zeta" {
		t.Errorf("List() = %v, want sorted by name", names)
	}
}

func TestRegistryLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writePreset(t, dir, "local.yaml", presetDoc("local", "1.0.0"))

	registry := NewRegistry(nil)
	if err := registry.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	p, ok := registry.Get("local")
	if !ok {
		t.Fatal("Get() did not find loaded preset")
	}
	if p.Source != path {
		t.Errorf("Source = %q, want %q", p.Source, path)
	}

	// Reloading the same file at the same version replaces it.
	if err := registry.LoadFile(path); err != nil {
		t.Errorf("LoadFile() same file error = %v", err)
	}

	if err := registry.LoadFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadFile() missing file should return error")
	}

	bad := writePreset(t, dir, "bad.yaml", "name: bad\nrules: [")
	if err := registry.LoadFile(bad); err == nil {
		t.Error("LoadFile() invalid YAML should return error")
	}
}

func TestRegistryLoadDirectory(t *testing.T) {
	dir := t.TempDir()
	writePreset(t, dir, "one.yaml", presetDoc("one", "1.0.0"))
	writePreset(t, dir, "two.yml", presetDoc("two", "1.0.0"))
	writePreset(t, dir, "notes.txt", "not a preset")
	if err := os.Mkdir(filepath.Join(dir, "sub.yaml"), 0755); err != nil {
		t.Fatal(err)
	}

	registry, err := NewRegistryWithDirectory(dir, nil)
	if err != nil {
		t.Fatalf("NewRegistryWithDirectory() error = %v", err)
	}
	if registry.Count() != 2 {
		t.Errorf("Count() = %d, want 2", registry.Count())
	}

	writePreset(t, dir, "broken.yaml", "name: broken\n")
	err = registry.LoadDirectory(dir)
	if err == nil || !strings.Contains(err.Error(), "broken.yaml") {
		t.Errorf("LoadDirectory() error = %v, want mention of broken.yaml", err)
	}
	if registry.Count() != 2 {
		t.Errorf("Count() = %d after partial failure, want 2", registry.Count())
	}
}

func TestRegistryLoadDirectoryNonExistent(t *testing.T) {
	registry := NewRegistry(nil)
	if err := registry.LoadDirectory("/nonexistent/presets"); err != nil {
		t.Errorf("LoadDirectory() nonexistent error = %v, want nil", err)
	}
}

func TestRegistryLoadShippedPresets(t *testing.T) {
	registry, err := NewRegistryWithDirectory(filepath.Join("..", "..", "presets"), nil)
	if err != nil {
		t.Fatalf("NewRegistryWithDirectory() error = %v", err)
	}
	if _, ok := registry.Get("kolis-local"); !ok {
		t.Error("shipped preset kolis-local not loaded")
	}
}

func TestRegistryReload(t *testing.T) {
	dir := t.TempDir()
	path := writePreset(t, dir, "local.yaml", presetDoc("local", "1.0.0"))

	registry, err := NewRegistryWithDirectory(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	writePreset(t, dir, "extra.yaml", presetDoc("extra", "1.0.0"))
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	if err := registry.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if _, ok := registry.Get("local"); ok {
		t.Error("Reload() kept a preset whose file was removed")
	}
	if _, ok := registry.Get("extra"); !ok {
		t.Error("Reload() did not load the new preset")
	}
}

func TestRegistryReloadNoDirectory(t *testing.T) {
	if err := NewRegistry(nil).Reload(); err == nil {
		t.Error("Reload() without directory should return error")
	}
}

func TestRegistryWatch(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping watch test in short mode")
	}

	dir := t.TempDir()
	path := writePreset(t, dir, "watched.yaml", presetDoc("watched", "1.0.0"))

	core, logs := observer.New(zapcore.InfoLevel)
	registry, err := NewRegistryWithDirectory(dir, zap.New(core))
	if err != nil {
		t.Fatalf("NewRegistryWithDirectory() error = %v", err)
	}

	changed := make(chan string, 4)
	registry.SetOnChange(func(event string, p *Preset) {
		if p != nil && event != EventRemove && p.Version == "2.0.0" {
			select {
			case changed <- event:
			default:
			}
		}
	})

	if err := registry.Watch(); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	defer registry.StopWatch()

	time.Sleep(100 * time.Millisecond)

	writePreset(t, dir, "watched.yaml", presetDoc("watched", "2.0.0"))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Log("Watch() did not detect file change within timeout (may be CI environment)")
		return
	}

	p, _ := registry.Get("watched")
	if p.Version != "2.0.0" {
		t.Errorf("Version = %q, want 2.0.0", p.Version)
	}
	if p.Source != path {
		t.Errorf("Source = %q, want %q", p.Source, path)
	}
	if logs.FilterMessage("preset reloaded").Len() == 0 {
		t.Error("no reload log entry")
	}
}

func TestRegistryWatchNoDirectory(t *testing.T) {
	if err := NewRegistry(nil).Watch(); err == nil {
		t.Error("Watch() without directory should return error")
	}
}
