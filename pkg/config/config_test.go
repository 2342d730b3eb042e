package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap/zapcore"
)

// chdir moves into an empty directory so a developer's marcx.yaml is not
// picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdir(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(Default(), *cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFile(t *testing.T) {
	dir := chdir(t)
	content := "log_level: debug\nworkers: 8\npreset: kolis-local\noutput: table\n"
	if err := os.WriteFile(filepath.Join(dir, "marcx.yaml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	want.LogLevel = "debug"
	want.Workers = 8
	want.Preset = "kolis-local"
	want.Output = "table"
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadExplicitFile(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("preset_dir: /etc/marcx/presets\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.PresetDir != "/etc/marcx/presets" {
		t.Errorf("PresetDir = %q, want /etc/marcx/presets", cfg.PresetDir)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() missing explicit file should return error")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	dir := chdir(t)
	if err := os.WriteFile(filepath.Join(dir, "marcx.yaml"), []byte("workers: 8\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MARCX_WORKERS", "2")
	t.Setenv("MARCX_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2 from environment", cfg.Workers)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json", cfg.LogFormat)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad level", "log_level: loud\n"},
		{"bad format", "log_format: xml\n"},
		{"bad output", "output: csv\n"},
		{"zero workers", "workers: 0\n"},
		{"malformed yaml", "workers: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := chdir(t)
			if err := os.WriteFile(filepath.Join(dir, "marcx.yaml"), []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(""); err == nil {
				t.Error("Load() should return error")
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		logger, err := NewLogger("warn", format)
		if err != nil {
			t.Errorf("NewLogger(warn, %s) error = %v", format, err)
			continue
		}
		if logger.Core().Enabled(zapcore.DebugLevel) {
			t.Errorf("NewLogger(warn, %s) enabled debug", format)
		}
	}

	if _, err := NewLogger("loud", "json"); err == nil {
		t.Error("NewLogger() bad level should return error")
	}
	if _, err := NewLogger("info", "xml"); err == nil {
		t.Error("NewLogger() bad format should return error")
	}
}
