package measuredna

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/himanishpuri/MeasureDNA/pkg/measuredna/highlight"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("MEASURE_DB_PATH", "")
	cfg := defaultConfig()
	if cfg.DBPath != "measuredna.sqlite3" {
		t.Errorf("Expected default db path, got %s", cfg.DBPath)
	}
	if cfg.HighlightColor != highlight.DefaultHighlightColor || cfg.DefaultColor != highlight.DefaultRestoreColor {
		t.Errorf("Unexpected default colours %s/%s", cfg.HighlightColor, cfg.DefaultColor)
	}

	t.Setenv("MEASURE_DB_PATH", "/tmp/other.sqlite3")
	if got := defaultConfig().DBPath; got != "/tmp/other.sqlite3" {
		t.Errorf("Expected env db path, got %s", got)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "measuredna.yaml")
	content := `db_path: scores.sqlite3
log_level: debug
highlight:
  color: "#00FF00"
server:
  port: 9090
  origins: ["http://localhost:3000"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile failed: %v", err)
	}
	if fc.DBPath != "scores.sqlite3" || fc.LogLevel != "debug" {
		t.Errorf("Unexpected config %+v", fc)
	}
	if fc.Server.Port != 9090 || len(fc.Server.Origins) != 1 {
		t.Errorf("Unexpected server config %+v", fc.Server)
	}

	cfg := defaultConfig()
	for _, opt := range fc.Options() {
		opt(cfg)
	}
	if cfg.DBPath != "scores.sqlite3" {
		t.Errorf("Expected db path from file, got %s", cfg.DBPath)
	}
	if cfg.HighlightColor != "#00FF00" {
		t.Errorf("Expected highlight colour from file, got %s", cfg.HighlightColor)
	}
	if cfg.DefaultColor != highlight.DefaultRestoreColor {
		t.Errorf("Unset default colour should keep its default, got %s", cfg.DefaultColor)
	}
}

func TestLoadConfigFileErrors(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("highlight: [unclosed"), 0o644)
	if _, err := LoadConfigFile(path); err == nil {
		t.Error("Expected error for invalid YAML")
	}

	var fc *FileConfig
	if fc.Options() != nil {
		t.Error("Expected no options from nil config")
	}
}
