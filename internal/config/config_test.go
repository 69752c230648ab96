package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdir is a stand-in for t.Chdir (go1.24+) on older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Dialogue.Backend != "gemini" || cfg.Dialogue.Gemini.Model != "gemini-2.5-flash" {
		t.Errorf("dialogue = %+v", cfg.Dialogue)
	}
	if cfg.Synthesis.Backend != "elevenlabs" {
		t.Errorf("synthesis backend = %q", cfg.Synthesis.Backend)
	}
	if cfg.Artifacts.Retention != time.Hour {
		t.Errorf("retention = %v, want 1h", cfg.Artifacts.Retention)
	}
	if cfg.Artifacts.SweepInterval != 10*time.Minute {
		t.Errorf("sweep interval = %v, want 10m", cfg.Artifacts.SweepInterval)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calldrill.yaml")
	content := `
server:
  port: 9090
dialogue:
  gemini:
    api_key: literal-key
artifacts:
  retention: 30m
logging:
  level: debug
  format: text
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Dialogue.Gemini.APIKey != "literal-key" {
		t.Errorf("api key = %q", cfg.Dialogue.Gemini.APIKey)
	}
	if cfg.Artifacts.Retention != 30*time.Minute {
		t.Errorf("retention = %v, want 30m", cfg.Artifacts.Retention)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("CALLDRILL_SERVER_PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want 7070", cfg.Server.Port)
	}
}

func TestResolveEnvRef(t *testing.T) {
	t.Setenv("CALLDRILL_TEST_SECRET", "s3cret")

	tests := []struct {
		in   string
		want string
	}{
		{"${CALLDRILL_TEST_SECRET}", "s3cret"},
		{"plain-value", "plain-value"},
		{"${UNSET_VARIABLE_XYZ}", "${UNSET_VARIABLE_XYZ}"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := resolveEnvRef(tt.in); got != tt.want {
			t.Errorf("resolveEnvRef(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
