package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfig_Full(t *testing.T) {
	yaml := `
cache_policy: racy
discovery: false
call_site:
  max_chain: 3
log:
  level: debug
  format: json
`
	cfg, err := ParseConfig([]byte(yaml), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CachePolicy != CachePolicyRacy {
		t.Errorf("cache_policy = %q, want racy", cfg.CachePolicy)
	}
	if cfg.Discovery {
		t.Error("expected discovery to be false")
	}
	if cfg.CallSite.MaxChain != 3 {
		t.Errorf("max_chain = %d, want 3", cfg.CallSite.MaxChain)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestParseConfig_DefaultsForMissingKeys(t *testing.T) {
	cfg, err := ParseConfig([]byte("log:\n  level: warn\n"), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Default()
	want.Log.Level = "warn"
	if *cfg != *want {
		t.Errorf("got %+v, want %+v", cfg, want)
	}
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"policy", "cache_policy: sometimes", "cache_policy"},
		{"max chain", "call_site:\n  max_chain: 0", "max_chain"},
		{"level", "log:\n  level: loud", "log.level"},
		{"format", "log:\n  format: xml", "log.format"},
		{"syntax", "cache_policy: [", "parsing test.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml), "test.yaml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dynlink.yaml")
	if err := os.WriteFile(path, []byte("call_site:\n  max_chain: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DYNLINK_CALL_SITE_MAX_CHAIN", "16")
	t.Setenv("DYNLINK_CACHE_POLICY", "racy")
	t.Setenv("DYNLINK_LOG_FORMAT", "json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CallSite.MaxChain != 16 {
		t.Errorf("max_chain = %d, want 16", cfg.CallSite.MaxChain)
	}
	if cfg.CachePolicy != CachePolicyRacy {
		t.Errorf("cache_policy = %q", cfg.CachePolicy)
	}
	if cfg.Log.Format != "json" || cfg.Log.Level != "info" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadConfig_InvalidEnv(t *testing.T) {
	t.Setenv("DYNLINK_CALL_SITE_MAX_CHAIN", "many")
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("expected error for a non-numeric override")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for an explicit missing file")
	}

	t.Chdir(t.TempDir())
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("missing default file should not fail: %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("got %+v", cfg)
	}
}

func TestLoadConfig_DefaultFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("discovery: false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Discovery {
		t.Error("expected discovery to be false")
	}
}

func TestLogConfig_NewLogger(t *testing.T) {
	var buf bytes.Buffer
	LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf).Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn: %s", buf.String())
	}
	LogConfig{Level: "debug", Format: "json"}.NewLogger(&buf).Debug("shown", "k", 1)
	if !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
