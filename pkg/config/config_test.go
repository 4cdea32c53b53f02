package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected default provider openai, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "gpt-3.5-turbo" {
		t.Errorf("expected default model gpt-3.5-turbo, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0 || cfg.LLM.MaxRows != 5000 {
		t.Errorf("unexpected llm defaults %+v", cfg.LLM)
	}
	if cfg.Data.Path != "data.csv" || cfg.Web.Addr != ":8501" {
		t.Errorf("unexpected defaults data=%q addr=%q", cfg.Data.Path, cfg.Web.Addr)
	}
	if cfg.Web.RateLimit.Requests != 20 || cfg.Web.RateLimit.Window != time.Minute {
		t.Errorf("unexpected rate limit %+v", cfg.Web.RateLimit)
	}
	if cfg.Audit.Enabled || cfg.Telemetry.Exporter != "none" {
		t.Errorf("audit and telemetry must be off by default")
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("ADMINQA_LLM_PROVIDER", "ollama")
	t.Setenv("ADMINQA_LLM_MAX_ROWS", "50")
	t.Setenv("ADMINQA_WEB_RATE_LIMIT_REQUESTS", "3")
	t.Setenv("ADMINQA_WEB_TRUST_PROXY", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.Provider != "ollama" {
		t.Errorf("expected provider ollama from env, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.MaxRows != 50 {
		t.Errorf("expected max_rows 50 from env, got %d", cfg.LLM.MaxRows)
	}
	if cfg.Web.RateLimit.Requests != 3 {
		t.Errorf("expected rate limit 3 from env, got %d", cfg.Web.RateLimit.Requests)
	}
	if !cfg.Web.TrustProxy {
		t.Errorf("expected trust_proxy from env")
	}
}

func TestLoadDoesNotLeakBetweenCalls(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")
	writeFile(t, path, "llm:\n  model: \"gpt-4o-mini\"\n")

	if _, err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Model != "gpt-3.5-turbo" {
		t.Errorf("expected defaults on a fresh load, got %s", cfg.LLM.Model)
	}
}

func TestLoadWithProfile(t *testing.T) {
	tmpDir := t.TempDir()

	basePath := filepath.Join(tmpDir, "config.yaml")
	writeFile(t, basePath, `
llm:
  provider: "ollama"
  model: "llama3.1"
  base_url: "http://localhost:11434"
log:
  level: "info"
`)
	writeFile(t, filepath.Join(tmpDir, "config.dev.yaml"), `
log:
  level: "debug"
audit:
  enabled: true
`)

	cfg, err := LoadWithOptions(Options{Path: basePath, Profile: "dev"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected profile to override log level, got %s", cfg.Log.Level)
	}
	if cfg.LLM.Model != "llama3.1" || cfg.LLM.BaseURL != "http://localhost:11434" {
		t.Errorf("expected base values to survive, got %+v", cfg.LLM)
	}
	if !cfg.Audit.Enabled {
		t.Errorf("expected audit enabled from profile")
	}
}

func TestLoadMissingProfile(t *testing.T) {
	tmpDir := t.TempDir()
	basePath := filepath.Join(tmpDir, "config.yaml")
	writeFile(t, basePath, "log:\n  level: info\n")

	if _, err := LoadWithOptions(Options{Path: basePath, Profile: "prod"}); err == nil {
		t.Fatal("expected error for missing profile file")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]string
		want string
	}{
		{"provider", map[string]string{"llm.provider": "anthropic"}, "llm.provider"},
		{"temperature", map[string]string{"llm.temperature": "2.5"}, "llm.temperature"},
		{"rate limit", map[string]string{"web.rate_limit.requests": "0"}, "web.rate_limit"},
		{"exporter", map[string]string{"telemetry.exporter": "zipkin"}, "telemetry.exporter"},
		{"data path", map[string]string{"data.path": ""}, "data.path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithOptions(Options{Overrides: tt.set})
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %s error, got %v", tt.want, err)
			}
		})
	}
}

func TestProfilePath(t *testing.T) {
	tests := []struct {
		path, profile, want string
	}{
		{"config.yaml", "dev", "config.dev.yaml"},
		{"/etc/adminqa/adminqa.yml", "prod", "/etc/adminqa/adminqa.prod.yml"},
		{"settings", "ci", "settings.ci"},
	}
	for _, tt := range tests {
		if got := ProfilePath(tt.path, tt.profile); got != tt.want {
			t.Errorf("ProfilePath(%q, %q) = %q, want %q", tt.path, tt.profile, got, tt.want)
		}
	}
}
