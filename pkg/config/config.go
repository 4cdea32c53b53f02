// Package config loads adminqa settings from defaults, a YAML file, the
// environment and command-line overrides, in that order of precedence.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override (ADMINQA_LLM_MODEL -> llm.model).
const EnvPrefix = "ADMINQA_"

type Config struct {
	Log       LogConfig       `koanf:"log"`
	Data      DataConfig      `koanf:"data"`
	LLM       LLMConfig       `koanf:"llm"`
	Web       WebConfig       `koanf:"web"`
	Audit     AuditConfig     `koanf:"audit"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

type DataConfig struct {
	Path string `koanf:"path"`
}

// LLMConfig selects the reasoning backend. It deliberately has no API key:
// credentials arrive with each question.
type LLMConfig struct {
	Provider    string        `koanf:"provider"` // openai, ollama
	Model       string        `koanf:"model"`
	BaseURL     string        `koanf:"base_url"`
	Temperature float64       `koanf:"temperature"`
	MaxRows     int           `koanf:"max_rows"`
	Timeout     time.Duration `koanf:"timeout"` // zero keeps the backend default
}

type WebConfig struct {
	Addr      string          `koanf:"addr"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`

	// TrustProxy keys the rate limiter on X-Forwarded-For/X-Real-IP.
	// Enable only behind a reverse proxy that sets those headers.
	TrustProxy bool `koanf:"trust_proxy"`
}

// RateLimitConfig bounds questions per client address.
type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
}

type AuditConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

type TelemetryConfig struct {
	Exporter     string `koanf:"exporter"` // none, stdout, otlp
	OTLPEndpoint string `koanf:"otlp_endpoint"`
	OTLPInsecure bool   `koanf:"otlp_insecure"`
}

var defaults = map[string]any{
	"log.level":               "info",
	"log.format":              "text",
	"data.path":               "data.csv",
	"llm.provider":            "openai",
	"llm.model":               "gpt-3.5-turbo",
	"llm.base_url":            "",
	"llm.temperature":         0.0,
	"llm.max_rows":            5000,
	"llm.timeout":             "0s",
	"web.addr":                ":8501",
	"web.rate_limit.requests": 20,
	"web.rate_limit.window":   "1m",
	"web.trust_proxy":         false,
	"audit.enabled":           false,
	"audit.path":              "adminqa.db",
	"telemetry.exporter":      "none",
	"telemetry.otlp_endpoint": "",
	"telemetry.otlp_insecure": false,
}

// Options controls a single load.
type Options struct {
	// Path is an optional YAML file.
	Path string
	// Profile loads <name>.<profile>.yaml next to Path on top of it.
	Profile string
	// Overrides are key=value pairs applied last.
	Overrides map[string]string
}

// Load reads configuration from defaults, an optional file and the environment.
func Load(path string) (*Config, error) {
	return LoadWithOptions(Options{Path: path})
}

// LoadWithOptions loads configuration using a fresh koanf instance.
func LoadWithOptions(opts Options) (*Config, error) {
	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	// 1. Load from file (and profile overlay)
	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config %s: %w", opts.Path, err)
		}
		if opts.Profile != "" {
			profilePath := ProfilePath(opts.Path, opts.Profile)
			if err := k.Load(file.Provider(profilePath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load profile %s: %w", profilePath, err)
			}
		}
	}

	// 2. Load from ENV (ADMINQA_WEB_RATE_LIMIT_REQUESTS -> web.rate_limit.requests)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKeyMapper()), nil); err != nil {
		return nil, err
	}

	// 3. CLI overrides
	for key, value := range opts.Overrides {
		if err := k.Set(key, value); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKeyMapper resolves env names against the known keys so that keys with
// underscores survive the mapping. Unknown names fall back to "_" -> ".".
func envKeyMapper() func(string) string {
	known := make(map[string]string, len(defaults))
	for key := range defaults {
		known[strings.ReplaceAll(key, ".", "_")] = key
	}
	return func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		if key, ok := known[name]; ok {
			return key
		}
		return strings.ReplaceAll(name, "_", ".")
	}
}

// ProfilePath returns the overlay path for profile: config.yaml -> config.dev.yaml.
func ProfilePath(path, profile string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + profile + ext
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "ollama":
	default:
		return fmt.Errorf("llm.provider %q not supported (openai, ollama)", c.LLM.Provider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature %.2f out of range [0, 2]", c.LLM.Temperature)
	}
	if c.LLM.Timeout < 0 {
		return fmt.Errorf("llm.timeout must not be negative")
	}
	if c.Web.RateLimit.Requests <= 0 || c.Web.RateLimit.Window <= 0 {
		return fmt.Errorf("web.rate_limit requires positive requests and window")
	}
	switch c.Telemetry.Exporter {
	case "none", "stdout", "otlp":
	default:
		return fmt.Errorf("telemetry.exporter %q not supported (none, stdout, otlp)", c.Telemetry.Exporter)
	}
	if c.Data.Path == "" {
		return fmt.Errorf("data.path is required")
	}
	return nil
}
