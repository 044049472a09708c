// Package config loads the service configuration: a YAML file layered over
// defaults, then environment overrides.
package config

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/thywilljoshua/repot-ai/internal/ai"
)

// Config is the top-level configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	AI     AIConfig     `yaml:"ai"`
	Store  StoreConfig  `yaml:"store"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig covers the HTTP listener and the file folders it serves.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	PublicBaseURL string `yaml:"public_base_url,omitempty"` // prefix of returned upload URLs
	UploadsDir    string `yaml:"uploads_dir"`
	TemplatesDir  string `yaml:"templates_dir"` // bundled <category>.docx assets
	MaxUploadMB   int    `yaml:"max_upload_mb"`
}

// AIConfig selects the model provider.
type AIConfig struct {
	Provider string        `yaml:"provider"` // off | gemini | openai | anthropic
	APIKey   string        `yaml:"api_key,omitempty"`
	Model    string        `yaml:"model,omitempty"`
	BaseURL  string        `yaml:"base_url,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`
}

// StoreConfig selects where uploaded templates are kept.
type StoreConfig struct {
	Driver      string `yaml:"driver"` // memory | postgres
	DatabaseURL string `yaml:"database_url,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			UploadsDir:   "public/uploads",
			TemplatesDir: "public/templates",
			MaxUploadMB:  25,
		},
		AI:    AIConfig{Provider: ai.ProviderGemini, Timeout: 2 * time.Minute},
		Store: StoreConfig{Driver: "memory"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnv(s string, lookup func(string) (string, bool)) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := lookup(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// providerKeyEnv lists the variables holding each provider's API key.
var providerKeyEnv = map[string][]string{
	ai.ProviderGemini:    {"GOOGLE_API_KEY", "GEMINI_API_KEY"},
	ai.ProviderOpenAI:    {"OPENAI_API_KEY"},
	ai.ProviderAnthropic: {"ANTHROPIC_API_KEY"},
}

// ApplyEnv expands ${VAR} references in credential fields and applies the
// environment overrides. lookup is usually os.LookupEnv.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	cfg.AI.APIKey = expandEnv(cfg.AI.APIKey, lookup)
	cfg.Store.DatabaseURL = expandEnv(cfg.Store.DatabaseURL, lookup)

	if v, ok := lookup("REPOT_ADDR"); ok && v != "" {
		cfg.Server.Addr = v
	}
	if v, ok := lookup("REPOT_AI_PROVIDER"); ok && v != "" {
		cfg.AI.Provider = strings.ToLower(v)
	}
	if v, ok := lookup("FILE_PUBLIC_BASE_URL"); ok && v != "" {
		cfg.Server.PublicBaseURL = v
	}
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		cfg.Store.DatabaseURL = v
		if cfg.Store.Driver == "" || cfg.Store.Driver == "memory" {
			cfg.Store.Driver = "postgres"
		}
	}
	if cfg.AI.APIKey == "" {
		for _, name := range providerKeyEnv[cfg.AI.Provider] {
			if v, ok := lookup(name); ok && v != "" {
				cfg.AI.APIKey = v
				break
			}
		}
	}
}

// Validate checks the configuration for values the service cannot run with.
func Validate(cfg *Config) error {
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if cfg.Server.UploadsDir == "" {
		return fmt.Errorf("server.uploads_dir is required")
	}
	if cfg.Server.TemplatesDir == "" {
		return fmt.Errorf("server.templates_dir is required")
	}
	if cfg.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}

	if !slices.Contains(ai.Providers(), cfg.AI.Provider) {
		return fmt.Errorf("ai.provider %q is not one of %s", cfg.AI.Provider, strings.Join(ai.Providers(), ", "))
	}
	if cfg.AI.Provider != ai.ProviderOff && cfg.AI.APIKey == "" {
		return fmt.Errorf("ai.provider %q requires an API key (set ai.api_key or %s)",
			cfg.AI.Provider, strings.Join(providerKeyEnv[cfg.AI.Provider], " or "))
	}
	if envVarPattern.MatchString(cfg.AI.APIKey) {
		return fmt.Errorf("ai.api_key references an unset variable: %s", cfg.AI.APIKey)
	}

	switch cfg.Store.Driver {
	case "memory":
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return fmt.Errorf("store.driver \"postgres\" requires store.database_url or DATABASE_URL")
		}
	default:
		return fmt.Errorf("store.driver %q is not one of memory, postgres", cfg.Store.Driver)
	}

	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q is not one of text, json", cfg.Log.Format)
	}
	return nil
}

// MaxUploadBytes is the request body limit for uploads.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

// AIOptions converts the ai section into provider options.
func (c *Config) AIOptions() ai.Options {
	return ai.Options{
		Provider: c.AI.Provider,
		APIKey:   c.AI.APIKey,
		Model:    c.AI.Model,
		BaseURL:  c.AI.BaseURL,
	}
}
