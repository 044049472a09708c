package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const testConfig = `
server:
  addr: ":9000"
  uploads_dir: /srv/uploads
  templates_dir: /srv/templates
ai:
  provider: openai
  api_key: ${REPOT_TEST_KEY}
  model: gpt-4o-mini
  timeout: 30s
store:
  driver: postgres
  database_url: postgres://u:p@db/repot
log:
  level: debug
  format: json
`

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repot.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatal(err)
	}
	want := &Config{
		Server: ServerConfig{Addr: ":9000", UploadsDir: "/srv/uploads", TemplatesDir: "/srv/templates", MaxUploadMB: 25},
		AI:     AIConfig{Provider: "openai", APIKey: "${REPOT_TEST_KEY}", Model: "gpt-4o-mini", Timeout: 30 * time.Second},
		Store:  StoreConfig{Driver: "postgres", DatabaseURL: "postgres://u:p@db/repot"},
		Log:    LogConfig{Level: "debug", Format: "json"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load (-want +got):\n%s", diff)
	}
}

func TestLoadEmptyPathIsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoadMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	if err != nil {
		t.Fatal(err)
	}
	ApplyEnv(cfg, env(map[string]string{
		"REPOT_TEST_KEY":       "sk-file",
		"REPOT_ADDR":           ":7000",
		"FILE_PUBLIC_BASE_URL": "https://files.example.com",
	}))
	if cfg.AI.APIKey != "sk-file" || cfg.Server.Addr != ":7000" || cfg.Server.PublicBaseURL != "https://files.example.com" {
		t.Errorf("cfg = %+v", cfg)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestApplyEnvProviderKeys(t *testing.T) {
	tests := []struct {
		provider string
		vars     map[string]string
		want     string
	}{
		{"gemini", map[string]string{"GEMINI_API_KEY": "g2"}, "g2"},
		{"gemini", map[string]string{"GOOGLE_API_KEY": "g1", "GEMINI_API_KEY": "g2"}, "g1"},
		{"openai", map[string]string{"OPENAI_API_KEY": "o", "GOOGLE_API_KEY": "g"}, "o"},
		{"anthropic", map[string]string{"ANTHROPIC_API_KEY": "a"}, "a"},
		{"off", map[string]string{"OPENAI_API_KEY": "o"}, ""},
	}
	for _, tt := range tests {
		cfg := Default()
		cfg.AI.Provider = tt.provider
		ApplyEnv(cfg, env(tt.vars))
		if cfg.AI.APIKey != tt.want {
			t.Errorf("%s %v: key = %q, want %q", tt.provider, tt.vars, cfg.AI.APIKey, tt.want)
		}
	}
}

func TestApplyEnvDatabaseURLSwitchesDriver(t *testing.T) {
	cfg := Default()
	ApplyEnv(cfg, env(map[string]string{"DATABASE_URL": "postgres://db/x", "REPOT_AI_PROVIDER": "OFF"}))
	if cfg.Store.Driver != "postgres" || cfg.Store.DatabaseURL != "postgres://db/x" || cfg.AI.Provider != "off" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := Default()
		c.AI.APIKey = "k"
		return c
	}
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"ok", func(*Config) {}, ""},
		{"off needs no key", func(c *Config) { c.AI.Provider, c.AI.APIKey = "off", "" }, ""},
		{"unknown provider", func(c *Config) { c.AI.Provider = "ollama" }, "ai.provider"},
		{"missing key", func(c *Config) { c.AI.APIKey = "" }, "requires an API key"},
		{"unresolved key", func(c *Config) { c.AI.APIKey = "${NOPE}" }, "unset variable"},
		{"postgres without url", func(c *Config) { c.Store.Driver = "postgres" }, "database_url"},
		{"unknown driver", func(c *Config) { c.Store.Driver = "mongo" }, "store.driver"},
		{"no uploads dir", func(c *Config) { c.Server.UploadsDir = "" }, "uploads_dir"},
		{"no templates dir", func(c *Config) { c.Server.TemplatesDir = "" }, "templates_dir"},
		{"bad upload limit", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max_upload_mb"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := Validate(c)
			switch {
			case tt.want == "" && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.want != "" && (err == nil || !strings.Contains(err.Error(), tt.want)):
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestAIOptions(t *testing.T) {
	c := Default()
	c.AI.APIKey, c.AI.Model = "k", "m"
	o := c.AIOptions()
	if o.Provider != "gemini" || o.APIKey != "k" || o.Model != "m" {
		t.Errorf("options = %+v", o)
	}
	if c.MaxUploadBytes() != 25<<20 {
		t.Errorf("MaxUploadBytes = %d", c.MaxUploadBytes())
	}
}
