package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		os.Unsetenv("AIPROXY_SERVER__PORT")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 8080 {
			t.Errorf("Load() port = %v, want 8080", cfg.Server.Port)
		}
		if cfg.Storage.Type != "none" {
			t.Errorf("Load() storage type = %q, want none", cfg.Storage.Type)
		}
	})

	t.Run("env var override", func(t *testing.T) {
		os.Setenv("AIPROXY_SERVER__PORT", "9000")
		defer os.Unsetenv("AIPROXY_SERVER__PORT")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 9000 {
			t.Errorf("Load() port = %v, want 9000", cfg.Server.Port)
		}
	})

	t.Run("file with env substitution", func(t *testing.T) {
		os.Setenv("TEST_GEMINI_KEY", "gk-123")
		defer os.Unsetenv("TEST_GEMINI_KEY")

		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
server:
  port: 9191
cors:
  allowed_origins:
    - https://example.com
providers:
  openai:
    api_key: sk-test
  gemini:
    api_key: ${TEST_GEMINI_KEY}
storage:
  type: sqlite
  sqlite:
    path: ./audit.db
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Server.Port != 9191 {
			t.Errorf("port = %d, want 9191", cfg.Server.Port)
		}
		if got := cfg.Providers.OpenAI.APIKey; got != "sk-test" {
			t.Errorf("openai api key = %q, want sk-test", got)
		}
		if got := cfg.Providers.Gemini.APIKey; got != "gk-123" {
			t.Errorf("gemini api key = %q, want gk-123 (env substitution)", got)
		}
		if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "https://example.com" {
			t.Errorf("cors origins = %v", cfg.CORS.AllowedOrigins)
		}
		if cfg.Storage.Type != "sqlite" || cfg.Storage.SQLite.Path != "./audit.db" {
			t.Errorf("storage = %+v", cfg.Storage)
		}
	})

	t.Run("missing file is not an error", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
	})
}

func TestSubstituteEnvVars(t *testing.T) {
	os.Setenv("TEST_VAR", "test-value")
	defer os.Unsetenv("TEST_VAR")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple substitution", "${TEST_VAR}", "test-value"},
		{"substitution in string", "prefix-${TEST_VAR}-suffix", "prefix-test-value-suffix"},
		{"no substitution", "plain-string", "plain-string"},
		{"undefined var", "${UNDEFINED_VAR}", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := substituteEnvVars(tt.input); got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}
