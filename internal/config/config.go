// Package config loads the immutable process configuration: file first,
// environment overrides second. The resulting struct is constructed once
// at startup and passed by reference; nothing mutates it afterwards.
package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	CORS      CORSConfig      `koanf:"cors"`
	Auth      AuthConfig      `koanf:"auth"`
	Storage   StorageConfig   `koanf:"storage"`
	Providers ProvidersConfig `koanf:"providers"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type CORSConfig struct {
	// AllowedOrigins lists origins echoed in CORS headers. "*" allows any.
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type AuthConfig struct {
	// APIKeys are caller credentials checked against the Authorization
	// header. Empty disables caller authentication.
	APIKeys []string `koanf:"api_keys"`
}

type StorageConfig struct {
	// Type is "sqlite" or "none".
	Type   string       `koanf:"type"`
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type ProvidersConfig struct {
	WorkersAI WorkersAIConfig `koanf:"workersai"`
	OpenAI    OpenAIConfig    `koanf:"openai"`
	Gemini    GeminiConfig    `koanf:"gemini"`
}

type WorkersAIConfig struct {
	AccountID string `koanf:"account_id"`
	APIToken  string `koanf:"api_token"`
	BaseURL   string `koanf:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

type GeminiConfig struct {
	APIKey  string `koanf:"api_key"`
	BaseURL string `koanf:"base_url"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads configuration from path (optional) and AIPROXY_* environment
// variables, env winning over file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			// A missing file is fine, env vars carry the config then.
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	if err := k.Load(env.Provider("AIPROXY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "AIPROXY_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("storage.type") {
		k.Set("storage.type", "none")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute ${VAR} references so secrets can stay out of the file.
	cfg.Providers.WorkersAI.AccountID = substituteEnvVars(cfg.Providers.WorkersAI.AccountID)
	cfg.Providers.WorkersAI.APIToken = substituteEnvVars(cfg.Providers.WorkersAI.APIToken)
	cfg.Providers.OpenAI.APIKey = substituteEnvVars(cfg.Providers.OpenAI.APIKey)
	cfg.Providers.Gemini.APIKey = substituteEnvVars(cfg.Providers.Gemini.APIKey)

	return &cfg, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
