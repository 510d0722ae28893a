package filler

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the whole application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Template TemplateConfig `yaml:"template"`
	Prompt   PromptConfig   `yaml:"prompt"`
	Output   OutputConfig   `yaml:"output"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	SessionTTL     time.Duration `yaml:"session_ttl"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
}

// LLMConfig selects the text service. The key itself is never read from
// the file: it comes from DOCFILL_API_KEY or the variable named by
// APIKeyEnv (a .env file is honoured).
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"-"`
}

type TemplateConfig struct {
	// Path is the bundled template used when nothing is uploaded.
	Path           string   `yaml:"path"`
	Open           string   `yaml:"open"`
	Close          string   `yaml:"close"`
	IncludeHeaders bool     `yaml:"include_headers"`
	DefaultKeys    []string `yaml:"default_keys"`
}

type PromptConfig struct {
	System            string `yaml:"system"`
	Instructions      string `yaml:"instructions"`
	EssayInstructions string `yaml:"essay_instructions"`
}

type OutputConfig struct {
	FilenamePrefix string `yaml:"filename_prefix"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			SessionTTL:     30 * time.Minute,
			MaxUploadBytes: 20 << 20,
		},
		LLM: LLMConfig{
			Provider:  "gemini",
			Model:     "gemini-1.5-pro",
			APIKeyEnv: "GEMINI_API_KEY",
		},
		Template: TemplateConfig{
			Path:        "TEMPLATE_COM_TAGS.docx",
			Open:        "{{",
			Close:       "}}",
			DefaultKeys: []string{"ASPECTO_1", "POR_QUE_1", "RESUMO_MEMORIAL"},
		},
		Output: OutputConfig{FilenamePrefix: "Desafio_Caroline"},
		Log:    LogConfig{Level: "info"},
	}
}

// LoadConfig reads YAML config from path on top of the defaults. A
// missing file is not an error. Environment variables override the file.
func LoadConfig(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, err
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("DOCFILL_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("DOCFILL_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("DOCFILL_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DOCFILL_TEMPLATE"); v != "" {
		c.Template.Path = v
	}
	if v := os.Getenv("DOCFILL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	c.LLM.APIKey = os.Getenv("DOCFILL_API_KEY")
	if c.LLM.APIKey == "" && c.LLM.APIKeyEnv != "" {
		c.LLM.APIKey = os.Getenv(c.LLM.APIKeyEnv)
	}
}

// Validate checks the configuration for values the application cannot
// run with.
func (c Config) Validate() error {
	switch c.LLM.Provider {
	case "openai", "deepseek", "gemini", "mock":
	case "":
		return errors.New("llm.provider is required")
	default:
		return fmt.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
	if c.LLM.Provider == "deepseek" && c.LLM.BaseURL == "" {
		return errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
	}
	if c.Template.Open == "" || c.Template.Close == "" {
		return errors.New("template.open and template.close are required")
	}
	if c.Server.SessionTTL <= 0 {
		return errors.New("server.session_ttl must be positive")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("server.max_upload_bytes must be positive")
	}
	return nil
}
