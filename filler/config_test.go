package filler

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("DOCFILL_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "from-env", cfg.LLM.APIKey)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, "{{", cfg.Template.Open)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9000"
  session_ttl: 5m
llm:
  provider: openai
  model: gpt-4o-mini
  api_key_env: MY_OPENAI_KEY
template:
  path: custom.docx
  open: "[["
  close: "]]"
  include_headers: true
  default_keys: [A, B]
output:
  filename_prefix: Case
`)
	t.Setenv("MY_OPENAI_KEY", "sk-file")
	t.Setenv("DOCFILL_API_KEY", "")
	t.Setenv("DOCFILL_ADDR", ":9100")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Server.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-file", cfg.LLM.APIKey)
	assert.Equal(t, "[[", cfg.Template.Open)
	assert.True(t, cfg.Template.IncludeHeaders)
	assert.Equal(t, []string{"A", "B"}, cfg.Template.DefaultKeys)
	assert.Equal(t, "Case", cfg.Output.FilenamePrefix)

	t.Setenv("DOCFILL_API_KEY", "sk-override")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-override", cfg.LLM.APIKey)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad yaml", body: "server: [unclosed"},
		{name: "unknown provider", body: "llm:\n  provider: claude\n"},
		{name: "deepseek without base url", body: "llm:\n  provider: deepseek\n"},
		{name: "empty delimiters", body: "template:\n  open: \"\"\n"},
		{name: "zero ttl", body: "server:\n  session_ttl: 0s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DOCFILL_LLM_PROVIDER", "")
			_, err := LoadConfig(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
