package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8765", cfg.Server.BaseURL)
	assert.Equal(t, "sse", cfg.Server.Transport)
	assert.Equal(t, 10, cfg.Reconnect.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Reconnect.BaseDelay.Duration)
	assert.Equal(t, 30*time.Second, cfg.Reconnect.MaxDelay.Duration)
	assert.Equal(t, 300*time.Second, cfg.Approval.DefaultTimeout.Duration)
	assert.Equal(t, "Deny", cfg.Approval.DefaultDecision)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	path := writeFile(t, "config.toml", `
[server]
base_url = "https://amp.example.com"
transport = "websocket"

[session]
profile = "prod"
anthropic_api_key = "from-file"

[reconnect]
max_attempts = 3
base_delay = "500ms"
max_delay = "4s"

[log]
level = "debug"
format = "text"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://amp.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "websocket", cfg.Server.Transport)
	assert.Equal(t, "prod", cfg.Session.Profile)
	assert.Equal(t, "from-file", cfg.Session.AnthropicAPIKey)
	assert.Equal(t, 3, cfg.Reconnect.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Reconnect.BaseDelay.Duration)
	assert.Equal(t, "text", cfg.Log.Format)
	// Untouched sections keep their defaults.
	assert.Equal(t, 300*time.Second, cfg.Approval.DefaultTimeout.Duration)
}

func TestTraceSection(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	cfg, err := Load(writeFile(t, "config.toml", `
[trace]
endpoint = "collector:4318"
api_key = "k"
secure = true
`))
	require.NoError(t, err)
	assert.Equal(t, "collector:4318", cfg.Trace.Endpoint)
	assert.True(t, cfg.Trace.Secure)
	assert.False(t, Default().Trace.Secure)
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "from-env")
	path := writeFile(t, "config.toml", "[session]\nanthropic_api_key = \"from-file\"\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Session.AnthropicAPIKey)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv(APIKeyEnv, "")
	for name, content := range map[string]string{
		"transport": "[server]\ntransport = \"grpc\"\n",
		"duration":  "[reconnect]\nbase_delay = \"soon\"\n",
		"order":     "[reconnect]\nbase_delay = \"10s\"\nmax_delay = \"1s\"\n",
		"syntax":    "[server\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.toml", content))
			assert.Error(t, err)
		})
	}
}

func TestLoadWorkspaceContext(t *testing.T) {
	path := writeFile(t, "ctx.yaml", `
workspace_root: /src/app
open_files:
  - path: main.go
    language: go
    content: package main
    cursor_position: {line: 3, character: 1}
git_state:
  branch: main
  modified_files: [main.go]
diagnostics:
  - path: main.go
    severity: error
    message: undefined x
    range: {start: {line: 1, character: 0}, end: {line: 1, character: 4}}
`)
	wc, err := LoadWorkspaceContext(path)
	require.NoError(t, err)
	assert.Equal(t, "/src/app", wc.WorkspaceRoot)
	require.Len(t, wc.OpenFiles, 1)
	assert.Equal(t, 3, wc.OpenFiles[0].CursorPosition.Line)
	assert.Equal(t, "main", wc.GitState.Branch)
	assert.Equal(t, []string{"main.go"}, wc.GitState.ModifiedFiles)
	require.Len(t, wc.Diagnostics, 1)
	assert.Equal(t, 4, wc.Diagnostics[0].Range.End.Character)

	jsonPath := writeFile(t, "ctx.json", `{"workspace_root": "/w", "selection": {"path": "a.go", "text": "x"}}`)
	wc, err = LoadWorkspaceContext(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "/w", wc.WorkspaceRoot)
	assert.Equal(t, "x", wc.Selection.Text)
}
