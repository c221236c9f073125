package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity-dev/marketing-orchestrator/internal/config"
)

func TestConfigureLoggerPicksHandlerByFormat(t *testing.T) {
	jsonLogger := configureLogger(config.Logging{Level: "debug", Format: "json"})
	assert.True(t, jsonLogger.Handler().Enabled(nil, slog.LevelDebug))

	textLogger := configureLogger(config.Logging{Level: "warn", Format: "text"})
	assert.False(t, textLogger.Handler().Enabled(nil, slog.LevelInfo))
	assert.True(t, textLogger.Handler().Enabled(nil, slog.LevelWarn))
}

func writeMinimalOrchestratorFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeYAML := func(name, body string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		return path
	}
	skills := writeYAML("skills.yaml", "skills: []\n")
	squads := writeYAML("squads.yaml", "squads: []\n")
	tools := writeYAML("tools.yaml", "tools: {}\n")

	ws := filepath.Join(dir, "workspace")
	require.NoError(t, os.MkdirAll(ws, 0o755))

	cfgPath := filepath.Join(dir, "orchestrator.toml")
	body := `
[workspace]
root_dir = "` + ws + `"

[registries]
skills_path = "` + skills + `"
squads_path = "` + squads + `"
tools_path = "` + tools + `"

[llm]
endpoint = "http://127.0.0.1:0"
api_key_env = "ORCH_TEST_UNUSED_KEY"

[queue]
backend = "memory"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return cfgPath
}

func TestBuildAppWiresEveryComponent(t *testing.T) {
	cfgPath := writeMinimalOrchestratorFixture(t)

	a, code, err := buildApp(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, exitSuccess, code)
	require.NotNil(t, a)
	assert.NotNil(t, a.ws)
	assert.NotNil(t, a.dir)
	assert.NotNil(t, a.exec)
	assert.NotNil(t, a.engine)
	assert.NotNil(t, a.monitor)
	assert.NotNil(t, a.queueMgr)
}

func TestBuildAppReturnsConfigErrorOnMissingFile(t *testing.T) {
	_, code, err := buildApp(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.Error(t, err)
	assert.Equal(t, exitConfigError, code)
}

func TestBuildAppReturnsWorkspaceErrorOnUnwritableRoot(t *testing.T) {
	dir := t.TempDir()
	skills := filepath.Join(dir, "skills.yaml")
	require.NoError(t, os.WriteFile(skills, []byte("skills: []\n"), 0o644))

	cfgPath := filepath.Join(dir, "orchestrator.toml")
	body := `
[workspace]
root_dir = "/nonexistent/deeply/nested/path/that/cannot/be/created"

[registries]
skills_path = "` + skills + `"
squads_path = "` + skills + `"
tools_path = "` + skills + `"
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	_, code, err := buildApp(cfgPath)
	require.Error(t, err)
	assert.Equal(t, exitWorkspaceError, code)
}
