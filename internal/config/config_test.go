package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "orchestrator.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
[workspace]
root_dir = "/tmp/ws"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.General.MaxConcurrentTasks)
	assert.Equal(t, float64(80), cfg.Budget.WarningPct)
	assert.Equal(t, float64(90), cfg.Budget.ThrottlePct)
	assert.Equal(t, "haiku", cfg.Budget.ForcedTierCritical)
	assert.Equal(t, "memory", cfg.Queue.Backend)
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := &Config{
		Workspace: Workspace{RootDir: "/tmp/ws"},
		Budget:    Budget{WarningPct: 90, ThrottlePct: 80, CriticalPct: 95, ExhaustedPct: 100},
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresWorkspaceRoot(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)
	require.Error(t, cfg.Validate())
}

func TestAPIKeyReadsEnv(t *testing.T) {
	t.Setenv("ORCH_TEST_API_KEY", "secret-value")
	cfg := &Config{LLM: LLM{APIKeyEnv: "ORCH_TEST_API_KEY"}}
	assert.Equal(t, "secret-value", cfg.APIKey())
}
