package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePipelinesFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipelines.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPipelineDefinitionsKeysByID(t *testing.T) {
	path := writePipelinesFile(t, `
pipelines:
  - id: launch-campaign
    name: Launch Campaign
    steps:
      - kind: sequential
        skill: positioning
      - kind: parallel
        skills: [copywriting, design]
      - kind: review
        reviewer: director
`)

	defs, err := LoadPipelineDefinitions(path)
	require.NoError(t, err)
	require.Contains(t, defs, "launch-campaign")
	assert.Len(t, defs["launch-campaign"].Steps, 3)
}

func TestLoadPipelineDefinitionsRejectsDuplicateID(t *testing.T) {
	path := writePipelinesFile(t, `
pipelines:
  - id: dup
    steps: [{kind: sequential, skill: a}]
  - id: dup
    steps: [{kind: sequential, skill: b}]
`)

	_, err := LoadPipelineDefinitions(path)
	require.Error(t, err)
}

func TestLoadPipelineDefinitionsRejectsNoSteps(t *testing.T) {
	path := writePipelinesFile(t, `
pipelines:
  - id: empty
    steps: []
`)

	_, err := LoadPipelineDefinitions(path)
	require.Error(t, err)
}
