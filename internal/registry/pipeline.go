package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// pipelinesFile is the root document shape of pipelines.yaml.
type pipelinesFile struct {
	Pipelines []model.PipelineDefinition `yaml:"pipelines"`
}

// LoadPipelineDefinitions reads pipelines.yaml at path, keying every
// definition by its ID for the scheduler's and event bus's Definitions
// lookup table.
func LoadPipelineDefinitions(path string) (map[string]model.PipelineDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read pipelines file: %w", err)
	}

	var doc pipelinesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("registry: parse pipelines file: %w", err)
	}

	defs := make(map[string]model.PipelineDefinition, len(doc.Pipelines))
	for _, def := range doc.Pipelines {
		if def.ID == "" {
			return nil, fmt.Errorf("registry: pipeline definition with empty id")
		}
		if _, exists := defs[def.ID]; exists {
			return nil, fmt.Errorf("registry: pipeline %q declared more than once", def.ID)
		}
		if len(def.Steps) == 0 {
			return nil, fmt.Errorf("registry: pipeline %q has no steps", def.ID)
		}
		defs[def.ID] = def
	}
	return defs, nil
}
