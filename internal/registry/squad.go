package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// SquadManifest is one squad's declarative definition, loaded from
// squads.yaml. The model tier defaults per squad (spec §4.2 step 5) can be
// overridden here, but most deployments rely on Squad.DefaultModelTier().
type SquadManifest struct {
	Name           string `yaml:"name"`
	Description    string `yaml:"description,omitempty"`
	DefaultTierOverride string `yaml:"default_tier_override,omitempty"`
}

type squadsFile struct {
	Squads []SquadManifest `yaml:"squads"`
}

// SquadRegistry is the immutable, validated squad lookup table.
type SquadRegistry struct {
	squads map[model.Squad]SquadManifest
}

// LoadSquadRegistry reads and validates squads.yaml at path.
func LoadSquadRegistry(path string) (*SquadRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read squads file: %w", err)
	}

	var doc squadsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("registry: parse squads file: %w", err)
	}
	return NewSquadRegistry(doc.Squads)
}

// NewSquadRegistry validates manifests and builds the registry.
func NewSquadRegistry(manifests []SquadManifest) (*SquadRegistry, error) {
	reg := &SquadRegistry{squads: make(map[model.Squad]SquadManifest, len(manifests))}

	var errs []error
	for _, m := range manifests {
		if m.Name == "" {
			errs = append(errs, fmt.Errorf("squad manifest with empty name"))
			continue
		}
		sq := model.Squad(m.Name)
		if _, exists := reg.squads[sq]; exists {
			errs = append(errs, fmt.Errorf("squad %q declared more than once", m.Name))
			continue
		}
		if m.DefaultTierOverride != "" {
			switch model.ModelTier(m.DefaultTierOverride) {
			case model.TierOpus, model.TierSonnet, model.TierHaiku:
			default:
				errs = append(errs, fmt.Errorf("squad %q has unknown default_tier_override %q", m.Name, m.DefaultTierOverride))
			}
		}
		reg.squads[sq] = m
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}

// Get returns a squad's manifest.
func (r *SquadRegistry) Get(squad model.Squad) (SquadManifest, bool) {
	m, ok := r.squads[squad]
	return m, ok
}

// DefaultModelTier resolves the squad's default model tier, honoring a
// registry override before falling back to Squad.DefaultModelTier().
func (r *SquadRegistry) DefaultModelTier(squad model.Squad) model.ModelTier {
	if m, ok := r.squads[squad]; ok && m.DefaultTierOverride != "" {
		return model.ModelTier(m.DefaultTierOverride)
	}
	return squad.DefaultModelTier()
}

// Names returns every registered squad name, sorted.
func (r *SquadRegistry) Names() []string {
	names := make([]string, 0, len(r.squads))
	for n := range r.squads {
		names = append(names, string(n))
	}
	sort.Strings(names)
	return names
}
