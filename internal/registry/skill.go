// Package registry builds the immutable skill, squad, and tool lookup tables
// from declarative YAML config, validating the whole set on construction so
// a malformed registry fails fast at startup rather than mid-pipeline.
//
// Grounded on the teacher's provider-registry shape
// (itsneelabh-gomind/ai/registry.go's ProviderRegistry: a mutex-guarded map
// built once and queried read-only thereafter) generalized from
// code-registered factories to declaratively-loaded skill/squad/tool
// manifests, per spec §6's ".agents/tools.yaml" format.
package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// SkillManifest is one skill's declarative definition, loaded from
// skills.yaml.
type SkillManifest struct {
	Name           string   `yaml:"name"`
	Squad          string   `yaml:"squad,omitempty"` // empty => foundation skill
	SystemPrompt   string   `yaml:"system_prompt"`
	ReferenceFiles []string `yaml:"reference_files,omitempty"`
	DependsOn      []string `yaml:"depends_on,omitempty"`
	Tools          []string `yaml:"tools,omitempty"`
}

// skillsFile is the root document shape of skills.yaml.
type skillsFile struct {
	Skills []SkillManifest `yaml:"skills"`
}

// SkillRegistry is the immutable, validated skill/squad lookup table
// consulted by the executor and prompt builder.
type SkillRegistry struct {
	skills    map[string]SkillManifest
	squadOf   map[string]model.Squad // skill -> squad, absent = foundation
	dependsOn map[string][]string
}

// LoadSkillRegistry reads and validates skills.yaml at path.
func LoadSkillRegistry(path string) (*SkillRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read skills file: %w", err)
	}

	var doc skillsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("registry: parse skills file: %w", err)
	}

	return NewSkillRegistry(doc.Skills)
}

// NewSkillRegistry validates manifests and builds the registry, aggregating
// every validation failure into a single joined error (design note:
// "Validated on load with aggregated errors").
func NewSkillRegistry(manifests []SkillManifest) (*SkillRegistry, error) {
	reg := &SkillRegistry{
		skills:    make(map[string]SkillManifest, len(manifests)),
		squadOf:   make(map[string]model.Squad, len(manifests)),
		dependsOn: make(map[string][]string, len(manifests)),
	}

	var errs []error
	for _, m := range manifests {
		if m.Name == "" {
			errs = append(errs, fmt.Errorf("skill manifest with empty name"))
			continue
		}
		if _, exists := reg.skills[m.Name]; exists {
			errs = append(errs, fmt.Errorf("skill %q declared more than once", m.Name))
			continue
		}
		reg.skills[m.Name] = m
		if m.Squad != "" {
			reg.squadOf[m.Name] = model.Squad(m.Squad)
		}
		reg.dependsOn[m.Name] = m.DependsOn
	}

	// Second pass: dependency edges must reference known skills. Cyclic
	// (including bidirectional) references are logged as a warning rather
	// than rejected — "bidirectional dependencies are logged but permitted
	// at depth 1" (spec's Non-goals/REDESIGN FLAGS area).
	for name, deps := range reg.dependsOn {
		for _, dep := range deps {
			if _, ok := reg.skills[dep]; !ok {
				errs = append(errs, fmt.Errorf("skill %q depends_on unknown skill %q", name, dep))
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}

// Get returns the manifest for a skill, or false if the skill is unknown.
func (r *SkillRegistry) Get(skill string) (SkillManifest, bool) {
	m, ok := r.skills[skill]
	return m, ok
}

// SquadOf returns the squad a skill belongs to, and whether it has one at
// all (foundation skills have none).
func (r *SkillRegistry) SquadOf(skill string) (model.Squad, bool) {
	s, ok := r.squadOf[skill]
	return s, ok
}

// IsFoundation reports whether skill is a foundation skill (no squad).
func (r *SkillRegistry) IsFoundation(skill string) bool {
	_, ok := r.skills[skill]
	if !ok {
		return false
	}
	_, hasSquad := r.squadOf[skill]
	return !hasSquad
}

// ReferenceFiles returns the ordered reference-file paths for a skill.
func (r *SkillRegistry) ReferenceFiles(skill string) []string {
	m, ok := r.skills[skill]
	if !ok {
		return nil
	}
	return m.ReferenceFiles
}

// BidirectionalPairs reports skill pairs that depend on each other directly
// (depth-1 cycles), surfaced for startup logging rather than rejection.
func (r *SkillRegistry) BidirectionalPairs() [][2]string {
	var pairs [][2]string
	seen := make(map[[2]string]bool)
	for a, deps := range r.dependsOn {
		for _, b := range deps {
			for _, back := range r.dependsOn[b] {
				if back == a {
					key := [2]string{a, b}
					rev := [2]string{b, a}
					if !seen[key] && !seen[rev] {
						pairs = append(pairs, key)
						seen[key] = true
					}
				}
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	return pairs
}

// Names returns every registered skill name, sorted.
func (r *SkillRegistry) Names() []string {
	names := make([]string, 0, len(r.skills))
	for n := range r.skills {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ToolsFor returns the tool names a skill is authorized to invoke, used by
// the tool loop's capability check.
func (r *SkillRegistry) ToolsFor(skill string) []string {
	m, ok := r.skills[skill]
	if !ok {
		return nil
	}
	return m.Tools
}
