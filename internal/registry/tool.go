package registry

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ToolProvider is the transport kind backing a tool invocation.
type ToolProvider string

const (
	ProviderStub ToolProvider = "stub"
	ProviderMCP  ToolProvider = "mcp"
	ProviderREST ToolProvider = "rest"
)

// ParamSchema is one JSON-schema-ish property definition for a tool action.
type ParamSchema struct {
	Type        string                 `yaml:"type"`
	Properties  map[string]ParamSchema `yaml:"properties,omitempty"`
	Required    []string               `yaml:"required,omitempty"`
	Description string                 `yaml:"description,omitempty"`
}

// ToolAction is one invocable action an LLM may call via tool-use.
type ToolAction struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Parameters  ParamSchema `yaml:"parameters"`
}

// RateLimit bounds how often a tool may be invoked.
type RateLimit struct {
	MaxPerMinute int `yaml:"max_per_minute"`
}

// ToolManifest is one tool's declarative definition under `.agents/tools.yaml`.
type ToolManifest struct {
	Name            string       `yaml:"-"` // set from the map key on load
	Description     string       `yaml:"description"`
	Provider        ToolProvider `yaml:"provider"`
	Enabled         *bool        `yaml:"enabled,omitempty"`
	CredentialsEnv  string       `yaml:"credentials_env,omitempty"`
	Skills          []string     `yaml:"skills"`
	RateLimit       *RateLimit   `yaml:"rate_limit,omitempty"`
	Actions         []ToolAction `yaml:"actions"`
}

// IsEnabled reports whether the tool is enabled, defaulting to true when
// unspecified.
func (m ToolManifest) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}

// toolsFile is the root document shape of .agents/tools.yaml.
type toolsFile struct {
	Tools map[string]ToolManifest `yaml:"tools"`
}

// ToolRegistry is the immutable, validated tool lookup table.
type ToolRegistry struct {
	tools map[string]ToolManifest
}

// LoadToolRegistry reads and validates `.agents/tools.yaml` at path.
func LoadToolRegistry(path string) (*ToolRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("registry: read tools file: %w", err)
	}

	var doc toolsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("registry: parse tools file: %w", err)
	}

	manifests := make([]ToolManifest, 0, len(doc.Tools))
	for name, m := range doc.Tools {
		m.Name = name
		manifests = append(manifests, m)
	}
	return NewToolRegistry(manifests)
}

// NewToolRegistry validates manifests and builds the registry. Validation
// aggregates every error encountered (qualified-name uniqueness,
// known provider kind, non-empty actions, well-formed parameter schemas)
// rather than stopping at the first, per spec §6.
func NewToolRegistry(manifests []ToolManifest) (*ToolRegistry, error) {
	reg := &ToolRegistry{tools: make(map[string]ToolManifest, len(manifests))}

	var errs []error
	for _, m := range manifests {
		if m.Name == "" {
			errs = append(errs, fmt.Errorf("tool manifest with empty name"))
			continue
		}
		if _, exists := reg.tools[m.Name]; exists {
			errs = append(errs, fmt.Errorf("tool %q declared more than once", m.Name))
			continue
		}
		switch m.Provider {
		case ProviderStub, ProviderMCP, ProviderREST:
		default:
			errs = append(errs, fmt.Errorf("tool %q has unknown provider %q", m.Name, m.Provider))
		}
		if len(m.Actions) == 0 {
			errs = append(errs, fmt.Errorf("tool %q declares no actions", m.Name))
		}
		for _, a := range m.Actions {
			if a.Name == "" {
				errs = append(errs, fmt.Errorf("tool %q has an action with empty name", m.Name))
			}
			if a.Parameters.Type != "" && a.Parameters.Type != "object" {
				errs = append(errs, fmt.Errorf("tool %q action %q: parameters.type must be \"object\"", m.Name, a.Name))
			}
		}
		if m.RateLimit != nil && m.RateLimit.MaxPerMinute < 0 {
			errs = append(errs, fmt.Errorf("tool %q rate_limit.max_per_minute must be >= 0", m.Name))
		}
		reg.tools[m.Name] = m
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return reg, nil
}

// Get returns a tool's manifest by name.
func (r *ToolRegistry) Get(name string) (ToolManifest, bool) {
	m, ok := r.tools[name]
	return m, ok
}

// Names returns every registered tool name, sorted.
func (r *ToolRegistry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Authorized reports whether skill may invoke tool, per the tool's own
// skills[] allowlist and its enabled flag. Used by the executor's tool-use
// loop capability check so a skill cannot invoke an unauthorized tool.
func (r *ToolRegistry) Authorized(skill, toolName string) bool {
	m, ok := r.tools[toolName]
	if !ok || !m.IsEnabled() {
		return false
	}
	for _, s := range m.Skills {
		if s == skill {
			return true
		}
	}
	return false
}
