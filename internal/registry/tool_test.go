package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTool(name string) ToolManifest {
	return ToolManifest{
		Name:     name,
		Provider: ProviderStub,
		Skills:   []string{"seo-audit"},
		Actions: []ToolAction{
			{Name: "lookup", Description: "look something up", Parameters: ParamSchema{Type: "object"}},
		},
	}
}

func TestNewToolRegistryValidAndAuthorized(t *testing.T) {
	reg, err := NewToolRegistry([]ToolManifest{validTool("serp-lookup")})
	require.NoError(t, err)

	assert.True(t, reg.Authorized("seo-audit", "serp-lookup"))
	assert.False(t, reg.Authorized("copywriting", "serp-lookup"))
	assert.False(t, reg.Authorized("seo-audit", "unknown-tool"))
}

func TestNewToolRegistryRejectsUnknownProvider(t *testing.T) {
	bad := validTool("serp-lookup")
	bad.Provider = "carrier-pigeon"
	_, err := NewToolRegistry([]ToolManifest{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewToolRegistryRequiresActions(t *testing.T) {
	bad := validTool("serp-lookup")
	bad.Actions = nil
	_, err := NewToolRegistry([]ToolManifest{bad})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no actions")
}

func TestDisabledToolNotAuthorized(t *testing.T) {
	disabled := false
	tool := validTool("serp-lookup")
	tool.Enabled = &disabled
	reg, err := NewToolRegistry([]ToolManifest{tool})
	require.NoError(t, err)
	assert.False(t, reg.Authorized("seo-audit", "serp-lookup"))
}

func TestQualifiedNamesUnique(t *testing.T) {
	_, err := NewToolRegistry([]ToolManifest{validTool("serp-lookup"), validTool("serp-lookup")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared more than once")
}
