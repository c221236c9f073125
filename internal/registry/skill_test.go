package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

func TestNewSkillRegistryValidates(t *testing.T) {
	reg, err := NewSkillRegistry([]SkillManifest{
		{Name: "seo-audit", Squad: "strategy"},
		{Name: "product-context"}, // foundation: no squad
	})
	require.NoError(t, err)

	squad, ok := reg.SquadOf("seo-audit")
	assert.True(t, ok)
	assert.Equal(t, model.SquadStrategy, squad)

	assert.True(t, reg.IsFoundation("product-context"))
	assert.False(t, reg.IsFoundation("seo-audit"))
}

func TestNewSkillRegistryAggregatesErrors(t *testing.T) {
	_, err := NewSkillRegistry([]SkillManifest{
		{Name: "seo-audit"},
		{Name: "seo-audit"}, // duplicate
		{Name: "copywriting", DependsOn: []string{"does-not-exist"}},
	})
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "declared more than once")
	assert.Contains(t, msg, "unknown skill")
}

func TestBidirectionalPairsLoggedNotRejected(t *testing.T) {
	reg, err := NewSkillRegistry([]SkillManifest{
		{Name: "copywriting", DependsOn: []string{"page-cro"}},
		{Name: "page-cro", DependsOn: []string{"copywriting"}},
	})
	require.NoError(t, err)

	pairs := reg.BidirectionalPairs()
	require.Len(t, pairs, 1)
	assert.ElementsMatch(t, []string{"copywriting", "page-cro"}, []string{pairs[0][0], pairs[0][1]})
}

func TestToolsForAndReferenceFiles(t *testing.T) {
	reg, err := NewSkillRegistry([]SkillManifest{
		{Name: "seo-audit", ReferenceFiles: []string{"a.md", "b.md"}, Tools: []string{"serp-lookup"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md"}, reg.ReferenceFiles("seo-audit"))
	assert.Equal(t, []string{"serp-lookup"}, reg.ToolsFor("seo-audit"))
}
