package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antigravity-dev/marketing-orchestrator/internal/director"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/registry"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

func newTestBus(t *testing.T, cooldown time.Duration, mappings []Mapping, clock func() time.Time) *Bus {
	t.Helper()
	ws, err := workspace.NewFSWorkspace(t.TempDir())
	require.NoError(t, err)
	skills, err := registry.NewSkillRegistry([]registry.SkillManifest{{Name: "seo-audit", Squad: "strategy"}})
	require.NoError(t, err)
	squads, err := registry.NewSquadRegistry([]registry.SquadManifest{{Name: "strategy"}})
	require.NoError(t, err)
	d := &director.Director{Workspace: ws, Skills: skills, Squads: squads, Factory: &director.DefaultTaskFactory{Skills: skills, Clock: clock}, Clock: clock}

	bus, err := New(10, cooldown)
	require.NoError(t, err)
	bus.Director = d
	bus.Mappings = mappings
	bus.Clock = clock
	return bus
}

func TestEmitDedupsRepeatedEventID(t *testing.T) {
	bus := newTestBus(t, time.Minute, []Mapping{
		{EventType: "traffic_spike", Target: "goal:seo-audit", Priority: model.PriorityP1, GoalCategory: model.CategoryOptimization},
	}, func() time.Time { return time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC) })

	ev := model.Event{ID: "ev-1", Type: "traffic_spike", Data: map[string]interface{}{}}
	first := bus.Emit(context.Background(), ev)
	assert.Equal(t, 1, first.PipelinesTriggered)

	second := bus.Emit(context.Background(), ev)
	assert.Equal(t, 0, second.PipelinesTriggered)
	assert.Contains(t, second.SkippedReasons, "duplicate_event_id")
}

func TestEmitSkipsWithinCooldownWindow(t *testing.T) {
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	bus := newTestBus(t, time.Hour, []Mapping{
		{EventType: "traffic_spike", Target: "goal:seo-audit", Priority: model.PriorityP1, GoalCategory: model.CategoryOptimization},
	}, func() time.Time { return now })

	first := bus.Emit(context.Background(), model.Event{ID: "ev-1", Type: "traffic_spike", Data: map[string]interface{}{}})
	assert.Equal(t, 1, first.PipelinesTriggered)

	now = now.Add(time.Minute)
	second := bus.Emit(context.Background(), model.Event{ID: "ev-2", Type: "traffic_spike", Data: map[string]interface{}{}})
	assert.Equal(t, 0, second.PipelinesTriggered)
	assert.Contains(t, second.SkippedReasons, "cooldown_active")
}

func TestEmitFiresAgainAfterCooldownElapses(t *testing.T) {
	now := time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC)
	bus := newTestBus(t, time.Minute, []Mapping{
		{EventType: "traffic_spike", Target: "goal:seo-audit", Priority: model.PriorityP1, GoalCategory: model.CategoryOptimization},
	}, func() time.Time { return now })

	bus.Emit(context.Background(), model.Event{ID: "ev-1", Type: "traffic_spike", Data: map[string]interface{}{}})
	now = now.Add(2 * time.Minute)
	second := bus.Emit(context.Background(), model.Event{ID: "ev-2", Type: "traffic_spike", Data: map[string]interface{}{}})
	assert.Equal(t, 1, second.PipelinesTriggered)
}

func TestEmitSkipsMappingWhenConditionNotMet(t *testing.T) {
	bus := newTestBus(t, time.Minute, []Mapping{
		{
			EventType: "budget_alert", Target: "goal:seo-audit", Priority: model.PriorityP0, GoalCategory: model.CategoryOptimization,
			Condition: &Condition{Field: "percent_used", Operator: "gte", Value: 90.0},
		},
	}, func() time.Time { return time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC) })

	result := bus.Emit(context.Background(), model.Event{ID: "ev-1", Type: "budget_alert", Data: map[string]interface{}{"percent_used": 50.0}})
	assert.Equal(t, 0, result.PipelinesTriggered)
	require.Len(t, result.SkippedReasons, 1)
}

func TestEmitDispatchesWhenConditionIsMet(t *testing.T) {
	bus := newTestBus(t, time.Minute, []Mapping{
		{
			EventType: "budget_alert", Target: "goal:seo-audit", Priority: model.PriorityP0, GoalCategory: model.CategoryOptimization,
			Condition: &Condition{Field: "percent_used", Operator: "gte", Value: 90.0},
		},
	}, func() time.Time { return time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC) })

	result := bus.Emit(context.Background(), model.Event{ID: "ev-1", Type: "budget_alert", Data: map[string]interface{}{"percent_used": 95.0}})
	assert.Equal(t, 1, result.PipelinesTriggered)
	require.Len(t, result.PipelineIDs, 1)
}

func TestEmitIgnoresEventTypeWithNoMapping(t *testing.T) {
	bus := newTestBus(t, time.Minute, nil, func() time.Time { return time.Date(2026, 7, 30, 9, 0, 0, 0, time.UTC) })

	result := bus.Emit(context.Background(), model.Event{ID: "ev-1", Type: "unmapped_event", Data: map[string]interface{}{}})
	assert.Equal(t, 0, result.PipelinesTriggered)
	assert.Empty(t, result.SkippedReasons)
}
