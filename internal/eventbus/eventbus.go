// Package eventbus implements the event-triggered dispatch path (C15):
// ID dedup against a bounded LRU, per-type cooldown, declarative condition
// evaluation, and dispatch to the Director, grounded on the teacher's
// internal/matrix poller (event-in, mapped-dispatch-out shape) generalized
// from a fixed Matrix-room mapping to the spec's declarative
// event-type -> mapping table with predicate conditions.
package eventbus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/antigravity-dev/marketing-orchestrator/internal/director"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// Condition is a pure, declarative predicate evaluated against an event's
// Data map — thresholds and string matches only, per spec §4.11 ("pure,
// declarative expressions").
type Condition struct {
	Field    string      `yaml:"field"`
	Operator string      `yaml:"operator"` // "eq", "ne", "gt", "gte", "lt", "lte", "contains"
	Value    interface{} `yaml:"value"`
}

// Mapping routes one event type to a Director action, gated by an optional
// Condition (a nil Condition always matches).
type Mapping struct {
	EventType    string       `yaml:"event_type"`
	Target       string       `yaml:"target"` // "goal:{skill}" or a pipeline template name
	Priority     model.Priority `yaml:"priority"`
	GoalCategory model.GoalCategory `yaml:"goal_category,omitempty"`
	Condition    *Condition   `yaml:"condition,omitempty"`
}

// PipelineStarter starts a fresh run of a named pipeline template, shared
// with the scheduler's own PipelineStarter contract.
type PipelineStarter interface {
	StartPipeline(ctx context.Context, def model.PipelineDefinition, priority model.Priority, goalID string) error
}

// EmitResult is returned by every Emit call (spec §4.11:
// "{pipelinesTriggered, pipelineIds, skippedReasons[]}").
type EmitResult struct {
	PipelinesTriggered int
	PipelineIDs        []string
	SkippedReasons     []string
}

// Bus evaluates incoming events against configured mappings.
type Bus struct {
	Director        *director.Director
	Starter         PipelineStarter
	Definitions     map[string]model.PipelineDefinition
	Mappings        []Mapping
	DefaultCooldown time.Duration
	Clock           func() time.Time

	mu          sync.Mutex
	seenIDs     *lru.Cache
	lastTrigger map[string]time.Time // by event type
}

// New builds a Bus with a bounded dedup LRU of the given size.
func New(dedupSize int, defaultCooldown time.Duration) (*Bus, error) {
	if dedupSize <= 0 {
		dedupSize = 1000
	}
	cache, err := lru.New(dedupSize)
	if err != nil {
		return nil, fmt.Errorf("eventbus: create dedup cache: %w", err)
	}
	return &Bus{
		DefaultCooldown: defaultCooldown,
		Clock:           time.Now,
		seenIDs:         cache,
		lastTrigger:     make(map[string]time.Time),
	}, nil
}

// Emit processes one event: dedups by ID, applies the per-type cooldown,
// evaluates every matching mapping's condition, and dispatches the ones
// that pass.
func (b *Bus) Emit(ctx context.Context, ev model.Event) EmitResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := EmitResult{}

	if b.seenIDs.Contains(ev.ID) {
		result.SkippedReasons = append(result.SkippedReasons, "duplicate_event_id")
		return result
	}
	b.seenIDs.Add(ev.ID, struct{}{})

	now := b.clock()
	if last, ok := b.lastTrigger[ev.Type]; ok {
		cooldown := b.DefaultCooldown
		if cooldown <= 0 {
			cooldown = 15 * time.Minute
		}
		if now.Sub(last) < cooldown {
			result.SkippedReasons = append(result.SkippedReasons, "cooldown_active")
			return result
		}
	}

	matched := false
	for _, m := range b.Mappings {
		if m.EventType != ev.Type {
			continue
		}
		if m.Condition != nil && !evaluate(*m.Condition, ev.Data) {
			result.SkippedReasons = append(result.SkippedReasons, fmt.Sprintf("condition_not_met:%s", m.Target))
			continue
		}

		pipelineID, err := b.dispatch(ctx, m)
		if err != nil {
			result.SkippedReasons = append(result.SkippedReasons, fmt.Sprintf("dispatch_failed:%s", err))
			continue
		}
		matched = true
		result.PipelinesTriggered++
		if pipelineID != "" {
			result.PipelineIDs = append(result.PipelineIDs, pipelineID)
		}
	}

	if matched {
		b.lastTrigger[ev.Type] = now
	}
	return result
}

func (b *Bus) clock() time.Time {
	if b.Clock != nil {
		return b.Clock()
	}
	return time.Now()
}

// dispatch starts the mapping's target, returning a pipeline/goal id for
// reporting if one was produced.
func (b *Bus) dispatch(ctx context.Context, m Mapping) (string, error) {
	const goalPrefix = "goal:"
	if len(m.Target) > len(goalPrefix) && m.Target[:len(goalPrefix)] == goalPrefix {
		description := fmt.Sprintf("event-triggered goal for %s", m.Target[len(goalPrefix):])
		goal, err := b.Director.CreateGoal(ctx, description, m.GoalCategory, m.Priority, nil)
		if err != nil {
			return "", err
		}
		return goal.ID, nil
	}

	def, ok := b.Definitions[m.Target]
	if !ok {
		return "", fmt.Errorf("no pipeline definition registered for target %q", m.Target)
	}
	if err := b.Starter.StartPipeline(ctx, def, m.Priority, ""); err != nil {
		return "", err
	}
	return def.ID, nil
}

// evaluate applies a single Condition against an event's data map.
func evaluate(c Condition, data map[string]interface{}) bool {
	actual, ok := data[c.Field]
	if !ok {
		return false
	}
	switch c.Operator {
	case "eq":
		return actual == c.Value
	case "ne":
		return actual != c.Value
	case "contains":
		as, ok1 := actual.(string)
		vs, ok2 := c.Value.(string)
		return ok1 && ok2 && strings.Contains(as, vs)
	case "gt", "gte", "lt", "lte":
		af, ok1 := toFloat(actual)
		vf, ok2 := toFloat(c.Value)
		if !ok1 || !ok2 {
			return false
		}
		switch c.Operator {
		case "gt":
			return af > vf
		case "gte":
			return af >= vf
		case "lt":
			return af < vf
		default: // lte
			return af <= vf
		}
	default:
		return false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
