// Package scheduler implements the cron-driven dispatch loop (C14):
// deterministic fire detection with dedup, overlap protection, bounded
// catch-up, and budget gating, grounded on the teacher's internal/scheduler
// tick loop (internal/scheduler/scheduler.go's Run/tick shape), replacing
// its Temporal-workflow-listing overlap check with the spec's simpler
// per-schedule "still running" flag and its bead lister with the Director.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron"

	"github.com/antigravity-dev/marketing-orchestrator/internal/cost"
	"github.com/antigravity-dev/marketing-orchestrator/internal/director"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

// SkipReason enumerates why a schedule did not fire on a given tick.
type SkipReason string

const (
	SkipDisabled               SkipReason = "disabled"
	SkipNoCronMatch            SkipReason = "no_cron_match"
	SkipAlreadyFiredThisMinute SkipReason = "already_fired_this_minute"
	SkipPipelineStillRunning   SkipReason = "pipeline_still_running"
	SkipBudgetThrottle         SkipReason = "budget_throttle"
	SkipBudgetExhausted        SkipReason = "budget_exhausted"
	SkipStateUnavailable       SkipReason = "schedule_state_unavailable"
	SkipFireFailed             SkipReason = "fire_failed"
)

// Skipped names one schedule the tick did not fire, and why.
type Skipped struct {
	ID     string
	Reason SkipReason
}

// TickResult is returned by every Tick call (spec §4.10: "{fired: [ids],
// skipped: [{id, reason}]}").
type TickResult struct {
	Fired   []string
	Skipped []Skipped
}

// entryState bundles one configured schedule with its parsed cron schedule
// and mutable fire-history.
type entryState struct {
	entry    model.ScheduleEntry
	schedule cron.Schedule
	running  bool
}

// PipelineStarter starts a fresh run of a named pipeline template. The
// caller (cmd/orchestrator) wires this to whichever execution mode it runs
// under — the synchronous pipeline.Engine, the queue worker, or a
// temporalflow.PipelineWorkflow — so the scheduler itself stays agnostic to
// how a run actually gets driven to completion.
type PipelineStarter interface {
	StartPipeline(ctx context.Context, def model.PipelineDefinition, priority model.Priority, goalID string) error
}

// Scheduler evaluates configured ScheduleEntry values against a clock,
// firing goals/pipelines through the Director/PipelineStarter under budget
// gating.
type Scheduler struct {
	Workspace        workspace.Workspace
	Director         *director.Director
	Starter          PipelineStarter
	Definitions      map[string]model.PipelineDefinition
	Budget           cost.BudgetReader
	MaxCatchUpWindow int
	Clock            func() time.Time

	mu      sync.Mutex
	entries map[string]*entryState
}

// New builds a Scheduler. clock defaults to time.Now if nil.
func New(ws workspace.Workspace, dir *director.Director, starter PipelineStarter, definitions map[string]model.PipelineDefinition, budget cost.BudgetReader, maxCatchUpWindow int, clock func() time.Time) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	if maxCatchUpWindow <= 0 {
		maxCatchUpWindow = 100
	}
	return &Scheduler{
		Workspace:        ws,
		Director:         dir,
		Starter:          starter,
		Definitions:      definitions,
		Budget:           budget,
		MaxCatchUpWindow: maxCatchUpWindow,
		Clock:            clock,
		entries:          make(map[string]*entryState),
	}
}

// Start registers every schedule, restoring its fire-history from the
// workspace, then — for any schedule with CatchUp set — replays the cron
// occurrences missed between its last recorded fire and now, bounded by
// MaxCatchUpWindow, each still passing budget gating.
func (s *Scheduler) Start(ctx context.Context, entries []model.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		sched, err := cron.ParseStandard(e.Cron)
		if err != nil {
			return fmt.Errorf("scheduler: parse cron %q for schedule %q: %w", e.Cron, e.ID, err)
		}
		s.entries[e.ID] = &entryState{entry: e, schedule: sched}

		if !e.CatchUp {
			continue
		}
		state, err := s.Workspace.ReadScheduleState(ctx, e.ID)
		if err != nil {
			return fmt.Errorf("scheduler: read schedule state %q: %w", e.ID, err)
		}
		if state.LastFiredAt.IsZero() {
			continue
		}
		occurrences := s.missedOccurrences(sched, state.LastFiredAt, s.Clock())
		for _, occ := range occurrences {
			budgetState := s.Budget()
			if budgetState.Level == model.BudgetExhausted || !budgetState.Allows(e.Priority) {
				break // stop catch-up the moment budget stops allowing it
			}
			if _, skip := s.tryFire(ctx, e.ID, occ); skip != "" {
				break
			}
		}
	}
	return nil
}

// missedOccurrences returns every cron occurrence strictly after since and
// at or before until, bounded to at most MaxCatchUpWindow entries (oldest
// first) so a long-down process cannot replay an unbounded backlog.
func (s *Scheduler) missedOccurrences(sched cron.Schedule, since, until time.Time) []time.Time {
	var occs []time.Time
	t := since
	for len(occs) < s.MaxCatchUpWindow {
		next := sched.Next(t)
		if next.IsZero() || next.After(until) {
			break
		}
		occs = append(occs, next)
		t = next
	}
	return occs
}

// Tick evaluates every registered schedule against now, firing those that
// are due and reporting why the rest were skipped.
func (s *Scheduler) Tick(ctx context.Context) TickResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Clock()
	minuteFloor := now.Truncate(time.Minute)

	var ids []string
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids) // deterministic ordering across ticks

	result := TickResult{}
	for _, id := range ids {
		st := s.entries[id]
		if !st.entry.Enabled {
			result.Skipped = append(result.Skipped, Skipped{ID: id, Reason: SkipDisabled})
			continue
		}

		state, err := s.Workspace.ReadScheduleState(ctx, id)
		if err != nil {
			result.Skipped = append(result.Skipped, Skipped{ID: id, Reason: SkipStateUnavailable})
			continue
		}

		if !s.cronMatches(st.schedule, minuteFloor) {
			result.Skipped = append(result.Skipped, Skipped{ID: id, Reason: SkipNoCronMatch})
			continue
		}
		if state.LastFiredAt.Equal(minuteFloor) {
			result.Skipped = append(result.Skipped, Skipped{ID: id, Reason: SkipAlreadyFiredThisMinute})
			continue
		}
		if st.running {
			result.Skipped = append(result.Skipped, Skipped{ID: id, Reason: SkipPipelineStillRunning})
			continue
		}

		budgetState := s.Budget()
		if budgetState.Level == model.BudgetExhausted {
			result.Skipped = append(result.Skipped, Skipped{ID: id, Reason: SkipBudgetExhausted})
			continue
		}
		if !budgetState.Allows(st.entry.Priority) {
			result.Skipped = append(result.Skipped, Skipped{ID: id, Reason: SkipBudgetThrottle})
			continue
		}

		if _, reason := s.tryFire(ctx, id, minuteFloor); reason != "" {
			result.Skipped = append(result.Skipped, Skipped{ID: id, Reason: reason})
			continue
		}
		result.Fired = append(result.Fired, id)
	}
	return result
}

// cronMatches reports whether minuteFloor is itself a cron occurrence of
// sched — i.e. the schedule is due this minute.
func (s *Scheduler) cronMatches(sched cron.Schedule, minuteFloor time.Time) bool {
	next := sched.Next(minuteFloor.Add(-time.Minute))
	return !next.IsZero() && next.Equal(minuteFloor)
}

// tryFire fires one schedule occurrence: invokes the Director, persists the
// updated fire-history, and marks the schedule as running until
// MarkCompleted is called. Returns a non-empty reason if firing itself
// failed (treated the same as a skip by callers).
func (s *Scheduler) tryFire(ctx context.Context, id string, occurredAt time.Time) (fired bool, reason SkipReason) {
	st := s.entries[id]
	if err := s.fireTarget(ctx, st.entry); err != nil {
		return false, SkipFireFailed
	}

	st.running = true
	state := model.ScheduleState{ScheduleID: id, LastFiredAt: occurredAt.Truncate(time.Minute), FireCount: 1}
	prior, err := s.Workspace.ReadScheduleState(ctx, id)
	if err == nil {
		state.FireCount = prior.FireCount + 1
	}
	if err := s.Workspace.WriteScheduleState(ctx, state); err != nil {
		return false, SkipStateUnavailable
	}
	return true, ""
}

// fireTarget starts the configured pipeline template or creates a goal,
// per the "goal:{skill}" target convention (spec §4.10).
func (s *Scheduler) fireTarget(ctx context.Context, e model.ScheduleEntry) error {
	const goalPrefix = "goal:"
	if len(e.Target) > len(goalPrefix) && e.Target[:len(goalPrefix)] == goalPrefix {
		description := fmt.Sprintf("scheduled run of %s", e.Target[len(goalPrefix):])
		_, err := s.Director.CreateGoal(ctx, description, e.GoalCategory, e.Priority, nil)
		return err
	}

	def, ok := s.Definitions[e.Target]
	if !ok {
		return fmt.Errorf("scheduler: no pipeline definition registered for target %q", e.Target)
	}
	return s.Starter.StartPipeline(ctx, def, e.Priority, "")
}

// MarkCompleted clears the overlap guard for id, letting its next due
// occurrence fire.
func (s *Scheduler) MarkCompleted(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.entries[id]; ok {
		st.running = false
	}
}

// Stop persists nothing further (state is written on every fire) and exists
// to give callers a symmetric shutdown hook matching the teacher's
// Scheduler.Run/Stop shape.
func (s *Scheduler) Stop(ctx context.Context) error {
	return nil
}
