package model

// Priority is an ordered task/schedule priority. P0 is highest.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// allPriorities is the canonical descending order, P0 highest.
var allPriorities = []Priority{PriorityP0, PriorityP1, PriorityP2, PriorityP3}

// Rank returns the priority's position in the descending order (0 = P0, the
// highest priority). Unknown priorities rank lowest.
func (p Priority) Rank() int {
	for i, candidate := range allPriorities {
		if candidate == p {
			return i
		}
	}
	return len(allPriorities)
}

// Valid reports whether p is one of the four defined priorities.
func (p Priority) Valid() bool {
	return p.Rank() < len(allPriorities)
}

// BudgetLevel is the five-state budget degradation ladder.
type BudgetLevel string

const (
	BudgetNormal    BudgetLevel = "normal"
	BudgetWarning   BudgetLevel = "warning"
	BudgetThrottle  BudgetLevel = "throttle"
	BudgetCritical  BudgetLevel = "critical"
	BudgetExhausted BudgetLevel = "exhausted"
)

// ModelTier is the LLM model tier selected for a task.
type ModelTier string

const (
	TierOpus   ModelTier = "opus"
	TierSonnet ModelTier = "sonnet"
	TierHaiku  ModelTier = "haiku"
)

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskApproved   TaskStatus = "approved"
	TaskRevision   TaskStatus = "revision"
	TaskFailed     TaskStatus = "failed"
	TaskBlocked    TaskStatus = "blocked"
	TaskDeferred   TaskStatus = "deferred"
	TaskCancelled  TaskStatus = "cancelled"
)

// legalTaskTransitions centralizes the task status lifecycle so illegal
// transitions can be rejected at the workspace boundary (design note: "task
// status lifecycle... centralize as a table of legal transitions").
var legalTaskTransitions = map[TaskStatus]map[TaskStatus]bool{
	TaskPending:    {TaskAssigned: true, TaskInProgress: true, TaskBlocked: true, TaskDeferred: true, TaskCancelled: true},
	TaskAssigned:   {TaskInProgress: true, TaskBlocked: true, TaskDeferred: true, TaskCancelled: true, TaskFailed: true},
	TaskInProgress: {TaskCompleted: true, TaskFailed: true, TaskBlocked: true, TaskCancelled: true},
	TaskCompleted:  {TaskApproved: true, TaskRevision: true, TaskFailed: true, TaskBlocked: true},
	TaskApproved:   {}, // terminal success
	TaskRevision:   {TaskInProgress: true, TaskAssigned: true, TaskCancelled: true, TaskFailed: true},
	TaskFailed:     {TaskAssigned: true, TaskPending: true, TaskCancelled: true}, // re-runnable
	TaskBlocked:    {TaskPending: true, TaskAssigned: true, TaskCancelled: true},
	TaskDeferred:   {TaskPending: true, TaskAssigned: true, TaskCancelled: true},
	TaskCancelled:  {},
}

// IsLegalTaskTransition reports whether moving from `from` to `to` is an
// allowed task lifecycle transition.
func IsLegalTaskTransition(from, to TaskStatus) bool {
	if from == to {
		return true
	}
	next, ok := legalTaskTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// IsExecutable reports whether a task in this status may be picked up by the
// agent executor (spec §4.2 step 2: only pending, assigned, revision run).
func (s TaskStatus) IsExecutable() bool {
	switch s {
	case TaskPending, TaskAssigned, TaskRevision:
		return true
	default:
		return false
	}
}

// GoalCategory selects the Director's routing strategy for a goal.
type GoalCategory string

const (
	CategoryStrategic    GoalCategory = "strategic"
	CategoryContent      GoalCategory = "content"
	CategoryOptimization GoalCategory = "optimization"
	CategoryRetention    GoalCategory = "retention"
	CategoryCompetitive  GoalCategory = "competitive"
	CategoryMeasurement  GoalCategory = "measurement"
)

// PipelineStatus is the lifecycle state of a PipelineRun.
type PipelineStatus string

const (
	PipelinePending   PipelineStatus = "pending"
	PipelineRunning   PipelineStatus = "running"
	PipelinePaused    PipelineStatus = "paused"
	PipelineCompleted PipelineStatus = "completed"
	PipelineFailed    PipelineStatus = "failed"
	PipelineCancelled PipelineStatus = "cancelled"
)

// ReviewVerdict is the outcome of a review pass.
type ReviewVerdict string

const (
	VerdictApprove ReviewVerdict = "APPROVE"
	VerdictRevise  ReviewVerdict = "REVISE"
	VerdictReject  ReviewVerdict = "REJECT"
)

// Severity classifies a single review finding.
type Severity string

const (
	SeverityMinor   Severity = "minor"
	SeverityMajor   Severity = "major"
	SeverityBlocker Severity = "blocker"
)

// NextActionType tells the completion router what to do once a task completes.
type NextActionType string

const (
	NextComplete        NextActionType = "complete"
	NextDirectorReview   NextActionType = "director_review"
	NextPipelineContinue NextActionType = "pipeline_continue"
)

// Squad groups skills into a category that determines default model tier and
// output directory.
type Squad string

const (
	SquadStrategy   Squad = "strategy"
	SquadFoundation Squad = "foundation"
	SquadCreative   Squad = "creative"
	SquadConvert    Squad = "convert"
	SquadActivate   Squad = "activate"
	SquadMeasure    Squad = "measure"
)

// DefaultModelTier returns the model tier a squad resolves to absent any
// override (spec §4.2 step 5: "squad defaults are strategy ∪ foundation →
// opus, others → sonnet").
func (s Squad) DefaultModelTier() ModelTier {
	switch s {
	case SquadStrategy, SquadFoundation:
		return TierOpus
	default:
		return TierSonnet
	}
}
