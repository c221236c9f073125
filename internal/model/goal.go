package model

import "time"

// Goal is a user-facing marketing objective.
type Goal struct {
	ID          string            `json:"id" yaml:"id"`
	Description string            `json:"description" yaml:"description"`
	Category    GoalCategory      `json:"category" yaml:"category"`
	Priority    Priority          `json:"priority" yaml:"priority"`
	CreatedAt   time.Time         `json:"created_at" yaml:"created_at"`
	Deadline    *time.Time        `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Phase is an ordered grouping of skills within a GoalPlan.
type Phase struct {
	Name              string   `json:"name" yaml:"name"`
	Description       string   `json:"description" yaml:"description"`
	Parallel          bool     `json:"parallel" yaml:"parallel"`
	PredecessorPhase  *int     `json:"predecessor_phase,omitempty" yaml:"predecessor_phase,omitempty"`
	Skills            []string `json:"skills" yaml:"skills"`
}

// GoalPlan is the phased decomposition of a Goal.
type GoalPlan struct {
	GoalID            string  `json:"goal_id" yaml:"goal_id"`
	Phases            []Phase `json:"phases" yaml:"phases"`
	PipelineTemplate  string  `json:"pipeline_template,omitempty" yaml:"pipeline_template,omitempty"`
	EstimatedTaskCount int    `json:"estimated_task_count" yaml:"estimated_task_count"`
}
