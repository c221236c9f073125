package model

import "time"

// StepKind is the tagged-variant discriminator for a pipeline Step (design
// note: "model as a tagged variant rather than inheritance").
type StepKind string

const (
	StepSequential StepKind = "sequential"
	StepParallel   StepKind = "parallel"
	StepReview     StepKind = "review"
)

// Step is one entry of a PipelineDefinition. Exactly one of Skill/Skills/
// Reviewer is populated, selected by Kind.
type Step struct {
	Kind     StepKind `json:"kind" yaml:"kind"`
	Skill    string   `json:"skill,omitempty" yaml:"skill,omitempty"`
	Skills   []string `json:"skills,omitempty" yaml:"skills,omitempty"`
	Reviewer string   `json:"reviewer,omitempty" yaml:"reviewer,omitempty"`
}

// PipelineDefinition is a named, ordered sequence of steps.
type PipelineDefinition struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Steps []Step `json:"steps" yaml:"steps"`
}

// PipelineRun is one execution of a PipelineDefinition.
type PipelineRun struct {
	ID               string         `json:"id" yaml:"id"`
	DefinitionID     string         `json:"definition_id" yaml:"definition_id"`
	GoalID           string         `json:"goal_id,omitempty" yaml:"goal_id,omitempty"`
	Status           PipelineStatus `json:"status" yaml:"status"`
	CurrentStepIndex int            `json:"current_step_index" yaml:"current_step_index"`
	TaskIDs          []string       `json:"task_ids" yaml:"task_ids"`
	CreatedAt        time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a copy of the run with its own TaskIDs backing array.
func (r PipelineRun) Clone() PipelineRun {
	cp := r
	if r.TaskIDs != nil {
		cp.TaskIDs = append([]string(nil), r.TaskIDs...)
	}
	return cp
}
