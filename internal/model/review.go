package model

import "time"

// Finding is a single structural/semantic issue raised by a review.
type Finding struct {
	Section     string   `json:"section" yaml:"section"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Description string   `json:"description" yaml:"description"`
}

// Review is the outcome of running the review engine over a task's output.
type Review struct {
	ID        string        `json:"id" yaml:"id"`
	TaskID    string        `json:"task_id" yaml:"task_id"`
	Reviewer  string        `json:"reviewer" yaml:"reviewer"`
	Verdict   ReviewVerdict `json:"verdict" yaml:"verdict"`
	Findings  []Finding     `json:"findings" yaml:"findings"`
	CreatedAt time.Time     `json:"created_at" yaml:"created_at"`
}

// Learning is one append-only entry in the learnings log.
type Learning struct {
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
	Agent        string    `json:"agent" yaml:"agent"`
	GoalID       string    `json:"goal_id,omitempty" yaml:"goal_id,omitempty"`
	Outcome      string    `json:"outcome" yaml:"outcome"`
	LearningText string    `json:"learning" yaml:"learning"`
	ActionTaken  string    `json:"action_taken,omitempty" yaml:"action_taken,omitempty"`
	Skill        string    `json:"skill,omitempty" yaml:"skill,omitempty"`
}
