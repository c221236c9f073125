package model

import "time"

// InputRef is a single input file reference for a task prompt.
type InputRef struct {
	Path        string `json:"path" yaml:"path"`
	Description string `json:"description" yaml:"description"`
}

// OutputDescriptor names where and in what format a task's output is written.
type OutputDescriptor struct {
	Path   string `json:"path" yaml:"path"`
	Format string `json:"format" yaml:"format"`
}

// NextAction tells the completion router what to do once a task finishes.
type NextAction struct {
	Type NextActionType `json:"type" yaml:"type"`
}

// Task is the unit of work dispatched to one skill.
type Task struct {
	ID            string            `json:"id" yaml:"id"`
	Sender        string            `json:"sender" yaml:"sender"`
	Skill         string            `json:"skill" yaml:"skill"`
	Priority      Priority          `json:"priority" yaml:"priority"`
	Deadline      *time.Time        `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Status        TaskStatus        `json:"status" yaml:"status"`
	RevisionCount int               `json:"revision_count" yaml:"revision_count"`
	GoalID        string            `json:"goal_id,omitempty" yaml:"goal_id,omitempty"`
	PipelineID    string            `json:"pipeline_id,omitempty" yaml:"pipeline_id,omitempty"`
	GoalText      string            `json:"goal_text" yaml:"goal_text"`
	Inputs        []InputRef        `json:"inputs" yaml:"inputs"`
	Requirements  string            `json:"requirements" yaml:"requirements"`
	Output        OutputDescriptor  `json:"output" yaml:"output"`
	Next          NextAction        `json:"next" yaml:"next"`
	Tags          []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a deep-enough copy of the task so callers can mutate the
// result without aliasing the original slices/maps (design note: "no
// cross-component mutable aliasing").
func (t Task) Clone() Task {
	cp := t
	if t.Inputs != nil {
		cp.Inputs = append([]InputRef(nil), t.Inputs...)
	}
	if t.Tags != nil {
		cp.Tags = append([]string(nil), t.Tags...)
	}
	if t.Metadata != nil {
		cp.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}
