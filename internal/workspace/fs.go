package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// FSWorkspace is the filesystem-backed Workspace: markdown+YAML-frontmatter
// for goals/tasks/reviews, an append-only markdown log for learnings, JSON
// for schedule state, and plain files for outputs/context. This is the
// wire-format of record; SQLiteCache (sqlite.go) only accelerates repeated
// lookups over the same data, grounded on the teacher's internal/store
// acting as an accelerant over what beads/markdown files already describe.
type FSWorkspace struct {
	root string
}

// NewFSWorkspace roots a workspace at dir, creating the directory skeleton
// the path conventions in spec §6 assume.
func NewFSWorkspace(dir string) (*FSWorkspace, error) {
	ws := &FSWorkspace{root: dir}
	dirs := []string{"goals", "tasks", "reviews", "outputs", "context", "memory", "schedules", "queue-fallback"}
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			return nil, fmt.Errorf("workspace: create %s: %w", d, err)
		}
	}
	return ws, nil
}

func (w *FSWorkspace) abs(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

func (w *FSWorkspace) ReadFile(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(w.abs(path))
	if err != nil {
		return nil, fmt.Errorf("workspace: read %s: %w", path, err)
	}
	return data, nil
}

func (w *FSWorkspace) WriteFile(_ context.Context, path string, data []byte) error {
	full := w.abs(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("workspace: mkdir for %s: %w", path, err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("workspace: write %s: %w", path, err)
	}
	return nil
}

// taskFrontmatter mirrors model.Task's fields for markdown+frontmatter
// persistence. The body carries requirements/goal text free-form.
type taskFrontmatter struct {
	ID            string            `yaml:"id"`
	Sender        string            `yaml:"sender"`
	Skill         string            `yaml:"skill"`
	Priority      model.Priority    `yaml:"priority"`
	Deadline      *time.Time        `yaml:"deadline,omitempty"`
	Status        model.TaskStatus  `yaml:"status"`
	RevisionCount int               `yaml:"revision_count"`
	GoalID        string            `yaml:"goal_id,omitempty"`
	PipelineID    string            `yaml:"pipeline_id,omitempty"`
	Inputs        []model.InputRef  `yaml:"inputs,omitempty"`
	Output        model.OutputDescriptor `yaml:"output"`
	Next          model.NextAction  `yaml:"next"`
	Tags          []string          `yaml:"tags,omitempty"`
	Metadata      map[string]string `yaml:"metadata,omitempty"`
	CreatedAt     time.Time         `yaml:"created_at"`
	UpdatedAt     time.Time         `yaml:"updated_at"`
}

func taskPath(id string) string { return fmt.Sprintf("tasks/%s.md", id) }

func (w *FSWorkspace) ReadTask(_ context.Context, id string) (model.Task, error) {
	raw, err := os.ReadFile(w.abs(taskPath(id)))
	if err != nil {
		return model.Task{}, fmt.Errorf("workspace: read task %s: %w", id, err)
	}
	var fm taskFrontmatter
	body, err := unmarshalFrontmatter(raw, &fm)
	if err != nil {
		return model.Task{}, fmt.Errorf("workspace: parse task %s: %w", id, err)
	}
	t := model.Task{
		ID: fm.ID, Sender: fm.Sender, Skill: fm.Skill, Priority: fm.Priority,
		Deadline: fm.Deadline, Status: fm.Status, RevisionCount: fm.RevisionCount,
		GoalID: fm.GoalID, PipelineID: fm.PipelineID, Inputs: fm.Inputs,
		Output: fm.Output, Next: fm.Next, Tags: fm.Tags, Metadata: fm.Metadata,
		CreatedAt: fm.CreatedAt, UpdatedAt: fm.UpdatedAt,
		GoalText: strings.TrimSpace(body),
	}
	return t, nil
}

func (w *FSWorkspace) WriteTask(_ context.Context, t model.Task) error {
	fm := taskFrontmatter{
		ID: t.ID, Sender: t.Sender, Skill: t.Skill, Priority: t.Priority,
		Deadline: t.Deadline, Status: t.Status, RevisionCount: t.RevisionCount,
		GoalID: t.GoalID, PipelineID: t.PipelineID, Inputs: t.Inputs,
		Output: t.Output, Next: t.Next, Tags: t.Tags, Metadata: t.Metadata,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
	body := "## Requirements\n\n" + t.Requirements + "\n\n## Goal\n\n" + t.GoalText + "\n"
	doc, err := joinFrontmatter(fm, body)
	if err != nil {
		return err
	}
	return w.WriteFile(context.Background(), taskPath(t.ID), doc)
}

// UpdateTaskStatus loads, transition-checks, and rewrites a task's status,
// rejecting illegal transitions at this boundary (design note: "centralize
// as a table of legal transitions... rejecting illegal transitions at the
// workspace boundary").
func (w *FSWorkspace) UpdateTaskStatus(ctx context.Context, id string, status model.TaskStatus) error {
	t, err := w.ReadTask(ctx, id)
	if err != nil {
		return err
	}
	if !model.IsLegalTaskTransition(t.Status, status) {
		return fmt.Errorf("workspace: illegal task transition %s -> %s for task %s", t.Status, status, id)
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return w.WriteTask(ctx, t)
}

func (w *FSWorkspace) ListTasks(_ context.Context) ([]model.Task, error) {
	entries, err := os.ReadDir(w.abs("tasks"))
	if err != nil {
		return nil, fmt.Errorf("workspace: list tasks: %w", err)
	}
	var tasks []model.Task
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".md")
		t, err := w.ReadTask(context.Background(), id)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// ReadOutput reads a non-foundation output path. Foundation-skill callers
// use ReadOutputFor, which resolves to the fixed product-marketing-context
// path instead.
func (w *FSWorkspace) ReadOutput(_ context.Context, squad, skill, taskID string) (string, error) {
	path := OutputPath(squad, skill, taskID, false)
	data, err := os.ReadFile(w.abs(path))
	if err != nil {
		return "", fmt.Errorf("workspace: read output %s: %w", path, err)
	}
	return string(data), nil
}

func (w *FSWorkspace) WriteOutput(ctx context.Context, squad, skill, taskID, content string) error {
	path := OutputPath(squad, skill, taskID, false)
	return w.WriteFile(ctx, path, []byte(content))
}

// ReadOutputFor and WriteOutputFor are the foundation-aware variants the
// executor actually calls (spec §4.2 step 12 distinguishes the foundation
// skill's fixed context path from per-squad output paths).
func (w *FSWorkspace) ReadOutputFor(ctx context.Context, squad, skill, taskID string, isFoundation bool) (string, error) {
	path := OutputPath(squad, skill, taskID, isFoundation)
	data, err := w.ReadFile(ctx, path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (w *FSWorkspace) WriteOutputFor(ctx context.Context, squad, skill, taskID, content string, isFoundation bool) error {
	path := OutputPath(squad, skill, taskID, isFoundation)
	return w.WriteFile(ctx, path, []byte(content))
}

const learningsPath = "memory/learnings.md"

// ReadLearnings parses the append-only learnings log, filtering by skill and
// returning newest-first (the prompt builder further caps to 10 entries and
// 5% of the token budget — that policy lives in internal/prompt, not here).
func (w *FSWorkspace) ReadLearnings(_ context.Context, skill string) ([]model.Learning, error) {
	data, err := os.ReadFile(w.abs(learningsPath))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("workspace: read learnings: %w", err)
	}

	var learnings []model.Learning
	for _, block := range strings.Split(string(data), "\n---\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		var l model.Learning
		if err := yaml.Unmarshal([]byte(block), &l); err != nil {
			continue // malformed entries are skipped, not fatal
		}
		if skill == "" || l.Skill == skill {
			learnings = append(learnings, l)
		}
	}
	// newest-first
	sort.Slice(learnings, func(i, j int) bool { return learnings[i].Timestamp.After(learnings[j].Timestamp) })
	return learnings, nil
}

// AppendLearning appends one YAML-block entry to the append-only log.
func (w *FSWorkspace) AppendLearning(_ context.Context, l model.Learning) error {
	full := w.abs(learningsPath)
	f, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("workspace: open learnings log: %w", err)
	}
	defer f.Close()

	entry, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("workspace: marshal learning: %w", err)
	}
	if _, err := f.Write(entry); err != nil {
		return fmt.Errorf("workspace: append learning: %w", err)
	}
	if _, err := f.WriteString("---\n"); err != nil {
		return fmt.Errorf("workspace: append learning separator: %w", err)
	}
	return nil
}

type goalFrontmatter struct {
	ID        string            `yaml:"id"`
	Category  model.GoalCategory `yaml:"category"`
	Priority  model.Priority    `yaml:"priority"`
	CreatedAt time.Time         `yaml:"created_at"`
	Deadline  *time.Time        `yaml:"deadline,omitempty"`
	Metadata  map[string]string `yaml:"metadata,omitempty"`
}

func goalPath(id string) string { return fmt.Sprintf("goals/%s.md", id) }

func (w *FSWorkspace) ReadGoal(_ context.Context, id string) (model.Goal, error) {
	raw, err := os.ReadFile(w.abs(goalPath(id)))
	if err != nil {
		return model.Goal{}, fmt.Errorf("workspace: read goal %s: %w", id, err)
	}
	var fm goalFrontmatter
	body, err := unmarshalFrontmatter(raw, &fm)
	if err != nil {
		return model.Goal{}, fmt.Errorf("workspace: parse goal %s: %w", id, err)
	}
	return model.Goal{
		ID: fm.ID, Category: fm.Category, Priority: fm.Priority,
		CreatedAt: fm.CreatedAt, Deadline: fm.Deadline, Metadata: fm.Metadata,
		Description: extractSection(body, "## Description"),
	}, nil
}

func (w *FSWorkspace) WriteGoal(ctx context.Context, g model.Goal) error {
	fm := goalFrontmatter{ID: g.ID, Category: g.Category, Priority: g.Priority, CreatedAt: g.CreatedAt, Deadline: g.Deadline, Metadata: g.Metadata}
	body := "## Description\n\n" + g.Description + "\n"
	doc, err := joinFrontmatter(fm, body)
	if err != nil {
		return err
	}
	return w.WriteFile(ctx, goalPath(g.ID), doc)
}

func (w *FSWorkspace) ListGoals(_ context.Context) ([]model.Goal, error) {
	entries, err := os.ReadDir(w.abs("goals"))
	if err != nil {
		return nil, fmt.Errorf("workspace: list goals: %w", err)
	}
	var goals []model.Goal
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".md") || strings.HasSuffix(name, "-plan.md") {
			continue
		}
		id := strings.TrimSuffix(name, ".md")
		g, err := w.ReadGoal(context.Background(), id)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	sort.Slice(goals, func(i, j int) bool { return goals[i].ID < goals[j].ID })
	return goals, nil
}

func extractSection(body, header string) string {
	idx := strings.Index(body, header)
	if idx < 0 {
		return strings.TrimSpace(body)
	}
	rest := body[idx+len(header):]
	return strings.TrimSpace(rest)
}

type reviewFrontmatter struct {
	ID        string             `yaml:"id"`
	TaskID    string             `yaml:"task_id"`
	Reviewer  string             `yaml:"reviewer"`
	Verdict   model.ReviewVerdict `yaml:"verdict"`
	Findings  []model.Finding    `yaml:"findings,omitempty"`
	CreatedAt time.Time          `yaml:"created_at"`
}

func reviewPath(id string) string { return fmt.Sprintf("reviews/%s.md", id) }

func (w *FSWorkspace) ListReviews(_ context.Context, taskID string) ([]model.Review, error) {
	entries, err := os.ReadDir(w.abs("reviews"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("workspace: list reviews: %w", err)
	}
	var reviews []model.Review
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		raw, err := os.ReadFile(w.abs("reviews/" + e.Name()))
		if err != nil {
			return nil, fmt.Errorf("workspace: read review %s: %w", e.Name(), err)
		}
		var fm reviewFrontmatter
		if _, err := unmarshalFrontmatter(raw, &fm); err != nil {
			return nil, fmt.Errorf("workspace: parse review %s: %w", e.Name(), err)
		}
		if taskID != "" && fm.TaskID != taskID {
			continue
		}
		reviews = append(reviews, model.Review{ID: fm.ID, TaskID: fm.TaskID, Reviewer: fm.Reviewer, Verdict: fm.Verdict, Findings: fm.Findings, CreatedAt: fm.CreatedAt})
	}
	sort.Slice(reviews, func(i, j int) bool { return reviews[i].CreatedAt.Before(reviews[j].CreatedAt) })
	return reviews, nil
}

func (w *FSWorkspace) WriteReview(ctx context.Context, r model.Review) error {
	fm := reviewFrontmatter{ID: r.ID, TaskID: r.TaskID, Reviewer: r.Reviewer, Verdict: r.Verdict, Findings: r.Findings, CreatedAt: r.CreatedAt}
	doc, err := joinFrontmatter(fm, "")
	if err != nil {
		return err
	}
	return w.WriteFile(ctx, reviewPath(r.ID), doc)
}

const contextPath = "context/product-marketing-context.md"

func (w *FSWorkspace) ReadContext(ctx context.Context) (string, error) {
	data, err := w.ReadFile(ctx, contextPath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (w *FSWorkspace) ContextExists(_ context.Context) (bool, error) {
	_, err := os.Stat(w.abs(contextPath))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("workspace: stat context: %w", err)
	}
	return true, nil
}

func scheduleStatePath(id string) string { return fmt.Sprintf("schedules/%s.json", id) }

func (w *FSWorkspace) ReadScheduleState(_ context.Context, scheduleID string) (model.ScheduleState, error) {
	data, err := os.ReadFile(w.abs(scheduleStatePath(scheduleID)))
	if os.IsNotExist(err) {
		return model.ScheduleState{ScheduleID: scheduleID}, nil
	}
	if err != nil {
		return model.ScheduleState{}, fmt.Errorf("workspace: read schedule state %s: %w", scheduleID, err)
	}
	var s model.ScheduleState
	if err := json.Unmarshal(data, &s); err != nil {
		return model.ScheduleState{}, fmt.Errorf("workspace: parse schedule state %s: %w", scheduleID, err)
	}
	return s, nil
}

func (w *FSWorkspace) WriteScheduleState(ctx context.Context, s model.ScheduleState) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("workspace: marshal schedule state: %w", err)
	}
	return w.WriteFile(ctx, scheduleStatePath(s.ScheduleID), data)
}
