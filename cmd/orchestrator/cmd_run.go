package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/antigravity-dev/marketing-orchestrator/internal/executor"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/router"
)

// runCmd creates a goal, decomposes and materializes its first phase, then
// drives every pending task to completion through executor.Execute and
// router.Route, appending each follow-up task to the work list, until the
// list runs dry or the router reports a pause_cascade. This synchronous
// loop is a CLI-scale stand-in for the queue worker's indefinite channel
// consumption, which has no natural "done" point for a one-shot invocation.
func runCmd(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "orchestrator.toml", "path to config file")
	category := fs.String("category", string(model.CategoryContent), "goal category")
	priority := fs.String("priority", string(model.PriorityP2), "goal priority (P0-P3)")
	dryRun := fs.Bool("dry-run", false, "materialize the first phase's tasks without executing them")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}

	description := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if description == "" {
		fmt.Fprintln(os.Stderr, "orchestrator run: a goal description is required")
		return exitConfigError
	}

	a, code, err := buildApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator run: %v\n", err)
		return code
	}

	ctx := context.Background()
	goal, err := a.dir.CreateGoal(ctx, description, model.GoalCategory(*category), model.Priority(*priority), nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator run: create goal: %v\n", err)
		return exitWorkspaceError
	}

	plan := a.dir.Decompose(goal)
	if err := a.dir.SavePlan(ctx, plan); err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator run: save plan: %v\n", err)
		return exitWorkspaceError
	}
	a.logger.Info("goal created", "goal_id", goal.ID, "category", goal.Category, "phases", len(plan.Phases))

	if len(plan.Phases) == 0 {
		fmt.Println(goal.ID)
		return exitSuccess
	}

	tasks, err := a.dir.MaterializePhase(ctx, goal, plan.Phases[0], nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator run: materialize first phase: %v\n", err)
		return exitWorkspaceError
	}

	if *dryRun {
		fmt.Printf("%s: %d task(s) planned across %d phase(s)\n", goal.ID, plan.EstimatedTaskCount, len(plan.Phases))
		for _, t := range tasks {
			fmt.Printf("  %s  skill=%s\n", t.ID, t.Skill)
		}
		return exitSuccess
	}

	rtr := &router.Router{Workspace: a.ws, Director: a.dir}

	pending := make([]string, 0, len(tasks))
	for _, t := range tasks {
		pending = append(pending, t.ID)
	}

	for len(pending) > 0 {
		if state := a.tracker.ToBudgetState(); state.Level == model.BudgetExhausted {
			a.logger.Warn("run paused: budget exhausted", "goal_id", goal.ID)
			return exitBudgetExhausted
		}

		taskID := pending[0]
		pending = pending[1:]

		result := a.exec.Execute(ctx, taskID, executor.Options{})
		var execErr error
		if result.Err != nil {
			execErr = result.Err
		}

		routed, err := rtr.Route(ctx, taskID, execErr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "orchestrator run: route task %s: %v\n", taskID, err)
			return exitWorkspaceError
		}

		switch routed.Outcome {
		case router.OutcomePauseCascade:
			a.logger.Warn("run paused", "goal_id", goal.ID, "task_id", taskID, "reason", routed.Reason)
			fmt.Println(goal.ID)
			return exitSuccess
		case router.OutcomeEnqueueTasks:
			for _, t := range routed.NextTasks {
				pending = append(pending, t.ID)
			}
		case router.OutcomeComplete:
			// Route already advanced the goal internally; nothing left to
			// queue (either the goal is done or the next phase had none).
		}
	}

	fmt.Println(goal.ID)
	return exitSuccess
}
