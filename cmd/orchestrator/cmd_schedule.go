package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/antigravity-dev/marketing-orchestrator/internal/health"
	"github.com/antigravity-dev/marketing-orchestrator/internal/registry"
	"github.com/antigravity-dev/marketing-orchestrator/internal/scheduler"
)

// scheduleCmd runs the cron scheduler as a foreground daemon: one Tick per
// minute, firing every due schedule through the synchronous pipeline
// engine, until SIGINT/SIGTERM. Grounded on the teacher's main.go ticker
// loop, generalized from a fixed tick-everything-in-one-pass daemon to a
// single named subcommand.
func scheduleCmd(args []string) int {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	configPath := fs.String("config", "orchestrator.toml", "path to config file")
	once := fs.Bool("once", false, "run a single tick then exit")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}

	a, code, err := buildApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator schedule: %v\n", err)
		return code
	}

	lock, err := health.AcquireFlock(a.cfg.Health.LockFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator schedule: %v\n", err)
		return exitConfigError
	}
	defer health.ReleaseFlock(lock)

	entries, err := loadScheduleEntries(a.cfg.Scheduler.SchedulesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator schedule: load schedule entries: %v\n", err)
		return exitConfigError
	}
	defs, err := registry.LoadPipelineDefinitions(a.cfg.Registries.PipelinesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator schedule: load pipeline definitions: %v\n", err)
		return exitConfigError
	}

	starter := &engineStarter{engine: a.engine}
	sched := scheduler.New(a.ws, a.dir, starter, defs, a.tracker.ToBudgetState, a.cfg.Scheduler.MaxCatchUpWindow, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx, entries); err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator schedule: start: %v\n", err)
		return exitConfigError
	}

	tick := func() {
		result := sched.Tick(ctx)
		for _, id := range result.Fired {
			a.logger.Info("schedule fired", "schedule_id", id)
			sched.MarkCompleted(id)
		}
		for _, skipped := range result.Skipped {
			a.logger.Debug("schedule skipped", "schedule_id", skipped.ID, "reason", skipped.Reason)
		}
	}

	if *once {
		tick()
		return exitSuccess
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("schedule daemon shutting down")
			return exitSuccess
		case <-ticker.C:
			tick()
		}
	}
}
