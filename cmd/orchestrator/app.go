// Command orchestrator is the CLI entrypoint (run/schedule/events/health
// subcommands), grounded on the teacher's cmd/cortex/main.go: stdlib flag
// parsing, slog setup from config, a single-instance flock, and signal-
// driven graceful shutdown, generalized from cortex's fixed tick-loop
// daemon to four independently invokable subcommands over the same
// wired components.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/antigravity-dev/marketing-orchestrator/internal/config"
	"github.com/antigravity-dev/marketing-orchestrator/internal/cost"
	"github.com/antigravity-dev/marketing-orchestrator/internal/director"
	"github.com/antigravity-dev/marketing-orchestrator/internal/executor"
	"github.com/antigravity-dev/marketing-orchestrator/internal/health"
	"github.com/antigravity-dev/marketing-orchestrator/internal/llm"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/pipeline"
	"github.com/antigravity-dev/marketing-orchestrator/internal/queue"
	"github.com/antigravity-dev/marketing-orchestrator/internal/registry"
	"github.com/antigravity-dev/marketing-orchestrator/internal/workspace"
)

// Exit codes per spec §6's CLI surface.
const (
	exitSuccess         = 0
	exitConfigError     = 2
	exitBudgetExhausted = 3
	exitWorkspaceError  = 4
)

// app bundles every wired component a subcommand might need. Not every
// subcommand touches every field.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	ws        workspace.Workspace
	skills    *registry.SkillRegistry
	squads    *registry.SquadRegistry
	tools     *registry.ToolRegistry
	tracker   *cost.Tracker
	llmClient *llm.Client
	exec      *executor.Executor
	dir       *director.Director
	queueMgr  *queue.Manager
	engine    *pipeline.Engine
	monitor   *health.Monitor
}

func configureLogger(cfg config.Logging) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(strings.TrimSpace(cfg.Level)) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// buildApp loads config and wires every component, mirroring the teacher's
// cmd/cortex/main.go component-construction block.
func buildApp(configPath string) (*app, int, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, exitConfigError, fmt.Errorf("load config: %w", err)
	}
	logger := configureLogger(cfg.Logging)
	slog.SetDefault(logger)

	ws, err := workspace.NewFSWorkspace(cfg.Workspace.RootDir)
	if err != nil {
		return nil, exitWorkspaceError, fmt.Errorf("open workspace: %w", err)
	}

	skills, err := registry.LoadSkillRegistry(cfg.Registries.SkillsPath)
	if err != nil {
		return nil, exitConfigError, fmt.Errorf("load skills registry: %w", err)
	}
	squads, err := registry.LoadSquadRegistry(cfg.Registries.SquadsPath)
	if err != nil {
		return nil, exitConfigError, fmt.Errorf("load squads registry: %w", err)
	}
	tools, err := registry.LoadToolRegistry(cfg.Registries.ToolsPath)
	if err != nil {
		return nil, exitConfigError, fmt.Errorf("load tools registry: %w", err)
	}

	tracker := cost.NewTracker(cfg.Budget)
	if state := tracker.ToBudgetState(); state.Level == model.BudgetExhausted {
		return nil, exitBudgetExhausted, fmt.Errorf("budget already exhausted at startup")
	}

	transport := llm.NewHTTPTransport(cfg.LLM.Endpoint, cfg.APIKey())
	llmClient := llm.NewClient(transport, llm.ClassifyHTTPError, 1.0, 2)

	exec := &executor.Executor{
		Workspace:         ws,
		Skills:            skills,
		Squads:            squads,
		Tools:             tools,
		Tracker:           tracker,
		LLM:               llmClient,
		PromptBudget:      cfg.General.PromptTokenBudget,
		LLMTimeout:        cfg.General.LLMTimeout.Duration,
		MaxToolIterations: cfg.General.MaxToolIterations,
	}

	dir := &director.Director{
		Workspace: ws,
		Skills:    skills,
		Squads:    squads,
		Factory:   &director.DefaultTaskFactory{Skills: skills},
		LLM:       llmClient,
	}

	var adapter queue.Adapter
	switch cfg.Queue.Backend {
	case "nats":
		adapter, err = queue.NewNATSAdapter(cfg.Queue.NATSURL, cfg.Queue.Subject)
		if err != nil {
			return nil, exitConfigError, fmt.Errorf("connect nats adapter: %w", err)
		}
	default:
		adapter = queue.NewMemoryAdapter(256)
	}
	queueMgr := &queue.Manager{Adapter: adapter, Budget: tracker.ToBudgetState, FallbackDir: cfg.Queue.FallbackDir, Workspace: ws}

	engine := &pipeline.Engine{
		Workspace:      ws,
		Factory:        &pipeline.DefaultTaskFactory{Skills: skills},
		Executor:       exec,
		MaxConcurrency: cfg.General.MaxConcurrentTasks,
	}

	checkers := []health.Checker{
		health.WorkspaceChecker{Workspace: ws},
		health.BudgetChecker{Budget: tracker.ToBudgetState},
	}
	if depther, ok := adapter.(interface{ Depth() int }); ok {
		checkers = append(checkers, health.QueueDepthChecker{Depth: func() (int, error) { return depther.Depth(), nil }, Threshold: 100})
	}
	monitor := health.NewMonitor(checkers, cfg.Health.CheckTimeout.Duration, tracker.ToBudgetState, nil, logger.With("component", "health"))

	return &app{
		cfg: cfg, logger: logger, ws: ws, skills: skills, squads: squads, tools: tools,
		tracker: tracker, llmClient: llmClient, exec: exec, dir: dir, queueMgr: queueMgr,
		engine: engine, monitor: monitor,
	}, exitSuccess, nil
}
