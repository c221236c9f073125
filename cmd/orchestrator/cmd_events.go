package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/antigravity-dev/marketing-orchestrator/internal/eventbus"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
	"github.com/antigravity-dev/marketing-orchestrator/internal/registry"
)

// eventsCmd runs the event bus daemon, reading one JSON-encoded model.Event
// per line from stdin until EOF and emitting each through the configured
// mapping table. Grounded on the teacher's matrix poller's receive-dispatch
// loop, generalized from a Matrix room subscription to a line-delimited
// stdin feed (spec §4.11 names the event source as external and
// implementation-defined).
func eventsCmd(args []string) int {
	fs := flag.NewFlagSet("events", flag.ContinueOnError)
	configPath := fs.String("config", "orchestrator.toml", "path to config file")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}

	a, code, err := buildApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator events: %v\n", err)
		return code
	}

	mappings, err := loadEventMappings(a.cfg.EventBus.MappingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator events: load event mappings: %v\n", err)
		return exitConfigError
	}
	defs, err := registry.LoadPipelineDefinitions(a.cfg.Registries.PipelinesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator events: load pipeline definitions: %v\n", err)
		return exitConfigError
	}

	bus, err := eventbus.New(a.cfg.EventBus.DedupLRUSize, a.cfg.EventBus.DefaultCooldown.Duration)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator events: %v\n", err)
		return exitConfigError
	}
	bus.Director = a.dir
	bus.Starter = &engineStarter{engine: a.engine}
	bus.Definitions = defs
	bus.Mappings = mappings

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev model.Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			a.logger.Warn("events: skipping malformed line", "error", err)
			continue
		}
		result := bus.Emit(ctx, ev)
		a.logger.Info("event processed", "event_id", ev.ID, "event_type", ev.Type,
			"pipelines_triggered", result.PipelinesTriggered, "pipeline_ids", result.PipelineIDs, "skipped", result.SkippedReasons)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator events: read stdin: %v\n", err)
		return exitWorkspaceError
	}
	return exitSuccess
}
