package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/antigravity-dev/marketing-orchestrator/internal/eventbus"
	"github.com/antigravity-dev/marketing-orchestrator/internal/model"
)

// scheduleEntriesFile is the root document shape of schedules.yaml. Kept
// local to the CLI rather than in internal/registry since it feeds the
// scheduler daemon subcommand alone.
type scheduleEntriesFile struct {
	Schedules []model.ScheduleEntry `yaml:"schedules"`
}

func loadScheduleEntries(path string) ([]model.ScheduleEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedules file: %w", err)
	}
	var doc scheduleEntriesFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse schedules file: %w", err)
	}
	return doc.Schedules, nil
}

// eventMappingsFile is the root document shape of event_mappings.yaml.
type eventMappingsFile struct {
	Mappings []eventbus.Mapping `yaml:"mappings"`
}

func loadEventMappings(path string) ([]eventbus.Mapping, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event mappings file: %w", err)
	}
	var doc eventMappingsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse event mappings file: %w", err)
	}
	return doc.Mappings, nil
}
