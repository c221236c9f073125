package main

import (
	"context"
	"flag"
	"fmt"
	"os"
)

// healthCmd runs every registered health check once and prints the
// resulting report, one component per line, followed by the overall level.
func healthCmd(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	configPath := fs.String("config", "orchestrator.toml", "path to config file")
	if err := fs.Parse(args); err != nil {
		return exitConfigError
	}

	a, code, err := buildApp(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator health: %v\n", err)
		return code
	}

	report := a.monitor.Run(context.Background())
	for _, r := range report.Results {
		fmt.Printf("%-20s %-10s %s\n", r.Component, r.Status, r.Details)
	}
	fmt.Printf("overall: %s\n", report.Level)
	return exitSuccess
}
