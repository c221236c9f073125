// Command orchestrator is the CLI entrypoint (run/schedule/events/health
// subcommands), grounded on the teacher's cmd/cortex/main.go: stdlib flag
// parsing, slog setup from config, a single-instance flock, and signal-
// driven graceful shutdown, generalized from cortex's fixed tick-loop
// daemon to four independently invokable subcommands over the same
// wired components.
package main

import (
	"fmt"
	"os"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: orchestrator <command> [flags]

commands:
  run       create and drive one goal to completion (or its first pause)
  schedule  run the cron scheduler daemon
  events    run the event bus daemon, reading events from stdin
  health    run every health check once and print the resulting report`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitConfigError)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var code int
	switch cmd {
	case "run":
		code = runCmd(args)
	case "schedule":
		code = scheduleCmd(args)
	case "events":
		code = eventsCmd(args)
	case "health":
		code = healthCmd(args)
	case "-h", "-help", "--help", "help":
		usage()
		code = exitSuccess
	default:
		fmt.Fprintf(os.Stderr, "orchestrator: unknown command %q\n", cmd)
		usage()
		code = exitConfigError
	}
	os.Exit(code)
}
