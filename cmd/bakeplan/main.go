package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vsinha/bakeplan/pkg/interfaces/cli/commands"
)

func main() {
	// Command line flags
	var (
		command = flag.String(
			"cmd",
			"",
			"Command: reconcile, reconcile-range, plan, consumption, dates, validate",
		)
		date        = flag.String("date", "", "Production date (YYYY-MM-DD)")
		from        = flag.String("from", "", "First date of a range (YYYY-MM-DD)")
		to          = flag.String("to", "", "Last date of a range (YYYY-MM-DD)")
		owner       = flag.String("owner", "", "Owner assigned to every reconciled batch")
		scenarioDir = flag.String("scenario", "", "Path to scenario directory containing CSV files")
		envFile     = flag.String("env", ".env", "Environment file to load")
		migrate     = flag.Bool("migrate", false, "Apply database migrations before running")
		outputDir   = flag.String("output", "", "Output directory for results (optional)")
		format      = flag.String("format", "text", "Output format: text, json, csv")
		verbose     = flag.Bool("verbose", false, "Enable verbose output")
		help        = flag.Bool("help", false, "Show help message")
	)

	flag.Parse()

	// Create command configuration
	config := commands.Config{
		Command:     *command,
		Date:        *date,
		From:        *from,
		To:          *to,
		Owner:       *owner,
		ScenarioDir: *scenarioDir,
		EnvFile:     *envFile,
		OutputDir:   *outputDir,
		Format:      *format,
		Migrate:     *migrate,
		Verbose:     *verbose,
		Help:        *help,
	}

	// Batches already being written finish after an interrupt
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Create and execute command
	cmd := commands.NewPlanCommand(config)

	if err := cmd.Execute(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
