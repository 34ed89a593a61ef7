package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/vk/gridflow/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Options is the parsed command line.
type Options struct {
	App *app.Config
	// Clean selects the clean command instead of a run.
	Clean bool
}

// Parse processes command-line arguments. It returns the parsed options, a
// boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*Options, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("gridflow", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
gridflow - builds parameterized file workflows, running only what is out of date.

Usage:
  gridflow [options] GRID_PATH [TARGET...]
  gridflow [options] -grid GRID_PATH [TARGET...]

Arguments:
  GRID_PATH
    Path to a single .hcl file or a directory containing .hcl files.
  TARGET
    A path under the output root, a path template such as
    "results/agg_{seed}.txt", or a rule name. Defaults to the pipeline's
    target blocks.

Options:
`)
		flagSet.PrintDefaults()
	}

	gridFlag := flagSet.String("grid", "", "Path to the pipeline file or directory.")
	gFlag := flagSet.String("g", "", "Path to the pipeline file or directory (shorthand).")
	rootFlag := flagSet.String("root", "", "Output root. Overrides the pipeline's settings.")
	budgetFlag := flagSet.Int("budget", 0, "Total thread weight allowed to run at once. 0 uses the pipeline's setting or the CPU count.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Show what would run without executing anything.")
	cleanFlag := flagSet.Bool("clean", false, "Remove every file a rule could produce, then exit.")
	reportFlag := flagSet.String("report", "", "Write the run report as JSON to this file.")
	noColorFlag := flagSet.Bool("no-color", false, "Disable colored report output.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	positional := flagSet.Args()
	path := *gridFlag
	if path == "" {
		path = *gFlag
	}
	if path == "" && len(positional) > 0 {
		path, positional = positional[0], positional[1:]
	}
	slog.Debug("Grid path determined.", "path", path, "targets", positional)

	if path == "" {
		slog.Debug("No grid path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	if *cleanFlag && (*dryRunFlag || len(positional) > 0) {
		return nil, false, &ExitError{Code: 2, Message: "-clean takes no targets and cannot be combined with -dry-run"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(app.Config{
		GridPath:        path,
		Root:            *rootFlag,
		Budget:          *budgetFlag,
		Targets:         positional,
		DryRun:          *dryRunFlag,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		HealthcheckPort: *healthPortFlag,
		ReportPath:      *reportFlag,
		Color:           !*noColorFlag && !color.NoColor,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return &Options{App: config, Clean: *cleanFlag}, false, nil
}
