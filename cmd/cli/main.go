package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/gridflow/internal/app"
	"github.com/vk/gridflow/internal/cli"
	"github.com/vk/gridflow/internal/hcl_adapter"
)

// main is the entrypoint for the gridflow application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	// An interrupt stops new tasks from starting; running ones finish.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The real main function handles errors and exit codes.
	if err := run(ctx, os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			stop()
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	// Instantiate the concrete HCL loader to pass to the app.
	loader := hcl_adapter.NewLoader()
	gridflowApp, err := app.NewApp(outW, opts.App, loader)
	if err != nil {
		return err
	}

	if opts.Clean {
		removed, err := gridflowApp.Clean(ctx)
		for _, p := range removed {
			fmt.Fprintf(outW, "removed %s\n", p)
		}
		return err
	}

	rep, err := gridflowApp.Run(ctx)
	if err != nil {
		return err
	}
	if !rep.DryRun && !rep.Success() {
		return &cli.ExitError{Code: 1, Message: "run did not succeed: " + rep.Summary(nil)}
	}
	return nil
}
