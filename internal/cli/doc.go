// Package cli parses the gridflow command line into app.Config, validates
// flag combinations, and defines the exit codes the entrypoint returns.
package cli
