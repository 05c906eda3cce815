// Copyright 2025, the lingosync contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
lingosync keeps translation catalogs in sync with the strings of a source tree.
*/
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"codeberg.org/lingosync/lingosync/cli"
	"codeberg.org/lingosync/lingosync/core/audit"
)

// main is the entry point of the application.
func main() {
	os.Exit(run())
}

// run executes the command line and returns the process exit code.
func run() int {
	audit.SetDefaultLogger()

	// Interrupting a run cancels the pipeline before it writes anything more.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cli.Execute(ctx, os.Args[1:])

	switch {
	case err == nil:
		return 0
	case errors.Is(err, cli.ErrFindings):
		log.Error().Msg("Validation failed")
	case errors.Is(err, context.Canceled):
		log.Warn().Msg("Interrupted")
	default:
		log.Error().Err(err).Msg("lingosync failed")
	}

	return 1
}
