package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/spotify-inbox/internal/shared"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{})
	if err := runner.app().Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrCancelled), errors.Is(err, context.Canceled):
			runner.logger.Warn("cancelled")
			os.Exit(130)
		default:
			runner.logger.Fatalf("application error: %v", err)
		}
	}
}
