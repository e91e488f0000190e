package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariel-frischer/outcomegen/internal/cli"
	apperrors "github.com/ariel-frischer/outcomegen/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		// Usage and flag errors are not printed by the commands themselves.
		if !cli.Reported(err) {
			apperrors.PrintError(apperrors.ToCLIError(err))
		}
		os.Exit(cli.ExitCode(err))
	}
}
