package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"checkpoint/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	observability.Sync()
	if err != nil {
		os.Exit(1)
	}
}
