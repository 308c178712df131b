package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jrg94/fitbit-backup/cmd/fitbit-backup/commands"
	"github.com/jrg94/fitbit-backup/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := commands.Execute(ctx, os.Args)

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if flushErr := observability.Flush(flushCtx); flushErr != nil {
		fmt.Fprintln(os.Stderr, "fitbit-backup: flushing logs:", flushErr)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "fitbit-backup:", err)
		os.Exit(1)
	}
}
