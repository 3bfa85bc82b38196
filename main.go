// ./main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/som-agent/cmd"
)

// main is the entry point for the som-agent application.
func main() {
	// A signal-aware context lets an interrupt unwind the browser session
	// instead of leaving Chrome processes behind.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.Execute(ctx)
}
