// Command sharkcast trains per-shark movement and environment models from a
// tracking CSV and forecasts each shark's position, sea surface temperature
// and chlorophyll six hours ahead.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
