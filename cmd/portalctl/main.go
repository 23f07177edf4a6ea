package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"garment-portal-backend/internal/cli/portalctl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := portalctl.New(portalctl.OpenPlatform).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "portalctl: %v\n", err)
		stop()
		os.Exit(1)
	}
}
