// Command server runs the yorimichi backend: the HTTP API for position
// reports, reminders and the store catalog.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/miyakawa-dev/yorimichi-backend/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("application error: %v", err)
	}
}
