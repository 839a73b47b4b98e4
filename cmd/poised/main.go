// The poised command runs the interactive console for managing projects.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/poised-pms/poised/internal/bootstrap"
	"github.com/poised-pms/poised/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer app.Close(context.Background())

	console := cli.New(app.Service, os.Stdin, os.Stdout, app.Logger)
	if err := console.Run(ctx); err != nil {
		app.Logger.WithError(err).Error("console session ended with error")
	}
}
