package main

import (
	"context"
	"log"

	"github.com/jinxingedu/kindersync/internal/cli"
	"github.com/jinxingedu/kindersync/internal/config"
	"github.com/jinxingedu/kindersync/internal/logging"
)

func main() {
	ctx := context.Background()

	cfg := config.LoadConfig()
	logger := logging.NewDefault()

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to start: %s", err)
	}
	defer func() { _ = app.Close() }()

	app.Run(ctx)
}
