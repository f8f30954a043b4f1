// Command etl runs one incremental daily-report extraction: it reads the
// unprocessed trading days from the source bucket, aggregates them into
// the per-instrument daily report and writes the report and the updated
// meta file to the target bucket.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/oliviawu/xetra-ruoshi/internal/app"
	"github.com/oliviawu/xetra-ruoshi/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to yaml config file (defaults to config.yaml or configs/config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	application.Close()

	if runErr != nil {
		// Already logged with run context by the application
		os.Exit(1)
	}
}
