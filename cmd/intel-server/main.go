package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/raksha0612/praxiotech-intelligence-engine/internal/app"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to INTEL_CONFIG_FILE or ./configs)")
	flag.Parse()

	application, err := app.NewApplication(context.Background(), *configPath)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
