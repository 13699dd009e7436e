package main

import (
	"log/slog"
	"os"

	"go-users-api/internal/app"
	"go-users-api/internal/logger"
)

func main() {
	// Replaced by the configured logger once the config has been read.
	slog.SetDefault(logger.New(os.Stdout, os.Getenv("LOG_FORMAT"), os.Getenv("LOG_LEVEL")))

	application, err := app.New()
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		slog.Error("application run failed", "error", err)
		os.Exit(1)
	}
}
