package main

import (
	"context"
	"log/slog"
)

func runServe(ctx context.Context, cfg *Config, logger *slog.Logger, configPath string) int {
	logger.Info("starting bgplan",
		"version", Version,
		"config", configPath,
		"snapshot_backend", cfg.Snapshot.Backend,
	)

	// Create server
	server, err := NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		return exitCode(err)
	}

	// Start server
	if err := server.Start(ctx); err != nil {
		logger.Error("server error", "error", err)
		return exitCode(err)
	}

	return ExitSuccess
}
