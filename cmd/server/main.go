// Package main is the entry point for the notes server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
//  1. Read configuration (flags, a YAML file, env vars)
//  2. Create dependencies (logger, data directory)
//  3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
//
// WHY cmd/server/?
// The cmd/ directory is a Go convention for executable entry points. This
// project has two: cmd/server (the web app) and cmd/notesctl (admin CLI).
package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/notes/internal/config"
	"github.com/sakif/notes/internal/server"
)

func main() {
	configPath := flag.String("config", os.Getenv("NOTES_CONFIG"), "path to a YAML config file (optional)")
	flag.Parse()

	// === 1. READ CONFIGURATION ===
	// Defaults, then the optional YAML file, then env vars. See internal/config.
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// slog.NewTextHandler outputs human-readable key=value logs; the level
	// comes from log_level / LOG_LEVEL.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. SESSION SECRET ===
	// JWT_SECRET should be a long random string:
	//   JWT_SECRET=$(openssl rand -hex 32)
	// Without one, a random secret is generated and every restart logs
	// everybody out.
	generated, err := cfg.EnsureSecret()
	if err != nil {
		logger.Error("failed to generate session secret", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if generated {
		logger.Warn("JWT_SECRET not set, using a random secret; sessions will not survive a restart")
	}
	if !cfg.GitHubEnabled() {
		logger.Info("GITHUB_CLIENT_ID/GITHUB_CLIENT_SECRET not set, GitHub login disabled")
	}

	// === 4. DATABASE DIRECTORY ===
	// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 5. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
