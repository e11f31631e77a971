// Package main is the entry point for the interactive minimail client.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	minimail "github.com/minimail/minimail"
	"github.com/minimail/minimail/account"
	"github.com/minimail/minimail/internal/config"
	"github.com/minimail/minimail/store"
	"github.com/minimail/minimail/store/jsonfile"
	"github.com/minimail/minimail/store/memory"
	"github.com/minimail/minimail/store/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file (optional)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logging.Level)

	msgStore, err := buildStore(cfg, logger)
	if err != nil {
		slog.Error("failed to create message store", "error", err)
		os.Exit(1)
	}

	accounts, err := account.New(
		account.WithSnapshotPath(cfg.Store.AccountsPath),
		account.WithBcryptCost(cfg.Auth.BcryptCost),
		account.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create account store", "error", err)
		os.Exit(1)
	}

	svc, err := minimail.NewService(
		minimail.WithStore(msgStore),
		minimail.WithAccounts(accounts),
		minimail.WithLogger(logger),
		minimail.WithMaxSubjectLength(cfg.Limits.MaxSubjectLength),
		minimail.WithMaxBodySize(cfg.Limits.MaxBodySize),
		minimail.WithMaxRecipients(cfg.Limits.MaxRecipients),
		minimail.WithMaxQueryLimit(cfg.Limits.MaxQueryLimit),
	)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := svc.Connect(ctx); err != nil {
		slog.Error("failed to open mail store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := svc.Close(ctx); err != nil {
			slog.Error("failed to close service", "error", err)
		}
	}()

	ui := newUI(svc, os.Stdin, os.Stdout, cfg.Auth.MaxLoginAttempts)
	if err := ui.Run(ctx); err != nil {
		slog.Error("client error", "error", err)
		os.Exit(1)
	}
}

// loadConfig loads configuration from the specified path (YAML + env override)
// or from environment variables only if no path is given.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// setupLogger configures the global slog logger with the specified level.
// Log output goes to stderr so it does not interleave with the menus.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level

	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// buildStore selects the message storage backend based on configuration.
func buildStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendPostgres:
		db, err := sqlx.Open("postgres", cfg.Store.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return postgres.New(db, postgres.WithLogger(logger)), nil
	default:
		return jsonfile.New(cfg.Store.MessagesPath, jsonfile.WithLogger(logger))
	}
}
