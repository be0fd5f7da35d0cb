package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partymap/partymap/internal/pkg/config"
	"github.com/partymap/partymap/internal/pkg/logging"
)

var upFiles = []string{
	"migrations/001_init_extensions.sql",
	"migrations/002_core_tables.sql",
}

const downFile = "migrations/down.sql"

func main() {
	logging.Setup("partymap-migrate", os.Getenv("LOG_LEVEL"), "text")

	if len(os.Args) < 2 {
		slog.Error("usage: migrate <up|down>")
		os.Exit(2)
	}

	cfg, err := config.Load("partymap-migrate")
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		slog.Error("db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	switch os.Args[1] {
	case "up":
		err = apply(ctx, pool, upFiles)
	case "down":
		err = apply(ctx, pool, []string{downFile})
	default:
		slog.Error("unknown command", "command", os.Args[1])
		os.Exit(2)
	}
	if err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("all migrations applied", "direction", os.Args[1])
}

// apply runs every file in one transaction.
func apply(ctx context.Context, pool *pgxpool.Pool, files []string) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, f := range files {
			data, err := os.ReadFile(f)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, string(data)); err != nil {
				return err
			}
			slog.Info("applied", "file", f)
		}
		return nil
	})
}
