package database

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// The users and tasks schema ships inside the binary, so a fresh database is
// usable with nothing but a connection URL.
//
//go:embed migrations/*.sql
var embedMigrations embed.FS

// RunMigrations brings the schema up to the latest embedded version.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// goose drives a database/sql handle; borrow one off the pgx pool.
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("get migration version: %w", err)
	}

	slog.Info("database schema ready", "version", version)

	return nil
}
