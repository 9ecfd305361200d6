// Package migrate creates and seeds the demo schema the questions run against.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver.
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the embedded migration files.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Config selects the database and the version to migrate to.
type Config struct {
	URI string
	// Timeout bounds the wait for the database to accept connections.
	Timeout time.Duration
	// TargetVersion 0 applies every migration.
	TargetVersion int64
}

// Run waits for the database and migrates it up or down to the target version.
func Run(ctx context.Context, cfg Config) error {
	db, err := open(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, Migrations())
	if err != nil {
		return fmt.Errorf("failed to create goose provider: %w", err)
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to get db version: %w", err)
	}
	log.Info().Int64("version", current).Msg("current schema version")

	switch {
	case cfg.TargetVersion == 0:
		_, err = provider.Up(ctx)
	case cfg.TargetVersion < current:
		_, err = provider.DownTo(ctx, cfg.TargetVersion)
	case cfg.TargetVersion > current:
		_, err = provider.UpTo(ctx, cfg.TargetVersion)
	default:
		log.Info().Msg("schema up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info().Int64("target", cfg.TargetVersion).Msg("migration done")
	return nil
}

// Version reports the schema version of the database.
func Version(ctx context.Context, cfg Config) (int64, error) {
	db, err := open(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, Migrations())
	if err != nil {
		return 0, fmt.Errorf("failed to create goose provider: %w", err)
	}
	return provider.GetDBVersion(ctx)
}

func open(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := goose.OpenDBWithDriver("pgx", cfg.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.Timeout
	err = backoff.Retry(func() error {
		return db.PingContext(ctx)
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize postgres connection: %w", err)
	}
	return db, nil
}
