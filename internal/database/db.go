package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver goose opens
	"github.com/pressly/goose/v3"
)

// Connect creates a PostgreSQL connection pool.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// openMigrations points goose at fsys and opens a database/sql handle for it.
// fsys holds goose-annotated .sql files at its root.
func openMigrations(databaseURL string, fsys fs.FS) (*sql.DB, error) {
	goose.SetBaseFS(fsys)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("setting migration dialect: %w", err)
	}

	db, err := goose.OpenDBWithDriver("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database for migrations: %w", err)
	}
	return db, nil
}

// RunMigrations applies every pending migration from fsys.
// Applied versions are tracked by goose in goose_db_version.
func RunMigrations(ctx context.Context, databaseURL string, fsys fs.FS) error {
	db, err := openMigrations(databaseURL, fsys)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// RollbackMigrations rolls back the last steps migrations.
func RollbackMigrations(ctx context.Context, databaseURL string, fsys fs.FS, steps int) error {
	db, err := openMigrations(databaseURL, fsys)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	for range steps {
		if err := goose.DownContext(ctx, db, "."); err != nil {
			return fmt.Errorf("rolling back migration: %w", err)
		}
	}
	return nil
}

// MigrationVersion returns the current schema version.
func MigrationVersion(ctx context.Context, databaseURL string, fsys fs.FS) (int64, error) {
	db, err := openMigrations(databaseURL, fsys)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return 0, fmt.Errorf("getting migration version: %w", err)
	}
	return version, nil
}
