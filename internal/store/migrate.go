// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"

	"github.com/pdiddy/harvest/pkg/types"
)

//go:embed migrations
var migrationFS embed.FS

const migrationsTable = "schema_migrations"

// Migrator applies the embedded schema migrations to one database.
type Migrator struct {
	migrate *migrate.Migrate
	sqlDB   *sql.DB
	release func()
	log     zerolog.Logger
}

// OpenMigrator connects to the database cfg names without applying
// anything, for explicit schema management.
func OpenMigrator(ctx context.Context, cfg types.StoreConfig, log zerolog.Logger) (*Migrator, error) {
	switch cfg.Driver {
	case types.DriverSQLite, "":
		if cfg.DSN == "" {
			return nil, errors.New("sqlite path is required")
		}
		db, err := sql.Open("sqlite3", sqliteDSN(cfg.DSN, "_busy_timeout=5000"))
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return NewSQLiteMigrator(db, log)
	case types.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("creating postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("connecting to postgres: %w", classifyPostgres(err))
		}
		m, err := NewPostgresMigrator(pool, log)
		if err != nil {
			pool.Close()
			return nil, err
		}
		m.release = pool.Close
		return m, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// NewPostgresMigrator prepares migrations against pool. The sql.DB wrapper it
// opens is released by Close; the pool itself stays open.
func NewPostgresMigrator(pool *pgxpool.Pool, log zerolog.Logger) (*Migrator, error) {
	if pool == nil {
		return nil, errors.New("postgres pool is required")
	}
	sqlDB := stdlib.OpenDBFromPool(pool)
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: migrationsTable})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating postgres migration driver: %w", err)
	}
	return newMigrator("postgres", driver, sqlDB, log)
}

// NewSQLiteMigrator prepares migrations against db. Close closes db, and so
// does a failed construction.
func NewSQLiteMigrator(db *sql.DB, log zerolog.Logger) (*Migrator, error) {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: migrationsTable})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating sqlite migration driver: %w", err)
	}
	return newMigrator("sqlite", driver, db, log)
}

func newMigrator(dialect string, driver database.Driver, sqlDB *sql.DB, log zerolog.Logger) (*Migrator, error) {
	src, err := iofs.New(migrationFS, "migrations/"+dialect)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("opening embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return &Migrator{migrate: m, sqlDB: sqlDB, log: log.With().Str("dialect", dialect).Logger()}, nil
}

// Up applies all pending migrations.
func (m *Migrator) Up() error {
	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.log.Debug().Msg("schema up to date")
			return nil
		}
		return fmt.Errorf("running migrations: %w", err)
	}
	m.log.Info().Msg("migrations applied")
	return nil
}

// Down rolls back all migrations.
func (m *Migrator) Down() error {
	m.log.Warn().Msg("rolling back all migrations")
	if err := m.migrate.Down(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("rolling back migrations: %w", err)
	}
	return nil
}

// Steps runs n migrations; negative n rolls back.
func (m *Migrator) Steps(n int) error {
	if err := m.migrate.Steps(n); err != nil {
		if errors.Is(err, migrate.ErrNoChange) || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("running %d migration steps: %w", n, err)
	}
	return nil
}

// Version returns the applied schema version and whether it is dirty.
func (m *Migrator) Version() (uint, bool, error) {
	v, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Force sets the schema version without running migrations.
func (m *Migrator) Force(version int) error {
	m.log.Warn().Int("version", version).Msg("forcing schema version")
	return m.migrate.Force(version)
}

// Close releases the migration source and database handle.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if m.sqlDB != nil {
		if err := m.sqlDB.Close(); err != nil && dbErr == nil {
			dbErr = err
		}
	}
	if m.release != nil {
		m.release()
	}
	return errors.Join(sourceErr, dbErr)
}
