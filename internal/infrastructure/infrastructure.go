// Package infrastructure provides core service initialization for application
// startup. It assembles the common dependencies (logging, database, blob
// storage) that domain systems require.
package infrastructure

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/annostudio/annostudio/internal/config"
	"github.com/annostudio/annostudio/internal/storage"
	"github.com/annostudio/annostudio/pkg/logging"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Infrastructure holds the core systems required by all domain modules.
type Infrastructure struct {
	Logger  *slog.Logger
	DB      *sql.DB
	Storage storage.System
}

// New creates an Infrastructure from the application configuration:
// a configured logger, an open and verified database connection with
// schema migrations applied, and blob storage.
func New(cfg *config.Config) (*Infrastructure, error) {
	logger := logging.New(&cfg.Logging)

	db, err := openDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	if err := migrateDB(db, &cfg.Database); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return &Infrastructure{
		Logger:  logger,
		DB:      db,
		Storage: store,
	}, nil
}

// Close releases infrastructure resources.
func (i *Infrastructure) Close() error {
	return i.DB.Close()
}

func openDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnTimeoutDuration())
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

func migrateDB(db *sql.DB, cfg *config.DatabaseConfig) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+cfg.MigrationsPath, cfg.Name, driver)
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
