package database

import (
	"context"
	"embed"
	"fmt"
	"time"

	"mindcare-api/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	maxRetries = 5
	retryDelay = 2 * time.Second
)

type Database struct {
	DB *sqlx.DB
}

// NewDatabase connects with retries, applies pending migrations and tunes the pool.
func NewDatabase(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Database, error) {
	var db *sqlx.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
		if err == nil {
			break
		}
		log.WithError(err).Warnf("Failed to connect to database (attempt %d/%d)", i+1, maxRetries)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	applied, err := Migrate(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	log.WithField("applied", applied).Info("Successfully connected to database")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Database{DB: db}, nil
}

// MigrationSource exposes the embedded schema migrations.
func MigrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFS,
		Root:       "migrations",
	}
}

// Migrate applies every pending up migration and reports how many ran.
func Migrate(db *sqlx.DB) (int, error) {
	n, err := migrate.Exec(db.DB, "postgres", MigrationSource(), migrate.Up)
	if err != nil {
		return n, fmt.Errorf("apply migrations: %w", err)
	}
	return n, nil
}

func (d *Database) Close() error {
	return d.DB.Close()
}
