// Package migrations embeds the schema and applies it with golang-migrate.
package migrations

import (
	"context"
	"database/sql"
	"embed"

	"authcore/internal/errors"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var migrationsFS embed.FS

// NewMigrator returns a migrate instance running on one dedicated connection taken from db.
// Closing the migrator returns that connection; db itself stays open.
func NewMigrator(ctx context.Context, db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrationsFS, "sql")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create migration source")
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire migration connection")
	}

	driver, err := migratepg.WithConnection(ctx, conn, &migratepg.Config{})
	if err != nil {
		_ = conn.Close()

		return nil, errors.Wrap(err, "failed to create migration driver")
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		_ = driver.Close()

		return nil, errors.Wrap(err, "failed to create migrator")
	}

	return m, nil
}

// Up applies every pending migration and returns the resulting schema version.
// An up-to-date schema is not an error.
func Up(ctx context.Context, db *sql.DB) (uint, error) {
	m, err := NewMigrator(ctx, db)
	if err != nil {
		return 0, err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, errors.Wrap(err, "failed to run migrations")
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, errors.Wrap(err, "failed to read migration version")
	}

	return version, nil
}
