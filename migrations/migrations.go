package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed *.sql
var fs embed.FS

// Up applies all pending migrations to sqlite database at storagePath.
//
// Returns false if there was nothing to apply.
func Up(storagePath string, migrationsTable string) (bool, error) {
	const op = "migrations.Up"

	m, err := newMigrate(storagePath, migrationsTable)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

// Down rolls back every applied migration.
func Down(storagePath string, migrationsTable string) error {
	const op = "migrations.Down"

	m, err := newMigrate(storagePath, migrationsTable)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer m.Close()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func newMigrate(storagePath string, migrationsTable string) (*migrate.Migrate, error) {
	src, err := iofs.New(fs, ".")
	if err != nil {
		return nil, err
	}

	if migrationsTable == "" {
		migrationsTable = "schema_migrations"
	}

	return migrate.NewWithSourceInstance(
		"iofs",
		src,
		fmt.Sprintf("sqlite3://%s?x-migrations-table=%s", storagePath, migrationsTable),
	)
}
