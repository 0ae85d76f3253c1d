// Package migrations holds the Postgres schema of the versions store and
// applies it with golang-migrate. Applied versions are tracked in the
// schema_migrations table, so each file runs once.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed schemas/*.sql
var schemas embed.FS

// Source exposes the embedded schema files as a migrate source.
func Source() (source.Driver, error) {
	return iofs.New(schemas, "schemas")
}

type migrator interface {
	Up() error
	Down() error
}

// newMigrator binds the embedded schemas to a dedicated connection. The
// postgres driver closes only that connection, never the shared pool.
func newMigrator(ctx context.Context, db *sql.DB) (*migrate.Migrate, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("[MIGRATIONS] acquiring connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("[MIGRATIONS] postgres driver: %w", err)
	}

	src, err := Source()
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("[MIGRATIONS] reading schemas: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("[MIGRATIONS] init: %w", err)
	}

	return m, nil
}

// apply runs one direction. An already current schema is not an error.
func apply(m migrator, direction string) error {
	var err error
	if direction == "down" {
		err = m.Down()
	} else {
		err = m.Up()
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("[MIGRATIONS] %s: %w", direction, err)
	}

	return nil
}

func run(ctx context.Context, db *sql.DB, direction string) error {
	m, err := newMigrator(ctx, db)
	if err != nil {
		return err
	}

	defer m.Close()

	return apply(m, direction)
}

func Up(ctx context.Context, db *sql.DB) error {
	return run(ctx, db, "up")
}

func Down(ctx context.Context, db *sql.DB) error {
	return run(ctx, db, "down")
}
