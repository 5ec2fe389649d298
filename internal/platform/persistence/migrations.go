package persistence

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file:// source
)

// RunMigrations brings the schema at databaseURL up to the newest migration
// under migrationsPath. An already-current schema is a no-op, logged as such.
func RunMigrations(logger *slog.Logger, databaseURL, migrationsPath string) error {
	if migrationsPath == "" {
		return errors.New("migrations path is required")
	}
	if databaseURL == "" {
		return errors.New("database URL is required")
	}

	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("open migrations at %s: %w", migrationsPath, err)
	}

	upErr := m.Up()
	if upErr == nil {
		if version, dirty, vErr := m.Version(); vErr == nil {
			logger.Info("Applied schema migrations", "version", version, "dirty", dirty)
		}
	}

	srcErr, dbErr := m.Close()

	switch {
	case upErr != nil && !errors.Is(upErr, migrate.ErrNoChange):
		return fmt.Errorf("apply migrations: %w", upErr)
	case errors.Is(upErr, migrate.ErrNoChange):
		logger.Info("Schema already current")
	}

	if srcErr != nil {
		return fmt.Errorf("close migration source: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration database: %w", dbErr)
	}
	return nil
}
