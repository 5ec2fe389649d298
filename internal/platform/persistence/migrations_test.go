package persistence

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunMigrations_InputValidation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("EmptyMigrationsPath", func(t *testing.T) {
		err := RunMigrations(logger, "postgres://test", "")
		assert.Error(t, err)
		assert.EqualError(t, err, "migrations path is required")
	})

	t.Run("EmptyDatabaseURL", func(t *testing.T) {
		err := RunMigrations(logger, "", "./migrations")
		assert.Error(t, err)
		assert.EqualError(t, err, "database URL is required")
	})

	// Only testing input validation since full migration tests require a test DB
}
