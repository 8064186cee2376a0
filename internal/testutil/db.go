package testutil

import (
	"database/sql"
	"testing"

	"github.com/unalkalkan/bookshelf/internal/db"
)

// SetupTestDB creates an in-memory SQLite database and applies all migrations.
// The connection is closed when the test completes.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.InitDB(":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})

	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("Failed to apply migrations: %v", err)
	}

	return database
}
