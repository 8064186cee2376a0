package db_test

import (
	"testing"
	"time"

	"github.com/unalkalkan/bookshelf/internal/db"
	"github.com/unalkalkan/bookshelf/internal/testutil"
)

func TestRunMigrationsIsIdempotent(t *testing.T) {
	database := testutil.SetupTestDB(t)

	if err := db.RunMigrations(database); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
}

func TestForeignKeyCascadeDelete(t *testing.T) {
	database := testutil.SetupTestDB(t)

	var foreignKeysEnabled int
	if err := database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeysEnabled); err != nil {
		t.Fatalf("Failed to check foreign keys status: %v", err)
	}
	if foreignKeysEnabled != 1 {
		t.Errorf("Foreign keys should be enabled, got: %d", foreignKeysEnabled)
	}

	now := time.Now()
	if _, err := database.Exec("INSERT INTO books (id, title, format, created_at) VALUES (?, ?, ?, ?)", "b1", "书", "txt", now); err != nil {
		t.Fatalf("Failed to create test book: %v", err)
	}
	if _, err := database.Exec("INSERT INTO reading_progress (book_id, chapter_index, updated_at) VALUES (?, ?, ?)", "b1", 3, now); err != nil {
		t.Fatalf("Failed to create test progress: %v", err)
	}
	if _, err := database.Exec("INSERT INTO bookmarks (id, book_id, chapter_index, title, created_at) VALUES (?, ?, ?, ?, ?)", "m1", "b1", 3, "第 4 章", now); err != nil {
		t.Fatalf("Failed to create test bookmark: %v", err)
	}

	if _, err := database.Exec("DELETE FROM books WHERE id = ?", "b1"); err != nil {
		t.Fatalf("Failed to delete book: %v", err)
	}

	for _, table := range []string{"reading_progress", "bookmarks"} {
		var count int
		if err := database.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			t.Fatalf("Failed to count %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("Expected %s rows to be deleted by cascade, got %d", table, count)
		}
	}
}
