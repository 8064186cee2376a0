package book

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/unalkalkan/bookshelf/internal/storage"
	"github.com/unalkalkan/bookshelf/internal/util"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

func TestFileRepository(t *testing.T) {
	tempDir := t.TempDir()
	storageAdapter, err := storage.NewLocalAdapter(tempDir)
	if err != nil {
		t.Fatalf("Failed to create storage adapter: %v", err)
	}
	defer storageAdapter.Close()

	repo := NewFileRepository(storageAdapter)
	ctx := context.Background()
	modified := time.Date(2024, 5, 1, 8, 30, 15, 123000000, time.UTC)

	t.Run("SaveAndLoad", func(t *testing.T) {
		file := &types.BookFile{
			Name:         "三体.epub",
			Type:         "application/epub+zip",
			LastModified: modified,
			Data:         []byte("PK\x03\x04 epub bytes"),
		}
		if err := repo.SaveBookFile(ctx, "book_1", types.FormatEPUB, file); err != nil {
			t.Fatalf("Failed to save book file: %v", err)
		}

		loaded, err := repo.LoadBookFile(ctx, "book_1")
		if err != nil {
			t.Fatalf("Failed to load book file: %v", err)
		}
		if loaded == nil {
			t.Fatal("Expected a stored file, got nil")
		}
		if loaded.Name != file.Name {
			t.Errorf("Name mismatch: got %s, want %s", loaded.Name, file.Name)
		}
		if loaded.Type != file.Type {
			t.Errorf("Type mismatch: got %s, want %s", loaded.Type, file.Type)
		}
		if !loaded.LastModified.Equal(modified) {
			t.Errorf("LastModified mismatch: got %v, want %v", loaded.LastModified, modified)
		}
		if !bytes.Equal(loaded.Data, file.Data) {
			t.Errorf("Data mismatch: got %q, want %q", loaded.Data, file.Data)
		}
	})

	t.Run("LoadMissing", func(t *testing.T) {
		loaded, err := repo.LoadBookFile(ctx, "missing")
		if err != nil {
			t.Fatalf("Expected no error for a missing file, got %v", err)
		}
		if loaded != nil {
			t.Errorf("Expected nil for a missing file, got %+v", loaded)
		}
	})

	t.Run("ReplaceWithOtherFormat", func(t *testing.T) {
		first := &types.BookFile{Name: "a.txt", Type: "text/plain", Data: []byte("第一章")}
		if err := repo.SaveBookFile(ctx, "book_2", types.FormatTXT, first); err != nil {
			t.Fatalf("Failed to save txt: %v", err)
		}
		second := &types.BookFile{Name: "a.mobi", Type: "application/x-mobipocket-ebook", Data: []byte("BOOKMOBI")}
		if err := repo.SaveBookFile(ctx, "book_2", types.FormatMOBI, second); err != nil {
			t.Fatalf("Failed to save mobi: %v", err)
		}

		exists, err := storageAdapter.Exists(ctx, util.BookFilePath("book_2", types.FormatTXT))
		if err != nil {
			t.Fatalf("Failed to check existence: %v", err)
		}
		if exists {
			t.Error("Stale txt upload should have been removed")
		}

		loaded, err := repo.LoadBookFile(ctx, "book_2")
		if err != nil {
			t.Fatalf("Failed to load book file: %v", err)
		}
		if loaded == nil || loaded.Name != "a.mobi" {
			t.Errorf("Expected the mobi upload, got %+v", loaded)
		}
		if !loaded.LastModified.IsZero() {
			t.Errorf("Expected zero LastModified, got %v", loaded.LastModified)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		if err := repo.ClearBookFile(ctx, "book_1"); err != nil {
			t.Fatalf("Failed to clear book file: %v", err)
		}
		loaded, err := repo.LoadBookFile(ctx, "book_1")
		if err != nil {
			t.Fatalf("Failed to load after clear: %v", err)
		}
		if loaded != nil {
			t.Error("Expected nil after clear")
		}

		paths, err := storageAdapter.List(ctx, util.BookDir("book_1"))
		if err != nil {
			t.Fatalf("Failed to list: %v", err)
		}
		if len(paths) != 0 {
			t.Errorf("Expected no leftovers, got %v", paths)
		}

		if err := repo.ClearBookFile(ctx, "never-stored"); err != nil {
			t.Errorf("Clearing a missing file should succeed, got %v", err)
		}
	})

	t.Run("NilFile", func(t *testing.T) {
		if err := repo.SaveBookFile(ctx, "book_3", types.FormatTXT, nil); err == nil {
			t.Error("Expected error for a nil file")
		}
	})
}
