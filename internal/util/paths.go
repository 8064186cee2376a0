package util

import (
	"path"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

// BookFilePath returns the storage key for a book's raw upload
func BookFilePath(bookID string, format types.BookFormat) string {
	return path.Join("books", bookID, "raw."+string(format))
}

// BookFileInfoPath returns the storage key for the raw upload's sidecar
func BookFileInfoPath(bookID string) string {
	return path.Join("books", bookID, "file.json")
}

// BookDir returns the storage prefix holding everything stored for a book
func BookDir(bookID string) string {
	return path.Join("books", bookID) + "/"
}

// BookFormats returns the formats to try when locating a raw upload
func BookFormats() []types.BookFormat {
	return []types.BookFormat{types.FormatEPUB, types.FormatMOBI, types.FormatTXT}
}
