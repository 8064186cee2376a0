package parser

import (
	"context"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

// Parser is a live, decoded view of one book.
//
// Parse must be called once before any other method. Chapters are rendered
// lazily on every Chapter call. Close releases decoded state and may be
// called any number of times.
type Parser interface {
	// Parse decodes the source and returns a new library record for it
	Parse(ctx context.Context, src Source) (*types.Book, error)

	// Chapter renders the chapter at index
	Chapter(ctx context.Context, index int) (*types.ChapterContent, error)

	// Metadata returns the metadata captured at parse time
	Metadata() types.BookMetadata

	// TOC returns the table of contents captured at parse time
	TOC() []types.TOCEntry

	// PageCount returns the number of addressable chapters
	PageCount() int

	// Close releases decoded state
	Close() error
}

// Factory creates a fresh parser for a format
type Factory interface {
	// NewParser returns an unparsed parser for the given format
	NewParser(format types.BookFormat) (Parser, error)
}
