// Data access layer for the library database. Queries stay here, away from
// the library service.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("record not found")

// Store provides all functions to interact with the database.
type Store struct {
	db *sql.DB
}

// New creates a new Store instance.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// execer is satisfied by both *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const upsertBookQuery = `
	INSERT INTO books (id, title, author, cover, format, total_chapters, metadata, toc, file_name, status, position, created_at, last_read_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		author = excluded.author,
		cover = excluded.cover,
		format = excluded.format,
		total_chapters = excluded.total_chapters,
		metadata = excluded.metadata,
		toc = excluded.toc,
		file_name = excluded.file_name,
		status = excluded.status,
		position = excluded.position,
		created_at = excluded.created_at,
		last_read_at = excluded.last_read_at
`

const selectBookColumns = `id, title, author, cover, format, total_chapters, metadata, toc, file_name, status, created_at, last_read_at`

func upsertBook(ctx context.Context, ex execer, book *types.Book, position int) error {
	metadata, err := json.Marshal(book.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	toc := book.TOC
	if toc == nil {
		toc = []types.TOCEntry{}
	}
	tocJSON, err := json.Marshal(toc)
	if err != nil {
		return fmt.Errorf("failed to marshal toc: %w", err)
	}

	var lastReadAt sql.NullTime
	if book.LastReadAt != nil {
		lastReadAt = sql.NullTime{Time: book.LastReadAt.UTC(), Valid: true}
	}

	_, err = ex.ExecContext(ctx, upsertBookQuery,
		book.ID, book.Title, book.Author, book.Cover, string(book.Format), book.TotalChapters,
		string(metadata), string(tocJSON), book.FileName, string(book.Status), position,
		book.CreatedAt.UTC(), lastReadAt)
	if err != nil {
		return fmt.Errorf("failed to save book %s: %w", book.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner) (*types.Book, error) {
	var (
		book       types.Book
		format     string
		status     string
		metadata   string
		toc        string
		lastReadAt sql.NullTime
	)
	err := row.Scan(&book.ID, &book.Title, &book.Author, &book.Cover, &format, &book.TotalChapters,
		&metadata, &toc, &book.FileName, &status, &book.CreatedAt, &lastReadAt)
	if err != nil {
		return nil, err
	}

	book.Format = types.BookFormat(format)
	book.Status = types.BookStatus(status)
	if err := json.Unmarshal([]byte(metadata), &book.Metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata for %s: %w", book.ID, err)
	}
	if err := json.Unmarshal([]byte(toc), &book.TOC); err != nil {
		return nil, fmt.Errorf("failed to unmarshal toc for %s: %w", book.ID, err)
	}
	if lastReadAt.Valid {
		t := lastReadAt.Time.UTC()
		book.LastReadAt = &t
	}
	book.CreatedAt = book.CreatedAt.UTC()
	return &book, nil
}

// SaveLibrary replaces the stored library with books, keeping their order.
// Progress and bookmarks of books that are no longer present go with them.
func (s *Store) SaveLibrary(ctx context.Context, books []*types.Book) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep_ids (id TEXT PRIMARY KEY)`); err != nil {
		return fmt.Errorf("failed to prepare snapshot: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keep_ids`); err != nil {
		return fmt.Errorf("failed to prepare snapshot: %w", err)
	}

	for i, book := range books {
		if err := upsertBook(ctx, tx, book, i); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO keep_ids (id) VALUES (?)`, book.ID); err != nil {
			return fmt.Errorf("failed to record snapshot id: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id NOT IN (SELECT id FROM keep_ids)`); err != nil {
		return fmt.Errorf("failed to remove stale books: %w", err)
	}

	return tx.Commit()
}

// LoadLibrary returns every stored book in library order
func (s *Store) LoadLibrary(ctx context.Context) ([]*types.Book, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectBookColumns+` FROM books ORDER BY position ASC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := make([]*types.Book, 0)
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book row: %w", err)
		}
		books = append(books, book)
	}
	return books, rows.Err()
}

// SaveBook inserts or updates a single book. New books go to the front of
// the library.
func (s *Store) SaveBook(ctx context.Context, book *types.Book) error {
	var position int
	err := s.db.QueryRowContext(ctx, `SELECT position FROM books WHERE id = ?`, book.ID).Scan(&position)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.QueryRowContext(ctx, `SELECT COALESCE(MIN(position), 0) - 1 FROM books`).Scan(&position)
	}
	if err != nil {
		return fmt.Errorf("failed to resolve book position: %w", err)
	}
	return upsertBook(ctx, s.db, book, position)
}

// GetBook retrieves a book by id
func (s *Store) GetBook(ctx context.Context, id string) (*types.Book, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectBookColumns+` FROM books WHERE id = ?`, id)
	book, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book %s: %w", id, err)
	}
	return book, nil
}

// DeleteBook removes a book together with its progress and bookmarks
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete book %s: %w", id, err)
	}
	return nil
}

// SaveProgress records the reading position for a book
func (s *Store) SaveProgress(ctx context.Context, p *types.ReadingProgress) error {
	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reading_progress (book_id, chapter_index, page, percentage, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(book_id) DO UPDATE SET
			chapter_index = excluded.chapter_index,
			page = excluded.page,
			percentage = excluded.percentage,
			updated_at = excluded.updated_at
	`, p.BookID, p.ChapterIndex, p.Page, p.Percentage, updatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save progress for %s: %w", p.BookID, err)
	}
	return nil
}

// LoadProgress returns the saved position, or nil when the book has none
func (s *Store) LoadProgress(ctx context.Context, bookID string) (*types.ReadingProgress, error) {
	p := &types.ReadingProgress{BookID: bookID}
	err := s.db.QueryRowContext(ctx,
		`SELECT chapter_index, page, percentage, updated_at FROM reading_progress WHERE book_id = ?`, bookID,
	).Scan(&p.ChapterIndex, &p.Page, &p.Percentage, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress for %s: %w", bookID, err)
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

// ClearProgress forgets the reading position for a book
func (s *Store) ClearProgress(ctx context.Context, bookID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM reading_progress WHERE book_id = ?`, bookID); err != nil {
		return fmt.Errorf("failed to clear progress for %s: %w", bookID, err)
	}
	return nil
}
