package store

import (
	"context"
	"fmt"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

// AddBookmark stores a new bookmark
func (s *Store) AddBookmark(ctx context.Context, b *types.Bookmark) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (id, book_id, chapter_index, title, excerpt, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, b.ID, b.BookID, b.ChapterIndex, b.Title, b.Excerpt, b.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to add bookmark: %w", err)
	}
	return nil
}

// ListBookmarks returns a book's bookmarks, newest first
func (s *Store) ListBookmarks(ctx context.Context, bookID string) ([]*types.Bookmark, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, book_id, chapter_index, title, excerpt, created_at
		FROM bookmarks
		WHERE book_id = ?
		ORDER BY created_at DESC, id ASC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookmarks: %w", err)
	}
	defer rows.Close()

	bookmarks := make([]*types.Bookmark, 0)
	for rows.Next() {
		b := &types.Bookmark{}
		if err := rows.Scan(&b.ID, &b.BookID, &b.ChapterIndex, &b.Title, &b.Excerpt, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark row: %w", err)
		}
		b.CreatedAt = b.CreatedAt.UTC()
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// RemoveBookmark deletes a bookmark. It returns ErrNotFound when the
// bookmark does not belong to the book.
func (s *Store) RemoveBookmark(ctx context.Context, bookID, bookmarkID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ? AND book_id = ?`, bookmarkID, bookID)
	if err != nil {
		return fmt.Errorf("failed to remove bookmark: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to remove bookmark: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
