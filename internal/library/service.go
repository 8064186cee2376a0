// Package library ties sessions, raw file storage and the library database
// together into the operations a reader front end needs.
package library

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/unalkalkan/bookshelf/internal/book"
	"github.com/unalkalkan/bookshelf/internal/parser"
	"github.com/unalkalkan/bookshelf/internal/session"
	"github.com/unalkalkan/bookshelf/internal/store"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

// Store persists library records, progress and bookmarks
type Store interface {
	LoadLibrary(ctx context.Context) ([]*types.Book, error)
	SaveLibrary(ctx context.Context, books []*types.Book) error
	SaveBook(ctx context.Context, book *types.Book) error
	GetBook(ctx context.Context, id string) (*types.Book, error)
	DeleteBook(ctx context.Context, id string) error

	SaveProgress(ctx context.Context, p *types.ReadingProgress) error
	LoadProgress(ctx context.Context, bookID string) (*types.ReadingProgress, error)
	ClearProgress(ctx context.Context, bookID string) error

	AddBookmark(ctx context.Context, b *types.Bookmark) error
	ListBookmarks(ctx context.Context, bookID string) ([]*types.Bookmark, error)
	RemoveBookmark(ctx context.Context, bookID, bookmarkID string) error
}

// Sessions is the subset of the session manager the library drives
type Sessions interface {
	Import(ctx context.Context, src parser.Source) (*types.Book, error)
	EnsureReady(ctx context.Context, book *types.Book) (*types.Book, error)
	Chapter(ctx context.Context, bookID string, index int) (*types.ChapterContent, error)
	Release(bookID string)
}

// Notifier receives library events, typically a websocket hub
type Notifier interface {
	BroadcastJSON(v any)
}

// Event is broadcast whenever the library changes
type Event struct {
	Type   string      `json:"type"`
	BookID string      `json:"bookId"`
	Book   *types.Book `json:"book,omitempty"`
}

const (
	EventImported      = "book.imported"
	EventUpdated       = "book.updated"
	EventRemoved       = "book.removed"
	EventImportFailed  = "book.importFailed"
	EventSessionClosed = "book.closed"
	EventReordered     = "library.reordered"
)

// Opened is a book ready for reading with its clamped reading position
type Opened struct {
	Book     *types.Book            `json:"book"`
	Progress *types.ReadingProgress `json:"progress"`
}

// Service implements the library operations
type Service struct {
	store    Store
	files    book.FileStore
	sessions Sessions
	notifier Notifier
	now      func() time.Time
}

// NewService creates a library service. notifier may be nil.
func NewService(st Store, files book.FileStore, sessions Sessions, notifier Notifier) *Service {
	return &Service{
		store:    st,
		files:    files,
		sessions: sessions,
		notifier: notifier,
		now:      time.Now,
	}
}

// Import parses src, stores its raw bytes and adds the new record to the
// front of the library. The session stays open.
func (s *Service) Import(ctx context.Context, src parser.Source) (*types.Book, error) {
	if _, err := parser.EnsureFormat(src.Name()); err != nil {
		return nil, err
	}

	data, err := src.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src.Name(), err)
	}
	file := &types.BookFile{
		Name:         src.Name(),
		Type:         src.Type(),
		LastModified: src.ModTime(),
		Data:         data,
	}

	b, err := s.sessions.Import(ctx, parser.FromBookFile(file))
	if err != nil {
		s.notify(Event{Type: EventImportFailed})
		return nil, err
	}

	if err := s.files.SaveBookFile(ctx, b.ID, b.Format, file); err != nil {
		s.sessions.Release(b.ID)
		return nil, fmt.Errorf("failed to store raw file: %w", err)
	}
	if err := s.store.SaveBook(ctx, b); err != nil {
		s.sessions.Release(b.ID)
		if clearErr := s.files.ClearBookFile(ctx, b.ID); clearErr != nil {
			log.Printf("Warning: failed to clean up raw file for %s: %v", b.ID, clearErr)
		}
		return nil, fmt.Errorf("failed to save book: %w", err)
	}

	s.notify(Event{Type: EventImported, BookID: b.ID, Book: b})
	return b, nil
}

// List returns the library filtered and sorted
func (s *Service) List(ctx context.Context, filter Filter, sortBy SortBy) ([]*types.Book, error) {
	books, err := s.store.LoadLibrary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}
	return FilterAndSort(books, filter, sortBy), nil
}

// Reorder moves the books named in ids to the front of the library in that
// order. Unknown ids are ignored and unnamed books keep their relative order
// behind them.
func (s *Service) Reorder(ctx context.Context, ids []string) ([]*types.Book, error) {
	books, err := s.store.LoadLibrary(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}

	byID := make(map[string]*types.Book, len(books))
	for _, b := range books {
		byID[b.ID] = b
	}
	ordered := make([]*types.Book, 0, len(books))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			ordered = append(ordered, b)
			delete(byID, id)
		}
	}
	for _, b := range books {
		if _, ok := byID[b.ID]; ok {
			ordered = append(ordered, b)
		}
	}

	if err := s.store.SaveLibrary(ctx, ordered); err != nil {
		return nil, fmt.Errorf("failed to save library: %w", err)
	}
	s.notify(Event{Type: EventReordered})
	return ordered, nil
}

// Get returns one library record
func (s *Service) Get(ctx context.Context, id string) (*types.Book, error) {
	b, err := s.store.GetBook(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBookNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Open prepares a book for reading. The session is rebuilt from the stored
// file when needed, the book is marked as reading and the saved position is
// clamped to the book's current chapter range.
func (s *Service) Open(ctx context.Context, id string) (*Opened, error) {
	stored, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ready, err := s.sessions.EnsureReady(ctx, stored)
	if err != nil {
		return nil, err
	}
	if ready.TotalChapters != stored.TotalChapters || types.CountTOC(ready.TOC) != types.CountTOC(stored.TOC) {
		log.Printf("Book %s: chapter structure changed (%d -> %d chapters)", id, stored.TotalChapters, ready.TotalChapters)
	}

	opened := *ready
	now := s.now().UTC()
	opened.LastReadAt = &now
	opened.Status = types.StatusReading
	if err := s.store.SaveBook(ctx, &opened); err != nil {
		return nil, fmt.Errorf("failed to save book: %w", err)
	}

	progress, err := s.store.LoadProgress(ctx, id)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = &types.ReadingProgress{BookID: id}
	}
	if maxIndex := max(opened.TotalChapters-1, 0); progress.ChapterIndex > maxIndex || progress.ChapterIndex < 0 {
		progress.ChapterIndex = min(max(progress.ChapterIndex, 0), maxIndex)
		progress.Page = 0
		if err := s.saveProgress(ctx, progress); err != nil {
			return nil, err
		}
	}

	s.notify(Event{Type: EventUpdated, BookID: id, Book: &opened})
	return &Opened{Book: &opened, Progress: progress}, nil
}

// File returns the raw upload of a book
func (s *Service) File(ctx context.Context, id string) (*types.BookFile, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	file, err := s.files.LoadBookFile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load raw file: %w", err)
	}
	if file == nil {
		return nil, session.ErrMissingSource
	}
	return file, nil
}

// Chapter renders a chapter of an opened book
func (s *Service) Chapter(ctx context.Context, id string, index int) (*types.ChapterContent, error) {
	return s.sessions.Chapter(ctx, id, index)
}

// Close releases the book's session
func (s *Service) Close(id string) {
	s.sessions.Release(id)
	s.notify(Event{Type: EventSessionClosed, BookID: id})
}

// Remove deletes a book with its raw file, progress and bookmarks
func (s *Service) Remove(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	s.sessions.Release(id)
	if err := s.files.ClearBookFile(ctx, id); err != nil {
		return fmt.Errorf("failed to clear raw file: %w", err)
	}
	if err := s.store.DeleteBook(ctx, id); err != nil {
		return err
	}

	s.notify(Event{Type: EventRemoved, BookID: id})
	return nil
}

// SetStatus changes a book's reading status
func (s *Service) SetStatus(ctx context.Context, id string, status types.BookStatus) (*types.Book, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.Status = status
	if err := s.store.SaveBook(ctx, b); err != nil {
		return nil, err
	}

	s.notify(Event{Type: EventUpdated, BookID: id, Book: b})
	return b, nil
}

// Search finds keyword in one chapter of an opened book
func (s *Service) Search(ctx context.Context, id string, index int, keyword string) ([]types.SearchResult, error) {
	ch, err := s.sessions.Chapter(ctx, id, index)
	if err != nil {
		return nil, err
	}
	return findSnippets(ch, keyword), nil
}

// AddBookmark bookmarks a chapter of an opened book
func (s *Service) AddBookmark(ctx context.Context, id string, index int) (*types.Bookmark, error) {
	ch, err := s.sessions.Chapter(ctx, id, index)
	if err != nil {
		return nil, err
	}

	title := ch.Title
	if title == "" {
		title = fmt.Sprintf("第 %d 章", index+1)
	}
	bm := &types.Bookmark{
		ID:           uuid.NewString(),
		BookID:       id,
		ChapterIndex: index,
		Title:        title,
		Excerpt:      excerpt(ch),
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.AddBookmark(ctx, bm); err != nil {
		return nil, err
	}
	return bm, nil
}

// Bookmarks lists a book's bookmarks, newest first
func (s *Service) Bookmarks(ctx context.Context, id string) ([]*types.Bookmark, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListBookmarks(ctx, id)
}

// RemoveBookmark deletes one bookmark of a book
func (s *Service) RemoveBookmark(ctx context.Context, id, bookmarkID string) error {
	err := s.store.RemoveBookmark(ctx, id, bookmarkID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrBookmarkNotFound
	}
	return err
}

// SaveProgress records the reading position of a book
func (s *Service) SaveProgress(ctx context.Context, p *types.ReadingProgress) (*types.ReadingProgress, error) {
	b, err := s.Get(ctx, p.BookID)
	if err != nil {
		return nil, err
	}

	saved := *p
	saved.ChapterIndex = min(max(saved.ChapterIndex, 0), max(b.TotalChapters-1, 0))
	saved.Page = max(saved.Page, 0)
	if saved.Percentage == 0 && b.TotalChapters > 0 {
		saved.Percentage = float64(saved.ChapterIndex+1) / float64(b.TotalChapters) * 100
	}
	if err := s.saveProgress(ctx, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

// Progress returns the saved position, or the start of the book
func (s *Service) Progress(ctx context.Context, id string) (*types.ReadingProgress, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	p, err := s.store.LoadProgress(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &types.ReadingProgress{BookID: id}, nil
	}
	return p, nil
}

// ResetProgress forgets the saved position so the book opens at the start
func (s *Service) ResetProgress(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.store.ClearProgress(ctx, id)
}

func (s *Service) saveProgress(ctx context.Context, p *types.ReadingProgress) error {
	p.UpdatedAt = s.now().UTC()
	return s.store.SaveProgress(ctx, p)
}

func (s *Service) notify(e Event) {
	if s.notifier != nil {
		s.notifier.BroadcastJSON(e)
	}
}
