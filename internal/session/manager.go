// Package session owns the live parsers of opened books.
//
// Every book id maps to at most one parser. Sessions are created by Import
// or rebuilt from the stored raw file by EnsureReady, and torn down by
// Release, ReleaseAll or ReleaseIdle.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/unalkalkan/bookshelf/internal/parser"
	"github.com/unalkalkan/bookshelf/internal/timeout"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

// FileLoader returns the stored raw upload of a book, or nil when none exists
type FileLoader interface {
	LoadBookFile(ctx context.Context, bookID string) (*types.BookFile, error)
}

// Options bounds session work
type Options struct {
	ParseTimeout   time.Duration
	ChapterTimeout time.Duration
}

// DefaultOptions returns the timeouts used when none are configured
func DefaultOptions() Options {
	return Options{
		ParseTimeout:   22 * time.Second,
		ChapterTimeout: 16 * time.Second,
	}
}

type entry struct {
	parser   parser.Parser
	lastUsed time.Time
}

// Manager is the registry of live book sessions
type Manager struct {
	factory parser.Factory
	files   FileLoader
	opts    Options

	mu       sync.Mutex
	sessions map[string]*entry
	guard    *keyedMutex

	now func() time.Time
}

// NewManager creates a session manager
func NewManager(factory parser.Factory, files FileLoader, opts Options) *Manager {
	return &Manager{
		factory:  factory,
		files:    files,
		opts:     opts,
		sessions: make(map[string]*entry),
		guard:    newKeyedMutex(),
		now:      time.Now,
	}
}

// Import parses a new book and registers its session under the id of the
// returned record. The parser is disposed when parsing fails or times out.
func (m *Manager) Import(ctx context.Context, src parser.Source) (*types.Book, error) {
	format, err := parser.EnsureFormat(src.Name())
	if err != nil {
		return nil, err
	}

	p, book, err := m.parse(ctx, format, src)
	if err != nil {
		return nil, err
	}

	unlock := m.guard.Lock(book.ID)
	defer unlock()
	m.register(book.ID, p)

	log.Printf("Imported %s book %q (%s) with %d chapters", format, book.Title, book.ID, book.TotalChapters)
	return book, nil
}

// EnsureReady makes sure book has a live session.
//
// With a live session the record is returned unchanged. Otherwise the stored
// raw file is parsed again and the returned record merges the fresh parse
// into book: identity and user fields are kept, chapters and TOC replaced,
// metadata merged key by key and the cover filled only when missing.
func (m *Manager) EnsureReady(ctx context.Context, book *types.Book) (*types.Book, error) {
	unlock := m.guard.Lock(book.ID)
	defer unlock()

	if m.touch(book.ID) {
		return book, nil
	}

	file, err := m.files.LoadBookFile(ctx, book.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load raw file for %s: %w", book.ID, err)
	}
	if file == nil {
		return nil, ErrMissingSource
	}

	format := book.Format
	if detected, ok := parser.DetectFormat(file.Name); ok {
		format = detected
	}

	p, fresh, err := m.parse(ctx, format, parser.FromBookFile(file))
	if err != nil {
		return nil, err
	}
	m.register(book.ID, p)

	log.Printf("Rebuilt session for %q (%s) from stored file", book.Title, book.ID)
	return mergeRecord(book, fresh), nil
}

// Chapter renders one chapter of a live session. It never rebuilds a
// missing session.
func (m *Manager) Chapter(ctx context.Context, bookID string, index int) (*types.ChapterContent, error) {
	m.mu.Lock()
	e, ok := m.sessions[bookID]
	if ok {
		e.lastUsed = m.now()
	}
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	content, err := timeout.Do(ctx, m.opts.ChapterTimeout, chapterTimeoutMsg, func(ctx context.Context) (*types.ChapterContent, error) {
		return e.parser.Chapter(ctx, index)
	})
	if errors.Is(err, parser.ErrClosed) {
		return nil, ErrSessionDisposed
	}
	if err != nil {
		return nil, err
	}

	// Released while rendering
	if !m.isLive(bookID, e) {
		return nil, ErrSessionDisposed
	}
	return content, nil
}

// PageCount returns the chapter count of a live session, or 0
func (m *Manager) PageCount(bookID string) int {
	m.mu.Lock()
	e, ok := m.sessions[bookID]
	m.mu.Unlock()
	if !ok {
		return 0
	}
	return e.parser.PageCount()
}

// Has reports whether the book has a live session
func (m *Manager) Has(bookID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[bookID]
	return ok
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Release disposes the session of one book. Absent sessions are ignored.
func (m *Manager) Release(bookID string) {
	m.mu.Lock()
	e, ok := m.sessions[bookID]
	delete(m.sessions, bookID)
	m.mu.Unlock()

	if ok {
		closeParser(bookID, e.parser)
	}
}

// ReleaseAll disposes every live session
func (m *Manager) ReleaseAll() {
	m.mu.Lock()
	released := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for id, e := range released {
		closeParser(id, e.parser)
	}
}

// ReleaseIdle disposes sessions unused for longer than maxIdle and returns
// how many were released. A non-positive maxIdle releases nothing.
func (m *Manager) ReleaseIdle(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}

	cutoff := m.now().Add(-maxIdle)
	released := make(map[string]*entry)

	m.mu.Lock()
	for id, e := range m.sessions {
		if e.lastUsed.Before(cutoff) {
			released[id] = e
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for id, e := range released {
		closeParser(id, e.parser)
	}
	return len(released)
}

// parse builds a parser and runs Parse under the parse timeout
func (m *Manager) parse(ctx context.Context, format types.BookFormat, src parser.Source) (parser.Parser, *types.Book, error) {
	p, err := m.factory.NewParser(format)
	if err != nil {
		return nil, nil, err
	}

	book, err := timeout.Do(ctx, m.opts.ParseTimeout, parseTimeoutMsg, func(ctx context.Context) (*types.Book, error) {
		return p.Parse(ctx, src)
	})
	if err != nil {
		p.Close()
		return nil, nil, err
	}
	return p, book, nil
}

// register must be called with the id guard held
func (m *Manager) register(bookID string, p parser.Parser) {
	m.mu.Lock()
	old, ok := m.sessions[bookID]
	m.sessions[bookID] = &entry{parser: p, lastUsed: m.now()}
	m.mu.Unlock()

	if ok && old.parser != p {
		closeParser(bookID, old.parser)
	}
}

func (m *Manager) touch(bookID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[bookID]
	if ok {
		e.lastUsed = m.now()
	}
	return ok
}

func (m *Manager) isLive(bookID string, e *entry) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[bookID] == e
}

func closeParser(bookID string, p parser.Parser) {
	if err := p.Close(); err != nil {
		log.Printf("Warning: failed to close session %s: %v", bookID, err)
	}
}

// mergeRecord applies a fresh parse to a stored record without losing user data
func mergeRecord(stored, fresh *types.Book) *types.Book {
	merged := *stored
	merged.TotalChapters = fresh.TotalChapters
	merged.TOC = fresh.TOC
	merged.Metadata = stored.Metadata.Merge(fresh.Metadata)
	if merged.Cover == "" {
		merged.Cover = fresh.Cover
	}
	return &merged
}
