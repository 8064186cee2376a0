package parser

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unalkalkan/bookshelf/internal/util"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

const (
	unknownAuthor    = "未知作者"
	emptyChapterHTML = "<p>该章节暂无可渲染内容。</p>"
)

// state is the decoded book shared by every parser implementation
type state struct {
	mu       sync.RWMutex
	parsed   bool
	closed   bool
	metadata types.BookMetadata
	toc      []types.TOCEntry
	total    int
}

func (s *state) Metadata() types.BookMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metadata
}

func (s *state) TOC() []types.TOCEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.toc
}

func (s *state) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0
	}
	return s.total
}

// checkIndex must be called with mu held
func (s *state) checkIndex(index int) error {
	if s.closed {
		return ErrClosed
	}
	if !s.parsed || index < 0 || index >= s.total {
		return ErrChapterNotFound
	}
	return nil
}

// textChapter is a chapter held fully in memory
type textChapter struct {
	title string
	lines []string
}

// flatTOC builds one top-level entry per chapter
func flatTOC(prefix string, chapters []textChapter) []types.TOCEntry {
	toc := make([]types.TOCEntry, len(chapters))
	for i, ch := range chapters {
		toc[i] = types.TOCEntry{
			ID:    prefix + "-" + strconv.Itoa(i),
			Label: ch.title,
			Index: i,
		}
	}
	return toc
}

// newBook fills the fields every parser sets the same way
func newBook(src Source, format types.BookFormat, title, fallbackTitle string) *types.Book {
	if strings.TrimSpace(title) == "" {
		title = util.StripFileExtension(src.Name())
	}
	if strings.TrimSpace(title) == "" {
		title = fallbackTitle
	}
	return &types.Book{
		ID:        uuid.NewString(),
		Title:     title,
		Author:    unknownAuthor,
		Format:    format,
		FileName:  src.Name(),
		CreatedAt: time.Now().UTC(),
		Status:    types.StatusWantToRead,
	}
}
