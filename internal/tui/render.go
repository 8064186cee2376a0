package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/unalkalkan/bookshelf/internal/util"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

const minTextWidth = 20

// bookItem adapts a library record to the bubbles list.
type bookItem struct {
	book *types.Book
}

func (i bookItem) Title() string { return i.book.Title }

func (i bookItem) Description() string {
	return fmt.Sprintf("%s · %s · %d 章", i.book.Author, statusLabel(i.book.Status), i.book.TotalChapters)
}

func (i bookItem) FilterValue() string { return i.book.Title + " " + i.book.Author }

func statusLabel(s types.BookStatus) string {
	switch s {
	case types.StatusReading:
		return "在读"
	case types.StatusFinished:
		return "已读"
	default:
		return "想读"
	}
}

// renderChapter lays a chapter out as wrapped paragraphs separated by
// blank lines.
func renderChapter(ch *types.ChapterContent, width int, styles Styles) string {
	if ch == nil {
		return ""
	}
	width = max(width, minTextWidth)
	wrap := lipgloss.NewStyle().Width(width)

	paragraphs := util.HTMLParagraphs(ch.Content)
	if len(paragraphs) > 0 && paragraphs[0] == ch.Title {
		paragraphs = paragraphs[1:]
	}

	var b strings.Builder
	if ch.Title != "" {
		b.WriteString(styles.Title.Render(wrap.Render(ch.Title)))
		b.WriteString("\n")
	}
	for i, p := range paragraphs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(wrap.Render(p))
	}
	return b.String()
}
