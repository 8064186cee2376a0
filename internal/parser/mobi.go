package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/unalkalkan/bookshelf/internal/util"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

const (
	mobiChunkLines = 180

	mobiDisclaimer      = "当前为 MOBI 基础兼容解析版本，后续可接入更完整的二进制结构解析库。"
	mobiInvisibleText   = "该文件内容不可见，可能为受保护或非文本 MOBI。"
	mobiUnreadableBody  = "<p>暂时无法解析该 MOBI 的正文内容。</p>"
	mobiUntitled        = "未命名 MOBI"
	mobiPlaceholderName = "正文"
)

// MOBIParser extracts whatever readable text a MOBI file carries.
// It does not interpret the PalmDOC record structure.
type MOBIParser struct {
	state
	chapters []textChapter
	fallback bool
}

// NewMOBIParser creates a new baseline MOBI parser
func NewMOBIParser() *MOBIParser {
	return &MOBIParser{}
}

// Parse decodes the file as text and cuts it into fixed-size sections
func (p *MOBIParser) Parse(ctx context.Context, src Source) (*types.Book, error) {
	data, err := src.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	text := visibleText(data)
	var lines []string
	for _, line := range util.SplitLines(text) {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	var chapters []textChapter
	fallback := false
	if len(lines) > 0 {
		chapters = chunkLines(lines, mobiChunkLines, "MOBI 第 %d 节")
	} else {
		chapters = []textChapter{{title: mobiPlaceholderName}}
		fallback = true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	p.chapters = chapters
	p.fallback = fallback
	p.total = len(chapters)
	p.toc = flatTOC("mobi", chapters)
	p.metadata = types.BookMetadata{Description: mobiDisclaimer}
	p.parsed = true

	book := newBook(src, types.FormatMOBI, "", mobiUntitled)
	book.TotalChapters = p.total
	book.Metadata = p.metadata
	book.TOC = p.toc
	return book, nil
}

// Chapter renders a section
func (p *MOBIParser) Chapter(ctx context.Context, index int) (*types.ChapterContent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkIndex(index); err != nil {
		return nil, err
	}

	ch := p.chapters[index]
	content := util.ParagraphsHTML(ch.lines)
	if p.fallback {
		content = mobiUnreadableBody
	}
	return &types.ChapterContent{Title: ch.title, Content: content, Index: index}, nil
}

// Close drops the decoded text
func (p *MOBIParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.chapters = nil
	return nil
}

// visibleText decodes lossy UTF-8 and blanks control characters other than
// tab, CR and LF. Input with nothing visible yields a fixed notice.
func visibleText(data []byte) string {
	decoded := strings.ToValidUTF8(string(data), "\uFFFD")
	cleaned := strings.Map(func(r rune) rune {
		if r >= 32 || r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		return ' '
	}, decoded)

	if strings.TrimSpace(cleaned) == "" {
		return mobiInvisibleText
	}
	return cleaned
}
