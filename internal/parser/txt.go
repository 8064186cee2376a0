package parser

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/unalkalkan/bookshelf/internal/util"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

const (
	// txtChunkLines is the section size used when no headings are found
	txtChunkLines = 120

	txtPreambleTitle = "开始阅读"
)

var chapterHeadingPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^第[\d零一二三四五六七八九十百千万两〇]+[章节卷回篇].*$`),
	regexp.MustCompile(`^(?i)chapter\s+\d+.*$`),
	regexp.MustCompile(`^序章.*$`),
	regexp.MustCompile(`^尾声.*$`),
}

// TXTParser parses plain text files
type TXTParser struct {
	state
	chapters []textChapter
}

// NewTXTParser creates a new TXT parser
func NewTXTParser() *TXTParser {
	return &TXTParser{}
}

// Parse decodes the text and splits it into chapters
func (p *TXTParser) Parse(ctx context.Context, src Source) (*types.Book, error) {
	data, err := src.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	text := util.DecodeText(data)
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r\n", "\n"))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chapters := splitTXTChapters(text)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	p.chapters = chapters
	p.total = len(chapters)
	p.toc = flatTOC("txt", chapters)
	p.metadata = types.BookMetadata{
		Language:    "zh-CN",
		Description: fmt.Sprintf("由 TXT 解析生成，共 %d 章", len(chapters)),
	}
	p.parsed = true

	book := newBook(src, types.FormatTXT, "", "未命名 TXT")
	book.TotalChapters = p.total
	book.Metadata = p.metadata
	book.TOC = p.toc
	return book, nil
}

// Chapter renders a chapter's lines as paragraphs
func (p *TXTParser) Chapter(ctx context.Context, index int) (*types.ChapterContent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkIndex(index); err != nil {
		return nil, err
	}

	ch := p.chapters[index]
	return &types.ChapterContent{
		Title:   ch.title,
		Content: util.ParagraphsHTML(ch.lines),
		Index:   index,
	}, nil
}

// Close drops the decoded text
func (p *TXTParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.chapters = nil
	return nil
}

// IsChapterHeading reports whether a trimmed line opens a new chapter
func IsChapterHeading(line string) bool {
	if line == "" {
		return false
	}
	for _, re := range chapterHeadingPatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// splitTXTChapters groups lines under chapter headings.
//
// Lines before the first heading form a "开始阅读" chapter. A heading with
// no following lines is dropped. When fewer than two chapters result, the
// text is cut into fixed-size sections instead.
func splitTXTChapters(text string) []textChapter {
	lines := strings.Split(text, "\n")

	var chapters []textChapter
	current := textChapter{title: txtPreambleTitle}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if IsChapterHeading(trimmed) {
			if len(current.lines) > 0 {
				chapters = append(chapters, current)
			}
			current = textChapter{title: trimmed}
			continue
		}
		current.lines = append(current.lines, line)
	}
	if len(current.lines) > 0 {
		chapters = append(chapters, current)
	}

	if len(chapters) <= 1 {
		return chunkLines(lines, txtChunkLines, "第 %d 节")
	}
	return chapters
}

// chunkLines cuts lines into sections titled with the 1-based section number
func chunkLines(lines []string, size int, titleFormat string) []textChapter {
	var chunks []textChapter
	for start := 0; start < len(lines); start += size {
		end := min(start+size, len(lines))
		chunks = append(chunks, textChapter{
			title: fmt.Sprintf(titleFormat, start/size+1),
			lines: lines[start:end],
		})
	}
	if len(chunks) == 0 {
		chunks = append(chunks, textChapter{title: "正文"})
	}
	return chunks
}
