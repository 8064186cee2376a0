package parser

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/unalkalkan/bookshelf/internal/util"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

// fitzPagesPerSection groups reflowed pages when the book has no outline
const fitzPagesPerSection = 10

// FitzMOBIParser renders MOBI files through MuPDF.
type FitzMOBIParser struct {
	state

	docMu    sync.Mutex // MuPDF documents are not safe for concurrent use
	doc      *fitz.Document
	sections []pageRange
}

type pageRange struct {
	title      string
	start, end int // [start, end)
}

// NewFitzMOBIParser creates a MuPDF-backed MOBI parser
func NewFitzMOBIParser() *FitzMOBIParser {
	return &FitzMOBIParser{}
}

// Parse opens the document and maps its outline onto page ranges
func (p *FitzMOBIParser) Parse(ctx context.Context, src Source) (*types.Book, error) {
	data, err := src.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	pages := doc.NumPage()
	if pages <= 0 {
		doc.Close()
		return nil, fmt.Errorf("%w: document has no pages", ErrParse)
	}

	outline, err := doc.ToC()
	if err != nil {
		outline = nil
	}
	sections := outlineSections(outline, pages)
	meta := doc.Metadata()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		doc.Close()
		return nil, ErrClosed
	}

	p.doc = doc
	p.sections = sections
	p.total = len(sections)
	p.toc = make([]types.TOCEntry, len(sections))
	for i, s := range sections {
		p.toc[i] = types.TOCEntry{ID: fmt.Sprintf("mobi-%d", i), Label: s.title, Index: i}
	}
	p.metadata = types.BookMetadata{
		Description: strings.TrimSpace(meta["subject"]),
		PublishDate: strings.TrimSpace(meta["creationDate"]),
	}
	p.parsed = true

	book := newBook(src, types.FormatMOBI, meta["title"], mobiUntitled)
	if author := strings.TrimSpace(meta["author"]); author != "" {
		book.Author = author
	}
	book.TotalChapters = p.total
	book.Metadata = p.metadata
	book.TOC = p.toc
	return book, nil
}

// Chapter extracts the text of the section's pages
func (p *FitzMOBIParser) Chapter(ctx context.Context, index int) (*types.ChapterContent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := p.checkIndex(index); err != nil {
		return nil, err
	}

	section := p.sections[index]
	var lines []string

	p.docMu.Lock()
	defer p.docMu.Unlock()
	for page := section.start; page < section.end; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := p.doc.Text(page)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", page, err)
		}
		lines = append(lines, util.SplitLines(text)...)
	}

	content := util.ParagraphsHTML(lines)
	if content == "" {
		content = emptyChapterHTML
	}
	return &types.ChapterContent{Title: section.title, Content: content, Index: index}, nil
}

// Close releases the MuPDF document
func (p *FitzMOBIParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.sections = nil
	if p.doc == nil {
		return nil
	}

	p.docMu.Lock()
	defer p.docMu.Unlock()
	err := p.doc.Close()
	p.doc = nil
	return err
}

// outlineSections turns top-level outline entries into page ranges.
// Without a usable outline the pages are grouped in fixed-size sections.
func outlineSections(outline []fitz.Outline, pages int) []pageRange {
	var sections []pageRange
	for _, o := range outline {
		if o.Level > 1 || o.Page < 0 || o.Page >= pages {
			continue
		}
		if n := len(sections); n > 0 && sections[n-1].start >= o.Page {
			continue
		}
		title := strings.TrimSpace(o.Title)
		if title == "" {
			title = fmt.Sprintf("章节 %d", len(sections)+1)
		}
		sections = append(sections, pageRange{title: title, start: o.Page})
	}

	if len(sections) == 0 {
		for start := 0; start < pages; start += fitzPagesPerSection {
			sections = append(sections, pageRange{
				title: fmt.Sprintf("MOBI 第 %d 节", start/fitzPagesPerSection+1),
				start: start,
				end:   min(start+fitzPagesPerSection, pages),
			})
		}
		return sections
	}

	// Pages before the first outline entry belong to it
	sections[0].start = 0
	for i := range sections {
		if i+1 < len(sections) {
			sections[i].end = sections[i+1].start
		} else {
			sections[i].end = pages
		}
	}
	return sections
}
