package parser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/unalkalkan/bookshelf/internal/timeout"
	"github.com/unalkalkan/bookshelf/internal/util"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

const epubUntitled = "未命名 EPUB"

// EPUBParser reads EPUB 2 and 3 archives held in memory
type EPUBParser struct {
	state
	timeouts EPUBTimeouts

	pkg     *epubPackage
	targets []string // archive path per chapter index; "" renders a placeholder

	// beforeStage runs at the start of each load stage when set
	beforeStage func(ctx context.Context, stage string)
}

// NewEPUBParser creates a new EPUB parser
func NewEPUBParser(timeouts EPUBTimeouts) *EPUBParser {
	return &EPUBParser{timeouts: timeouts}
}

type epubDetails struct {
	meta  epubMetadata
	cover string
}

// Parse opens the archive and loads metadata and navigation.
//
// Opening the package is fatal on failure or timeout. Metadata and
// navigation each run under their own deadline and fall back to empty.
func (p *EPUBParser) Parse(ctx context.Context, src Source) (*types.Book, error) {
	data, err := src.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	pkg, err := timeout.Do(ctx, p.timeouts.Ready, "EPUB 加载超时", func(ctx context.Context) (*epubPackage, error) {
		p.enterStage(ctx, "ready")
		return openPackage(data)
	})
	if errors.Is(err, timeout.ErrTimeout) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	details, err := timeout.Do(ctx, p.timeouts.Metadata, "EPUB 元数据加载超时", func(ctx context.Context) (epubDetails, error) {
		p.enterStage(ctx, "metadata")
		return epubDetails{meta: pkg.metadata(), cover: pkg.coverThumbnail()}, nil
	})
	if err != nil {
		log.Printf("epub %s: metadata unavailable: %v", src.Name(), err)
		details = epubDetails{}
	}

	nav, err := timeout.Do(ctx, p.timeouts.Navigation, "EPUB 目录加载超时", func(ctx context.Context) ([]navPoint, error) {
		p.enterStage(ctx, "navigation")
		return pkg.navigation()
	})
	if err != nil {
		log.Printf("epub %s: navigation unavailable: %v", src.Name(), err)
		nav = nil
	}

	// Without a spine every TOC entry is a chapter, in breadth-first order,
	// and normalizeTOC assigns indices by position.
	targets := pkg.spine
	var chapterIndex map[string]int
	if len(targets) > 0 {
		chapterIndex = make(map[string]int, len(targets))
		for i, t := range targets {
			if _, dup := chapterIndex[t]; !dup && t != "" {
				chapterIndex[t] = i
			}
		}
	} else {
		targets = tocTargets(nav)
	}
	total := len(targets)
	if total == 0 {
		targets = []string{""}
		total = 1
	}

	meta := details.meta
	metadata := types.BookMetadata{
		Publisher:   meta.Publisher,
		Language:    meta.Language,
		ISBN:        meta.Identifier,
		Description: plainDescription(meta.Description),
		PublishDate: meta.Date,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrClosed
	}

	p.pkg = pkg
	p.targets = targets
	p.total = total
	p.metadata = metadata
	p.toc = normalizeTOC(nav, chapterIndex, total)
	p.parsed = true

	book := newBook(src, types.FormatEPUB, meta.Title, epubUntitled)
	if meta.Author != "" {
		book.Author = meta.Author
	}
	book.Cover = details.cover
	book.TotalChapters = total
	book.Metadata = metadata
	book.TOC = p.toc
	return book, nil
}

func (p *EPUBParser) enterStage(ctx context.Context, stage string) {
	if p.beforeStage != nil {
		p.beforeStage(ctx, stage)
	}
}

// Chapter renders one spine document
func (p *EPUBParser) Chapter(ctx context.Context, index int) (*types.ChapterContent, error) {
	p.mu.RLock()
	if err := p.checkIndex(index); err != nil {
		p.mu.RUnlock()
		return nil, err
	}
	pkg, target := p.pkg, p.targets[index]
	title := chapterTitle(p.toc, index)
	p.mu.RUnlock()

	content, err := timeout.Do(ctx, p.timeouts.Render, "章节渲染超时", func(ctx context.Context) (string, error) {
		return pkg.renderSection(ctx, target)
	})
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	if content == "" {
		content = emptyChapterHTML
	}
	return &types.ChapterContent{Title: title, Content: content, Index: index}, nil
}

// Close drops the archive
func (p *EPUBParser) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.pkg = nil
	p.targets = nil
	return nil
}

// chapterTitle returns the label of the first TOC entry pointing at index
func chapterTitle(toc []types.TOCEntry, index int) string {
	var find func([]types.TOCEntry) string
	find = func(entries []types.TOCEntry) string {
		for _, e := range entries {
			if e.Index == index {
				return e.Label
			}
			if label := find(e.Children); label != "" {
				return label
			}
		}
		return ""
	}
	if label := find(toc); label != "" {
		return label
	}
	return fmt.Sprintf("章节 %d", index+1)
}

func plainDescription(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	return util.PlainText(s)
}
