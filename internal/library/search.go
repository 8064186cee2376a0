package library

import (
	"strings"

	"github.com/unalkalkan/bookshelf/internal/util"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

const (
	snippetRadius = 8
	maxSnippets   = 8
	excerptLength = 80
	noExcerpt     = "无摘录"
)

// findSnippets returns up to maxSnippets windows of words around each word
// containing keyword, compared case-insensitively
func findSnippets(chapter *types.ChapterContent, keyword string) []types.SearchResult {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	results := make([]types.SearchResult, 0)
	if needle == "" || chapter == nil {
		return results
	}

	words := strings.Fields(util.PlainText(chapter.Content))
	for i, w := range words {
		if !strings.Contains(strings.ToLower(w), needle) {
			continue
		}
		start := max(0, i-snippetRadius)
		end := min(len(words), i+snippetRadius+1)
		results = append(results, types.SearchResult{
			ChapterIndex: chapter.Index,
			Snippet:      strings.Join(words[start:end], " "),
		})
		if len(results) >= maxSnippets {
			break
		}
	}
	return results
}

// excerpt is the first characters of a chapter's text, or a placeholder
func excerpt(chapter *types.ChapterContent) string {
	if chapter == nil || chapter.Content == "" {
		return noExcerpt
	}
	if s := util.Excerpt(chapter.Content, excerptLength); s != "" {
		return s
	}
	return noExcerpt
}
