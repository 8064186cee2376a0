package util

import (
	"path/filepath"
	"regexp"
	"strings"
)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

var lineBreak = regexp.MustCompile(`\r?\n`)

// EscapeHTML escapes the five HTML-significant characters
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// SplitLines splits text on LF or CRLF
func SplitLines(text string) []string {
	return lineBreak.Split(text, -1)
}

// ParagraphsHTML wraps every non-empty trimmed line in its own <p>
func ParagraphsHTML(lines []string) string {
	var b strings.Builder
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(EscapeHTML(line))
		b.WriteString("</p>")
	}
	return b.String()
}

// StripFileExtension removes the last extension from a file name
func StripFileExtension(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// Truncate returns at most n runes of s
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
