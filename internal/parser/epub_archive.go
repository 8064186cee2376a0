package parser

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// maxEntrySize caps the decompressed size of a single archive entry
const maxEntrySize int64 = 256 << 20

// findZipFile looks up an entry by exact name, then case-insensitively
func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	for _, f := range zr.File {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// readZipFile reads an entry, rejecting unsafe names and oversized payloads
func readZipFile(f *zip.File) ([]byte, error) {
	return readZipFileLimit(f, maxEntrySize)
}

func readZipFileLimit(f *zip.File, limit int64) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("unsafe zip entry path: %s", f.Name)
	}
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("zip entry %s too large: %d bytes", f.Name, f.UncompressedSize64)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("zip entry %s exceeds %d bytes", f.Name, limit)
	}
	return data, nil
}

// resolveRelativePath resolves href against the directory of base. Both are
// archive paths. Absolute hrefs and hrefs escaping the root resolve to "".
func resolveRelativePath(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "/") {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	cleaned := path.Clean(path.Join(path.Dir(base), href))
	if !isSafePath(cleaned) {
		return ""
	}
	return cleaned
}

func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	return cleaned != ".." && !strings.HasPrefix(cleaned, "../")
}

func hrefWithoutFragment(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}

func stripBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
}

// encoding/xml only knows the five XML entities; books often use HTML ones
var htmlEntityPattern = regexp.MustCompile(`(?i)&(nbsp|mdash|ndash|hellip|lsquo|rsquo|ldquo|rdquo|copy|reg|trade|bull|middot|laquo|raquo|deg|times);`)

var htmlEntityNumeric = map[string]string{
	"nbsp": "&#160;", "mdash": "&#8212;", "ndash": "&#8211;", "hellip": "&#8230;",
	"lsquo": "&#8216;", "rsquo": "&#8217;", "ldquo": "&#8220;", "rdquo": "&#8221;",
	"copy": "&#169;", "reg": "&#174;", "trade": "&#8482;", "bull": "&#8226;",
	"middot": "&#183;", "laquo": "&#171;", "raquo": "&#187;", "deg": "&#176;",
	"times": "&#215;",
}

func preprocessHTMLEntities(data []byte) []byte {
	return htmlEntityPattern.ReplaceAllFunc(data, func(m []byte) []byte {
		name := strings.ToLower(string(m[1 : len(m)-1]))
		if r, ok := htmlEntityNumeric[name]; ok {
			return []byte(r)
		}
		return m
	})
}
