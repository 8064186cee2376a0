package parser

import (
	"regexp"
	"strings"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

var extensionPattern = regexp.MustCompile(`\.([a-z0-9]+)$`)

var supportedExtensions = map[string]types.BookFormat{
	"epub": types.FormatEPUB,
	"mobi": types.FormatMOBI,
	"txt":  types.FormatTXT,
}

// DetectFormat maps a file name's extension to a book format
func DetectFormat(fileName string) (types.BookFormat, bool) {
	m := extensionPattern.FindStringSubmatch(strings.ToLower(fileName))
	if m == nil {
		return "", false
	}
	format, ok := supportedExtensions[m[1]]
	return format, ok
}

// EnsureFormat is DetectFormat that fails with ErrUnsupportedFormat
func EnsureFormat(fileName string) (types.BookFormat, error) {
	format, ok := DetectFormat(fileName)
	if !ok {
		return "", ErrUnsupportedFormat
	}
	return format, nil
}
