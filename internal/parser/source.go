package parser

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

// Source is an opaque book upload
type Source interface {
	Name() string
	Type() string
	ModTime() time.Time
	ReadAll(ctx context.Context) ([]byte, error)
}

type bytesSource struct {
	name    string
	mime    string
	modTime time.Time
	data    []byte
}

// NewBytesSource wraps an in-memory upload
func NewBytesSource(name, mimeType string, modTime time.Time, data []byte) Source {
	return &bytesSource{name: name, mime: mimeType, modTime: modTime, data: data}
}

// FromBookFile wraps a persisted raw file so it can be parsed again
func FromBookFile(f *types.BookFile) Source {
	return NewBytesSource(f.Name, f.Type, f.LastModified, f.Data)
}

func (s *bytesSource) Name() string       { return s.name }
func (s *bytesSource) Type() string       { return s.mime }
func (s *bytesSource) ModTime() time.Time { return s.modTime }

func (s *bytesSource) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.data, nil
}

type fileSource struct {
	path    string
	modTime time.Time
}

// NewFileSource returns a source backed by a file on disk
func NewFileSource(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &fileSource{path: path, modTime: info.ModTime()}, nil
}

func (s *fileSource) Name() string       { return filepath.Base(s.path) }
func (s *fileSource) ModTime() time.Time { return s.modTime }

func (s *fileSource) Type() string {
	return MIMEType(s.Name())
}

func (s *fileSource) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	return data, nil
}

// MIMEType guesses a content type from a book file name
func MIMEType(name string) string {
	if format, ok := DetectFormat(name); ok {
		switch format {
		case types.FormatEPUB:
			return "application/epub+zip"
		case types.FormatMOBI:
			return "application/x-mobipocket-ebook"
		case types.FormatTXT:
			return "text/plain"
		}
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
