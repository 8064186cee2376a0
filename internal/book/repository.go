package book

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/unalkalkan/bookshelf/internal/storage"
	"github.com/unalkalkan/bookshelf/internal/util"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

// FileStore persists the raw upload of each book so sessions can be rebuilt
type FileStore interface {
	// SaveBookFile stores the raw bytes and their descriptor, replacing any previous upload
	SaveBookFile(ctx context.Context, bookID string, format types.BookFormat, file *types.BookFile) error

	// LoadBookFile returns the stored upload, or nil when nothing is stored
	LoadBookFile(ctx context.Context, bookID string) (*types.BookFile, error)

	// ClearBookFile removes the upload. Missing uploads are not an error.
	ClearBookFile(ctx context.Context, bookID string) error
}

// fileInfo is the sidecar written next to the raw bytes
type fileInfo struct {
	Name         string           `json:"name"`
	Type         string           `json:"type"`
	LastModified int64            `json:"lastModified"` // unix milliseconds
	Format       types.BookFormat `json:"format"`
	Size         int              `json:"size"`
}

// FileRepository implements FileStore on top of a storage adapter
type FileRepository struct {
	storage storage.Adapter
}

// NewFileRepository creates a new raw file repository
func NewFileRepository(storageAdapter storage.Adapter) *FileRepository {
	return &FileRepository{
		storage: storageAdapter,
	}
}

// SaveBookFile stores the raw bytes first and the sidecar last, so a
// readable sidecar always points at complete data
func (r *FileRepository) SaveBookFile(ctx context.Context, bookID string, format types.BookFormat, file *types.BookFile) error {
	if file == nil {
		return errors.New("book file is nil")
	}

	// Drop uploads stored under another extension
	for _, f := range util.BookFormats() {
		if f == format {
			continue
		}
		if err := r.storage.Delete(ctx, util.BookFilePath(bookID, f)); err != nil {
			return fmt.Errorf("failed to remove stale raw file: %w", err)
		}
	}

	if err := r.storage.Put(ctx, util.BookFilePath(bookID, format), bytes.NewReader(file.Data)); err != nil {
		return fmt.Errorf("failed to store raw file: %w", err)
	}

	info := fileInfo{
		Name:   file.Name,
		Type:   file.Type,
		Format: format,
		Size:   len(file.Data),
	}
	if !file.LastModified.IsZero() {
		info.LastModified = file.LastModified.UnixMilli()
	}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal file info: %w", err)
	}
	if err := r.storage.Put(ctx, util.BookFileInfoPath(bookID), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to store file info: %w", err)
	}
	return nil
}

// LoadBookFile returns nil, nil when the book has no stored upload
func (r *FileRepository) LoadBookFile(ctx context.Context, bookID string) (*types.BookFile, error) {
	raw, err := storage.ReadAll(ctx, r.storage, util.BookFileInfoPath(bookID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file info: %w", err)
	}

	var info fileInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal file info: %w", err)
	}

	data, err := storage.ReadAll(ctx, r.storage, util.BookFilePath(bookID, info.Format))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read raw file: %w", err)
	}

	file := &types.BookFile{
		Name: info.Name,
		Type: info.Type,
		Data: data,
	}
	if info.LastModified != 0 {
		file.LastModified = time.UnixMilli(info.LastModified).UTC()
	}
	return file, nil
}

// ClearBookFile deletes the sidecar and every raw file stored for the book
func (r *FileRepository) ClearBookFile(ctx context.Context, bookID string) error {
	if err := r.storage.Delete(ctx, util.BookFileInfoPath(bookID)); err != nil {
		return fmt.Errorf("failed to delete file info: %w", err)
	}
	for _, f := range util.BookFormats() {
		if err := r.storage.Delete(ctx, util.BookFilePath(bookID, f)); err != nil {
			return fmt.Errorf("failed to delete raw file: %w", err)
		}
	}
	return nil
}
