package library

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unalkalkan/bookshelf/internal/parser"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

type recordingImporter struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingImporter) Import(ctx context.Context, src parser.Source) (*types.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, src.Name())
	return &types.Book{ID: src.Name()}, nil
}

func (r *recordingImporter) imported() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func TestWatcherImportsSupportedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "existing.txt"), []byte("早已存在"), 0644))

	importer := &recordingImporter{}
	w := NewWatcher(importer, dir, 50*time.Millisecond)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.epub"), []byte("PK"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("# no"), 0644))

	assert.Eventually(t, func() bool {
		return len(importer.imported()) == 2
	}, 3*time.Second, 20*time.Millisecond)
	assert.ElementsMatch(t, []string{"existing.txt", "new.epub"}, importer.imported())

	// An unchanged file is not imported twice
	w.queue(filepath.Join(dir, "existing.txt"))
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, importer.imported(), 2)
}

func TestWatcherDoesNotReimportAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("第一章"), 0644))
	importer := &recordingImporter{}

	for i := 0; i < 2; i++ {
		w := NewWatcher(importer, dir, 20*time.Millisecond)
		require.NoError(t, w.Start())
		if i == 0 {
			assert.Eventually(t, func() bool {
				return len(importer.imported()) == 1
			}, 3*time.Second, 10*time.Millisecond)
		} else {
			time.Sleep(200 * time.Millisecond)
		}
		require.NoError(t, w.Stop())
	}

	assert.Equal(t, []string{"a.txt"}, importer.imported())
	assert.NoFileExists(t, filepath.Join(dir, "a.txt"))
	assert.FileExists(t, filepath.Join(dir, DoneDir, "a.txt"))
}

func TestWatcherStopTwice(t *testing.T) {
	importer := &recordingImporter{}
	w := NewWatcher(importer, t.TempDir(), time.Hour)
	require.NoError(t, w.Start())

	require.NoError(t, w.Stop())
	assert.NotPanics(t, func() { w.Stop() })

	// A flush that fires after Stop imports nothing
	w.mu.Lock()
	w.pending["late.txt"] = true
	w.mu.Unlock()
	w.flush()
	assert.Empty(t, importer.imported())
}
