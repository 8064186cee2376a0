// Inbox watcher: files dropped into the import directory are imported once
// they stop changing, then moved into its done/ subdirectory so a restart
// does not import them again.

package library

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/unalkalkan/bookshelf/internal/parser"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

// DoneDir is the inbox subdirectory imported files are moved to
const DoneDir = "done"

// Importer is what the watcher hands finished files to
type Importer interface {
	Import(ctx context.Context, src parser.Source) (*types.Book, error)
}

// Watcher imports supported files written to a directory
type Watcher struct {
	importer      Importer
	dir           string
	watcher       *fsnotify.Watcher
	debounceDelay time.Duration

	mu            sync.Mutex
	pending       map[string]bool
	imported      map[string]time.Time // path -> mod time, for files that could not be moved
	debounceTimer *time.Timer
	stopChan      chan struct{}
	stopOnce      sync.Once
	done          sync.WaitGroup
}

// NewWatcher creates a watcher for dir
func NewWatcher(importer Importer, dir string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		importer:      importer,
		dir:           dir,
		debounceDelay: debounce,
		pending:       make(map[string]bool),
		imported:      make(map[string]time.Time),
		stopChan:      make(chan struct{}),
	}
}

// Start begins watching. Files already in the directory are imported too.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		watcher.Close()
		return err
	}
	for _, e := range entries {
		if !e.IsDir() {
			w.queue(filepath.Join(w.dir, e.Name()))
		}
	}

	log.Printf("Import watcher started for: %s", w.dir)

	w.done.Add(1)
	go w.processEvents()
	return nil
}

// Stop stops watching and waits for the event loop and any running
// flush to exit. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)

		w.mu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.mu.Unlock()

		if w.watcher != nil {
			err = w.watcher.Close()
		}
	})
	w.done.Wait()
	return err
}

func (w *Watcher) stopped() bool {
	select {
	case <-w.stopChan:
		return true
	default:
		return false
	}
}

func (w *Watcher) processEvents() {
	defer w.done.Done()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Import watcher error: %v", err)

		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	w.queue(event.Name)
}

// queue schedules path for import after the debounce delay
func (w *Watcher) queue(path string) {
	if _, ok := parser.DetectFormat(path); !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if w.stopped() {
		w.mu.Unlock()
		return
	}
	w.done.Add(1)
	defer w.done.Done()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	w.mu.Unlock()

	for _, p := range paths {
		if w.stopped() {
			return
		}
		w.importFile(p)
	}
}

func (w *Watcher) importFile(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	w.mu.Lock()
	last, seen := w.imported[path]
	w.mu.Unlock()
	if seen && !info.ModTime().After(last) {
		return
	}

	src, err := parser.NewFileSource(path)
	if err != nil {
		log.Printf("Import watcher: cannot open %s: %v", path, err)
		return
	}
	b, err := w.importer.Import(context.Background(), src)
	if err != nil {
		log.Printf("Import watcher: failed to import %s: %v", path, err)
		return
	}

	log.Printf("Import watcher: imported %s as %s", filepath.Base(path), b.ID)

	if err := w.archive(path); err != nil {
		log.Printf("Import watcher: cannot move %s to %s: %v", path, DoneDir, err)
		w.mu.Lock()
		w.imported[path] = info.ModTime()
		w.mu.Unlock()
	}
}

// archive moves an imported file out of the inbox
func (w *Watcher) archive(path string) error {
	done := filepath.Join(w.dir, DoneDir)
	if err := os.MkdirAll(done, 0755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(done, filepath.Base(path)))
}
