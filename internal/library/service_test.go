package library

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unalkalkan/bookshelf/internal/book"
	"github.com/unalkalkan/bookshelf/internal/parser"
	"github.com/unalkalkan/bookshelf/internal/session"
	"github.com/unalkalkan/bookshelf/internal/storage"
	"github.com/unalkalkan/bookshelf/internal/store"
	"github.com/unalkalkan/bookshelf/internal/testutil"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

const sampleTXT = "第1章 开始\nthe quick brown fox jumps over the lazy dog\n第2章 继续\n夏天到了"

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) BroadcastJSON(v any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if e, ok := v.(Event); ok {
		n.events = append(n.events, e)
	}
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc      *Service
	store    *store.Store
	files    *book.FileRepository
	sessions *session.Manager
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	adapter, err := storage.NewLocalAdapter(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	st := store.New(testutil.SetupTestDB(t))
	files := book.NewFileRepository(adapter)
	sessions := session.NewManager(parser.NewFactory(parser.Options{}), files, session.DefaultOptions())
	t.Cleanup(sessions.ReleaseAll)
	notifier := &recordingNotifier{}

	return &fixture{
		svc:      NewService(st, files, sessions, notifier),
		store:    st,
		files:    files,
		sessions: sessions,
		notifier: notifier,
	}
}

func txtSource(name, text string) parser.Source {
	return parser.NewBytesSource(name, "text/plain", time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC), []byte(text))
}

func TestImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Import(ctx, txtSource("样书.txt", sampleTXT))
	require.NoError(t, err)
	assert.Equal(t, "样书", b.Title)
	assert.Equal(t, 2, b.TotalChapters)
	assert.True(t, f.sessions.Has(b.ID))

	stored, err := f.svc.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Title, stored.Title)

	file, err := f.files.LoadBookFile(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, "样书.txt", file.Name)
	assert.Equal(t, "text/plain", file.Type)
	assert.Equal(t, sampleTXT, string(file.Data))

	assert.Equal(t, []string{EventImported}, f.notifier.types())
}

func TestImportUnsupported(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Import(context.Background(), txtSource("slides.pptx", "x"))
	assert.ErrorIs(t, err, parser.ErrUnsupportedFormat)

	books, err := f.svc.List(context.Background(), FilterAll, SortRecent)
	require.NoError(t, err)
	assert.Empty(t, books)
	assert.Equal(t, 0, f.sessions.Count())
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("Rebuilds a released session and marks reading", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.svc.Import(ctx, txtSource("book.txt", sampleTXT))
		require.NoError(t, err)

		f.svc.Close(b.ID)
		_, err = f.svc.Chapter(ctx, b.ID, 0)
		require.ErrorIs(t, err, session.ErrSessionNotFound)

		opened, err := f.svc.Open(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusReading, opened.Book.Status)
		require.NotNil(t, opened.Book.LastReadAt)
		assert.Equal(t, 0, opened.Progress.ChapterIndex)

		ch, err := f.svc.Chapter(ctx, b.ID, 1)
		require.NoError(t, err)
		assert.Contains(t, ch.Content, "夏天到了")

		stored, err := f.svc.Get(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, types.StatusReading, stored.Status)
	})

	t.Run("Clamps saved progress", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.svc.Import(ctx, txtSource("book.txt", sampleTXT))
		require.NoError(t, err)
		require.NoError(t, f.store.SaveProgress(ctx, &types.ReadingProgress{BookID: b.ID, ChapterIndex: 7, Page: 3}))

		opened, err := f.svc.Open(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, opened.Progress.ChapterIndex)
		assert.Equal(t, 0, opened.Progress.Page)

		p, err := f.svc.Progress(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, p.ChapterIndex)
	})

	t.Run("Unknown book", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Open(ctx, "nope")
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Missing raw file keeps the record", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.svc.Import(ctx, txtSource("book.txt", sampleTXT))
		require.NoError(t, err)
		f.svc.Close(b.ID)
		require.NoError(t, f.files.ClearBookFile(ctx, b.ID))

		_, err = f.svc.Open(ctx, b.ID)
		require.ErrorIs(t, err, session.ErrMissingSource)

		_, err = f.svc.Get(ctx, b.ID)
		assert.NoError(t, err)
	})
}

func TestSearchAndBookmarks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Import(ctx, txtSource("book.txt", sampleTXT))
	require.NoError(t, err)

	results, err := f.svc.Search(ctx, b.ID, 0, "FOX")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "the quick brown fox jumps over the lazy dog", results[0].Snippet)

	bm, err := f.svc.AddBookmark(ctx, b.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "第1章 开始", bm.Title)
	assert.True(t, strings.HasPrefix(bm.Excerpt, "the quick brown fox"))

	marks, err := f.svc.Bookmarks(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, bm.ID, marks[0].ID)

	require.NoError(t, f.svc.RemoveBookmark(ctx, b.ID, bm.ID))
	assert.ErrorIs(t, f.svc.RemoveBookmark(ctx, b.ID, bm.ID), ErrBookmarkNotFound)

	f.svc.Close(b.ID)
	_, err = f.svc.AddBookmark(ctx, b.ID, 0)
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestSetStatusAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Import(ctx, txtSource("book.txt", sampleTXT))
	require.NoError(t, err)

	_, err = f.svc.SetStatus(ctx, b.ID, "abandoned")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	updated, err := f.svc.SetStatus(ctx, b.ID, types.StatusFinished)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFinished, updated.Status)

	finished, err := f.svc.List(ctx, Filter(types.StatusFinished), SortTitle)
	require.NoError(t, err)
	assert.Len(t, finished, 1)

	_, err = f.svc.SaveProgress(ctx, &types.ReadingProgress{BookID: b.ID, ChapterIndex: 1})
	require.NoError(t, err)

	require.NoError(t, f.svc.Remove(ctx, b.ID))
	assert.False(t, f.sessions.Has(b.ID))

	_, err = f.svc.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrBookNotFound)
	file, err := f.files.LoadBookFile(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, file)

	assert.ErrorIs(t, f.svc.Remove(ctx, b.ID), ErrBookNotFound)
	assert.Contains(t, f.notifier.types(), EventRemoved)
}

func TestSaveProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stamp := time.Date(2024, 5, 5, 5, 5, 5, 0, time.UTC)
	f.svc.now = func() time.Time { return stamp }

	b, err := f.svc.Import(ctx, txtSource("book.txt", sampleTXT))
	require.NoError(t, err)

	p, err := f.svc.SaveProgress(ctx, &types.ReadingProgress{BookID: b.ID, ChapterIndex: 9, Page: -2})
	require.NoError(t, err)
	assert.Equal(t, 1, p.ChapterIndex)
	assert.Equal(t, 0, p.Page)
	assert.InDelta(t, 100.0, p.Percentage, 0.001)
	assert.True(t, stamp.Equal(p.UpdatedAt))

	_, err = f.svc.SaveProgress(ctx, &types.ReadingProgress{BookID: "ghost"})
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Import(ctx, txtSource("fox.txt", sampleTXT))
	require.NoError(t, err)

	file, err := f.svc.File(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "fox.txt", file.Name)
	assert.Equal(t, sampleTXT, string(file.Data))

	require.NoError(t, f.files.ClearBookFile(ctx, b.ID))
	_, err = f.svc.File(ctx, b.ID)
	assert.ErrorIs(t, err, session.ErrMissingSource)

	_, err = f.svc.File(ctx, "missing")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestReorder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		b, err := f.svc.Import(ctx, txtSource(name, sampleTXT))
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}
	// newest import first: c, b, a

	ordered, err := f.svc.Reorder(ctx, []string{ids[0], "unknown", ids[0]})
	require.NoError(t, err)
	require.Len(t, ordered, 3)
	assert.Equal(t, []string{ids[0], ids[2], ids[1]}, []string{ordered[0].ID, ordered[1].ID, ordered[2].ID})

	books, err := f.store.LoadLibrary(ctx)
	require.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, ids[0], books[0].ID)
	assert.Contains(t, f.notifier.types(), EventReordered)
}

func TestResetProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Import(ctx, txtSource("fox.txt", sampleTXT))
	require.NoError(t, err)
	_, err = f.svc.SaveProgress(ctx, &types.ReadingProgress{BookID: b.ID, ChapterIndex: 1})
	require.NoError(t, err)

	require.NoError(t, f.svc.ResetProgress(ctx, b.ID))
	p, err := f.svc.Progress(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.ChapterIndex)

	assert.ErrorIs(t, f.svc.ResetProgress(ctx, "missing"), ErrBookNotFound)
}
