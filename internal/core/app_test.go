package core

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unalkalkan/bookshelf/internal/config"
	"github.com/unalkalkan/bookshelf/internal/health"
	"github.com/unalkalkan/bookshelf/internal/parser"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

func testConfig(t *testing.T) *types.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.GetDefault()
	cfg.Storage.Local.BasePath = filepath.Join(dir, "storage")
	cfg.Database.Path = ":memory:"
	cfg.Prefs.Path = filepath.Join(dir, "prefs.toml")
	return cfg
}

func TestNewWiresLibrary(t *testing.T) {
	app, err := New(testConfig(t))
	require.NoError(t, err)
	require.NoError(t, app.Start())
	defer app.Close()

	ctx := context.Background()
	src := parser.NewBytesSource("山居.txt", "text/plain", time.Now(), []byte("第一章 初到\n山中无甲子。\n第二章 再来\n寒尽不知年。"))
	b, err := app.Library().Import(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 2, b.TotalChapters)
	assert.True(t, app.Sessions().Has(b.ID))

	books, err := app.Library().List(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, books, 1)

	resp := app.Health().RunChecks(ctx)
	assert.Equal(t, health.StatusHealthy, resp.Status)
	assert.Len(t, resp.Checks, 3)
}

func TestEPUBTimeouts(t *testing.T) {
	defaults := parser.DefaultEPUBTimeouts()

	got := epubTimeouts(types.SessionConfig{EPUBRenderTimeoutMs: 1500})
	assert.Equal(t, 1500*time.Millisecond, got.Render)
	assert.Equal(t, defaults.Ready, got.Ready)
	assert.Equal(t, defaults.Metadata, got.Metadata)
	assert.Equal(t, defaults.Navigation, got.Navigation)
}

func TestStartWithWatchDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.Import.WatchDir = filepath.Join(t.TempDir(), "inbox")

	app, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, app.Start())
	app.Close()

	assert.Equal(t, 0, app.Sessions().Count())
}
