package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/unalkalkan/bookshelf/internal/config"
	"github.com/unalkalkan/bookshelf/internal/core"
	"github.com/unalkalkan/bookshelf/internal/parser"
	"github.com/unalkalkan/bookshelf/internal/tui"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	dataDir := flag.String("data", defaultDataDir(), "directory for the library database and book files")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: bookshelf [flags]               open the terminal reader\n")
		fmt.Fprintf(os.Stderr, "       bookshelf [flags] import FILE...  add books to the library\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(*configPath, *dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bookshelf: %v\n", err)
		return 1
	}

	args := flag.Args()
	if len(args) > 0 && args[0] == "import" {
		if len(args) == 1 {
			flag.Usage()
			return 2
		}
		return importFiles(ctx, cfg, args[1:])
	}
	if len(args) > 0 {
		flag.Usage()
		return 2
	}

	// Keep library logs off the terminal while the reader owns it
	log.SetOutput(logFile(*dataDir))

	app, err := core.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bookshelf: %v\n", err)
		return 1
	}
	defer app.Close()

	err = tui.Run(tui.Options{
		Context:  ctx,
		Library:  app.Library(),
		Sessions: app.Sessions(),
		Theme:    app.Prefs().Get().Theme,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "bookshelf: %v\n", err)
		return 1
	}
	return 0
}

// importFiles imports each path and reports per-file results. The exit code
// is 1 when any file failed.
func importFiles(ctx context.Context, cfg *types.Config, paths []string) int {
	app, err := core.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bookshelf: %v\n", err)
		return 1
	}
	defer app.Close()

	failed := 0
	for _, path := range paths {
		src, err := parser.NewFileSource(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		b, err := app.Library().Import(ctx, src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failed++
			continue
		}
		// the reader opens books on demand
		app.Library().Close(b.ID)
		fmt.Printf("%s: 《%s》 %s, %d 章\n", path, b.Title, b.Author, b.TotalChapters)
	}

	if failed > 0 {
		return 1
	}
	return 0
}

func loadConfig(configPath, dataDir string) (*types.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadDefault(dataDir)
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "bookshelf")
}

func logFile(dataDir string) *os.File {
	if dataDir != "" {
		if err := os.MkdirAll(dataDir, 0755); err == nil {
			if f, err := os.OpenFile(filepath.Join(dataDir, "bookshelf.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
				return f
			}
		}
	}
	f, _ := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	return f
}
