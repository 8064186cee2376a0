// Package prefs handles reader preference persistence.
// Preferences are stored as TOML, by default in ~/.config/bookshelf/prefs.toml.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// Theme is the reader color scheme
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeSepia Theme = "sepia"
)

// Prefs holds the reader's typography and theme settings.
type Prefs struct {
	FontSize   int     `toml:"font_size" json:"fontSize"`
	FontFamily string  `toml:"font_family" json:"fontFamily"`
	LineHeight float64 `toml:"line_height" json:"lineHeight"`
	PageWidth  int     `toml:"page_width" json:"pageWidth"`
	Theme      Theme   `toml:"theme" json:"theme"`
}

const (
	defaultPrefsPath  = "~/.config/bookshelf/prefs.toml"
	defaultFontFamily = "PingFang SC, SF Pro Text, -apple-system, sans-serif"

	minFontSize, maxFontSize     = 14, 30
	minLineHeight, maxLineHeight = 1.2, 2.4
	minPageWidth, maxPageWidth   = 560, 980
)

// Default returns the preferences used before anything is saved.
func Default() Prefs {
	return Prefs{
		FontSize:   18,
		FontFamily: defaultFontFamily,
		LineHeight: 1.9,
		PageWidth:  760,
		Theme:      ThemeLight,
	}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Normalize clamps numeric fields into their supported ranges and replaces
// empty or unknown values with defaults.
func (p Prefs) Normalize() Prefs {
	d := Default()
	if p.FontSize == 0 {
		p.FontSize = d.FontSize
	}
	p.FontSize = min(max(p.FontSize, minFontSize), maxFontSize)
	if p.LineHeight == 0 {
		p.LineHeight = d.LineHeight
	}
	p.LineHeight = min(max(p.LineHeight, minLineHeight), maxLineHeight)
	if p.PageWidth == 0 {
		p.PageWidth = d.PageWidth
	}
	p.PageWidth = min(max(p.PageWidth, minPageWidth), maxPageWidth)
	if strings.TrimSpace(p.FontFamily) == "" {
		p.FontFamily = d.FontFamily
	}
	switch p.Theme {
	case ThemeLight, ThemeDark, ThemeSepia:
	default:
		p.Theme = d.Theme
	}
	return p
}

// Load reads preferences from the given path, falling back to defaults if
// the file is missing or unreadable.
func Load(path string) (Prefs, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Default(), nil
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return Default(), nil // Graceful degradation
	}

	prefs := Default()
	if err := toml.Unmarshal(data, &prefs); err != nil {
		return Default(), nil // Graceful degradation
	}
	return prefs.Normalize(), nil
}

// Save writes normalized preferences to the given path, creating
// directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p.Normalize())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, data, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// Store serializes access to one preferences file
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store for path. An empty path means DefaultPath.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Get loads the current preferences
func (s *Store) Get() Prefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, _ := Load(s.path)
	return p
}

// Put normalizes and saves p, returning what was stored
func (s *Store) Put(p Prefs) (Prefs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p = p.Normalize()
	if err := Save(s.path, p); err != nil {
		return p, err
	}
	return p, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
