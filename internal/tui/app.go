// Package tui is a Bubble Tea terminal reader for the library.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/unalkalkan/bookshelf/internal/library"
	"github.com/unalkalkan/bookshelf/internal/prefs"
	"github.com/unalkalkan/bookshelf/pkg/types"
)

// View represents the current active view.
type View int

const (
	ViewLibrary View = iota
	ViewReader
)

// Library is the subset of the library service the reader drives.
type Library interface {
	List(ctx context.Context, filter library.Filter, sortBy library.SortBy) ([]*types.Book, error)
	Open(ctx context.Context, id string) (*library.Opened, error)
	Chapter(ctx context.Context, id string, index int) (*types.ChapterContent, error)
	SaveProgress(ctx context.Context, p *types.ReadingProgress) (*types.ReadingProgress, error)
	Close(id string)
}

// Releaser frees every open book session on exit.
type Releaser interface {
	ReleaseAll()
}

// Options configures the UI.
type Options struct {
	Context  context.Context
	Library  Library
	Sessions Releaser
	Theme    prefs.Theme
}

type (
	libraryMsg struct {
		books []*types.Book
		err   error
	}
	openedMsg struct {
		opened *library.Opened
		err    error
	}
	chapterMsg struct {
		chapter *types.ChapterContent
		err     error
	}
	progressSavedMsg struct{ err error }
)

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx      context.Context
	library  Library
	sessions Releaser
	keys     keyMap
	styles   Styles

	currentView View
	width       int
	height      int
	ready       bool
	err         error

	books list.Model

	book         *types.Book
	chapterIndex int
	chapter      *types.ChapterContent
	page         viewport.Model
	loading      bool
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	books := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	books.Title = "书架"
	books.SetShowStatusBar(false)
	books.SetFilteringEnabled(true)

	return Model{
		ctx:         ctx,
		library:     opts.Library,
		sessions:    opts.Sessions,
		keys:        defaultKeyMap(),
		styles:      stylesFor(opts.Theme),
		currentView: ViewLibrary,
		books:       books,
		page:        viewport.New(0, 0),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, m.loadLibrary())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.books.SetSize(msg.Width, max(msg.Height-1, 0))
		m.page.Width = msg.Width
		m.page.Height = max(msg.Height-2, 0)
		m.refreshPage(false)
		return m, nil

	case libraryMsg:
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		items := make([]list.Item, len(msg.books))
		for i, b := range msg.books {
			items[i] = bookItem{book: b}
		}
		return m, m.books.SetItems(items)

	case openedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.book = msg.opened.Book
		m.chapterIndex = 0
		if msg.opened.Progress != nil {
			m.chapterIndex = msg.opened.Progress.ChapterIndex
		}
		m.chapter = nil
		m.currentView = ViewReader
		cmd := m.loadChapter()
		return m, cmd

	case chapterMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.chapter = msg.chapter
		m.refreshPage(true)
		return m, m.saveProgress()

	case progressSavedMsg:
		if msg.err != nil {
			m.err = msg.err
		}
		return m, nil
	}

	return m.forward(msg)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var body, status string
	switch m.currentView {
	case ViewReader:
		header := m.styles.Header.Render(fmt.Sprintf("%s  %d/%d", m.book.Title, m.chapterIndex+1, m.book.TotalChapters))
		body = lipgloss.JoinVertical(lipgloss.Left, header, m.page.View())
		status = fmt.Sprintf("%s · %s · %s · %s",
			m.keys.Previous.Help().Desc, m.keys.Next.Help().Desc, m.keys.Back.Help().Desc, m.keys.Quit.Help().Desc)
	default:
		body = m.books.View()
	}

	if m.err != nil {
		return lipgloss.JoinVertical(lipgloss.Left, body, m.styles.Error.Render(m.err.Error()))
	}
	if m.loading {
		status = "加载中…"
	}
	if status == "" {
		return body
	}
	return lipgloss.JoinVertical(lipgloss.Left, body, m.styles.Status.Render(status))
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.currentView == ViewLibrary && m.books.FilterState() == list.Filtering {
		return m.forward(msg)
	}

	if key.Matches(msg, m.keys.Quit) {
		return m, m.quit()
	}

	switch m.currentView {
	case ViewLibrary:
		if key.Matches(msg, m.keys.Open) {
			if item, ok := m.books.SelectedItem().(bookItem); ok && !m.loading {
				m.loading = true
				return m, m.openBook(item.book.ID)
			}
			return m, nil
		}

	case ViewReader:
		switch {
		case key.Matches(msg, m.keys.Back):
			m.library.Close(m.book.ID)
			m.currentView = ViewLibrary
			m.book, m.chapter, m.err = nil, nil, nil
			return m, m.loadLibrary()

		case key.Matches(msg, m.keys.Next):
			if m.loading || m.chapterIndex+1 >= m.book.TotalChapters {
				return m, nil
			}
			m.chapterIndex++
			cmd := m.loadChapter()
			return m, cmd

		case key.Matches(msg, m.keys.Previous):
			if m.loading || m.chapterIndex == 0 {
				return m, nil
			}
			m.chapterIndex--
			cmd := m.loadChapter()
			return m, cmd
		}
	}

	return m.forward(msg)
}

// forward hands msg to the component of the active view
func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.currentView == ViewReader {
		m.page, cmd = m.page.Update(msg)
	} else {
		m.books, cmd = m.books.Update(msg)
	}
	return m, cmd
}

func (m *Model) refreshPage(top bool) {
	if m.chapter == nil {
		return
	}
	m.page.SetContent(renderChapter(m.chapter, m.width-2, m.styles))
	if top {
		m.page.GotoTop()
	}
}

func (m Model) loadLibrary() tea.Cmd {
	return func() tea.Msg {
		books, err := m.library.List(m.ctx, library.FilterAll, library.SortRecent)
		return libraryMsg{books: books, err: err}
	}
}

func (m Model) openBook(id string) tea.Cmd {
	return func() tea.Msg {
		opened, err := m.library.Open(m.ctx, id)
		return openedMsg{opened: opened, err: err}
	}
}

func (m *Model) loadChapter() tea.Cmd {
	m.loading = true
	id, index := m.book.ID, m.chapterIndex
	return func() tea.Msg {
		ch, err := m.library.Chapter(m.ctx, id, index)
		return chapterMsg{chapter: ch, err: err}
	}
}

func (m Model) saveProgress() tea.Cmd {
	p := &types.ReadingProgress{BookID: m.book.ID, ChapterIndex: m.chapterIndex}
	return func() tea.Msg {
		_, err := m.library.SaveProgress(m.ctx, p)
		return progressSavedMsg{err: err}
	}
}

func (m Model) quit() tea.Cmd {
	return func() tea.Msg {
		if m.sessions != nil {
			m.sessions.ReleaseAll()
		}
		return tea.Quit()
	}
}

// Run starts the reader and blocks until the user quits.
func Run(opts Options) error {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	p := tea.NewProgram(New(opts), tea.WithContext(opts.Context))
	_, err := p.Run()
	return err
}
