package types

import "time"

// BookFormat identifies a supported e-book container
type BookFormat string

const (
	FormatEPUB BookFormat = "epub"
	FormatMOBI BookFormat = "mobi"
	FormatTXT  BookFormat = "txt"
)

// BookStatus is the user's reading state for a book
type BookStatus string

const (
	StatusReading    BookStatus = "reading"
	StatusWantToRead BookStatus = "wantToRead"
	StatusFinished   BookStatus = "finished"
)

// Valid reports whether s is one of the known statuses
func (s BookStatus) Valid() bool {
	switch s {
	case StatusReading, StatusWantToRead, StatusFinished:
		return true
	}
	return false
}

// Book is the library record for an imported book
type Book struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Author        string       `json:"author"`
	Cover         string       `json:"cover,omitempty"` // data URI
	Format        BookFormat   `json:"format"`
	TotalChapters int          `json:"totalChapters"`
	Metadata      BookMetadata `json:"metadata"`
	TOC           []TOCEntry   `json:"toc"`
	FileName      string       `json:"fileName"`
	CreatedAt     time.Time    `json:"createdAt"`
	LastReadAt    *time.Time   `json:"lastReadAt,omitempty"`
	Status        BookStatus   `json:"status"`
}

// BookMetadata holds optional descriptive fields
type BookMetadata struct {
	Publisher   string `json:"publisher,omitempty"`
	Language    string `json:"language,omitempty"`
	ISBN        string `json:"isbn,omitempty"`
	Description string `json:"description,omitempty"`
	PublishDate string `json:"publishDate,omitempty"`
}

// Merge returns m with every non-empty field of fresh applied on top
func (m BookMetadata) Merge(fresh BookMetadata) BookMetadata {
	out := m
	if fresh.Publisher != "" {
		out.Publisher = fresh.Publisher
	}
	if fresh.Language != "" {
		out.Language = fresh.Language
	}
	if fresh.ISBN != "" {
		out.ISBN = fresh.ISBN
	}
	if fresh.Description != "" {
		out.Description = fresh.Description
	}
	if fresh.PublishDate != "" {
		out.PublishDate = fresh.PublishDate
	}
	return out
}

// TOCEntry is one node of a book's table of contents
type TOCEntry struct {
	ID       string     `json:"id"`
	Label    string     `json:"label"`
	Href     string     `json:"href,omitempty"`
	Index    int        `json:"index"`
	Children []TOCEntry `json:"children,omitempty"`
}

// CountTOC returns the number of entries in a TOC forest, nested ones included
func CountTOC(entries []TOCEntry) int {
	n := 0
	for _, e := range entries {
		n += 1 + CountTOC(e.Children)
	}
	return n
}

// ChapterContent is a rendered chapter. It is never persisted.
type ChapterContent struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Index   int    `json:"index"`
}

// BookFile is the persisted raw upload of a book
type BookFile struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	LastModified time.Time `json:"lastModified"`
	Data         []byte    `json:"-"`
}

// ReadingProgress records where the reader stopped in a book
type ReadingProgress struct {
	BookID       string    `json:"bookId"`
	ChapterIndex int       `json:"chapterIndex"`
	Page         int       `json:"page"`
	Percentage   float64   `json:"percentage"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Bookmark marks a chapter with a short excerpt
type Bookmark struct {
	ID           string    `json:"id"`
	BookID       string    `json:"bookId"`
	ChapterIndex int       `json:"chapterIndex"`
	Title        string    `json:"title"`
	Excerpt      string    `json:"excerpt"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SearchResult is one keyword hit inside a chapter
type SearchResult struct {
	ChapterIndex int    `json:"chapterIndex"`
	Snippet      string `json:"snippet"`
}
