package library

import (
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/unalkalkan/bookshelf/pkg/types"
)

// Filter narrows the library to one reading status
type Filter string

// SortBy orders the library
type SortBy string

const (
	FilterAll Filter = "all"

	SortRecent SortBy = "recent"
	SortTitle  SortBy = "title"
	SortAuthor SortBy = "author"
)

var collationTag = language.MustParse("zh-Hans-CN")

// ParseFilter maps a query value to a Filter. Unknown values mean all.
func ParseFilter(s string) Filter {
	if types.BookStatus(s).Valid() {
		return Filter(s)
	}
	return FilterAll
}

// ParseSortBy maps a query value to a SortBy. Unknown values mean recent.
func ParseSortBy(s string) SortBy {
	switch SortBy(s) {
	case SortTitle, SortAuthor:
		return SortBy(s)
	}
	return SortRecent
}

// FilterAndSort returns the books matching filter in the requested order.
// Title and author use Chinese collation, recent puts the most recently
// read or added book first. The input slice is left untouched.
func FilterAndSort(books []*types.Book, filter Filter, sortBy SortBy) []*types.Book {
	out := make([]*types.Book, 0, len(books))
	for _, b := range books {
		if filter == FilterAll || filter == "" || string(b.Status) == string(filter) {
			out = append(out, b)
		}
	}

	switch sortBy {
	case SortTitle, SortAuthor:
		c := collate.New(collationTag)
		key := func(b *types.Book) string {
			if sortBy == SortAuthor {
				return b.Author
			}
			return b.Title
		}
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(key(out[i]), key(out[j])) < 0
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return recency(out[i]).After(recency(out[j]))
		})
	}
	return out
}

func recency(b *types.Book) time.Time {
	if b.LastReadAt != nil {
		return *b.LastReadAt
	}
	return b.CreatedAt
}
