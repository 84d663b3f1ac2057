package models

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAnimeFilter(t *testing.T) {
	f := ParseAnimeFilter(url.Values{
		"search": {"bebop"},
		"genre":  {"Action"},
		"year":   {"1998"},
		"sort":   {"rating"},
		"page":   {"3"},
		"limit":  {"500"},
	})
	assert.Equal(t, AnimeFilter{Search: "bebop", Genre: "Action", Year: 1998, Sort: SortRating, Page: 3, Limit: 100}, f)
	assert.Equal(t, 200, f.Offset())

	f = ParseAnimeFilter(url.Values{"page": {"x"}, "sort": {"random"}})
	assert.Equal(t, AnimeFilter{Sort: SortNewest, Page: 1, Limit: 20}, f)
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, Pagination{Total: 41, Page: 1, Limit: 20, TotalPages: 3}, NewPagination(41, 1, 20))
	assert.Equal(t, 0, NewPagination(0, 1, 20).TotalPages)
	assert.Equal(t, 0, NewPagination(5, 1, 0).TotalPages)
}
