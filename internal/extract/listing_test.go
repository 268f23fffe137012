package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/film-scraper/internal/film"
)

var wikiBase = mustURL("https://en.wikipedia.org/wiki/List_of_highest-grossing_films")

func mustURL(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// row renders a listing row with the given number of td cells and row header.
func row(cells int, header string) string {
	var b strings.Builder
	b.WriteString("<tr>")
	for i := 0; i < cells; i++ {
		if i == 2 {
			b.WriteString(header)
		}
		fmt.Fprintf(&b, "<td>c%d</td>", i)
	}
	if cells <= 2 {
		b.WriteString(header)
	}
	b.WriteString("</tr>")
	return b.String()
}

func listingPage(rows ...string) []byte {
	return []byte(`<html><body>
<table class="navbox"><tr><th>nav</th></tr><tr><th scope="row"><a href="/wiki/Nav">Nav</a></th><td>1</td><td>2</td><td>3</td><td>4</td><td>5</td></tr></table>
<table class="wikitable sortable">
<tr><th>Rank</th><th>Peak</th><th>Title</th><th>Worldwide gross</th><th>Year</th><th>Ref</th></tr>
` + strings.Join(rows, "\n") + `
</table>
<table class="wikitable"><tr><th>h</th></tr><tr><th scope="row"><a href="/wiki/Second_Table">Second</a></th><td>1</td><td>2</td><td>3</td><td>4</td><td>5</td></tr></table>
</body></html>`)
}

func TestParseListingOrderedEntries(t *testing.T) {
	t.Parallel()

	html := listingPage(
		row(5, `<th scope="row"><i><a href="/wiki/Avatar_(2009_film)" title="Avatar">Avatar</a></i></th>`),
		row(6, `<th scope="row"><a href="/wiki/Avengers:_Endgame"> Avengers: Endgame </a></th>`),
		row(5, `<th scope="row"><a href="https://other.example/wiki/Titanic">Titanic</a></th>`),
	)

	entries, err := New(nil).ParseListing(html, wikiBase)
	require.NoError(t, err)
	assert.Equal(t, []film.ListingEntry{
		{Title: "Avatar", DetailURL: "https://en.wikipedia.org/wiki/Avatar_(2009_film)"},
		{Title: "Avengers: Endgame", DetailURL: "https://en.wikipedia.org/wiki/Avengers:_Endgame"},
		{Title: "Titanic", DetailURL: "https://other.example/wiki/Titanic"},
	}, entries)
}

func TestParseListingSkipsMalformedRows(t *testing.T) {
	t.Parallel()

	good := `<th scope="row"><a href="/wiki/Good">Good</a></th>`
	testCases := []struct {
		name string
		row  string
	}{
		{"four cells", row(4, good)},
		{"no cells", row(0, good)},
		{"header without scope", row(5, `<th><a href="/wiki/Bad">Bad</a></th>`)},
		{"no header", row(5, "")},
		{"header without anchor", row(5, `<th scope="row">Plain title</th>`)},
		{"anchor without href", row(5, `<th scope="row"><a>Bad</a></th>`)},
		{"empty href", row(5, `<th scope="row"><a href="  ">Bad</a></th>`)},
		{"empty title", row(5, `<th scope="row"><a href="/wiki/Bad"> </a></th>`)},
		{"unparsable href", row(5, `<th scope="row"><a href="http://[::1">Bad</a></th>`)},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			entries, err := New(nil).ParseListing(listingPage(tc.row, row(5, good)), wikiBase)
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, "Good", entries[0].Title)
		})
	}
}

func TestParseListingShortRowsNeverProduceEntries(t *testing.T) {
	t.Parallel()

	header := `<th scope="row"><a href="/wiki/Short">Short</a></th>`
	for cells := 0; cells < minDataCells; cells++ {
		entries, err := New(nil).ParseListing(listingPage(row(cells, header)), wikiBase)
		require.NoError(t, err)
		assert.Empty(t, entries, "row with %d cells", cells)
	}
}

func TestParseListingOnlyHeaderRow(t *testing.T) {
	t.Parallel()

	entries, err := New(nil).ParseListing(listingPage(), wikiBase)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseListingMissingTable(t *testing.T) {
	t.Parallel()

	_, err := New(nil).ParseListing([]byte(`<html><body><table class="infobox"><tr><td>x</td></tr></table></body></html>`), wikiBase)
	assert.True(t, errors.Is(err, film.ErrNoListingTable))

	_, err = New(nil).ParseListing(nil, wikiBase)
	assert.True(t, errors.Is(err, film.ErrNoListingTable))
}

func TestParseListingWithoutBase(t *testing.T) {
	t.Parallel()

	html := listingPage(
		row(5, `<th scope="row"><a href="/wiki/Relative">Relative</a></th>`),
		row(5, `<th scope="row"><a href="https://films.example/wiki/Absolute">Absolute</a></th>`),
	)
	entries, err := New(nil).ParseListing(html, nil)
	require.NoError(t, err)
	assert.Equal(t, []film.ListingEntry{{Title: "Absolute", DetailURL: "https://films.example/wiki/Absolute"}}, entries)
}
