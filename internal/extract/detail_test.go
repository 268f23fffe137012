package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/film-scraper/internal/film"
)

func detailPage(body string) []byte {
	return []byte(`<html><body><table class="infobox vevent"><tbody>` + body + `</tbody></table></body></html>`)
}

func TestParseDetailFullInfobox(t *testing.T) {
	t.Parallel()

	html := detailPage(`
<tr><th colspan="2" class="infobox-above">Avatar</th></tr>
<tr><th scope="row" class="infobox-label">Directed by</th><td class="infobox-data"><a href="/wiki/James_Cameron"> James Cameron </a></td></tr>
<tr><th scope="row" class="infobox-label">Release dates</th><td class="infobox-data"><ul><li>December 10, 2009<span style="display:none"> (<span class="bday dtstart published updated">2009-12-10</span>)</span></li></ul></td></tr>
<tr><th scope="row" class="infobox-label">Countries</th><td class="infobox-data">United States</td></tr>
<tr><th scope="row" class="infobox-label">Country</th><td class="infobox-data"><a href="/wiki/United_States">United States</a><br><a href="/wiki/United_Kingdom">United Kingdom</a></td></tr>
<tr><th scope="row" class="infobox-label">Box office</th><td class="infobox-data">$2.923&#160;billion<sup class="reference"><a href="#cite_note-1">[1]</a></sup></td></tr>
`)

	got, err := New(nil).ParseDetail(html)
	require.NoError(t, err)
	want := film.Details{
		ReleaseYear: "2009-12-10",
		Director:    "James Cameron",
		BoxOffice:   "$2.923\u00a0billion[1]",
		Country:     "United States, United Kingdom",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ParseDetail mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDetailMissingFieldsUseSentinel(t *testing.T) {
	t.Parallel()

	got, err := New(nil).ParseDetail(detailPage(`<tr><th>Running time</th><td>162 minutes</td></tr>`))
	require.NoError(t, err)
	assert.Equal(t, film.Details{
		ReleaseYear: film.Unknown,
		Director:    film.Unknown,
		BoxOffice:   film.Unknown,
		Country:     film.Unknown,
	}, got)
}

func TestParseDetailJoinOrFallback(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		row  string
		want string
	}{
		{"one anchor", `<tr><th>Directed by</th><td><a href="/a">Jane Doe</a></td></tr>`, "Jane Doe"},
		{"many anchors in order", `<tr><th>Directed by</th><td><div class="plainlist"><ul><li><a href="/r">Anthony Russo</a></li><li><a href="/j"> Joe Russo</a></li></ul></div></td></tr>`, "Anthony Russo, Joe Russo"},
		{"no anchors", `<tr><th>Directed by</th><td>  Jane Doe  </td></tr>`, "Jane Doe"},
		{"anchors with empty text", `<tr><th>Directed by</th><td><a href="/x"> </a>Alan Smithee</td></tr>`, "Alan Smithee"},
		{"header without cell", `<tr><th>Directed by</th></tr>`, film.Unknown},
		{"label not exact", `<tr><th>Directed by:</th><td><a href="/a">Jane Doe</a></td></tr>`, film.Unknown},
		{"cell precedes header", `<tr><td><a href="/a">Jane Doe</a></td><th>Directed by</th></tr>`, film.Unknown},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := New(nil).ParseDetail(detailPage(tc.row))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Director)
		})
	}
}

func TestParseDetailBoxOfficeIsVerbatim(t *testing.T) {
	t.Parallel()

	got, err := New(nil).ParseDetail(detailPage(`<tr><th>Box office</th><td> <a href="/usd">$100 million</a> </td></tr>`))
	require.NoError(t, err)
	assert.Equal(t, "$100 million", got.BoxOffice)

	got, err = New(nil).ParseDetail(detailPage(`<tr><th>Box office</th></tr>`))
	require.NoError(t, err)
	assert.Equal(t, film.Unknown, got.BoxOffice)
}

func TestParseDetailFirstBirthdaySpanWins(t *testing.T) {
	t.Parallel()

	got, err := New(nil).ParseDetail([]byte(`<p><span class="bday"> 1999-05-01 </span><span class="bday">2001-01-01</span></p>`))
	require.NoError(t, err)
	assert.Equal(t, "1999-05-01", got.ReleaseYear)

	got, err = New(nil).ParseDetail([]byte(`<p><span class="dtstart">1999</span></p>`))
	require.NoError(t, err)
	assert.Equal(t, film.Unknown, got.ReleaseYear)
}
