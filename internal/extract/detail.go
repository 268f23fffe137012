package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/film-scraper/internal/film"
)

// Infobox labels, matched against the full header text.
const (
	labelDirector  = "Directed by"
	labelBoxOffice = "Box office"
	labelCountry   = "Country"
)

// ParseDetail reads the release date, director, gross and country of one
// film page. Absent fields come back as film.Unknown.
func (p *Parser) ParseDetail(html []byte) (film.Details, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return film.Details{}, err
	}
	return film.Details{
		ReleaseYear: orUnknown(releaseDate(doc)),
		Director:    orUnknown(joinedCell(doc, labelDirector)),
		BoxOffice:   orUnknown(plainCell(doc, labelBoxOffice)),
		Country:     orUnknown(joinedCell(doc, labelCountry)),
	}, nil
}

// releaseDate reads the hCard-style span.bday the infobox uses for the
// release date.
func releaseDate(doc *goquery.Document) (string, bool) {
	span := doc.Find("span.bday").First()
	if span.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(span.Text()), true
}

// labelCell returns the td following the first th whose text is label.
func labelCell(doc *goquery.Document, label string) (*goquery.Selection, bool) {
	header := doc.Find("th").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Text() == label
	}).First()
	if header.Length() == 0 {
		return nil, false
	}
	cell := header.NextAllFiltered("td").First()
	if cell.Length() == 0 {
		return nil, false
	}
	return cell, true
}

// joinedCell joins the cell's link texts with ", ", falling back to the
// cell text when that join is empty.
func joinedCell(doc *goquery.Document, label string) (string, bool) {
	cell, ok := labelCell(doc, label)
	if !ok {
		return "", false
	}
	var names []string
	cell.Find("a").Each(func(_ int, a *goquery.Selection) {
		names = append(names, strings.TrimSpace(a.Text()))
	})
	if joined := strings.Join(names, ", "); joined != "" {
		return joined, true
	}
	return strings.TrimSpace(cell.Text()), true
}

func plainCell(doc *goquery.Document, label string) (string, bool) {
	cell, ok := labelCell(doc, label)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(cell.Text()), true
}

func orUnknown(v string, ok bool) string {
	if !ok {
		return film.Unknown
	}
	return v
}
