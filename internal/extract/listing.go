package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/film-scraper/internal/film"
)

// minDataCells is the number of td cells a ranked film row carries.
const minDataCells = 5

// ParseListing returns the films listed in the first wikitable, in row order.
// Rows that are too short or lack a linked row header are dropped silently.
func (p *Parser) ParseListing(html []byte, base *url.URL) ([]film.ListingEntry, error) {
	doc, err := parseDocument(html)
	if err != nil {
		return nil, err
	}
	table := doc.Find("table.wikitable").First()
	if table.Length() == 0 {
		return nil, film.ErrNoListingTable
	}

	var entries []film.ListingEntry
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		entry, ok := listingEntry(row, base)
		if !ok {
			p.logger.Debug("listing row skipped", zap.Int("row", i))
			return
		}
		entries = append(entries, entry)
	})
	return entries, nil
}

func listingEntry(row *goquery.Selection, base *url.URL) (film.ListingEntry, bool) {
	if row.Find("td").Length() < minDataCells {
		return film.ListingEntry{}, false
	}
	header := row.Find(`th[scope="row"]`).First()
	if header.Length() == 0 {
		return film.ListingEntry{}, false
	}
	anchor := header.Find("a").First()
	if anchor.Length() == 0 {
		return film.ListingEntry{}, false
	}
	title := strings.TrimSpace(anchor.Text())
	if title == "" {
		return film.ListingEntry{}, false
	}
	href, ok := anchor.Attr("href")
	if !ok {
		return film.ListingEntry{}, false
	}
	detailURL, ok := resolve(base, href)
	if !ok {
		return film.ListingEntry{}, false
	}
	return film.ListingEntry{Title: title, DetailURL: detailURL}, true
}

// resolve makes href absolute against base. Without a base only absolute
// links are accepted.
func resolve(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme == "" || ref.Host == "" {
		return "", false
	}
	return ref.String(), true
}
