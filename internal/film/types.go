// Package film defines the records and collaborator contracts shared by the
// scraping pipeline and its adapters.
package film

import (
	"net/http"
	"time"
)

// Unknown is stored in place of any detail field the page does not carry.
const Unknown = "Unknown"

// ListingEntry is one film row taken from the listing table.
type ListingEntry struct {
	Title     string
	DetailURL string
}

// Details holds the fields read from a single detail page.
type Details struct {
	ReleaseYear string
	Director    string
	BoxOffice   string
	Country     string
}

// Record is the persisted unit. Year and gross are kept exactly as rendered.
type Record struct {
	Title       string `json:"title"`
	ReleaseYear string `json:"release_year"`
	Director    string `json:"director"`
	BoxOffice   string `json:"box_office"`
	Country     string `json:"country"`
}

// NewRecord combines a listing entry with the details scraped for it.
func NewRecord(entry ListingEntry, d Details) Record {
	return Record{
		Title:       entry.Title,
		ReleaseYear: d.ReleaseYear,
		Director:    d.Director,
		BoxOffice:   d.BoxOffice,
		Country:     d.Country,
	}
}

// Page is the result returned by a Fetcher implementation.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Outcome is what processing a single listing entry produced: either a
// Record or an ItemError, never both.
type Outcome struct {
	Entry  ListingEntry
	Record Record
	Err    *ItemError
}

// OK reports whether the entry yielded a record.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// RunSummary describes a completed run. It is published as the completion
// notification when a publisher is configured.
type RunSummary struct {
	RunID          string    `json:"run_id"`
	ListingURL     string    `json:"listing_url"`
	Entries        int       `json:"entries"`
	Films          int       `json:"films"`
	Skipped        int       `json:"skipped"`
	RowsInserted   int64     `json:"rows_inserted"`
	SnapshotSHA256 string    `json:"snapshot_sha256,omitempty"`
	FinishedAt     time.Time `json:"finished_at"`
}
