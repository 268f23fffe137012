package film

import (
	"context"
	"io"
	"net/url"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// ListingParser turns listing markup into ordered entries.
type ListingParser interface {
	ParseListing(html []byte, base *url.URL) ([]ListingEntry, error)
}

// DetailParser reads the detail fields from a film page.
type DetailParser interface {
	ParseDetail(html []byte) (Details, error)
}

// RecordStore appends records to the relational store.
type RecordStore interface {
	SaveFilms(ctx context.Context, records []Record) (int64, error)
}

// SnapshotWriter replaces the JSON document with the given records and
// returns the bytes written.
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, records []Record) ([]byte, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests of written artifacts.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Sleeper pauses between detail fetches.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
