package film

import (
	"errors"
	"fmt"
)

var (
	// ErrNoListingTable is returned when the listing page has no wikitable.
	ErrNoListingTable = errors.New("listing table not found")
	// ErrNoRecords is returned when every entry failed or none were listed.
	ErrNoRecords = errors.New("no film records collected")
)

// FetchError reports a failed GET. StatusCode is zero when no response
// arrived at all.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// ItemError is the recoverable failure of one listing entry. The driver logs
// it and moves on.
type ItemError struct {
	Title string
	URL   string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("process %q (%s): %v", e.Title, e.URL, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }
