package types

import "time"

// Document is an immutable registry entry. A lookup miss yields the zero
// Document, so callers check IsZero (or an empty Title) to tell "not found"
// from "found".
type Document struct {
	Locator     string    // content-addressed storage locator, e.g. an ipfs:// URI
	Title       Title     // unique per registry
	CreatedAt   time.Time // second resolution, UTC
	Author      Identity  // administrator at the time of registration
	ContentHash Hash      // digest of the document content, not unique
	ID          uint64    // assigned from the registry sequence, starts at 1
}

func (d Document) IsZero() bool {
	return d.Locator == "" &&
		d.Title.IsZero() &&
		d.CreatedAt.IsZero() &&
		d.Author.IsZero() &&
		d.ContentHash.IsZero() &&
		d.ID == 0
}

// Call carries what the hosting environment knows about a request: who sent
// it and when. A zero Timestamp lets the registry use its own clock.
type Call struct {
	Caller    Identity
	Timestamp time.Time
}

// NormalizeTimestamp brings a timestamp to the resolution stored in a
// Document.
func NormalizeTimestamp(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Truncate(time.Second)
}
