package registry

import "github.com/i5heu/ouroboros-registry/pkg/types"

// State is everything besides the documents that a Store keeps.
type State struct {
	Administrator types.Identity
	System        types.Identity
	Sequence      uint64
}

// Store holds the record table and its secondary indexes. The Registry
// serializes all calls, so implementations do not need to be safe for
// concurrent writers, but PutDocument must be all-or-nothing.
type Store interface {
	// LoadState returns false when the store has never been initialized.
	LoadState() (State, bool, error)
	SaveState(state State) error
	PutAdministrator(id types.Identity) error

	// PutDocument writes the record, its locator, title and hash index
	// entries and advances the sequence to doc.ID.
	PutDocument(doc types.Document) error

	Document(id uint64) (types.Document, bool, error)
	IDByLocator(locator string) (uint64, bool, error)
	IDByTitle(title types.Title) (uint64, bool, error)
	IDByHash(hash types.Hash) (uint64, bool, error)

	// Documents calls fn for every record in ascending id order and stops at
	// the first error.
	Documents(fn func(types.Document) error) error

	Close() error
}
