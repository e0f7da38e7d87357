package registry

import (
	"fmt"

	"github.com/i5heu/ouroboros-registry/pkg/types"
)

// The Find* lookups return the zero Document when nothing is indexed under
// the key. Existing callers rely on that; the Lookup* variants report the
// miss explicitly instead.

func (r *Registry) FindByLocator(locator string) (types.Document, error) {
	doc, _, err := r.LookupByLocator(locator)
	return doc, err
}

func (r *Registry) FindByTitle(title types.Title) (types.Document, error) {
	doc, _, err := r.LookupByTitle(title)
	return doc, err
}

func (r *Registry) FindByID(id uint64) (types.Document, error) {
	doc, _, err := r.LookupByID(id)
	return doc, err
}

func (r *Registry) FindByHash(hash types.Hash) (types.Document, error) {
	doc, _, err := r.LookupByHash(hash)
	return doc, err
}

func (r *Registry) LookupByLocator(locator string) (types.Document, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok, err := r.store.IDByLocator(locator)
	return r.resolve("locator", id, ok, err)
}

func (r *Registry) LookupByTitle(title types.Title) (types.Document, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok, err := r.store.IDByTitle(title)
	return r.resolve("title", id, ok, err)
}

func (r *Registry) LookupByID(id uint64) (types.Document, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.resolve("id", id, id != 0, nil)
}

// LookupByHash returns the most recent record registered with hash. Content
// hashes are not unique, earlier records stay reachable by their other keys.
func (r *Registry) LookupByHash(hash types.Hash) (types.Document, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok, err := r.store.IDByHash(hash)
	return r.resolve("hash", id, ok, err)
}

// resolve must be called with r.mu held.
func (r *Registry) resolve(index string, id uint64, ok bool, err error) (types.Document, bool, error) {
	if err != nil {
		return types.Document{}, false, fmt.Errorf("registry: %s index: %w", index, err)
	}
	if !ok {
		return types.Document{}, false, nil
	}
	doc, found, err := r.store.Document(id)
	if err != nil {
		return types.Document{}, false, fmt.Errorf("registry: document %d: %w", id, err)
	}
	if !found {
		return types.Document{}, false, nil
	}
	return doc, true, nil
}
