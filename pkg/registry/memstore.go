package registry

import (
	"sync"

	"github.com/i5heu/ouroboros-registry/pkg/types"
)

// MemoryStore keeps records in maps. Nothing survives Close.
type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	state       State
	documents   map[uint64]types.Document
	byLocator   map[string]uint64
	byTitle     map[types.Title]uint64
	byHash      map[types.Hash]uint64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents: make(map[uint64]types.Document),
		byLocator: make(map[string]uint64),
		byTitle:   make(map[types.Title]uint64),
		byHash:    make(map[types.Hash]uint64),
	}
}

func (m *MemoryStore) LoadState() (State, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.initialized, nil
}

func (m *MemoryStore) SaveState(state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.initialized = true
	return nil
}

func (m *MemoryStore) PutAdministrator(id types.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Administrator = id
	return nil
}

func (m *MemoryStore) PutDocument(doc types.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = doc
	m.byLocator[doc.Locator] = doc.ID
	m.byTitle[doc.Title] = doc.ID
	m.byHash[doc.ContentHash] = doc.ID
	m.state.Sequence = doc.ID
	return nil
}

func (m *MemoryStore) Document(id uint64) (types.Document, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.documents[id]
	return doc, ok, nil
}

func (m *MemoryStore) IDByLocator(locator string) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byLocator[locator]
	return id, ok, nil
}

func (m *MemoryStore) IDByTitle(title types.Title) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byTitle[title]
	return id, ok, nil
}

func (m *MemoryStore) IDByHash(hash types.Hash) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byHash[hash]
	return id, ok, nil
}

func (m *MemoryStore) Documents(fn func(types.Document) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// ids are dense, 1..Sequence
	for id := uint64(1); id <= m.state.Sequence; id++ {
		doc, ok := m.documents[id]
		if !ok {
			continue
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
