package keyValStore

import (
	"encoding/binary"
	"fmt"

	"github.com/i5heu/ouroboros-registry/internal/binaryCoder"
	"github.com/i5heu/ouroboros-registry/pkg/registry"
	"github.com/i5heu/ouroboros-registry/pkg/types"
)

// Key layout. Document ids are big-endian so prefix iteration yields them in
// id order.
var (
	prefixDocument = []byte("Doc:")
	prefixLocator  = []byte("Locator:")
	prefixTitle    = []byte("Title:")
	prefixHash     = []byte("Hash:")

	keyAdministrator = []byte("Meta:administrator")
	keySystem        = []byte("Meta:system")
	keySequence      = []byte("Meta:sequence")
)

// RegistryStore persists registry state in a KeyValStore.
type RegistryStore struct {
	kv *KeyValStore
}

var _ registry.Store = (*RegistryStore)(nil)

func NewRegistryStore(kv *KeyValStore) *RegistryStore {
	return &RegistryStore{kv: kv}
}

func (rs *RegistryStore) KV() *KeyValStore {
	return rs.kv
}

func documentKey(id uint64) []byte {
	return binary.BigEndian.AppendUint64(append([]byte{}, prefixDocument...), id)
}

func locatorKey(locator string) []byte {
	return append(append([]byte{}, prefixLocator...), locator...)
}

func titleKey(title types.Title) []byte {
	return append(append([]byte{}, prefixTitle...), title[:]...)
}

func hashKey(hash types.Hash) []byte {
	return append(append([]byte{}, prefixHash...), hash[:]...)
}

func encodeID(id uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, id)
}

func decodeID(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, fmt.Errorf("invalid id length %d", len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}

func (rs *RegistryStore) LoadState() (registry.State, bool, error) {
	var state registry.State

	admin, found, err := rs.kv.ReadIfExists(keyAdministrator)
	if err != nil || !found {
		return state, false, err
	}
	if err := state.Administrator.IdentityFromBytes(admin); err != nil {
		return state, false, fmt.Errorf("administrator: %w", err)
	}

	system, found, err := rs.kv.ReadIfExists(keySystem)
	if err != nil {
		return state, false, err
	}
	if found {
		if err := state.System.IdentityFromBytes(system); err != nil {
			return state, false, fmt.Errorf("system identity: %w", err)
		}
	}

	sequence, found, err := rs.kv.ReadIfExists(keySequence)
	if err != nil {
		return state, false, err
	}
	if found {
		if state.Sequence, err = decodeID(sequence); err != nil {
			return state, false, fmt.Errorf("sequence: %w", err)
		}
	}

	return state, true, nil
}

func (rs *RegistryStore) SaveState(state registry.State) error {
	return rs.kv.WriteBatch([][2][]byte{
		{keySystem, state.System.Bytes()},
		{keySequence, encodeID(state.Sequence)},
		{keyAdministrator, state.Administrator.Bytes()},
	})
}

func (rs *RegistryStore) PutAdministrator(id types.Identity) error {
	return rs.kv.Write(keyAdministrator, id.Bytes())
}

func (rs *RegistryStore) PutDocument(doc types.Document) error {
	id := encodeID(doc.ID)
	return rs.kv.WriteBatch([][2][]byte{
		{documentKey(doc.ID), binaryCoder.DocumentToByte(doc)},
		{locatorKey(doc.Locator), id},
		{titleKey(doc.Title), id},
		{hashKey(doc.ContentHash), id},
		{keySequence, id},
	})
}

func (rs *RegistryStore) Document(id uint64) (types.Document, bool, error) {
	raw, found, err := rs.kv.ReadIfExists(documentKey(id))
	if err != nil || !found {
		return types.Document{}, false, err
	}
	doc, err := binaryCoder.ByteToDocument(raw)
	if err != nil {
		return types.Document{}, false, err
	}
	return doc, true, nil
}

func (rs *RegistryStore) lookupID(key []byte) (uint64, bool, error) {
	raw, found, err := rs.kv.ReadIfExists(key)
	if err != nil || !found {
		return 0, false, err
	}
	id, err := decodeID(raw)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (rs *RegistryStore) IDByLocator(locator string) (uint64, bool, error) {
	return rs.lookupID(locatorKey(locator))
}

func (rs *RegistryStore) IDByTitle(title types.Title) (uint64, bool, error) {
	return rs.lookupID(titleKey(title))
}

func (rs *RegistryStore) IDByHash(hash types.Hash) (uint64, bool, error) {
	return rs.lookupID(hashKey(hash))
}

func (rs *RegistryStore) Documents(fn func(types.Document) error) error {
	return rs.kv.IteratePrefix(prefixDocument, func(_, value []byte) error {
		doc, err := binaryCoder.ByteToDocument(value)
		if err != nil {
			return err
		}
		return fn(doc)
	})
}

func (rs *RegistryStore) Close() error {
	return rs.kv.Close()
}
