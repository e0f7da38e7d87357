package keyValStore

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestStore(t *testing.T) *KeyValStore {
	t.Helper()
	kv, err := NewKeyValStore(StoreConfig{InMemory: true, Logger: quietLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestStoreConfig_CheckConfig(t *testing.T) {
	err := (&StoreConfig{}).checkConfig()
	assert.ErrorIs(t, err, ErrNoPath)

	err = (&StoreConfig{Paths: []string{filepath.Join(t.TempDir(), "missing")}}).checkConfig()
	assert.ErrorIs(t, err, ErrPathNotExist)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))
	err = (&StoreConfig{Paths: []string{file}}).checkConfig()
	assert.ErrorIs(t, err, ErrPathNotDir)

	err = (&StoreConfig{Paths: []string{t.TempDir()}, MinimumFreeSpace: 1 << 30}).checkConfig()
	assert.ErrorIs(t, err, ErrNotEnoughSpace)

	assert.NoError(t, (&StoreConfig{Paths: []string{t.TempDir()}}).checkConfig())
}

func TestKeyValStore_ReadWrite(t *testing.T) {
	kv := newTestStore(t)

	require.NoError(t, kv.Write([]byte("key"), []byte("value")))
	value, err := kv.Read([]byte("key"))
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), value)

	_, err = kv.Read([]byte("missing"))
	assert.ErrorIs(t, err, badger.ErrKeyNotFound)

	value, found, err := kv.ReadIfExists([]byte("missing"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)

	stats := kv.ResetStats()
	assert.Equal(t, uint64(1), stats.Writes)
	assert.Equal(t, uint64(3), stats.Reads)
	assert.Equal(t, Stats{}, kv.ResetStats())
}

func TestKeyValStore_WriteBatchAndPrefix(t *testing.T) {
	kv := newTestStore(t)

	require.NoError(t, kv.WriteBatch([][2][]byte{
		{[]byte("p:2"), []byte("two")},
		{[]byte("p:1"), []byte("one")},
		{[]byte("q:1"), []byte("other")},
	}))

	items, err := kv.GetItemsWithPrefix([]byte("p:"))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, []byte("p:1"), items[0][0])
	assert.Equal(t, []byte("one"), items[0][1])
	assert.Equal(t, []byte("p:2"), items[1][0])
}

func TestKeyValStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	kv, err := NewKeyValStore(StoreConfig{Paths: []string{dir}, Logger: quietLogger()})
	require.NoError(t, err)
	require.NoError(t, kv.Write([]byte("durable"), []byte("yes")))
	require.NoError(t, kv.Close())

	kv, err = NewKeyValStore(StoreConfig{Paths: []string{dir}, Logger: quietLogger()})
	require.NoError(t, err)
	defer kv.Close()

	value, err := kv.Read([]byte("durable"))
	require.NoError(t, err)
	assert.Equal(t, []byte("yes"), value)
	assert.NoError(t, kv.Clean())
}
