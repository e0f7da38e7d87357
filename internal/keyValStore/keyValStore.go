package keyValStore

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

type StoreConfig struct {
	Paths            []string // absolute path at the moment only first path is supported
	MinimumFreeSpace int      // in GB
	Logger           *logrus.Logger
	InMemory         bool // no files are written, Paths and MinimumFreeSpace are ignored
}

type KeyValStore struct {
	config       StoreConfig
	log          *logrus.Logger
	badgerDB     *badger.DB
	readCounter  uint64
	writeCounter uint64
}

// Stats are the operation counters since the last call to ResetStats.
type Stats struct {
	Reads  uint64
	Writes uint64
}

func NewKeyValStore(config StoreConfig) (*KeyValStore, error) {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	var opts badger.Options
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := config.checkConfig(); err != nil {
			return nil, fmt.Errorf("error checking config for KeyValStore: %w", err)
		}
		opts = badger.DefaultOptions(config.Paths[0])
		opts.ValueLogFileSize = 1024 * 1024 * 100 // Set max size of each value log file to 100MB
	}
	opts.Logger = nil
	// every write is a registry commit
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("error opening badger: %w", err)
	}

	k := &KeyValStore{
		config:   config,
		log:      config.Logger,
		badgerDB: db,
	}

	if !config.InMemory {
		if err := displayDiskUsage(k.log, config.Paths); err != nil {
			db.Close()
			return nil, err
		}
	}

	return k, nil
}

// StartTransactionCounter logs operations per interval until ctx is done.
func (k *KeyValStore) StartTransactionCounter(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := k.ResetStats()
				if stats.Reads == 0 && stats.Writes == 0 {
					continue
				}
				k.log.WithFields(logrus.Fields{
					"reads":  stats.Reads,
					"writes": stats.Writes,
					"window": interval,
				}).Debug("Key value store operations")
			}
		}
	}()
}

func (k *KeyValStore) ResetStats() Stats {
	return Stats{
		Reads:  atomic.SwapUint64(&k.readCounter, 0),
		Writes: atomic.SwapUint64(&k.writeCounter, 0),
	}
}

func (k *KeyValStore) Write(key []byte, content []byte) error {
	atomic.AddUint64(&k.writeCounter, 1)

	err := k.badgerDB.Update(func(txn *badger.Txn) error {
		return txn.Set(key, content)
	})
	if err != nil {
		return fmt.Errorf("error writing key %q: %w", key, err)
	}
	return nil
}

// WriteBatch writes all pairs in one transaction: either all of them become
// visible or none does.
func (k *KeyValStore) WriteBatch(batch [][2][]byte) error {
	err := k.badgerDB.Update(func(txn *badger.Txn) error {
		for _, kv := range batch {
			atomic.AddUint64(&k.writeCounter, 1)
			if err := txn.Set(kv[0], kv[1]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("error writing batch: %w", err)
	}
	return nil
}

// Read returns badger.ErrKeyNotFound (wrapped) for missing keys.
func (k *KeyValStore) Read(key []byte) ([]byte, error) {
	atomic.AddUint64(&k.readCounter, 1)
	var value []byte
	err := k.badgerDB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error reading key %q: %w", key, err)
	}
	return value, nil
}

// ReadIfExists is Read without the not-found error.
func (k *KeyValStore) ReadIfExists(key []byte) ([]byte, bool, error) {
	value, err := k.Read(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// will return all keys and values with the given prefix, ordered by key
func (k *KeyValStore) GetItemsWithPrefix(prefix []byte) ([][][]byte, error) {
	var keysAndValues [][][]byte
	err := k.IteratePrefix(prefix, func(key, value []byte) error {
		keysAndValues = append(keysAndValues, [][]byte{key, value})
		return nil
	})
	return keysAndValues, err
}

// IteratePrefix calls fn with copies of every key and value under prefix in
// key order and stops at the first error.
func (k *KeyValStore) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	atomic.AddUint64(&k.readCounter, 1)
	return k.badgerDB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.KeyCopy(nil)
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (k *KeyValStore) Close() error {
	if err := k.Clean(); err != nil {
		k.log.WithError(err).Warn("Cleaning before close failed")
	}
	return k.badgerDB.Close()
}

// Clean syncs, flattens and garbage collects the value log. It does nothing
// for in-memory stores.
func (k *KeyValStore) Clean() error {
	if k.config.InMemory {
		return nil
	}

	err := k.badgerDB.Sync()
	if err != nil {
		return fmt.Errorf("error syncing db: %w", err)
	}

	// flatten the db
	err = k.badgerDB.Flatten(runtime.NumCPU()) // The parameter is the number of concurrent compactions
	if err != nil {
		return fmt.Errorf("error flattening db: %w", err)
	}
	k.log.Debug("DB Flattened")

	err = k.badgerDB.RunValueLogGC(0.1)
	if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
		return fmt.Errorf("error cleaning db: %w", err)
	}

	return nil
}
