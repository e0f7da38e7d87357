package ouroboros

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/i5heu/ouroboros-registry/internal/backup"
	"github.com/i5heu/ouroboros-registry/internal/keyValStore"
	"github.com/i5heu/ouroboros-registry/pkg/registry"
	"github.com/i5heu/ouroboros-registry/pkg/types"
	"github.com/sirupsen/logrus"
)

// OuroborosRegistry is a document registry backed by a badger ledger.
type OuroborosRegistry struct {
	*registry.Registry
	kv     *keyValStore.KeyValStore
	config Config
	log    *logrus.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

func New(conf Config) (*OuroborosRegistry, error) {
	if conf.Logger == nil {
		conf.Logger = logrus.New()
	}

	kv, err := keyValStore.NewKeyValStore(keyValStore.StoreConfig{
		Paths:            conf.Paths,
		MinimumFreeSpace: conf.MinimumFreeGB,
		Logger:           conf.Logger,
		InMemory:         conf.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating KeyValStore: %w", err)
	}

	opts := []registry.Option{registry.WithLogger(conf.Logger)}
	if !conf.System.IsZero() {
		opts = append(opts, registry.WithSystemIdentity(conf.System))
	}

	reg, err := registry.New(keyValStore.NewRegistryStore(kv), types.Call{Caller: conf.Initializer}, opts...)
	if err != nil {
		kv.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	ou := &OuroborosRegistry{
		Registry: reg,
		kv:       kv,
		config:   conf,
		log:      conf.Logger,
		cancel:   cancel,
	}

	if conf.GarbageCollectionInterval > 0 {
		kv.StartTransactionCounter(ctx, conf.GarbageCollectionInterval)
		ou.wg.Add(1)
		go ou.garbageCollection(ctx, conf.GarbageCollectionInterval)
	}

	return ou, nil
}

func (ou *OuroborosRegistry) garbageCollection(ctx context.Context, interval time.Duration) {
	defer ou.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			if err := ou.kv.Clean(); err != nil {
				ou.log.WithError(err).Error("Garbage collection failed")
				continue
			}
			ou.log.WithField("duration", time.Since(start)).Debug("Garbage collection finished")
		}
	}
}

func (ou *OuroborosRegistry) Logger() *logrus.Logger {
	return ou.log
}

// Export writes every registered document to w, see backup.Export.
func (ou *OuroborosRegistry) Export(ctx context.Context, w io.Writer) (int, error) {
	return backup.Export(ctx, w, ou.Registry)
}

// Close stops garbage collection and closes the ledger. It is safe to call
// more than once.
func (ou *OuroborosRegistry) Close() error {
	ou.closeOnce.Do(func() {
		ou.cancel()
		ou.wg.Wait()
		ou.closeErr = ou.Registry.Close()
	})
	return ou.closeErr
}
