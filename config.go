package ouroboros

import (
	"time"

	"github.com/i5heu/ouroboros-registry/pkg/types"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Paths         []string // only the first path is used at the moment
	MinimumFreeGB int
	// Initializer becomes administrator when the ledger is empty. It is
	// ignored when existing state is restored.
	Initializer types.Identity
	// System is the registry's own identity. Left zero, a random one is
	// generated on first open and persisted.
	System                    types.Identity
	GarbageCollectionInterval time.Duration // 0 disables periodic garbage collection
	Logger                    *logrus.Logger
	InMemory                  bool
}
