// Package access guards privileged registry operations behind a single
// administrator identity.
package access

import (
	"errors"
	"fmt"
	"sync"

	"github.com/i5heu/ouroboros-registry/pkg/types"
)

// ErrUnauthorized is returned when a guarded operation is called by anyone
// other than the current administrator.
var ErrUnauthorized = errors.New("access: caller is not the administrator")

// Ledger persists administrator changes. A nil Ledger keeps them in memory.
type Ledger interface {
	PutAdministrator(id types.Identity) error
}

// Control tracks the administrator. It is safe for concurrent use.
type Control struct {
	mu            sync.RWMutex
	administrator types.Identity
	system        types.Identity
	ledger        Ledger
}

// Initialize makes caller the administrator. system is the identity of the
// registry itself; administration can never be handed to it.
func Initialize(caller, system types.Identity, ledger Ledger) *Control {
	return &Control{
		administrator: caller,
		system:        system,
		ledger:        ledger,
	}
}

// Restore rebuilds a Control from persisted state.
func Restore(administrator, system types.Identity, ledger Ledger) *Control {
	return Initialize(administrator, system, ledger)
}

func (c *Control) IsAdministrator(id types.Identity) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return id == c.administrator
}

// Authorize returns ErrUnauthorized unless caller is the administrator.
func (c *Control) Authorize(caller types.Identity) error {
	if !c.IsAdministrator(caller) {
		return fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	return nil
}

// TransferAdministration hands administration to newID. It reports false
// without error when newID is the system identity: the request is accepted
// but nothing changes, so callers should confirm through IsAdministrator.
func (c *Control) TransferAdministration(caller, newID types.Identity) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.administrator {
		return false, fmt.Errorf("%w: %s", ErrUnauthorized, caller)
	}
	if newID == c.system {
		return false, nil
	}

	if c.ledger != nil {
		if err := c.ledger.PutAdministrator(newID); err != nil {
			return false, fmt.Errorf("persist administrator: %w", err)
		}
	}
	c.administrator = newID
	return true, nil
}

func (c *Control) Administrator() types.Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.administrator
}

func (c *Control) System() types.Identity {
	return c.system
}
