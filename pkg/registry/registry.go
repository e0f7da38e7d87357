// Package registry is an access-controlled document registry. A single
// administrator registers documents, anyone can look them up by locator,
// title, id or content hash. Records are immutable and locators and titles
// are unique for the lifetime of the registry.
//
// Every public operation runs inside one critical section, so the duplicate
// checks, the sequence increment, the timestamp and the store commit of a
// registration are observed as a single step.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/i5heu/ouroboros-registry/pkg/access"
	"github.com/i5heu/ouroboros-registry/pkg/types"
	"github.com/sirupsen/logrus"
)

var (
	// ErrUnauthorized is returned for guarded operations called by anyone but
	// the administrator.
	ErrUnauthorized = access.ErrUnauthorized

	// ErrDuplicateLocator is returned when a record is already indexed under
	// the locator.
	ErrDuplicateLocator = errors.New("registry: locator already registered")

	// ErrDuplicateTitle is returned when a record is already indexed under
	// the title.
	ErrDuplicateTitle = errors.New("registry: title already registered")

	// ErrNoInitializer is returned when an empty store would be initialized
	// without a caller to become administrator.
	ErrNoInitializer = errors.New("registry: empty store needs a non-zero initializer")
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Option configures a Registry.
type Option func(*Registry)

func WithClock(c Clock) Option {
	return func(r *Registry) { r.clock = c }
}

func WithLogger(log *logrus.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// WithSystemIdentity sets the registry's own identity when a store is
// initialized. It is ignored when state is restored.
func WithSystemIdentity(id types.Identity) Option {
	return func(r *Registry) { r.system = id }
}

type Registry struct {
	mu       sync.RWMutex
	store    Store
	access   *access.Control
	sequence uint64
	system   types.Identity
	clock    Clock
	log      *logrus.Logger
}

// New opens a registry on store. A fresh store is initialized with
// call.Caller as administrator; a store that already holds state is
// restored and call is ignored. A fresh store is never initialized by the
// zero identity.
func New(store Store, call types.Call, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, errors.New("registry: store is nil")
	}

	r := &Registry{
		store: store,
		clock: realClock{},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logrus.New()
	}
	configuredSystem := r.system

	state, found, err := store.LoadState()
	if err != nil {
		return nil, fmt.Errorf("registry: load state: %w", err)
	}

	if found {
		if !configuredSystem.IsZero() && configuredSystem != state.System {
			r.log.WithFields(logrus.Fields{
				"configured": configuredSystem,
				"persisted":  state.System,
			}).Warn("Configured system identity ignored, keeping the persisted one")
		}
		r.sequence = state.Sequence
		r.system = state.System
		r.access = access.Restore(state.Administrator, state.System, store)
		r.log.WithFields(logrus.Fields{
			"administrator": state.Administrator,
			"sequence":      state.Sequence,
		}).Info("Registry restored")
		return r, nil
	}

	if call.Caller.IsZero() {
		return nil, ErrNoInitializer
	}
	if r.system.IsZero() {
		r.system, err = types.NewRandomIdentity()
		if err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
	}
	state = State{
		Administrator: call.Caller,
		System:        r.system,
	}
	if err := store.SaveState(state); err != nil {
		return nil, fmt.Errorf("registry: save state: %w", err)
	}
	r.access = access.Initialize(call.Caller, r.system, store)
	r.log.WithFields(logrus.Fields{
		"administrator": call.Caller,
		"system":        r.system,
	}).Info("Registry initialized")

	return r, nil
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Close()
}

func (r *Registry) IsAdministrator(id types.Identity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.access.IsAdministrator(id)
}

func (r *Registry) Administrator() types.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.access.Administrator()
}

func (r *Registry) SystemIdentity() types.Identity {
	return r.system
}

// TransferAdministration hands administration to newID. Transferring to the
// registry's system identity is accepted but changes nothing, the returned
// bool tells whether the administrator was replaced.
func (r *Registry) TransferAdministration(call types.Call, newID types.Identity) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	applied, err := r.access.TransferAdministration(call.Caller, newID)
	if err != nil {
		return false, err
	}

	fields := logrus.Fields{"from": call.Caller, "to": newID}
	if !applied {
		r.log.WithFields(fields).Warn("Administration transfer to system identity ignored")
		return false, nil
	}
	r.log.WithFields(fields).Info("Administration transferred")
	return true, nil
}

// RegisterDocument stores a new immutable record and returns its id.
func (r *Registry) RegisterDocument(call types.Call, locator string, title types.Title, contentHash types.Hash) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.access.Authorize(call.Caller); err != nil {
		return 0, err
	}

	_, taken, err := r.store.IDByLocator(locator)
	if err != nil {
		return 0, fmt.Errorf("registry: locator index: %w", err)
	}
	if taken {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateLocator, locator)
	}

	_, taken, err = r.store.IDByTitle(title)
	if err != nil {
		return 0, fmt.Errorf("registry: title index: %w", err)
	}
	if taken {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateTitle, title.String())
	}

	timestamp := call.Timestamp
	if timestamp.IsZero() {
		timestamp = r.clock.Now()
	}

	doc := types.Document{
		Locator:     locator,
		Title:       title,
		CreatedAt:   types.NormalizeTimestamp(timestamp),
		Author:      call.Caller,
		ContentHash: contentHash,
		ID:          r.sequence + 1,
	}
	if err := r.store.PutDocument(doc); err != nil {
		return 0, fmt.Errorf("registry: put document: %w", err)
	}
	r.sequence = doc.ID

	r.log.WithFields(logrus.Fields{
		"id":      doc.ID,
		"locator": doc.Locator,
		"title":   doc.Title.String(),
		"hash":    doc.ContentHash,
	}).Info("Document registered")

	return doc.ID, nil
}

// Sequence is the id of the last registered document, 0 when empty.
func (r *Registry) Sequence() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sequence
}

// Each calls fn for every record in id order.
func (r *Registry) Each(fn func(types.Document) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store.Documents(fn)
}
