package registry

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/i5heu/ouroboros-registry/pkg/types"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var (
	admin    = identityOf(0x01)
	stranger = identityOf(0x02)
	system   = identityOf(0xee)
	epoch    = time.Date(2024, 3, 14, 15, 9, 26, 0, time.UTC)
)

func identityOf(b byte) types.Identity {
	var id types.Identity
	for i := range id {
		id[i] = b
	}
	return id
}

func hashOf(s string) types.Hash {
	return types.Hash(sha256.Sum256([]byte(s)))
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestRegistry(t testing.TB, store Store) *Registry {
	t.Helper()
	if store == nil {
		store = NewMemoryStore()
	}
	r, err := New(store, types.Call{Caller: admin},
		WithClock(fixedClock{now: epoch}),
		WithLogger(quietLogger()),
		WithSystemIdentity(system),
	)
	require.NoError(t, err)
	return r
}

func asAdmin() types.Call    { return types.Call{Caller: admin} }
func asStranger() types.Call { return types.Call{Caller: stranger} }

func TestNew_InitializerIsAdministrator(t *testing.T) {
	r := newTestRegistry(t, nil)

	assert.True(t, r.IsAdministrator(admin))
	assert.False(t, r.IsAdministrator(stranger))
	assert.Equal(t, admin, r.Administrator())
	assert.Equal(t, system, r.SystemIdentity())
	assert.Equal(t, uint64(0), r.Sequence())
}

func TestNew_NilStore(t *testing.T) {
	_, err := New(nil, asAdmin())
	assert.Error(t, err)
}

func TestNew_RandomSystemIdentity(t *testing.T) {
	r, err := New(NewMemoryStore(), asAdmin(), WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.False(t, r.SystemIdentity().IsZero())
	assert.NotEqual(t, admin, r.SystemIdentity())
}

func TestNew_RestoresExistingState(t *testing.T) {
	store := NewMemoryStore()
	r := newTestRegistry(t, store)
	_, err := r.RegisterDocument(asAdmin(), "ipfs://a", types.MustTitle("a"), hashOf("a"))
	require.NoError(t, err)

	// the second caller must not take over an initialized store
	restored, err := New(store, asStranger(), WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.True(t, restored.IsAdministrator(admin))
	assert.False(t, restored.IsAdministrator(stranger))
	assert.Equal(t, uint64(1), restored.Sequence())
	assert.Equal(t, system, restored.SystemIdentity())

	id, err := restored.RegisterDocument(asAdmin(), "ipfs://b", types.MustTitle("b"), hashOf("b"))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)
}

func TestNew_ZeroInitializerRejected(t *testing.T) {
	store := NewMemoryStore()
	_, err := New(store, types.Call{}, WithLogger(quietLogger()))
	require.ErrorIs(t, err, ErrNoInitializer)

	_, found, err := store.LoadState()
	require.NoError(t, err)
	assert.False(t, found, "a rejected open must not write state")

	// the real administrator can still initialize afterwards
	r, err := New(store, asAdmin(), WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.True(t, r.IsAdministrator(admin))

	// restoring does not need an initializer
	restored, err := New(store, types.Call{}, WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.True(t, restored.IsAdministrator(admin))
}

func TestNew_WarnsWhenConfiguredSystemIdentityIsIgnored(t *testing.T) {
	store := NewMemoryStore()
	newTestRegistry(t, store)

	log, hook := logtest.NewNullLogger()
	restored, err := New(store, asAdmin(), WithLogger(log), WithSystemIdentity(identityOf(0x77)))
	require.NoError(t, err)
	assert.Equal(t, system, restored.SystemIdentity())

	var warned bool
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warned = true
			assert.Equal(t, identityOf(0x77), entry.Data["configured"])
			assert.Equal(t, system, entry.Data["persisted"])
		}
	}
	assert.True(t, warned)

	hook.Reset()
	_, err = New(store, asAdmin(), WithLogger(log), WithSystemIdentity(system))
	require.NoError(t, err)
	for _, entry := range hook.AllEntries() {
		assert.NotEqual(t, logrus.WarnLevel, entry.Level)
	}
}

func TestRegisterDocument_ConcurrentCallsGetDistinctIDs(t *testing.T) {
	const workers = 64
	r := newTestRegistry(t, nil)

	ids := make([]uint64, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("doc-%d", i)
			ids[i], errs[i] = r.RegisterDocument(asAdmin(), "ipfs://"+name, types.MustTitle(name), hashOf(name))
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, workers)
	for i, id := range ids {
		require.NoError(t, errs[i])
		assert.False(t, seen[id], "id %d assigned twice", id)
		seen[id] = true
		assert.GreaterOrEqual(t, id, uint64(1))
		assert.LessOrEqual(t, id, uint64(workers))
	}
	assert.Len(t, seen, workers)
	assert.Equal(t, uint64(workers), r.Sequence())

	for i, id := range ids {
		doc, err := r.FindByID(id)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ipfs://doc-%d", i), doc.Locator)
	}
}

func TestRegisterDocument_SequentialIDs(t *testing.T) {
	r := newTestRegistry(t, nil)

	for want := uint64(1); want <= 3; want++ {
		name := fmt.Sprintf("doc-%d", want)
		id, err := r.RegisterDocument(asAdmin(), "ipfs://"+name, types.MustTitle(name), hashOf(name))
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	assert.Equal(t, uint64(3), r.Sequence())
}

func TestRegisterDocument_Unauthorized(t *testing.T) {
	r := newTestRegistry(t, nil)

	_, err := r.RegisterDocument(asStranger(), "ipfs://x", types.MustTitle("x"), hashOf("x"))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, uint64(0), r.Sequence())

	doc, err := r.FindByLocator("ipfs://x")
	require.NoError(t, err)
	assert.True(t, doc.IsZero())
	doc, err = r.FindByTitle(types.MustTitle("x"))
	require.NoError(t, err)
	assert.True(t, doc.IsZero())
	doc, err = r.FindByHash(hashOf("x"))
	require.NoError(t, err)
	assert.True(t, doc.IsZero())
	doc, err = r.FindByID(1)
	require.NoError(t, err)
	assert.True(t, doc.IsZero())
}

func TestRegisterDocument_DuplicateLocator(t *testing.T) {
	r := newTestRegistry(t, nil)
	_, err := r.RegisterDocument(asAdmin(), "ipfs://same", types.MustTitle("first"), hashOf("1"))
	require.NoError(t, err)

	_, err = r.RegisterDocument(asAdmin(), "ipfs://same", types.MustTitle("second"), hashOf("2"))
	assert.ErrorIs(t, err, ErrDuplicateLocator)
	assert.Equal(t, uint64(1), r.Sequence())

	doc, err := r.FindByTitle(types.MustTitle("second"))
	require.NoError(t, err)
	assert.True(t, doc.IsZero())
	doc, err = r.FindByHash(hashOf("2"))
	require.NoError(t, err)
	assert.True(t, doc.IsZero())
}

func TestRegisterDocument_DuplicateTitle(t *testing.T) {
	r := newTestRegistry(t, nil)
	_, err := r.RegisterDocument(asAdmin(), "ipfs://one", types.MustTitle("report"), hashOf("1"))
	require.NoError(t, err)

	_, err = r.RegisterDocument(asAdmin(), "ipfs://two", types.MustTitle("report"), hashOf("2"))
	assert.ErrorIs(t, err, ErrDuplicateTitle)
	assert.Equal(t, uint64(1), r.Sequence())

	doc, err := r.FindByLocator("ipfs://two")
	require.NoError(t, err)
	assert.True(t, doc.IsZero())
}

func TestRegisterDocument_UnauthorizedCheckedFirst(t *testing.T) {
	r := newTestRegistry(t, nil)
	_, err := r.RegisterDocument(asAdmin(), "ipfs://one", types.MustTitle("one"), hashOf("1"))
	require.NoError(t, err)

	_, err = r.RegisterDocument(asStranger(), "ipfs://one", types.MustTitle("one"), hashOf("1"))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRegisterDocument_RoundTrip(t *testing.T) {
	r := newTestRegistry(t, nil)
	locator := "ipfs://bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"
	title := types.MustTitle("whitepaper")
	hash := hashOf("whitepaper contents")

	id, err := r.RegisterDocument(asAdmin(), locator, title, hash)
	require.NoError(t, err)

	want := types.Document{
		Locator:     locator,
		Title:       title,
		CreatedAt:   epoch,
		Author:      admin,
		ContentHash: hash,
		ID:          id,
	}

	byLocator, err := r.FindByLocator(locator)
	require.NoError(t, err)
	byTitle, err := r.FindByTitle(title)
	require.NoError(t, err)
	byID, err := r.FindByID(id)
	require.NoError(t, err)
	byHash, err := r.FindByHash(hash)
	require.NoError(t, err)

	for _, got := range []types.Document{byLocator, byTitle, byID, byHash} {
		assert.Equal(t, want, got)
	}
}

func TestRegisterDocument_CallTimestamp(t *testing.T) {
	r := newTestRegistry(t, nil)
	at := time.Date(2025, 1, 2, 3, 4, 5, 600, time.FixedZone("X", 3600))

	id, err := r.RegisterDocument(types.Call{Caller: admin, Timestamp: at}, "ipfs://t", types.MustTitle("t"), hashOf("t"))
	require.NoError(t, err)

	doc, err := r.FindByID(id)
	require.NoError(t, err)
	assert.True(t, doc.CreatedAt.Equal(at.Truncate(time.Second)))
	assert.Equal(t, time.UTC, doc.CreatedAt.Location())
}

func TestFind_MissReturnsZeroDocument(t *testing.T) {
	r := newTestRegistry(t, nil)
	_, err := r.RegisterDocument(asAdmin(), "ipfs://a", types.MustTitle("a"), hashOf("a"))
	require.NoError(t, err)

	for _, id := range []uint64{0, 2, 1 << 40} {
		doc, err := r.FindByID(id)
		require.NoError(t, err)
		assert.Equal(t, types.Document{}, doc, "id %d", id)

		_, found, err := r.LookupByID(id)
		require.NoError(t, err)
		assert.False(t, found)
	}

	doc, found, err := r.LookupByLocator("ipfs://missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.True(t, doc.IsZero())

	_, found, err = r.LookupByTitle(types.MustTitle("a"))
	require.NoError(t, err)
	assert.True(t, found)
}

func TestFindByHash_LatestRegistrationWins(t *testing.T) {
	r := newTestRegistry(t, nil)
	shared := hashOf("same bytes")

	first, err := r.RegisterDocument(asAdmin(), "ipfs://first", types.MustTitle("first"), shared)
	require.NoError(t, err)
	second, err := r.RegisterDocument(asAdmin(), "ipfs://second", types.MustTitle("second"), shared)
	require.NoError(t, err)

	doc, err := r.FindByHash(shared)
	require.NoError(t, err)
	assert.Equal(t, second, doc.ID)

	doc, err = r.FindByID(first)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://first", doc.Locator)
}

func TestTransferAdministration(t *testing.T) {
	r := newTestRegistry(t, nil)

	_, err := r.TransferAdministration(asStranger(), stranger)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, r.IsAdministrator(admin))

	applied, err := r.TransferAdministration(asAdmin(), system)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.True(t, r.IsAdministrator(admin))

	applied, err = r.TransferAdministration(asAdmin(), stranger)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, r.IsAdministrator(stranger))
	assert.False(t, r.IsAdministrator(admin))

	_, err = r.RegisterDocument(asAdmin(), "ipfs://old-admin", types.MustTitle("old"), hashOf("old"))
	assert.ErrorIs(t, err, ErrUnauthorized)

	id, err := r.RegisterDocument(asStranger(), "ipfs://new-admin", types.MustTitle("new"), hashOf("new"))
	require.NoError(t, err)
	doc, err := r.FindByID(id)
	require.NoError(t, err)
	assert.Equal(t, stranger, doc.Author)
}

func TestEach_OrderedByID(t *testing.T) {
	r := newTestRegistry(t, nil)
	for i := 0; i < 5; i++ {
		name := fmt.Sprintf("n%d", i)
		_, err := r.RegisterDocument(asAdmin(), name, types.MustTitle(name), hashOf(name))
		require.NoError(t, err)
	}

	var ids []uint64
	require.NoError(t, r.Each(func(doc types.Document) error {
		ids = append(ids, doc.ID)
		return nil
	}))
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, ids)

	stop := errors.New("stop")
	calls := 0
	err := r.Each(func(types.Document) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

// failingStore rejects document writes after the first one.
type failingStore struct {
	*MemoryStore
	writes int
}

func (f *failingStore) PutDocument(doc types.Document) error {
	if f.writes > 0 {
		return errors.New("ledger unavailable")
	}
	f.writes++
	return f.MemoryStore.PutDocument(doc)
}

func TestRegisterDocument_StoreFailureLeavesStateUnchanged(t *testing.T) {
	r := newTestRegistry(t, &failingStore{MemoryStore: NewMemoryStore()})

	_, err := r.RegisterDocument(asAdmin(), "ipfs://ok", types.MustTitle("ok"), hashOf("ok"))
	require.NoError(t, err)

	_, err = r.RegisterDocument(asAdmin(), "ipfs://fail", types.MustTitle("fail"), hashOf("fail"))
	assert.Error(t, err)
	assert.Equal(t, uint64(1), r.Sequence())

	doc, err := r.FindByID(2)
	require.NoError(t, err)
	assert.True(t, doc.IsZero())
}
