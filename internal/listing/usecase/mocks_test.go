package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/repository/memory"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/metrics"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockArtifactStore struct {
	mock.Mock
}

func (m *mockArtifactStore) Put(ctx context.Context, blob domain.Blob) (string, error) {
	args := m.Called(ctx, blob)
	return args.String(0), args.Error(1)
}

func (m *mockArtifactStore) Delete(ctx context.Context, ref string) error {
	return m.Called(ctx, ref).Error(0)
}

type mockGeocoder struct {
	mock.Mock
}

func (m *mockGeocoder) Resolve(ctx context.Context, address string) (domain.Location, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(domain.Location), args.Error(1)
}

type stubTokens struct{}

func (stubTokens) Issue(accountID, email string) (string, error) {
	return "token-" + accountID, nil
}

// failingCommitStore runs the transaction body and then aborts with err.
type failingCommitStore struct {
	*memory.Store
	err error
}

func (s failingCommitStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	return s.Store.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if err := fn(ctx, repos); err != nil {
			return err
		}
		return s.err
	})
}

type fixture struct {
	store     *memory.Store
	artifacts *mockArtifactStore
	geocoder  *mockGeocoder
	metrics   *metrics.Metrics
	listings  *ListingUsecase
	accounts  *AccountUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.NewStore(), nil)
}

// newFixtureWithStore wires the usecases to txStore for writes while reads
// and assertions go through the plain memory store.
func newFixtureWithStore(t *testing.T, store *memory.Store, txStore domain.Store) *fixture {
	t.Helper()
	if txStore == nil {
		txStore = store
	}
	f := &fixture{
		store:     store,
		artifacts: new(mockArtifactStore),
		geocoder:  new(mockGeocoder),
		metrics:   metrics.New("places_test"),
	}
	log := logger.NewNop()
	lifecycle := NewArtifactLifecycle(f.artifacts, log, f.metrics, time.Second)
	relations := NewRelationshipManager(txStore, log)
	f.listings = NewListingUsecase(txStore, relations, lifecycle, f.geocoder, f.metrics, log, 5*time.Second)
	f.accounts = NewAccountUsecase(txStore, lifecycle, stubTokens{}, f.metrics, log, 5*time.Second)
	return f
}

func (f *fixture) seedAccount(t *testing.T, name string) *domain.Account {
	t.Helper()
	acc := &domain.Account{Name: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, f.store.Accounts().Create(context.Background(), acc))
	return acc
}

// requireConsistent checks both directions of the owner relationship.
func (f *fixture) requireConsistent(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	accounts, err := f.store.Accounts().List(ctx)
	require.NoError(t, err)
	for _, acc := range accounts {
		for _, id := range acc.Listings {
			l, err := f.store.Listings().FindByID(ctx, id)
			require.NoError(t, err, "account %s lists missing listing %s", acc.ID, id)
			require.Equal(t, acc.ID, l.OwnerID)
		}
		owned, err := f.store.Listings().FindByOwner(ctx, acc.ID)
		require.NoError(t, err)
		require.Len(t, owned, len(acc.Listings))
		for _, l := range owned {
			require.True(t, acc.Owns(l.ID), "listing %s missing from owner %s", l.ID, acc.ID)
		}
	}
}

var (
	pineLocation = domain.Location{Lat: 40.7, Lng: -74.0}
	imageBlob    = domain.Blob{Name: "cabin.png", ContentType: "image/png", Data: []byte("png")}
)

// memoryCache is a ListingCache backed by a map. holdSet, when set, is
// called at the start of every Set before the entry is written.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]domain.Listing
	holdSet func()
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]domain.Listing{}}
}

func (c *memoryCache) Get(_ context.Context, id string) (*domain.Listing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (c *memoryCache) Set(_ context.Context, listing *domain.Listing) error {
	if c.holdSet != nil {
		c.holdSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[listing.ID] = *listing
	return nil
}

func (c *memoryCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

func (c *memoryCache) has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

// heldCacheFill makes the next Set on c wait until release is called.
// reached is closed once the Set is waiting.
func heldCacheFill(c *memoryCache) (reached <-chan struct{}, release func()) {
	reachedCh := make(chan struct{})
	releaseCh := make(chan struct{})
	var once sync.Once
	c.holdSet = func() {
		first := false
		once.Do(func() { first = true })
		if !first {
			return
		}
		close(reachedCh)
		<-releaseCh
	}
	return reachedCh, func() { close(releaseCh) }
}

// liveRefs returns the references put and never deleted, in put order.
func (f *fixture) liveRefs(t *testing.T) []string {
	t.Helper()
	deleted := map[string]bool{}
	var puts []string
	for _, call := range f.artifacts.Calls {
		switch call.Method {
		case "Put":
			puts = append(puts, call.ReturnArguments.String(0))
		case "Delete":
			deleted[call.Arguments.String(1)] = true
		}
	}
	var live []string
	for _, ref := range puts {
		if ref != "" && !deleted[ref] {
			live = append(live, ref)
		}
	}
	return live
}
