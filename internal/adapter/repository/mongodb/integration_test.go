package mongodb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore needs MONGO_TEST_URI pointing at a replica set.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set, skipping MongoDB integration test")
	}
	client, err := Connect(config.MongoConfig{URI: uri, ConnectTimeout: 10 * time.Second})
	require.NoError(t, err)

	dbName := "places_test_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		ctx := context.Background()
		_ = client.Database(dbName).Drop(ctx)
		_ = client.Disconnect(ctx)
	})

	store := NewStore(client, dbName, logger.NewNop())
	require.NoError(t, store.EnsureIndexes(context.Background()))
	return store
}

func TestIntegration_CreateAndDeleteInTransaction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := &domain.Account{Name: "Alice", Email: "alice@example.com", PasswordHash: "h"}
	require.NoError(t, store.Accounts().Create(ctx, alice))

	listing := &domain.Listing{Title: "Cabin", Image: "img-1", OwnerID: alice.ID}
	err := store.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if err := repos.Listings().Create(ctx, listing); err != nil {
			return err
		}
		return repos.Accounts().AddListing(ctx, alice.ID, listing.ID)
	})
	require.NoError(t, err)

	acc, err := store.Accounts().FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{listing.ID}, acc.Listings)

	err = store.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if err := repos.Accounts().RemoveListing(ctx, alice.ID, listing.ID); err != nil {
			return err
		}
		return repos.Listings().Delete(ctx, listing.ID)
	})
	require.NoError(t, err)

	_, err = store.Listings().FindByID(ctx, listing.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	acc, err = store.Accounts().FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, acc.Listings)
}

func TestIntegration_AbortedTransactionLeavesNoTrace(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	alice := &domain.Account{Name: "Alice", Email: "alice@example.com", PasswordHash: "h"}
	require.NoError(t, store.Accounts().Create(ctx, alice))

	err := store.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) error {
		l := &domain.Listing{Title: "Cabin", Image: "img-1", OwnerID: alice.ID}
		if err := repos.Listings().Create(ctx, l); err != nil {
			return err
		}
		if err := repos.Accounts().AddListing(ctx, alice.ID, l.ID); err != nil {
			return err
		}
		return domain.ErrConflict
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	owned, err := store.Listings().FindByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)
}

func TestIntegration_DuplicateEmailAndConditionalImage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Accounts().Create(ctx, &domain.Account{Name: "A", Email: "a@example.com"}))
	err := store.Accounts().Create(ctx, &domain.Account{Name: "B", Email: "a@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)

	owner, err := store.Accounts().FindByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	l := &domain.Listing{Title: "Cabin", Image: "img-1", OwnerID: owner.ID}
	require.NoError(t, store.Listings().Create(ctx, l))

	img2, img3 := "img-2", "img-3"
	_, err = store.Listings().Update(ctx, l.ID, domain.ListingPatch{Image: &img2, IfImage: "img-1"})
	require.NoError(t, err)
	_, err = store.Listings().Update(ctx, l.ID, domain.ListingPatch{Image: &img3, IfImage: "img-1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestIntegration_FirstAccountImageIsConditional(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	acc := &domain.Account{Name: "A", Email: "first-image@example.com"}
	require.NoError(t, store.Accounts().Create(ctx, acc))

	_, err := store.Accounts().UpdateImage(ctx, acc.ID, "avatar-1", "")
	require.NoError(t, err)
	_, err = store.Accounts().UpdateImage(ctx, acc.ID, "avatar-2", "")
	assert.ErrorIs(t, err, domain.ErrConflict)
}
