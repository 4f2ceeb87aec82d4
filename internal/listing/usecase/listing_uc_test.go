package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/repository/memory"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createCabin(t *testing.T, f *fixture, owner *domain.Account, ref string) *domain.Listing {
	t.Helper()
	f.geocoder.On("Resolve", mock.Anything, "123 Pine St").Return(pineLocation, nil).Once()
	f.artifacts.On("Put", mock.Anything, imageBlob).Return(ref, nil).Once()

	listing, err := f.listings.CreateListing(context.Background(), CreateListingInput{
		RequesterID: owner.ID,
		Title:       "Cabin",
		Description: "Quiet cabin in the woods",
		Address:     "123 Pine St",
		Image:       imageBlob,
	})
	require.NoError(t, err)
	return listing
}

func TestListingLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")
	bob := f.seedAccount(t, "bob")

	// Create: owner and reverse index are linked.
	listing := createCabin(t, f, alice, "img-1")
	assert.Equal(t, alice.ID, listing.OwnerID)
	assert.Equal(t, "img-1", listing.Image)
	assert.Equal(t, pineLocation, listing.Location)

	stored, err := f.store.Accounts().FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.True(t, stored.Owns(listing.ID))
	f.artifacts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	f.requireConsistent(t)

	// Replace the image: the old one is deleted once, after the write.
	newImage := imageBlob
	f.artifacts.On("Put", mock.Anything, newImage).Return("img-2", nil).Once()
	f.artifacts.On("Delete", mock.Anything, "img-1").Return(nil).Once().Run(func(mock.Arguments) {
		current, err := f.store.Listings().FindByID(ctx, listing.ID)
		require.NoError(t, err)
		assert.Equal(t, "img-2", current.Image, "old image deleted before the new one was committed")
	})

	updated, err := f.listings.UpdateListing(ctx, UpdateListingInput{
		ListingID:   listing.ID,
		RequesterID: alice.ID,
		Image:       &newImage,
	})
	require.NoError(t, err)
	assert.Equal(t, "img-2", updated.Image)
	f.artifacts.AssertNumberOfCalls(t, "Delete", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ArtifactsDeletedTotal.WithLabelValues(phaseOrphan)))

	// A stranger cannot delete it.
	err = f.listings.DeleteListing(ctx, listing.ID, bob.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.store.Listings().FindByID(ctx, listing.ID)
	require.NoError(t, err)
	f.artifacts.AssertNumberOfCalls(t, "Delete", 1)

	// The owner can; the reverse index shrinks and the image goes last.
	f.artifacts.On("Delete", mock.Anything, "img-2").Return(nil).Once().Run(func(mock.Arguments) {
		_, err := f.store.Listings().FindByID(ctx, listing.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound, "image deleted before the listing")
	})
	require.NoError(t, f.listings.DeleteListing(ctx, listing.ID, alice.ID))

	_, err = f.store.Listings().FindByID(ctx, listing.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	stored, err = f.store.Accounts().FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, stored.Owns(listing.ID))
	f.artifacts.AssertExpectations(t)
	f.requireConsistent(t)
}

func TestCreateListing_AbortRollsBackStagedImage(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	f := newFixtureWithStore(t, store, failingCommitStore{Store: store, err: domain.ErrStoreUnavailable})
	alice := f.seedAccount(t, "alice")

	f.geocoder.On("Resolve", mock.Anything, "123 Pine St").Return(pineLocation, nil)
	f.artifacts.On("Put", mock.Anything, imageBlob).Return("img-x", nil).Once()
	f.artifacts.On("Delete", mock.Anything, "img-x").Return(nil).Once()

	_, err := f.listings.CreateListing(ctx, CreateListingInput{
		RequesterID: alice.ID, Title: "Cabin", Description: "d", Address: "123 Pine St", Image: imageBlob,
	})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	owned, err := store.Listings().FindByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, owned)
	acc, err := store.Accounts().FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, acc.Listings)

	f.artifacts.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ArtifactsDeletedTotal.WithLabelValues(phaseRollback)))
	f.requireConsistent(t)
}

func TestCreateListing_UnknownOwner(t *testing.T) {
	f := newFixture(t)
	f.geocoder.On("Resolve", mock.Anything, "123 Pine St").Return(pineLocation, nil)
	f.artifacts.On("Put", mock.Anything, imageBlob).Return("img-x", nil).Once()
	f.artifacts.On("Delete", mock.Anything, "img-x").Return(nil).Once()

	_, err := f.listings.CreateListing(context.Background(), CreateListingInput{
		RequesterID: "ghost", Title: "Cabin", Description: "d", Address: "123 Pine St", Image: imageBlob,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.artifacts.AssertExpectations(t)
}

func TestCreateListing_UnresolvableAddressStagesNothing(t *testing.T) {
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")
	f.geocoder.On("Resolve", mock.Anything, "nowhere").Return(domain.Location{}, domain.ErrUnresolvable)

	_, err := f.listings.CreateListing(context.Background(), CreateListingInput{
		RequesterID: alice.ID, Title: "Cabin", Description: "d", Address: "nowhere", Image: imageBlob,
	})
	assert.ErrorIs(t, err, domain.ErrUnresolvable)
	f.artifacts.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCreateListing_MissingFields(t *testing.T) {
	f := newFixture(t)
	_, err := f.listings.CreateListing(context.Background(), CreateListingInput{RequesterID: "a", Title: "Cabin"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	f.geocoder.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestCreateListing_CancelledRequestStillRollsBack(t *testing.T) {
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.geocoder.On("Resolve", mock.Anything, "123 Pine St").Return(pineLocation, nil)
	f.artifacts.On("Put", mock.Anything, imageBlob).Return("img-c", nil).Once().Run(func(mock.Arguments) { cancel() })
	f.artifacts.On("Delete", mock.Anything, "img-c").Return(nil).Once().Run(func(args mock.Arguments) {
		assert.NoError(t, args.Get(0).(context.Context).Err(), "cleanup must not inherit the request cancellation")
	})

	_, err := f.listings.CreateListing(ctx, CreateListingInput{
		RequesterID: alice.ID, Title: "Cabin", Description: "d", Address: "123 Pine St", Image: imageBlob,
	})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	f.artifacts.AssertExpectations(t)
	f.requireConsistent(t)
}

func TestUpdateListing_NonOwnerChangesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")
	bob := f.seedAccount(t, "bob")
	listing := createCabin(t, f, alice, "img-1")

	title := "Stolen"
	newImage := imageBlob
	_, err := f.listings.UpdateListing(ctx, UpdateListingInput{
		ListingID: listing.ID, RequesterID: bob.ID, Title: &title, Image: &newImage,
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	stored, err := f.store.Listings().FindByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cabin", stored.Title)
	assert.Equal(t, "img-1", stored.Image)
	f.artifacts.AssertNumberOfCalls(t, "Put", 1)
	f.artifacts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUpdateListing_TextOnlyKeepsImage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")
	listing := createCabin(t, f, alice, "img-1")

	title, desc := "Lodge", "Bigger now"
	updated, err := f.listings.UpdateListing(ctx, UpdateListingInput{
		ListingID: listing.ID, RequesterID: alice.ID, Title: &title, Description: &desc,
	})
	require.NoError(t, err)
	assert.Equal(t, "Lodge", updated.Title)
	assert.Equal(t, "Bigger now", updated.Description)
	assert.Equal(t, "img-1", updated.Image)
	f.artifacts.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestUpdateListing_AddressChangeIsGeocoded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")
	listing := createCabin(t, f, alice, "img-1")

	oak := domain.Location{Lat: 1, Lng: 2}
	f.geocoder.On("Resolve", mock.Anything, "9 Oak Ave").Return(oak, nil).Once()
	addr := "9 Oak Ave"
	updated, err := f.listings.UpdateListing(ctx, UpdateListingInput{ListingID: listing.ID, RequesterID: alice.ID, Address: &addr})
	require.NoError(t, err)
	assert.Equal(t, "9 Oak Ave", updated.Address)
	assert.Equal(t, oak, updated.Location)
}

func TestUpdateListing_LostImageRaceRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")
	listing := createCabin(t, f, alice, "img-1")

	newImage := imageBlob
	f.artifacts.On("Put", mock.Anything, newImage).Return("img-2", nil).Once().Run(func(mock.Arguments) {
		// Another request replaces the image between load and write.
		other := "img-other"
		_, err := f.store.Listings().Update(ctx, listing.ID, domain.ListingPatch{Image: &other})
		require.NoError(t, err)
	})
	f.artifacts.On("Delete", mock.Anything, "img-2").Return(nil).Once()

	_, err := f.listings.UpdateListing(ctx, UpdateListingInput{ListingID: listing.ID, RequesterID: alice.ID, Image: &newImage})
	assert.ErrorIs(t, err, domain.ErrConflict)
	f.artifacts.AssertNotCalled(t, "Delete", mock.Anything, "img-1")
	f.artifacts.AssertExpectations(t)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TransactionConflictsTotal))
}

func TestDeleteListing_ConcurrentDeletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")
	listing := createCabin(t, f, alice, "img-1")
	keep := createCabin(t, f, alice, "img-keep")
	f.artifacts.On("Delete", mock.Anything, "img-1").Return(nil)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = f.listings.DeleteListing(ctx, listing.ID, alice.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	acc, err := f.store.Accounts().FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, acc.Listings)
	f.artifacts.AssertNumberOfCalls(t, "Delete", 1)
	f.requireConsistent(t)
}

func TestDeleteListing_CleanupFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")
	listing := createCabin(t, f, alice, "img-1")
	f.artifacts.On("Delete", mock.Anything, "img-1").Return(errors.New("bucket unreachable")).Once()

	require.NoError(t, f.listings.DeleteListing(ctx, listing.ID, alice.ID))

	_, err := f.store.Listings().FindByID(ctx, listing.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ArtifactCleanupFailuresTotal.WithLabelValues(phaseOrphan)))
	f.requireConsistent(t)
}

func TestGetListingsByAccountID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")

	listings, err := f.listings.GetListingsByAccountID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, listings)

	created := createCabin(t, f, alice, "img-1")
	listings, err = f.listings.GetListingsByAccountID(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, created.ID, listings[0].ID)

	_, err = f.listings.GetListingsByAccountID(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	return nil
}

func TestListingEventsPublishedAfterCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	events := &recordingPublisher{}
	f.listings.WithEvents(events)
	alice := f.seedAccount(t, "alice")

	listing := createCabin(t, f, alice, "img-1")
	f.artifacts.On("Delete", mock.Anything, "img-1").Return(nil).Once()
	require.NoError(t, f.listings.DeleteListing(ctx, listing.ID, alice.ID))

	assert.Equal(t, []string{domain.SubjectListingCreated, domain.SubjectListingDeleted}, events.subjects)
}

func TestGetListingByID_CacheFillRacingDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")
	listing := createCabin(t, f, alice, "img-1")
	f.artifacts.On("Delete", mock.Anything, "img-1").Return(nil).Once()

	cache := newMemoryCache()
	f.listings.WithCache(cache)
	reached, release := heldCacheFill(cache)

	done := make(chan error, 1)
	go func() {
		_, err := f.listings.GetListingByID(ctx, listing.ID)
		done <- err
	}()

	<-reached
	require.NoError(t, f.listings.DeleteListing(ctx, listing.ID, alice.ID))
	release()
	require.NoError(t, <-done)

	assert.False(t, cache.has(listing.ID), "deleted listing must not stay cached")
	_, err := f.listings.GetListingByID(ctx, listing.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	f.requireConsistent(t)
}

func TestGetListingByID_CacheFillRacingUpdate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")
	listing := createCabin(t, f, alice, "img-1")

	cache := newMemoryCache()
	f.listings.WithCache(cache)
	reached, release := heldCacheFill(cache)

	done := make(chan error, 1)
	go func() {
		_, err := f.listings.GetListingByID(ctx, listing.ID)
		done <- err
	}()

	<-reached
	title := "Lodge"
	_, err := f.listings.UpdateListing(ctx, UpdateListingInput{ListingID: listing.ID, RequesterID: alice.ID, Title: &title})
	require.NoError(t, err)
	release()
	require.NoError(t, <-done)

	got, err := f.listings.GetListingByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lodge", got.Title)
}

func TestGetListingByID_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")
	listing := createCabin(t, f, alice, "img-1")

	cache := newMemoryCache()
	f.listings.WithCache(cache)
	_, err := f.listings.GetListingByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.True(t, cache.has(listing.ID))
}

func TestCreateListing_ConcurrentCreatesForOneOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.seedAccount(t, "alice")

	const workers = 16
	f.geocoder.On("Resolve", mock.Anything, "123 Pine St").Return(pineLocation, nil)
	for i := 0; i < workers; i++ {
		f.artifacts.On("Put", mock.Anything, imageBlob).Return(fmt.Sprintf("img-%d", i), nil).Once()
	}
	f.artifacts.On("Delete", mock.Anything, mock.Anything).Return(nil).Maybe()

	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.listings.CreateListing(ctx, CreateListingInput{
				RequesterID: alice.ID,
				Title:       "Cabin",
				Description: "Quiet cabin in the woods",
				Address:     "123 Pine St",
				Image:       imageBlob,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConflict)
	}

	acc, err := f.store.Accounts().FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, acc.Listings, succeeded)
	assert.Len(t, f.liveRefs(t), succeeded, "every failed create must roll back its image")
	f.requireConsistent(t)
}
