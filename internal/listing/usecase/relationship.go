package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
)

// RelationshipManager is the only writer of Account.Listings. It keeps the
// owner field of every listing and its owner's set of listing IDs in step by
// changing both inside one store transaction.
type RelationshipManager struct {
	store  domain.Store
	logger *logger.Logger
}

func NewRelationshipManager(store domain.Store, log *logger.Logger) *RelationshipManager {
	return &RelationshipManager{store: store, logger: log.Named("relationship")}
}

// CreateListing inserts the listing and links it to ownerID atomically.
func (m *RelationshipManager) CreateListing(ctx context.Context, fields domain.ListingFields, ownerID, imageRef string) (*domain.Listing, error) {
	if _, err := m.store.Accounts().FindByID(ctx, ownerID); err != nil {
		return nil, err
	}

	listing := &domain.Listing{
		Title:       fields.Title,
		Description: fields.Description,
		Address:     fields.Address,
		Location:    fields.Location,
		Image:       imageRef,
		OwnerID:     ownerID,
	}
	err := m.store.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if err := repos.Listings().Create(ctx, listing); err != nil {
			return err
		}
		if err := repos.Accounts().AddListing(ctx, ownerID, listing.ID); err != nil {
			return ownerVanished(err)
		}
		return nil
	})
	if err != nil {
		m.logger.Warn("RelationshipManager.CreateListing: transaction aborted", "owner_id", ownerID, "error", err)
		return nil, err
	}
	return listing, nil
}

// AuthorizeOwner loads the listing and checks that requesterID owns it.
func (m *RelationshipManager) AuthorizeOwner(ctx context.Context, listingID, requesterID string) (*domain.Listing, error) {
	listing, err := m.store.Listings().FindByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.OwnerID != requesterID {
		m.logger.Warn("RelationshipManager.AuthorizeOwner: requester is not the owner",
			"listing_id", listingID, "owner_id", listing.OwnerID, "requester_id", requesterID)
		return nil, domain.ErrForbidden
	}
	return listing, nil
}

// UpdateListing writes patch to an already authorized listing. A new image is
// only written if the stored image is still current.Image, so the caller may
// treat current.Image as orphaned once this returns successfully.
func (m *RelationshipManager) UpdateListing(ctx context.Context, current *domain.Listing, patch domain.ListingPatch) (*domain.Listing, error) {
	if patch.Image != nil {
		patch.IfImage = current.Image
	}
	if patch.Empty() {
		return current, nil
	}
	return m.store.Listings().Update(ctx, current.ID, patch)
}

// DeleteListing unlinks and deletes the listing atomically and returns the
// deleted record so the caller can release its image.
func (m *RelationshipManager) DeleteListing(ctx context.Context, listingID, requesterID string) (*domain.Listing, error) {
	listing, err := m.AuthorizeOwner(ctx, listingID, requesterID)
	if err != nil {
		return nil, err
	}
	if _, err := m.store.Accounts().FindByID(ctx, listing.OwnerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("owner %s of listing %s is missing: %w", listing.OwnerID, listingID, domain.ErrConflict)
		}
		return nil, err
	}

	err = m.store.WithTransaction(ctx, func(ctx context.Context, repos domain.Repositories) error {
		if err := repos.Accounts().RemoveListing(ctx, listing.OwnerID, listingID); err != nil {
			return ownerVanished(err)
		}
		return repos.Listings().Delete(ctx, listingID)
	})
	if err != nil {
		m.logger.Warn("RelationshipManager.DeleteListing: transaction aborted", "listing_id", listingID, "error", err)
		return nil, err
	}
	return listing, nil
}

// ownerVanished turns a missing owner inside a transaction into a conflict:
// the owner existed when the operation started.
func ownerVanished(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("owner removed concurrently: %w", domain.ErrConflict)
	}
	return err
}
