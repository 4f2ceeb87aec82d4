package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "places-service/usecase"

type CreateListingInput struct {
	RequesterID string
	Title       string
	Description string
	Address     string
	Image       domain.Blob
}

// UpdateListingInput carries the fields to change. Nil means unchanged.
type UpdateListingInput struct {
	ListingID   string
	RequesterID string
	Title       *string
	Description *string
	Address     *string
	Image       *domain.Blob
}

type ListingUsecase struct {
	store     domain.Store
	relations *RelationshipManager
	artifacts *ArtifactLifecycle
	geocoder  domain.Geocoder

	cache    ListingCache
	events   EventPublisher
	notifier Notifier

	metrics   *metrics.Metrics
	logger    *logger.Logger
	tracer    trace.Tracer
	opTimeout time.Duration
}

func NewListingUsecase(
	store domain.Store,
	relations *RelationshipManager,
	artifacts *ArtifactLifecycle,
	geocoder domain.Geocoder,
	m *metrics.Metrics,
	log *logger.Logger,
	opTimeout time.Duration,
) *ListingUsecase {
	return &ListingUsecase{
		store:     store,
		relations: relations,
		artifacts: artifacts,
		geocoder:  geocoder,
		metrics:   m,
		logger:    log.Named("listing"),
		tracer:    otel.Tracer(tracerName),
		opTimeout: opTimeout,
	}
}

// WithCache, WithEvents and WithNotifier attach optional integrations.
func (uc *ListingUsecase) WithCache(c ListingCache) *ListingUsecase {
	uc.cache = c
	return uc
}

func (uc *ListingUsecase) WithEvents(p EventPublisher) *ListingUsecase {
	uc.events = p
	return uc
}

func (uc *ListingUsecase) WithNotifier(n Notifier) *ListingUsecase {
	uc.notifier = n
	return uc
}

func (uc *ListingUsecase) CreateListing(ctx context.Context, in CreateListingInput) (listing *domain.Listing, err error) {
	ctx, cancel := withOpTimeout(ctx, uc.opTimeout)
	defer cancel()
	ctx, span := uc.tracer.Start(ctx, "ListingUsecase.CreateListing", trace.WithAttributes(attribute.String("requester_id", in.RequesterID)))
	defer func() { endSpan(span, err) }()

	uc.logger.Info("ListingUsecase.CreateListing: creating listing", "owner_id", in.RequesterID, "title", in.Title)

	if blank(in.Title) || blank(in.Description) || blank(in.Address) || len(in.Image.Data) == 0 {
		return nil, fmt.Errorf("title, description, address and image are required: %w", domain.ErrInvalidInput)
	}

	location, err := uc.geocoder.Resolve(ctx, in.Address)
	if err != nil {
		uc.logger.Warn("ListingUsecase.CreateListing: failed to resolve address", "address", in.Address, "error", err)
		return nil, err
	}

	ref, err := uc.artifacts.StageNew(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	listing, err = uc.relations.CreateListing(ctx, domain.ListingFields{
		Title:       in.Title,
		Description: in.Description,
		Address:     in.Address,
		Location:    location,
	}, in.RequesterID, ref)
	if err != nil {
		uc.artifacts.RollbackStaged(ctx, ref)
		uc.countConflict(err)
		uc.logger.Error("ListingUsecase.CreateListing: failed to create listing", "owner_id", in.RequesterID, "error", err)
		return nil, err
	}

	uc.metrics.ListingsCreatedTotal.Inc()
	uc.logger.Info("ListingUsecase.CreateListing: listing created", "listing_id", listing.ID, "owner_id", listing.OwnerID)

	uc.fillCache(ctx, listing)
	uc.publish(ctx, domain.SubjectListingCreated, listing)
	uc.notifyCreated(ctx, listing)
	return listing, nil
}

func (uc *ListingUsecase) UpdateListing(ctx context.Context, in UpdateListingInput) (updated *domain.Listing, err error) {
	ctx, cancel := withOpTimeout(ctx, uc.opTimeout)
	defer cancel()
	ctx, span := uc.tracer.Start(ctx, "ListingUsecase.UpdateListing", trace.WithAttributes(attribute.String("listing_id", in.ListingID)))
	defer func() { endSpan(span, err) }()

	uc.logger.Info("ListingUsecase.UpdateListing: updating listing", "listing_id", in.ListingID, "requester_id", in.RequesterID)

	if (in.Title != nil && blank(*in.Title)) || (in.Description != nil && blank(*in.Description)) || (in.Address != nil && blank(*in.Address)) {
		return nil, fmt.Errorf("fields may not be set to empty values: %w", domain.ErrInvalidInput)
	}

	current, err := uc.relations.AuthorizeOwner(ctx, in.ListingID, in.RequesterID)
	if err != nil {
		return nil, err
	}

	patch := domain.ListingPatch{Title: in.Title, Description: in.Description}
	if in.Address != nil && *in.Address != current.Address {
		location, err := uc.geocoder.Resolve(ctx, *in.Address)
		if err != nil {
			uc.logger.Warn("ListingUsecase.UpdateListing: failed to resolve address", "address", *in.Address, "error", err)
			return nil, err
		}
		patch.Address = in.Address
		patch.Location = &location
	}

	var staged string
	if in.Image != nil {
		if staged, err = uc.artifacts.StageNew(ctx, *in.Image); err != nil {
			return nil, err
		}
		patch.Image = &staged
	}

	updated, err = uc.relations.UpdateListing(ctx, current, patch)
	if err != nil {
		uc.artifacts.RollbackStaged(ctx, staged)
		uc.countConflict(err)
		uc.logger.Error("ListingUsecase.UpdateListing: failed to update listing", "listing_id", in.ListingID, "error", err)
		return nil, err
	}
	if staged != "" {
		uc.artifacts.CommitOrphan(ctx, current.Image)
	}

	uc.metrics.ListingsUpdatedTotal.Inc()
	uc.cacheDelete(ctx, updated.ID)
	uc.publish(ctx, domain.SubjectListingUpdated, updated)
	return updated, nil
}

func (uc *ListingUsecase) DeleteListing(ctx context.Context, listingID, requesterID string) (err error) {
	ctx, cancel := withOpTimeout(ctx, uc.opTimeout)
	defer cancel()
	ctx, span := uc.tracer.Start(ctx, "ListingUsecase.DeleteListing", trace.WithAttributes(attribute.String("listing_id", listingID)))
	defer func() { endSpan(span, err) }()

	uc.logger.Info("ListingUsecase.DeleteListing: deleting listing", "listing_id", listingID, "requester_id", requesterID)

	deleted, err := uc.relations.DeleteListing(ctx, listingID, requesterID)
	if err != nil {
		uc.countConflict(err)
		return err
	}
	uc.artifacts.CommitOrphan(ctx, deleted.Image)

	uc.metrics.ListingsDeletedTotal.Inc()
	uc.cacheDelete(ctx, listingID)
	uc.publish(ctx, domain.SubjectListingDeleted, domain.ListingDeletedEvent{ID: deleted.ID, OwnerID: deleted.OwnerID})
	return nil
}

func (uc *ListingUsecase) GetListingByID(ctx context.Context, id string) (*domain.Listing, error) {
	ctx, cancel := withOpTimeout(ctx, uc.opTimeout)
	defer cancel()

	if uc.cache != nil {
		cached, err := uc.cache.Get(ctx, id)
		if err != nil {
			uc.logger.Warn("ListingUsecase.GetListingByID: cache read failed", "listing_id", id, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	listing, err := uc.store.Listings().FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			uc.logger.Error("ListingUsecase.GetListingByID: failed to load listing", "listing_id", id, "error", err)
		}
		return nil, err
	}
	uc.fillCache(ctx, listing)
	return listing, nil
}

// GetListingsByAccountID returns ErrNotFound for an unknown account and an
// empty slice for an account without listings.
func (uc *ListingUsecase) GetListingsByAccountID(ctx context.Context, accountID string) ([]*domain.Listing, error) {
	ctx, cancel := withOpTimeout(ctx, uc.opTimeout)
	defer cancel()

	if _, err := uc.store.Accounts().FindByID(ctx, accountID); err != nil {
		return nil, err
	}
	listings, err := uc.store.Listings().FindByOwner(ctx, accountID)
	if err != nil {
		uc.logger.Error("ListingUsecase.GetListingsByAccountID: failed to load listings", "account_id", accountID, "error", err)
		return nil, err
	}
	return listings, nil
}

func (uc *ListingUsecase) countConflict(err error) {
	if errors.Is(err, domain.ErrConflict) {
		uc.metrics.TransactionConflictsTotal.Inc()
	}
}

// fillCache caches a listing read from the store. Writers invalidate after
// commit, so a fill that raced a delete or update is caught by reading the
// listing again after the Set and dropping the entry if it changed.
func (uc *ListingUsecase) fillCache(ctx context.Context, listing *domain.Listing) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Set(ctx, listing); err != nil {
		uc.logger.Warn("ListingUsecase: failed to cache listing", "listing_id", listing.ID, "error", err)
		return
	}
	current, err := uc.store.Listings().FindByID(ctx, listing.ID)
	if err == nil && current.UpdatedAt.Equal(listing.UpdatedAt) {
		return
	}
	uc.logger.Debug("ListingUsecase: listing changed while caching, dropping entry", "listing_id", listing.ID)
	uc.cacheDelete(ctx, listing.ID)
}

func (uc *ListingUsecase) cacheDelete(ctx context.Context, id string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(context.WithoutCancel(ctx), id); err != nil {
		uc.logger.Warn("ListingUsecase: failed to invalidate cached listing", "listing_id", id, "error", err)
	}
}

func (uc *ListingUsecase) publish(ctx context.Context, subject string, payload any) {
	if uc.events == nil {
		return
	}
	if err := uc.events.Publish(ctx, subject, payload); err != nil {
		uc.logger.Warn("ListingUsecase: failed to publish event", "subject", subject, "error", err)
	}
}

func (uc *ListingUsecase) notifyCreated(ctx context.Context, listing *domain.Listing) {
	if uc.notifier == nil {
		return
	}
	owner, err := uc.store.Accounts().FindByID(ctx, listing.OwnerID)
	if err != nil {
		uc.logger.Warn("ListingUsecase: cannot load owner for notification", "owner_id", listing.OwnerID, "error", err)
		return
	}
	if err := uc.notifier.SendListingCreatedEmail(owner.Email, listing.Title); err != nil {
		uc.logger.Warn("ListingUsecase: failed to send listing created email", "owner_id", owner.ID, "error", err)
	}
}

func withOpTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
