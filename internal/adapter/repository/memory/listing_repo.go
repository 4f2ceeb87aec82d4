package memory

import (
	"context"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
)

type listingRepo struct {
	sess session
}

func listingKey(id string) key { return key{coll: listingsCollection, id: id} }

func (r *listingRepo) Create(ctx context.Context, listing *domain.Listing) error {
	return r.sess.run(ctx, func(t *tx) error {
		now := t.s.now()
		if listing.ID == "" {
			listing.ID = t.s.newID()
		}
		listing.CreatedAt, listing.UpdatedAt = now, now
		t.put(listingKey(listing.ID), listing)
		return nil
	})
}

func (r *listingRepo) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	var out *domain.Listing
	err := r.sess.run(ctx, func(t *tx) error {
		doc, ok := t.get(listingKey(id))
		if !ok {
			return fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
		}
		out = doc.(*domain.Listing)
		return nil
	})
	return out, err
}

func (r *listingRepo) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Listing, error) {
	out := []*domain.Listing{}
	err := r.sess.run(ctx, func(t *tx) error {
		for _, doc := range t.scan(listingsCollection) {
			if l := doc.(*domain.Listing); l.OwnerID == ownerID {
				out = append(out, l)
			}
		}
		return nil
	})
	sortListings(out)
	return out, err
}

func (r *listingRepo) Update(ctx context.Context, id string, patch domain.ListingPatch) (*domain.Listing, error) {
	var out *domain.Listing
	err := r.sess.run(ctx, func(t *tx) error {
		doc, ok := t.get(listingKey(id))
		if !ok {
			return fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
		}
		l := doc.(*domain.Listing)
		if patch.Image != nil && patch.IfImage != "" && l.Image != patch.IfImage {
			return fmt.Errorf("listing %s image changed: %w", id, domain.ErrConflict)
		}
		applyPatch(l, patch)
		l.UpdatedAt = t.s.now()
		t.put(listingKey(id), l)
		out = l
		return nil
	})
	return out, err
}

func (r *listingRepo) Delete(ctx context.Context, id string) error {
	return r.sess.run(ctx, func(t *tx) error {
		if _, ok := t.get(listingKey(id)); !ok {
			return fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
		}
		t.put(listingKey(id), nil)
		return nil
	})
}

func applyPatch(l *domain.Listing, patch domain.ListingPatch) {
	if patch.Title != nil {
		l.Title = *patch.Title
	}
	if patch.Description != nil {
		l.Description = *patch.Description
	}
	if patch.Address != nil {
		l.Address = *patch.Address
	}
	if patch.Location != nil {
		l.Location = *patch.Location
	}
	if patch.Image != nil {
		l.Image = *patch.Image
	}
}
