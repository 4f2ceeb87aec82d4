package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ListingRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewListingRepository(db *mongo.Database, log *logger.Logger) *ListingRepository {
	return &ListingRepository{
		collection: db.Collection(listingsCollection),
		logger:     log,
	}
}

func (r *ListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	now := time.Now().UTC()
	listing.CreatedAt, listing.UpdatedAt = now, now
	doc, err := toListingDocument(listing)
	if err != nil {
		return fmt.Errorf("ListingRepository.Create: invalid owner id %q: %w", listing.OwnerID, domain.ErrNotFound)
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.logger.Warn("ListingRepository.Create: InsertOne failed", "owner_id", listing.OwnerID, "error", err)
		return mapError(err)
	}
	listing.ID = doc.ID.Hex()
	return nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var doc listingDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return nil, mapError(err)
	}
	return toDomainListing(&doc), nil
}

func (r *ListingRepository) FindByOwner(ctx context.Context, ownerID string) ([]*domain.Listing, error) {
	oid, err := objectID(ownerID)
	if err != nil {
		return []*domain.Listing{}, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"creator": oid}, opts)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	var docs []listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError(err)
	}
	listings := make([]*domain.Listing, 0, len(docs))
	for i := range docs {
		listings = append(listings, toDomainListing(&docs[i]))
	}
	return listings, nil
}

// Update applies patch in one FindOneAndUpdate. With patch.Image and
// patch.IfImage set, the stored image is part of the filter.
func (r *ListingRepository) Update(ctx context.Context, id string, patch domain.ListingPatch) (*domain.Listing, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	filter := bson.M{"_id": oid}
	if patch.Image != nil && patch.IfImage != "" {
		filter["image"] = patch.IfImage
	}

	var doc listingDocument
	err = r.collection.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": patchSet(patch)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		n, countErr := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
		if countErr != nil {
			return nil, mapError(countErr)
		}
		if n == 0 {
			return nil, fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("listing %s image changed: %w", id, domain.ErrConflict)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return toDomainListing(&doc), nil
}

func (r *ListingRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return mapError(err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("listing %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func patchSet(patch domain.ListingPatch) bson.M {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Address != nil {
		set["address"] = *patch.Address
	}
	if patch.Location != nil {
		set["location"] = locationDocument{Lat: patch.Location.Lat, Lng: patch.Location.Lng}
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}
	return set
}
