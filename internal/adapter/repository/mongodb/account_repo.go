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

type AccountRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewAccountRepository(db *mongo.Database, log *logger.Logger) *AccountRepository {
	return &AccountRepository{
		collection: db.Collection(accountsCollection),
		logger:     log,
	}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	now := time.Now().UTC()
	account.CreatedAt, account.UpdatedAt = now, now
	doc, err := toAccountDocument(account)
	if err != nil {
		return fmt.Errorf("AccountRepository.Create: %w", err)
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		r.logger.Warn("AccountRepository.Create: InsertOne failed", "email", account.Email, "error", err)
		return mapError(err)
	}
	account.ID = doc.ID.Hex()
	return nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var doc accountDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapError(err)
	}
	return toDomainAccount(&doc), nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	var docs []accountDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError(err)
	}
	accounts := make([]*domain.Account, 0, len(docs))
	for i := range docs {
		accounts = append(accounts, toDomainAccount(&docs[i]))
	}
	return accounts, nil
}

func (r *AccountRepository) AddListing(ctx context.Context, accountID, listingID string) error {
	oid, err := objectID(accountID)
	if err != nil {
		return err
	}
	lid, err := primitive.ObjectIDFromHex(listingID)
	if err != nil {
		return fmt.Errorf("AccountRepository.AddListing: invalid listing id %q: %w", listingID, domain.ErrInvalidInput)
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$addToSet": bson.M{"places": lid},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
	}
	return nil
}

// RemoveListing only matches while the listing is still in the owned set;
// a miss on an existing account is a conflict.
func (r *AccountRepository) RemoveListing(ctx context.Context, accountID, listingID string) error {
	oid, err := objectID(accountID)
	if err != nil {
		return err
	}
	lid, err := objectID(listingID)
	if err != nil {
		return fmt.Errorf("account %s does not own listing %s: %w", accountID, listingID, domain.ErrConflict)
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": oid, "places": lid},
		bson.M{
			"$pull": bson.M{"places": lid},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return mapError(err)
	}
	if res.MatchedCount == 0 {
		return r.missOrConflict(ctx, oid, fmt.Sprintf("account %s does not own listing %s", accountID, listingID))
	}
	return nil
}

func (r *AccountRepository) UpdateImage(ctx context.Context, accountID, image, ifImage string) (*domain.Account, error) {
	oid, err := objectID(accountID)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc accountDocument
	err = r.collection.FindOneAndUpdate(ctx, accountImageFilter(oid, ifImage),
		bson.M{"$set": bson.M{"image": image, "updated_at": time.Now().UTC()}}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, r.missOrConflict(ctx, oid, fmt.Sprintf("account %s image changed", accountID))
	}
	if err != nil {
		return nil, mapError(err)
	}
	return toDomainAccount(&doc), nil
}

// accountImageFilter matches the account only while its image is still
// ifImage. An empty ifImage matches an account with no image yet, stored
// either as "" or without the field.
func accountImageFilter(oid primitive.ObjectID, ifImage string) bson.M {
	if ifImage == "" {
		return bson.M{"_id": oid, "image": bson.M{"$in": bson.A{"", nil}}}
	}
	return bson.M{"_id": oid, "image": ifImage}
}

// missOrConflict decides why a conditional update matched nothing.
func (r *AccountRepository) missOrConflict(ctx context.Context, oid primitive.ObjectID, conflict string) error {
	n, err := r.collection.CountDocuments(ctx, bson.M{"_id": oid})
	if err != nil {
		return mapError(err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", oid.Hex(), domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", conflict, domain.ErrConflict)
}
