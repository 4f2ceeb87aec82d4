package mongodb

import (
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	accountsCollection = "accounts"
	listingsCollection = "listings"
)

type accountDocument struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Name      string               `bson:"name"`
	Email     string               `bson:"email"`
	Password  string               `bson:"password"`
	Image     string               `bson:"image,omitempty"`
	Places    []primitive.ObjectID `bson:"places"`
	CreatedAt time.Time            `bson:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at"`
}

type locationDocument struct {
	Lat float64 `bson:"lat"`
	Lng float64 `bson:"lng"`
}

type listingDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Image       string             `bson:"image"`
	Address     string             `bson:"address"`
	Location    locationDocument   `bson:"location"`
	Creator     primitive.ObjectID `bson:"creator"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

// objectID parses a hex ID. Malformed IDs cannot match any document, so
// they are reported as not found.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.ErrNotFound
	}
	return oid, nil
}

func toAccountDocument(a *domain.Account) (*accountDocument, error) {
	doc := &accountDocument{
		Name:      a.Name,
		Email:     a.Email,
		Password:  a.PasswordHash,
		Image:     a.Image,
		Places:    make([]primitive.ObjectID, 0, len(a.Listings)),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.ID != "" {
		oid, err := primitive.ObjectIDFromHex(a.ID)
		if err != nil {
			return nil, err
		}
		doc.ID = oid
	}
	for _, id := range a.Listings {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, err
		}
		doc.Places = append(doc.Places, oid)
	}
	return doc, nil
}

func toDomainAccount(doc *accountDocument) *domain.Account {
	listings := make([]string, 0, len(doc.Places))
	for _, oid := range doc.Places {
		listings = append(listings, oid.Hex())
	}
	return &domain.Account{
		ID:           doc.ID.Hex(),
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: doc.Password,
		Image:        doc.Image,
		Listings:     listings,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}

func toListingDocument(l *domain.Listing) (*listingDocument, error) {
	creator, err := primitive.ObjectIDFromHex(l.OwnerID)
	if err != nil {
		return nil, err
	}
	doc := &listingDocument{
		Title:       l.Title,
		Description: l.Description,
		Image:       l.Image,
		Address:     l.Address,
		Location:    locationDocument{Lat: l.Location.Lat, Lng: l.Location.Lng},
		Creator:     creator,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if l.ID != "" {
		if doc.ID, err = primitive.ObjectIDFromHex(l.ID); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func toDomainListing(doc *listingDocument) *domain.Listing {
	return &domain.Listing{
		ID:          doc.ID.Hex(),
		Title:       doc.Title,
		Description: doc.Description,
		Image:       doc.Image,
		Address:     doc.Address,
		Location:    domain.Location{Lat: doc.Location.Lat, Lng: doc.Location.Lng},
		OwnerID:     doc.Creator.Hex(),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
