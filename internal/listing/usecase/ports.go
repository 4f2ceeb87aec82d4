package usecase

import (
	"context"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
)

// ListingCache is a read-through cache of single listings. Get returns
// (nil, nil) on a miss.
type ListingCache interface {
	Get(ctx context.Context, id string) (*domain.Listing, error)
	Set(ctx context.Context, listing *domain.Listing) error
	Delete(ctx context.Context, id string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

type Notifier interface {
	SendListingCreatedEmail(toEmail, title string) error
}
