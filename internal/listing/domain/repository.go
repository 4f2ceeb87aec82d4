package domain

import "context"

// AccountRepository persists accounts. AddListing and RemoveListing are the
// only writers of Account.Listings and must only be called from inside a
// Store transaction.
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	List(ctx context.Context) ([]*Account, error)
	AddListing(ctx context.Context, accountID, listingID string) error
	RemoveListing(ctx context.Context, accountID, listingID string) error
	// UpdateImage sets the account image only while the stored image is
	// still ifImage, where "" means the account has none (ErrConflict on
	// mismatch).
	UpdateImage(ctx context.Context, accountID, image, ifImage string) (*Account, error)
}

type ListingRepository interface {
	Create(ctx context.Context, listing *Listing) error
	FindByID(ctx context.Context, id string) (*Listing, error)
	FindByOwner(ctx context.Context, ownerID string) ([]*Listing, error)
	Update(ctx context.Context, id string, patch ListingPatch) (*Listing, error)
	Delete(ctx context.Context, id string) error
}

// Repositories is a pair of repositories sharing one session.
type Repositories interface {
	Accounts() AccountRepository
	Listings() ListingRepository
}

// Store is the document store port. Repositories returned directly by the
// store are non-transactional; those handed to fn share one atomic session
// which commits when fn returns nil and aborts otherwise.
type Store interface {
	Repositories
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// ArtifactStore puts and deletes blobs outside any document transaction.
// Deleting a reference that does not exist is not an error.
type ArtifactStore interface {
	Put(ctx context.Context, blob Blob) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Geocoder resolves a free-text address, returning ErrUnresolvable when the
// address matches nothing.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (Location, error)
}

// IdentityResolver validates a bearer credential and yields the account ID.
type IdentityResolver interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// TokenIssuer signs credentials for authenticated accounts.
type TokenIssuer interface {
	Issue(accountID, email string) (string, error)
}
