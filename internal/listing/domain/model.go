package domain

import (
	"strings"
	"time"
)

// Location is a resolved geographic point. Both coordinates are required.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Account owns listings. Listings holds the reverse index of owned listing
// IDs; it is only ever changed together with Listing.OwnerID.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never leaves the service
	Image        string    `json:"image,omitempty"`
	Listings     []string  `json:"places"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Owns reports whether listingID is in the account's owned set.
func (a *Account) Owns(listingID string) bool {
	for _, id := range a.Listings {
		if id == listingID {
			return true
		}
	}
	return false
}

// Public returns a copy safe to hand to clients.
func (a *Account) Public() *Account {
	if a == nil {
		return nil
	}
	out := *a
	out.PasswordHash = ""
	out.Listings = append([]string(nil), a.Listings...)
	return &out
}

type Listing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Location    Location  `json:"location"`
	Address     string    `json:"address"`
	OwnerID     string    `json:"creator"` // immutable after creation
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListingFields are the owner-independent fields of a new listing.
type ListingFields struct {
	Title       string
	Description string
	Address     string
	Location    Location
}

// ListingPatch describes a single-document listing update. Nil fields are
// left untouched. The owner can never be changed.
type ListingPatch struct {
	Title       *string
	Description *string
	Address     *string
	Location    *Location
	Image       *string
	// IfImage makes the write conditional on the stored image reference
	// still being this value. Empty means unconditional.
	IfImage string
}

// Empty reports whether the patch changes nothing.
func (p ListingPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Address == nil && p.Location == nil && p.Image == nil
}

// Blob is an artifact payload before it has been given a reference.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
}

// ImageExtension maps an accepted image content type to a file extension.
func ImageExtension(contentType string) (string, bool) {
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
