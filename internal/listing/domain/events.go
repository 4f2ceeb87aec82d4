package domain

// Subjects of the domain events published after a transaction commits.
const (
	SubjectListingCreated = "listing.created"
	SubjectListingUpdated = "listing.updated"
	SubjectListingDeleted = "listing.deleted"
	SubjectAccountCreated = "account.created"
)

type ListingDeletedEvent struct {
	ID      string `json:"id"`
	OwnerID string `json:"creator"`
}
