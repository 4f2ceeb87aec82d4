package memory

import (
	"context"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
)

type accountRepo struct {
	sess session
}

func accountKey(id string) key { return key{coll: accountsCollection, id: id} }

func (r *accountRepo) Create(ctx context.Context, account *domain.Account) error {
	return r.sess.run(ctx, func(t *tx) error {
		for _, doc := range t.scan(accountsCollection) {
			if doc.(*domain.Account).Email == account.Email {
				return domain.ErrDuplicateEmail
			}
		}
		now := t.s.now()
		if account.ID == "" {
			account.ID = t.s.newID()
		}
		account.CreatedAt, account.UpdatedAt = now, now
		if account.Listings == nil {
			account.Listings = []string{}
		}
		t.put(accountKey(account.ID), account)
		return nil
	})
}

func (r *accountRepo) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	var out *domain.Account
	err := r.sess.run(ctx, func(t *tx) error {
		doc, ok := t.get(accountKey(id))
		if !ok {
			return fmt.Errorf("account %s: %w", id, domain.ErrNotFound)
		}
		out = doc.(*domain.Account)
		return nil
	})
	return out, err
}

func (r *accountRepo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var out *domain.Account
	err := r.sess.run(ctx, func(t *tx) error {
		for _, doc := range t.scan(accountsCollection) {
			if acc := doc.(*domain.Account); acc.Email == email {
				out = acc
				return nil
			}
		}
		return fmt.Errorf("account with email %s: %w", email, domain.ErrNotFound)
	})
	return out, err
}

func (r *accountRepo) List(ctx context.Context) ([]*domain.Account, error) {
	var out []*domain.Account
	err := r.sess.run(ctx, func(t *tx) error {
		for _, doc := range t.scan(accountsCollection) {
			out = append(out, doc.(*domain.Account))
		}
		return nil
	})
	sortAccounts(out)
	return out, err
}

func (r *accountRepo) AddListing(ctx context.Context, accountID, listingID string) error {
	return r.sess.run(ctx, func(t *tx) error {
		doc, ok := t.get(accountKey(accountID))
		if !ok {
			return fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
		}
		acc := doc.(*domain.Account)
		if !acc.Owns(listingID) {
			acc.Listings = append(acc.Listings, listingID)
		}
		acc.UpdatedAt = t.s.now()
		t.put(accountKey(accountID), acc)
		return nil
	})
}

// RemoveListing fails with ErrConflict when the listing is not in the
// account's owned set.
func (r *accountRepo) RemoveListing(ctx context.Context, accountID, listingID string) error {
	return r.sess.run(ctx, func(t *tx) error {
		doc, ok := t.get(accountKey(accountID))
		if !ok {
			return fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
		}
		acc := doc.(*domain.Account)
		kept := acc.Listings[:0]
		for _, id := range acc.Listings {
			if id != listingID {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(acc.Listings) {
			return fmt.Errorf("account %s does not own listing %s: %w", accountID, listingID, domain.ErrConflict)
		}
		acc.Listings = kept
		acc.UpdatedAt = t.s.now()
		t.put(accountKey(accountID), acc)
		return nil
	})
}

func (r *accountRepo) UpdateImage(ctx context.Context, accountID, image, ifImage string) (*domain.Account, error) {
	var out *domain.Account
	err := r.sess.run(ctx, func(t *tx) error {
		doc, ok := t.get(accountKey(accountID))
		if !ok {
			return fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
		}
		acc := doc.(*domain.Account)
		if acc.Image != ifImage {
			return fmt.Errorf("account %s image changed: %w", accountID, domain.ErrConflict)
		}
		acc.Image = image
		acc.UpdatedAt = t.s.now()
		t.put(accountKey(accountID), acc)
		out = acc
		return nil
	})
	return out, err
}
