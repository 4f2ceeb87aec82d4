// Package memory is an in-process document store with optimistic
// multi-document transactions. Each transaction records the version of every
// document it reads or writes; commit fails with domain.ErrConflict when any
// of them changed in the meantime. Calls made outside WithTransaction run as
// single-operation transactions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/google/uuid"
)

type collection int

const (
	accountsCollection collection = iota
	listingsCollection
)

type key struct {
	coll collection
	id   string
}

type row struct {
	version uint64
	doc     any
}

type Store struct {
	mu      sync.RWMutex
	rows    map[key]row
	version uint64

	now   func() time.Time
	newID func() string
}

var _ domain.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		rows:  make(map[key]row),
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

func (s *Store) Accounts() domain.AccountRepository {
	return &accountRepo{sess: autocommit{s}}
}

func (s *Store) Listings() domain.ListingRepository {
	return &listingRepo{sess: autocommit{s}}
}

// WithTransaction runs fn against repositories bound to a fresh transaction.
// Writes become visible only if fn returns nil and validation succeeds.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	tx := s.begin()
	if err := fn(ctx, txRepos{tx}); err != nil {
		return err
	}
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return tx.commit()
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

type txRepos struct{ tx *tx }

func (r txRepos) Accounts() domain.AccountRepository { return &accountRepo{sess: r.tx} }
func (r txRepos) Listings() domain.ListingRepository { return &listingRepo{sess: r.tx} }

// session is what the repositories run against: either a caller-owned
// transaction or an autocommit wrapper.
type session interface {
	run(ctx context.Context, fn func(tx *tx) error) error
}

type autocommit struct{ s *Store }

func (a autocommit) run(ctx context.Context, fn func(tx *tx) error) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	tx := a.s.begin()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

type tx struct {
	s      *Store
	reads  map[key]uint64
	writes map[key]any // nil value marks a delete
	done   bool
}

func (s *Store) begin() *tx {
	return &tx{
		s:      s,
		reads:  make(map[key]uint64),
		writes: make(map[key]any),
	}
}

func (t *tx) run(ctx context.Context, fn func(tx *tx) error) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if t.done {
		return fmt.Errorf("%w: transaction already finished", domain.ErrStoreUnavailable)
	}
	return fn(t)
}

// get returns a private copy of the document, observing the transaction's
// own pending writes first.
func (t *tx) get(k key) (any, bool) {
	if doc, ok := t.writes[k]; ok {
		return clone(doc), doc != nil
	}
	t.s.mu.RLock()
	r, ok := t.s.rows[k]
	t.s.mu.RUnlock()
	if _, seen := t.reads[k]; !seen {
		t.reads[k] = r.version
	}
	if !ok {
		return nil, false
	}
	return clone(r.doc), true
}

func (t *tx) put(k key, doc any) {
	if _, seen := t.reads[k]; !seen {
		t.s.mu.RLock()
		t.reads[k] = t.s.rows[k].version
		t.s.mu.RUnlock()
	}
	t.writes[k] = clone(doc)
}

// scan lists all live documents of a collection as the transaction sees
// them. Scans are not validated at commit.
func (t *tx) scan(coll collection) []any {
	seen := make(map[string]bool)
	var out []any
	for k, doc := range t.writes {
		if k.coll != coll {
			continue
		}
		seen[k.id] = true
		if doc != nil {
			out = append(out, clone(doc))
		}
	}
	t.s.mu.RLock()
	for k, r := range t.s.rows {
		if k.coll == coll && !seen[k.id] {
			out = append(out, clone(r.doc))
		}
	}
	t.s.mu.RUnlock()
	return out
}

func (t *tx) commit() error {
	t.done = true
	if len(t.writes) == 0 {
		return nil
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for k, v := range t.reads {
		if t.s.rows[k].version != v {
			return fmt.Errorf("%w: %s changed during transaction", domain.ErrConflict, k.id)
		}
	}
	if err := t.checkUniqueEmails(); err != nil {
		return err
	}

	for k, doc := range t.writes {
		if doc == nil {
			delete(t.s.rows, k)
			continue
		}
		t.s.version++
		t.s.rows[k] = row{version: t.s.version, doc: doc}
	}
	return nil
}

// checkUniqueEmails must be called with the store lock held.
func (t *tx) checkUniqueEmails() error {
	owners := make(map[string]string)
	for k, r := range t.s.rows {
		if k.coll != accountsCollection {
			continue
		}
		if _, written := t.writes[k]; written {
			continue
		}
		owners[r.doc.(*domain.Account).Email] = k.id
	}
	for k, doc := range t.writes {
		acc, ok := doc.(*domain.Account)
		if !ok {
			continue
		}
		if id, taken := owners[acc.Email]; taken && id != k.id {
			return domain.ErrDuplicateEmail
		}
		owners[acc.Email] = k.id
	}
	return nil
}

func clone(doc any) any {
	switch d := doc.(type) {
	case *domain.Account:
		c := *d
		c.Listings = append([]string(nil), d.Listings...)
		return &c
	case *domain.Listing:
		c := *d
		return &c
	default:
		return nil
	}
}

func sortAccounts(accounts []*domain.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
}

func sortListings(listings []*domain.Listing) {
	sort.Slice(listings, func(i, j int) bool {
		if listings[i].CreatedAt.Equal(listings[j].CreatedAt) {
			return listings[i].ID < listings[j].ID
		}
		return listings[i].CreatedAt.Before(listings[j].CreatedAt)
	})
}
