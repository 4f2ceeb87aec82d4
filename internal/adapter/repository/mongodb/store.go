package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	writeConflictCode       = 112
	transientTransactionErr = "TransientTransactionError"
)

var domainErrors = []error{
	domain.ErrNotFound,
	domain.ErrForbidden,
	domain.ErrConflict,
	domain.ErrUnresolvable,
	domain.ErrStoreUnavailable,
	domain.ErrDuplicateEmail,
	domain.ErrInvalidInput,
}

// Store is the MongoDB document store. Repository calls made with a
// mongo.SessionContext join that session's transaction, so the same
// repositories serve both transactional and plain access.
type Store struct {
	client   *mongo.Client
	accounts *AccountRepository
	listings *ListingRepository
	logger   *logger.Logger
}

var _ domain.Store = (*Store)(nil)

func NewStore(client *mongo.Client, database string, log *logger.Logger) *Store {
	db := client.Database(database)
	log = log.Named("mongo")
	return &Store{
		client:   client,
		accounts: NewAccountRepository(db, log),
		listings: NewListingRepository(db, log),
		logger:   log,
	}
}

func (s *Store) Accounts() domain.AccountRepository { return s.accounts }
func (s *Store) Listings() domain.ListingRepository { return s.listings }

// EnsureIndexes creates the unique email index and the owner lookup index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.accounts.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	})
	if err != nil {
		return fmt.Errorf("create accounts email index: %w", err)
	}
	_, err = s.listings.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "creator", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetName("creator_created_at"),
	})
	if err != nil {
		return fmt.Errorf("create listings creator index: %w", err)
	}
	return nil
}

// WithTransaction runs fn in a snapshot transaction with majority writes.
// The transaction is aborted when fn fails and committed otherwise; it is
// not retried.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos domain.Repositories) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return mapError(err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
		if err := session.StartTransaction(txnOpts); err != nil {
			return mapError(err)
		}
		if err := fn(sc, s); err != nil {
			if abortErr := session.AbortTransaction(context.WithoutCancel(sc)); abortErr != nil {
				s.logger.Warn("Store.WithTransaction: abort failed", "error", abortErr)
			}
			return mapError(err)
		}
		if err := session.CommitTransaction(sc); err != nil {
			s.logger.Warn("Store.WithTransaction: commit failed", "error", err)
			return mapError(err)
		}
		return nil
	})
}

// mapError translates driver errors into domain errors. Domain errors pass
// through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrDuplicateEmail
	}

	var serverErr mongo.ServerError
	if errors.As(err, &serverErr) && serverErr.HasErrorCode(writeConflictCode) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel(transientTransactionErr) {
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
