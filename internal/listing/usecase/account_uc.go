package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/metrics"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

var validate = validator.New()

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Image    *domain.Blob
}

type AccountUsecase struct {
	store     domain.Store
	artifacts *ArtifactLifecycle
	tokens    domain.TokenIssuer
	events    EventPublisher

	metrics   *metrics.Metrics
	logger    *logger.Logger
	tracer    trace.Tracer
	opTimeout time.Duration
}

func NewAccountUsecase(store domain.Store, artifacts *ArtifactLifecycle, tokens domain.TokenIssuer, m *metrics.Metrics, log *logger.Logger, opTimeout time.Duration) *AccountUsecase {
	return &AccountUsecase{
		store:     store,
		artifacts: artifacts,
		tokens:    tokens,
		metrics:   m,
		logger:    log.Named("account"),
		tracer:    otel.Tracer(tracerName),
		opTimeout: opTimeout,
	}
}

func (uc *AccountUsecase) WithEvents(p EventPublisher) *AccountUsecase {
	uc.events = p
	return uc
}

// Signup creates an account with a bcrypt-hashed password. The optional
// image is staged first and removed again if the account is not created.
func (uc *AccountUsecase) Signup(ctx context.Context, in SignupInput) (account *domain.Account, err error) {
	ctx, cancel := withOpTimeout(ctx, uc.opTimeout)
	defer cancel()
	ctx, span := uc.tracer.Start(ctx, "AccountUsecase.Signup")
	defer func() { endSpan(span, err) }()

	email := domain.NormalizeEmail(in.Email)
	if blank(in.Name) {
		return nil, fmt.Errorf("name is required: %w", domain.ErrInvalidInput)
	}
	if err := validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("invalid email: %w", domain.ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, domain.ErrInvalidInput)
	}

	if _, err := uc.store.Accounts().FindByEmail(ctx, email); err == nil {
		uc.logger.Warn("AccountUsecase.Signup: email already registered", "email", email)
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var staged string
	if in.Image != nil {
		if staged, err = uc.artifacts.StageNew(ctx, *in.Image); err != nil {
			return nil, err
		}
	}

	account = &domain.Account{
		Name:         in.Name,
		Email:        email,
		PasswordHash: string(hash),
		Image:        staged,
		Listings:     []string{},
	}
	if err = uc.store.Accounts().Create(ctx, account); err != nil {
		uc.artifacts.RollbackStaged(ctx, staged)
		uc.logger.Error("AccountUsecase.Signup: failed to create account", "email", email, "error", err)
		return nil, err
	}

	uc.metrics.AccountsCreatedTotal.Inc()
	uc.logger.Info("AccountUsecase.Signup: account created", "account_id", account.ID)

	public := account.Public()
	if uc.events != nil {
		if err := uc.events.Publish(ctx, domain.SubjectAccountCreated, public); err != nil {
			uc.logger.Warn("AccountUsecase.Signup: failed to publish event", "account_id", account.ID, "error", err)
		}
	}
	return public, nil
}

// Login verifies the credentials and returns the account with a signed token.
func (uc *AccountUsecase) Login(ctx context.Context, email, password string) (*domain.Account, string, error) {
	ctx, cancel := withOpTimeout(ctx, uc.opTimeout)
	defer cancel()

	account, err := uc.store.Accounts().FindByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		uc.logger.Warn("AccountUsecase.Login: password mismatch", "account_id", account.ID)
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := uc.tokens.Issue(account.ID, account.Email)
	if err != nil {
		uc.logger.Error("AccountUsecase.Login: failed to issue token", "account_id", account.ID, "error", err)
		return nil, "", fmt.Errorf("failed to issue token: %w", err)
	}
	return account.Public(), token, nil
}

func (uc *AccountUsecase) ListAccounts(ctx context.Context) ([]*domain.Account, error) {
	ctx, cancel := withOpTimeout(ctx, uc.opTimeout)
	defer cancel()

	accounts, err := uc.store.Accounts().List(ctx)
	if err != nil {
		uc.logger.Error("AccountUsecase.ListAccounts: failed to list accounts", "error", err)
		return nil, err
	}
	out := make([]*domain.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Public())
	}
	return out, nil
}

func (uc *AccountUsecase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	ctx, cancel := withOpTimeout(ctx, uc.opTimeout)
	defer cancel()

	account, err := uc.store.Accounts().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return account.Public(), nil
}

// UpdateAccountImage replaces the account image. The write only succeeds if
// the image is still the one loaded here; the old image is deleted after.
func (uc *AccountUsecase) UpdateAccountImage(ctx context.Context, accountID string, image domain.Blob) (account *domain.Account, err error) {
	ctx, cancel := withOpTimeout(ctx, uc.opTimeout)
	defer cancel()
	ctx, span := uc.tracer.Start(ctx, "AccountUsecase.UpdateAccountImage")
	defer func() { endSpan(span, err) }()

	if len(image.Data) == 0 {
		return nil, fmt.Errorf("image is required: %w", domain.ErrInvalidInput)
	}
	current, err := uc.store.Accounts().FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	staged, err := uc.artifacts.StageNew(ctx, image)
	if err != nil {
		return nil, err
	}
	account, err = uc.store.Accounts().UpdateImage(ctx, accountID, staged, current.Image)
	if err != nil {
		uc.artifacts.RollbackStaged(ctx, staged)
		if errors.Is(err, domain.ErrConflict) {
			uc.metrics.TransactionConflictsTotal.Inc()
		}
		uc.logger.Error("AccountUsecase.UpdateAccountImage: failed to update image", "account_id", accountID, "error", err)
		return nil, err
	}
	uc.artifacts.CommitOrphan(ctx, current.Image)
	return account.Public(), nil
}
