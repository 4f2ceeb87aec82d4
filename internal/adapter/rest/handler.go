// Package rest exposes the listing and account usecases over HTTP/JSON.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/usecase"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/platform/logger"
	"github.com/go-playground/validator/v10"
)

type ListingService interface {
	CreateListing(ctx context.Context, in usecase.CreateListingInput) (*domain.Listing, error)
	UpdateListing(ctx context.Context, in usecase.UpdateListingInput) (*domain.Listing, error)
	DeleteListing(ctx context.Context, listingID, requesterID string) error
	GetListingByID(ctx context.Context, id string) (*domain.Listing, error)
	GetListingsByAccountID(ctx context.Context, accountID string) ([]*domain.Listing, error)
}

type AccountService interface {
	Signup(ctx context.Context, in usecase.SignupInput) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (*domain.Account, string, error)
	ListAccounts(ctx context.Context) ([]*domain.Account, error)
	UpdateAccountImage(ctx context.Context, accountID string, image domain.Blob) (*domain.Account, error)
}

type Handler struct {
	listings       ListingService
	accounts       AccountService
	validate       *validator.Validate
	maxUploadBytes int64
	logger         *logger.Logger
}

func NewHandler(listings ListingService, accounts AccountService, maxUploadBytes int64, log *logger.Logger) *Handler {
	return &Handler{
		listings:       listings,
		accounts:       accounts,
		validate:       validator.New(),
		maxUploadBytes: maxUploadBytes,
		logger:         log.Named("http"),
	}
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Handler: failed to encode response", "error", err)
	}
}

// writeError maps err to exactly one status code.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Handler: request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	h.writeJSON(w, status, errorResponse{Message: message})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Could not find the requested resource."
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "You are not allowed to modify this place."
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "The resource was modified concurrently, please try again."
	case errors.Is(err, domain.ErrUnresolvable):
		return http.StatusUnprocessableEntity, "Could not find location for the specified address."
	case errors.Is(err, domain.ErrDuplicateEmail):
		return http.StatusUnprocessableEntity, "User exists already, please login instead."
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusUnprocessableEntity, "Invalid inputs passed, please check your data: " + err.Error()
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrGeocoderUnavailable):
		return http.StatusServiceUnavailable, "Service temporarily unavailable, please try again later."
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials, could not log you in."
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "Authentication failed."
	default:
		return http.StatusInternalServerError, "An unknown error occurred!"
	}
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusNotFound, errorResponse{Message: "Could not find this route."})
}
