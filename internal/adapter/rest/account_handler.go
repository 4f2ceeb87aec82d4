package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/rest/middleware"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/usecase"
)

type signupRequest struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type accountResponse struct {
	User  *domain.Account `json:"user"`
	Token string          `json:"token,omitempty"`
}

type accountsResponse struct {
	Users []*domain.Account `json:"users"`
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.ListAccounts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accountsResponse{Users: accounts})
}

// Signup expects multipart/form-data with name, email, password and an
// optional image file.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	req := signupRequest{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Email:    domain.NormalizeEmail(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, r, fmt.Errorf("%v: %w", err, domain.ErrInvalidInput))
		return
	}
	image, err := h.readImage(r, "image", false)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	account, err := h.accounts.Signup(r.Context(), usecase.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Image:    image,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, accountResponse{User: account})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.Email = domain.NormalizeEmail(req.Email)
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, r, fmt.Errorf("%v: %w", err, domain.ErrInvalidInput))
		return
	}

	account, token, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accountResponse{User: account, Token: token})
}

func (h *Handler) UpdateAccountImage(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.parseMultipart(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}
	image, err := h.readImage(r, "image", true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	account, err := h.accounts.UpdateAccountImage(r.Context(), userID, *image)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accountResponse{User: account})
}
