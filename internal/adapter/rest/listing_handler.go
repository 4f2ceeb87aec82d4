package rest

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/adapter/rest/middleware"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/usecase"
	"github.com/go-chi/chi/v5"
)

type createListingRequest struct {
	Title       string `validate:"required"`
	Description string `validate:"required"`
	Address     string `validate:"required"`
}

type updateListingRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Description *string `json:"description" validate:"omitempty,min=1"`
	Address     *string `json:"address" validate:"omitempty,min=1"`
}

type listingResponse struct {
	Place *domain.Listing `json:"place"`
}

type listingsResponse struct {
	Places []*domain.Listing `json:"places"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	listing, err := h.listings.GetListingByID(r.Context(), chi.URLParam(r, "pid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listingResponse{Place: listing})
}

func (h *Handler) GetListingsByUser(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.GetListingsByAccountID(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listingsResponse{Places: listings})
}

// CreateListing expects multipart/form-data with title, description,
// address and an image file.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.parseMultipart(w, r); err != nil {
		h.writeError(w, r, err)
		return
	}

	req := createListingRequest{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Address:     strings.TrimSpace(r.FormValue("address")),
	}
	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, r, fmt.Errorf("%v: %w", err, domain.ErrInvalidInput))
		return
	}
	image, err := h.readImage(r, "image", true)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	listing, err := h.listings.CreateListing(r.Context(), usecase.CreateListingInput{
		RequesterID: userID,
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		Image:       *image,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, listingResponse{Place: listing})
}

// UpdateListing accepts either a JSON body or a multipart form; only the
// multipart form can carry a replacement image.
func (h *Handler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())

	var req updateListingRequest
	var image *domain.Blob
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := h.parseMultipart(w, r); err != nil {
			h.writeError(w, r, err)
			return
		}
		req.Title = formValue(r, "title")
		req.Description = formValue(r, "description")
		req.Address = formValue(r, "address")

		var err error
		if image, err = h.readImage(r, "image", false); err != nil {
			h.writeError(w, r, err)
			return
		}
	} else if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		h.writeError(w, r, fmt.Errorf("%v: %w", err, domain.ErrInvalidInput))
		return
	}

	listing, err := h.listings.UpdateListing(r.Context(), usecase.UpdateListingInput{
		ListingID:   chi.URLParam(r, "pid"),
		RequesterID: userID,
		Title:       req.Title,
		Description: req.Description,
		Address:     req.Address,
		Image:       image,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listingResponse{Place: listing})
}

func (h *Handler) DeleteListing(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	if err := h.listings.DeleteListing(r.Context(), chi.URLParam(r, "pid"), userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Deleted place."})
}

// formValue returns nil for fields absent from the form.
func formValue(r *http.Request, key string) *string {
	values, ok := r.MultipartForm.Value[key]
	if !ok || len(values) == 0 {
		return nil
	}
	v := strings.TrimSpace(values[0])
	return &v
}
