package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Abdurahmanit/GroupProject/places-service/internal/listing/domain"
	"github.com/gabriel-vasile/mimetype"
)

const (
	// multipart overhead allowed on top of the image itself
	formOverheadBytes = 64 << 10
	maxJSONBodyBytes  = 64 << 10
)

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes: %w", maxJSONBodyBytes, domain.ErrInvalidInput)
		}
		return fmt.Errorf("invalid request body: %w", domain.ErrInvalidInput)
	}
	return nil
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("request body exceeds %d bytes: %w", h.maxUploadBytes, domain.ErrInvalidInput)
		}
		return fmt.Errorf("malformed multipart form: %w", domain.ErrInvalidInput)
	}
	return nil
}

// readImage loads the named form file. It returns (nil, nil) when the field
// is absent and the image is optional. Only png and jpeg content is
// accepted, judged by the bytes rather than the declared type.
func (h *Handler) readImage(r *http.Request, field string, required bool) (*domain.Blob, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		if required {
			return nil, fmt.Errorf("%s is required: %w", field, domain.ErrInvalidInput)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", field, domain.ErrInvalidInput)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", field, domain.ErrInvalidInput)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes: %w", field, h.maxUploadBytes, domain.ErrInvalidInput)
	}

	mt := mimetype.Detect(data)
	if !mt.Is("image/png") && !mt.Is("image/jpeg") {
		return nil, fmt.Errorf("%s must be a png or jpeg image, got %s: %w", field, mt.String(), domain.ErrInvalidInput)
	}
	return &domain.Blob{Name: header.Filename, ContentType: mt.String(), Data: data}, nil
}
