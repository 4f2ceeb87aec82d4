package domain

import "errors"

var (
	ErrNotFound         = errors.New("resource not found")
	ErrForbidden        = errors.New("requester is not the owner")
	ErrConflict         = errors.New("concurrent modification, retry the operation")
	ErrUnresolvable     = errors.New("could not find location for the specified address")
	ErrStoreUnavailable = errors.New("document store unavailable")
	// ErrGeocoderUnavailable is retryable, unlike ErrUnresolvable.
	ErrGeocoderUnavailable = errors.New("geocoding service unavailable")
	// ErrArtifactCleanupFailed is only ever logged. It never fails an operation.
	ErrArtifactCleanupFailed = errors.New("artifact cleanup failed")

	ErrDuplicateEmail     = errors.New("account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication failed")
	ErrInvalidInput       = errors.New("invalid inputs passed")
)
