package services

import (
	"errors"
	"fmt"

	"github.com/samber/oops"
)

// Error kinds returned by HostService. Collaborator failures are wrapped so
// callers can still match them with errors.Is.
var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrAlreadyRegistered    = errors.New("host already has an identity")
	ErrDuplicateCredential  = errors.New("email already registered")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotFound             = errors.New("host not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrStoreFailure         = errors.New("store failure")
	ErrAvatarsDisabled      = errors.New("avatars are disabled")
)

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func storeFailure(operation string, err error) error {
	return oops.Code("STORE_FAILURE").
		With("operation", operation).
		Wrap(fmt.Errorf("%w: %w", ErrStoreFailure, err))
}

func hashFailure(err error) error {
	return oops.Code("HASH_FAILED").With("operation", "hash password").Wrap(err)
}

func tokenFailure(hostID int, err error) error {
	return oops.Code("TOKEN_FAILED").With("host_id", hostID).Wrap(err)
}
