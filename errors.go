package panelcore

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/panelcore/audit"
)

// Error classes. Every error returned by the Engine matches exactly one of these
// through errors.Is, and the HTTP layer maps classes to status codes.
var (
	// ErrUnauthenticated: missing, invalid or expired credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden: authenticated but not allowed.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound: a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation: malformed query or record input. The concrete error is a
	// *ValidationError.
	ErrValidation = audit.ErrValidation
	// ErrStorage: a backing store failed.
	ErrStorage = audit.ErrStorage
)

var (
	ErrSessionNotFound      = fmt.Errorf("%w: %w", ErrUnauthenticated, errors.New("session not found"))
	ErrSessionExpired       = fmt.Errorf("%w: %w", ErrUnauthenticated, errors.New("session expired"))
	ErrSessionIPMismatch    = fmt.Errorf("%w: %w", ErrUnauthenticated, errors.New("session ip mismatch"))
	ErrInvalidCredentials   = fmt.Errorf("%w: %w", ErrUnauthenticated, errors.New("invalid credentials"))
	ErrRoutingTokenInvalid  = fmt.Errorf("%w: %w", ErrUnauthenticated, errors.New("routing token invalid"))
	ErrRoutingTokenDisabled = fmt.Errorf("%w: %w", ErrUnauthenticated, errors.New("routing token disabled"))
	ErrAccountSuspended     = fmt.Errorf("%w: %w", ErrForbidden, errors.New("account suspended"))
	ErrUserNotFound         = fmt.Errorf("%w: %w", ErrNotFound, errors.New("user not found"))
	ErrEngineNotReady       = fmt.Errorf("%w: %w", ErrStorage, errors.New("engine not initialized"))
)

// ValidationError lists violated constraints. It matches [ErrValidation].
type ValidationError = audit.ValidationError

// Violation is one entry of a [ValidationError].
type Violation = audit.Violation

func storageError(op string, err error) error {
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
