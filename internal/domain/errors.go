package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by stores and services. Callers match them with
// errors.Is.
var (
	// ErrValidation marks user-correctable input problems. No state is
	// mutated when it is returned.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is an expected lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity marks a broken store invariant (token collision,
	// corrupted record). The affected operation must abort.
	ErrIntegrity = errors.New("integrity violation")

	// ErrStorage wraps I/O failures on any store.
	ErrStorage = errors.New("storage error")
)

// ErrDuplicateToken is returned when a token is registered twice.
var ErrDuplicateToken = fmt.Errorf("%w: duplicate token", ErrIntegrity)

// DeliveryError is a single-attempt messaging failure for one recipient.
type DeliveryError struct {
	Recipient string
	Detail    string
	Err       error
}

func (e *DeliveryError) Error() string {
	if e.Recipient == "" {
		return "delivery failed: " + e.Detail
	}
	return fmt.Sprintf("delivery to %s failed: %s", e.Recipient, e.Detail)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Validationf builds an ErrValidation with a message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// StorageErr wraps an I/O failure so it matches ErrStorage while keeping
// the cause.
func StorageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// IntegrityErr wraps a corruption finding so it matches ErrIntegrity.
func IntegrityErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIntegrity, fmt.Sprintf(format, args...))
}
