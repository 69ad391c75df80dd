package storage

import "errors"

// Storage errors shared by every backend.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoSlotAvailable is returned by SlotStore.Acquire when every slot is IN_USE.
	// It signals capacity exhaustion, not a fault.
	ErrNoSlotAvailable = errors.New("no slot available")

	// ErrLockTimeout is returned when the shared coordination lock
	// could not be obtained within the configured wait.
	ErrLockTimeout = errors.New("coordination lock wait exceeded")
)
