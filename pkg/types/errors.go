package types

import "errors"

// Error taxonomy. Every public entry point returns one of these (wrapped)
// rather than panicking, so the hook layer can log and continue.
var (
	// ErrValidation marks bad input to Remember/Recall: confidence out of
	// range, empty category, unknown role. Rejected before any write.
	ErrValidation = errors.New("validation error")

	// ErrStoreUnavailable marks a backing store that cannot be opened,
	// read, or written. Hook adapters treat it as "memory disabled".
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrConstraintViolation marks a rejected write: duplicate id, edge to a
	// missing node, or a supersession cycle. The transaction rolls back.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrNotFound marks a lookup for a node that does not exist.
	ErrNotFound = errors.New("not found")
)
