package errors

import (
	"errors"
	"fmt"
)

var (
	ErrorStoreUnavailable = errors.New("ban store unavailable")     // Static error for a failed or timed out store operation.
	ErrorDuplicate        = errors.New("ban record already exists") // Static error for a uniqueness conflict on insert.
	ErrorNotFound         = errors.New("record not found")          // Static error for a missing row.
	ErrorNoHandler        = errors.New("no handler registered")     // Static error for an empty extension point.
)

// WrapStoreUnavailable wraps a store failure with the operation that failed.
func WrapStoreUnavailable(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrorStoreUnavailable, operation, err)
}
