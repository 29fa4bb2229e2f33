package store

import (
	"fmt"

	"github.com/tradedesk/backoffice/internal/shared"
)

// Error wraps a failed store round trip. It unwraps to the driver error and
// matches shared.ErrStoreUnavailable.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports store failures as shared.ErrStoreUnavailable.
func (e *Error) Is(target error) bool {
	return target == shared.ErrStoreUnavailable
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}
