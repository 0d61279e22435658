package bookings

import (
	"errors"
	"fmt"
)

var (
	// ErrBookingNotFound is returned when a booking is not found
	ErrBookingNotFound = errors.New("booking not found")

	// ErrAlreadyCancelled is returned when cancelling a cancelled booking
	ErrAlreadyCancelled = errors.New("booking already cancelled")
)

// ConflictError reports that a requested time falls inside the
// exclusion window of an existing booking. Callers re-query the slot
// list and re-prompt; the error is never retried automatically.
type ConflictError struct {
	Conflict Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time slot conflicts with existing appointment for %s at %s",
		e.Conflict.CustomerName, e.Conflict.ScheduledAt.Format("3:04 PM"))
}

// AsConflictError unwraps err into a ConflictError if it is one.
func AsConflictError(err error) (*ConflictError, bool) {
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict, true
	}
	return nil, false
}
