package freetime

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWindow matches every *InvalidWindowError.
	ErrInvalidWindow = errors.New("invalid planning window")
	// ErrMalformedEvent matches every *MalformedEventError.
	ErrMalformedEvent = errors.New("malformed busy event")
)

// InvalidWindowError rejects a whole calculation.
type InvalidWindowError struct {
	Field  string
	Reason string
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("invalid planning window: %s %s", e.Field, e.Reason)
}

func (e *InvalidWindowError) Is(target error) bool { return target == ErrInvalidWindow }

// MalformedEventError describes a busy event that was skipped.
type MalformedEventError struct {
	// Position in the caller's input slice
	Index  int
	Reason string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("busy event %d skipped: %s", e.Index, e.Reason)
}

func (e *MalformedEventError) Is(target error) bool { return target == ErrMalformedEvent }

// checkEvent rejects events without a usable start or end. An end before the
// start is kept; the cursor still moves to it.
func checkEvent(i int, ev BusyEvent) *MalformedEventError {
	switch {
	case ev.Start.IsZero():
		return &MalformedEventError{Index: i, Reason: "missing start"}
	case ev.End.IsZero():
		return &MalformedEventError{Index: i, Reason: "missing end"}
	}
	return nil
}
