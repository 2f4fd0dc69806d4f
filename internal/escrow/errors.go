package escrow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("escrow: transaction not found")

// ValidationError reports malformed input. Safe to retry after correction.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + e.Reason
}

// InvalidStateError reports an action that is not legal from the current
// state. It is never retried automatically.
type InvalidStateError struct {
	Action  string
	Current string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Action, e.Current)
}

// UnauthorizedActionError reports a legal action attempted by the wrong
// actor. Kept distinct from InvalidStateError so clients can show
// "not your turn" instead of "not possible now".
type UnauthorizedActionError struct {
	Action  string
	ActorID uuid.UUID
	Reason  string
}

func (e *UnauthorizedActionError) Error() string {
	return fmt.Sprintf("actor %s may not %s: %s", e.ActorID, e.Action, e.Reason)
}

// ConflictError reports a competing concurrent action, e.g. a second open
// dispute. Clients should refresh state and re-evaluate, not blindly retry.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Reason
}
