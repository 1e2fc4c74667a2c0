package clearing

import (
	"errors"
	"fmt"

	"github.com/xraph/clearing/event"
	"github.com/xraph/clearing/history"
)

// Sentinel errors for event outcomes. None of them is fatal to a run.
var (
	// ErrInsufficientFunds: a withdrawal exceeds the available balance.
	ErrInsufficientFunds = errors.New("clearing: insufficient funds")

	// ErrUnknownReferencedEvent: a dispute, resolve or chargeback names an
	// event id that is not in history for this client. Treated as an
	// upstream data error; never retried.
	ErrUnknownReferencedEvent = errors.New("clearing: unknown referenced event")

	// ErrDuplicateEvent: the event id was already recorded.
	ErrDuplicateEvent = history.ErrDuplicateEvent

	// ErrUnknownAccount: a non-deposit event for a client with no account.
	ErrUnknownAccount = errors.New("clearing: unknown account")

	// ErrAccountLocked: the account is locked and the lock policy rejects
	// further events.
	ErrAccountLocked = errors.New("clearing: account locked")

	// ErrNegativeAmount: a monetary event with an amount below zero.
	ErrNegativeAmount = event.ErrNegativeAmount

	// ErrUnderfundedClamp is the reason attached to clamp notices. Apply
	// never returns it.
	ErrUnderfundedClamp = errors.New("clearing: underfunded clamp")

	// ErrStoreFailure: the history store could not look up or record an
	// event. The event is not applied and Run stops.
	ErrStoreFailure = errors.New("clearing: history store failure")

	// ErrNotStarted: Apply or Run was called before Start.
	ErrNotStarted = errors.New("clearing: engine not started")
)

// EventError reports why one event was not applied.
type EventError struct {
	Kind   event.Kind
	Client uint16
	Tx     uint32
	Err    error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("%s client=%d tx=%d: %v", e.Kind, e.Client, e.Tx, e.Err)
}

func (e *EventError) Unwrap() error { return e.Err }

func rejectf(ev event.Event, err error) *EventError {
	return &EventError{Kind: ev.Kind(), Client: ev.Client(), Tx: ev.Tx(), Err: err}
}

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("clearing: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError collects several errors.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "clearing: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("clearing: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Unwrap lets errors.Is and errors.As see every collected error.
func (e MultiError) Unwrap() []error { return e.Errors }

// IsRejection reports whether err is one of the per-event outcomes that
// leave state unchanged and let the run continue.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrUnknownReferencedEvent) ||
		errors.Is(err, ErrDuplicateEvent) ||
		errors.Is(err, ErrUnknownAccount) ||
		errors.Is(err, ErrAccountLocked) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, event.ErrMissingAmount) ||
		errors.Is(err, event.ErrUnknownKind)
}

// IsFatal reports whether err should stop a run: anything that is not a
// per-event rejection, such as a failing history store.
func IsFatal(err error) bool {
	return err != nil && !IsRejection(err)
}
