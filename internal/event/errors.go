package event

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHandler is wrapped by every InvalidHandlerError.
	ErrInvalidHandler = errors.New("invalid event handler")

	// ErrNilEventType is returned when a nil type is passed to Subscribe or Unsubscribe.
	ErrNilEventType = errors.New("event type must not be nil")

	// ErrNotSubscribed reports an unsubscribe of a handler that was not subscribed to a type.
	ErrNotSubscribed = errors.New("handler is not subscribed to event type")

	// ErrSchedulingFailed reports that a task could not be handed to the scheduler.
	ErrSchedulingFailed = errors.New("failed to schedule task")
)

// InvalidHandlerError is returned synchronously when a handler cannot be
// referenced or scheduled. It is caller-correctable and never retried.
type InvalidHandlerError struct {
	Handler string
	Reason  string
}

func (e *InvalidHandlerError) Error() string {
	if e.Handler == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidHandler, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", ErrInvalidHandler, e.Handler, e.Reason)
}

func (e *InvalidHandlerError) Unwrap() error {
	return ErrInvalidHandler
}
