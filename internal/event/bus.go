package event

import "context"

// Bus routes fired events to every live handler subscribed to the event's
// type or one of its ancestors.
type Bus interface {
	// Subscribe registers h for each of the given types. Subscribing the same
	// handler twice to a type has no further effect.
	// Returns an *InvalidHandlerError if h cannot be scheduled; nothing is
	// registered in that case.
	Subscribe(h Handler, types ...*Type) error

	// Unsubscribe removes h from each of the given types. Missing
	// subscriptions are reported according to the bus policy and do not stop
	// the remaining types from being processed.
	Unsubscribe(h Handler, types ...*Type) error

	// Fire hands e to the scheduler and returns immediately.
	// It never blocks on handlers and never fails synchronously.
	Fire(ctx context.Context, e Event)

	// Clear removes every subscription.
	Clear()
}

// Registry stores non-owning handler references per event type.
type Registry interface {
	// Add inserts ref for t. Returns false if an equal reference is present.
	Add(t *Type, ref Ref) bool

	// Remove deletes the reference with the given key from t.
	// Returns false if it was not present.
	Remove(t *Type, key any) bool

	// Live resolves every reference for t, skipping expired ones.
	// It does not modify the registry.
	Live(t *Type) []Live

	// Prune drops every expired reference for t and returns how many were dropped.
	Prune(t *Type) int

	// Len returns the number of stored references for t, live or not.
	Len(t *Type) int

	// Types returns every type that has a bucket.
	Types() []*Type

	// Clear removes every reference.
	Clear()
}

// TaskKind distinguishes orchestration work from handler invocations.
type TaskKind string

const (
	TaskDispatch TaskKind = "dispatch"
	TaskHandler  TaskKind = "handler"
)

// Task is an independent unit of work submitted to a Scheduler.
type Task struct {
	Name string
	Kind TaskKind
	Run  func(ctx context.Context)
}

// Scheduler runs tasks concurrently. The host owns it; the bus only submits.
type Scheduler interface {
	// Go submits task without waiting for it to run.
	// An error means the task was rejected and will never run.
	Go(ctx context.Context, task Task) error
}

// Listen creates a Listener for fn, subscribes it and returns it.
// The caller must keep the returned Listener reachable for as long as it
// wants to receive events.
//
// Example:
//
//	audit, err := event.Listen(bus, "audit", auditFn, event.Root)
func Listen(b Bus, name string, fn HandlerFunc, types ...*Type) (*Listener, error) {
	l := NewListener(name, fn)
	if err := b.Subscribe(l, types...); err != nil {
		return nil, err
	}
	return l, nil
}
