package event

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"unsafe"
	"weak"
)

// HandlerFunc processes a single event. It is always invoked on a scheduler,
// never inline in the caller of Fire. Whatever goes wrong inside it is the
// handler's own business.
type HandlerFunc func(ctx context.Context, e Event)

// Handler is anything that can be subscribed to a Bus.
// The bus only ever keeps the Ref returned by Reference, so subscribing never
// extends the lifetime of the handler.
type Handler interface {
	// Reference returns a non-owning reference to the handler, or an
	// *InvalidHandlerError if the handler cannot be scheduled.
	Reference() (Ref, error)
}

// Ref is a non-owning reference to a handler.
type Ref interface {
	// Resolve returns the handler function while its owner is alive.
	// The second result is false once the owner has been reclaimed.
	Resolve() (HandlerFunc, bool)

	// Key identifies the referenced handler. References built from the same
	// handler have equal keys, even after the handler has been reclaimed.
	Key() any

	// Name returns a human readable name for diagnostics.
	Name() string
}

// Live is a resolved handler ready to be scheduled.
type Live struct {
	Name string
	Fn   HandlerFunc
}

// Listener is a plain callable handler. The caller owns the *Listener:
// once nothing else references it, its subscriptions expire.
//
// Example:
//
//	l := event.NewListener("audit", func(ctx context.Context, e event.Event) {
//	    log.Println(e.Type(), e.ID())
//	})
//	err := bus.Subscribe(l, event.Root)
type Listener struct {
	name string
	fn   HandlerFunc
}

// NewListener wraps fn into a caller-owned Listener.
// An empty name is replaced by the function's symbol name.
func NewListener(name string, fn HandlerFunc) *Listener {
	if name == "" && fn != nil {
		name = funcName(fn)
	}

	return &Listener{
		name: name,
		fn:   fn,
	}
}

// Name returns the listener name.
func (l *Listener) Name() string {
	if l == nil {
		return ""
	}
	return l.name
}

// Handle invokes the listener synchronously.
func (l *Listener) Handle(ctx context.Context, e Event) {
	l.fn(ctx, e)
}

// Reference implements Handler.
func (l *Listener) Reference() (Ref, error) {
	if l == nil {
		return nil, &InvalidHandlerError{Reason: "listener is nil"}
	}
	if l.fn == nil {
		return nil, &InvalidHandlerError{Handler: l.name, Reason: "listener has no function"}
	}

	return listenerRef{ptr: weak.Make(l), name: l.name}, nil
}

type listenerRef struct {
	ptr  weak.Pointer[Listener]
	name string
}

func (r listenerRef) Resolve() (HandlerFunc, bool) {
	l := r.ptr.Value()
	if l == nil {
		return nil, false
	}
	return l.fn, true
}

func (r listenerRef) Key() any {
	return r.ptr
}

func (r listenerRef) Name() string {
	return r.name
}

// Method binds a method expression to a receiver without owning the receiver.
// The subscription expires once recv is no longer reachable.
//
// Handlers are identified by receiver and function value. Every evaluation of
// a method expression yields the same value, so Unsubscribe can rebuild the
// handler. A closure that captures variables is a distinct value each time its
// literal is evaluated and must be kept around to be unsubscribed. It must not
// capture recv either, or recv is never reclaimed.
//
// Example:
//
//	type Mailer struct{ ... }
//
//	func (m *Mailer) OnUserCreated(ctx context.Context, e event.Event) { ... }
//
//	err := bus.Subscribe(event.Method(mailer, (*Mailer).OnUserCreated), UserCreatedType)
func Method[R any](recv *R, method func(*R, context.Context, Event)) Handler {
	h := methodHandler[R]{}
	if method != nil {
		h.name = funcName(method)
		h.fn = funcValue(method)
		h.method = method
	}
	if recv != nil {
		h.recv = weak.Make(recv)
		h.bound = true
	}
	return h
}

type methodKey[R any] struct {
	recv weak.Pointer[R]
	fn   unsafe.Pointer
}

// methodHandler holds only a weak pointer to the receiver, so keeping the
// Handler value around does not pin the receiver either.
type methodHandler[R any] struct {
	recv   weak.Pointer[R]
	bound  bool
	method func(*R, context.Context, Event)
	fn     unsafe.Pointer
	name   string
}

func (h methodHandler[R]) Reference() (Ref, error) {
	if h.method == nil {
		return nil, &InvalidHandlerError{Reason: "method is nil"}
	}
	if !h.bound {
		return nil, &InvalidHandlerError{Handler: h.name, Reason: "receiver is nil"}
	}
	if h.recv.Value() == nil {
		return nil, &InvalidHandlerError{Handler: h.name, Reason: "receiver already reclaimed"}
	}
	return h, nil
}

func (h methodHandler[R]) Resolve() (HandlerFunc, bool) {
	recv := h.recv.Value()
	if recv == nil {
		return nil, false
	}

	method := h.method
	return func(ctx context.Context, e Event) {
		method(recv, ctx, e)
	}, true
}

func (h methodHandler[R]) Key() any {
	return methodKey[R]{recv: h.recv, fn: h.fn}
}

func (h methodHandler[R]) Name() string {
	return h.name
}

// HandlerOf adapts a function over a concrete event type into a HandlerFunc.
// Events that are not of type E are skipped, which matters for handlers
// subscribed to an ancestor type.
//
// Example:
//
//	l := event.NewListener("mailer", event.HandlerOf(func(ctx context.Context, e UserCreated) {
//	    sendWelcome(ctx, e.Email)
//	}))
func HandlerOf[E Event](fn func(context.Context, E)) HandlerFunc {
	return func(ctx context.Context, e Event) {
		typed, ok := e.(E)
		if !ok {
			return
		}
		fn(ctx, typed)
	}
}

// funcValue returns the closure a func value points to. Unlike the code
// pointer it tells apart closures built from the same literal.
func funcValue[F any](fn F) unsafe.Pointer {
	return *(*unsafe.Pointer)(unsafe.Pointer(&fn))
}

func funcName(fn any) string {
	f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer())
	if f == nil {
		return fmt.Sprintf("%T", fn)
	}
	return f.Name()
}
