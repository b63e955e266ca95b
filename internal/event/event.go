// Package event defines events and their type hierarchy, the handler shapes
// that can be subscribed without being owned, and the interfaces the bus is
// assembled from.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents something that happened, typed within the event hierarchy.
// Events are routed to handlers subscribed to their own type or any ancestor.
type Event interface {
	// Type returns the concrete type of the event.
	Type() *Type
	// ID returns the unique identifier assigned at construction.
	ID() string
	// CreatedAt returns the time the event was constructed.
	CreatedAt() time.Time
}

// Base is the immutable core of every event. Embed it in domain events:
//
//	var OrderPlacedType = event.NewType("OrderPlaced", nil)
//
//	type OrderPlaced struct {
//	    event.Base
//	    OrderID string
//	}
//
//	e := OrderPlaced{Base: event.NewBase(OrderPlacedType), OrderID: "ORD-1"}
type Base struct {
	id        string
	typ       *Type
	createdAt time.Time
}

// NewBase stamps a new event of type t with an ID and creation time.
// A nil type yields an event of type Root.
func NewBase(t *Type) Base {
	if t == nil {
		t = Root
	}

	return Base{
		id:        uuid.New().String(),
		typ:       t,
		createdAt: time.Now().UTC(),
	}
}

// Type implements Event. The zero Base reports Root.
func (b Base) Type() *Type {
	if b.typ == nil {
		return Root
	}
	return b.typ
}

// ID implements Event.
func (b Base) ID() string {
	return b.id
}

// CreatedAt implements Event.
func (b Base) CreatedAt() time.Time {
	return b.createdAt
}
