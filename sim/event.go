package sim

// VTimeInSec is the time on the simulation timeline, in seconds. With the
// RealtimeEngine it tracks the wall clock; with the SerialEngine it is
// purely virtual.
type VTimeInSec float64

// A Named object is an object that has a name.
type Named interface {
	Name() string
}

// An Event is something going to happen in the future.
type Event interface {
	// Time returns the time that the event should happen.
	Time() VTimeInSec

	// Handler returns the handler that should handle the event.
	Handler() Handler

	// IsSecondary tells if the event is a secondary event. Secondary events
	// are handled after all same-time primary events are handled.
	IsSecondary() bool
}

// EventBase provides the basic fields and getters for other events.
type EventBase struct {
	ID        string
	time      VTimeInSec
	handler   Handler
	secondary bool
}

// NewEventBase creates a new EventBase.
func NewEventBase(t VTimeInSec, handler Handler) EventBase {
	return EventBase{
		ID:      GetIDGenerator().Generate(),
		time:    t,
		handler: handler,
	}
}

// NewSecondaryEventBase creates an EventBase for a secondary event.
func NewSecondaryEventBase(t VTimeInSec, handler Handler) EventBase {
	e := NewEventBase(t, handler)
	e.secondary = true
	return e
}

// Time returns the time that the event is going to happen.
func (e EventBase) Time() VTimeInSec {
	return e.time
}

// Handler returns the handler to handle the event.
func (e EventBase) Handler() Handler {
	return e.handler
}

// IsSecondary returns true if the event is a secondary event.
func (e EventBase) IsSecondary() bool {
	return e.secondary
}

// A Handler defines a domain for the events.
//
// One event is always constrained to one Handler: the event can only be
// scheduled by its handler and can only directly modify that handler. The
// only exception is the kick-start of the simulation, where the starter can
// schedule to all handlers.
type Handler interface {
	Handle(e Event) error
}
