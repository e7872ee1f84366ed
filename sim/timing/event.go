package timing

import "github.com/sarchlab/eeesim/sim/hooking"

// Handler processes events of various types.
// Events are plain data structs. Handlers use type switching to handle
// different event types:
//
//	func (c *Comp) Handle(event any) error {
//	    switch e := event.(type) {
//	    case *transmitCompleteEvent:
//	        return c.handleTransmitComplete(e)
//	    default:
//	        return fmt.Errorf("unknown event type: %T", event)
//	    }
//	}
type Handler interface {
	Handle(event any) error
}

// ScheduledEvent is the engine-facing wrapper for user-defined events. It
// holds the metadata needed by the scheduler while keeping the payload as
// plain data.
type ScheduledEvent struct {
	// Event is the data payload to be delivered to the handler.
	Event any

	// Time is when the event should be processed.
	Time VTime

	// Handler is the component that will process this event.
	Handler Handler

	// IsSecondary indicates if this event should be processed after all
	// primary events at the same time.
	IsSecondary bool
}

// HookPosBeforeEvent is a hook position that triggers before handling an event.
var HookPosBeforeEvent = &hooking.HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent is a hook position that triggers after handling an event.
var HookPosAfterEvent = &hooking.HookPos{Name: "AfterEvent"}
