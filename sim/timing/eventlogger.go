package timing

import (
	"reflect"

	"github.com/juju/loggo"
	"github.com/sarchlab/eeesim/sim/hooking"
)

// EventLogger is a hook that writes every event the engine fires to a logger
// at TRACE level.
type EventLogger struct {
	logger loggo.Logger
}

// NewEventLogger returns a new EventLogger which writes into the logger.
func NewEventLogger(logger loggo.Logger) *EventLogger {
	h := new(EventLogger)

	h.logger = logger

	return h
}

type named interface {
	Name() string
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx hooking.HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(ScheduledEvent)
	if !ok {
		return
	}

	handlerName := reflect.TypeOf(evt.Handler).String()
	if n, ok := evt.Handler.(named); ok {
		handlerName = n.Name()
	}

	h.logger.Tracef("%s, %s -> %s",
		evt.Time, reflect.TypeOf(evt.Event), handlerName)
}
