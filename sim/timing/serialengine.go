package timing

import (
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/sarchlab/eeesim/sim/hooking"
)

// A SerialEngine is an Engine that always run events one after another.
type SerialEngine struct {
	hooking.HookableBase

	timeLock       sync.RWMutex
	time           VTime
	queue          EventQueue
	secondaryQueue EventQueue

	isPaused     bool
	isPausedLock sync.Mutex
	pauseLock    sync.Mutex

	singleRunLock sync.Mutex

	endHandlersLock sync.Mutex
	endHandlers     []SimulationEndHandler
}

// NewSerialEngine creates a SerialEngine
func NewSerialEngine() *SerialEngine {
	e := new(SerialEngine)

	e.queue = NewEventQueue()
	e.secondaryQueue = NewEventQueue()

	return e
}

// Name returns the name of the engine.
func (e *SerialEngine) Name() string {
	return "SerialEngine"
}

// Schedule register an event to be happen in the future
func (e *SerialEngine) Schedule(evt ScheduledEvent) {
	now := e.readNow()
	if evt.Time < now {
		log.Panicf("scheduling an event at %s, earlier than current time %s",
			evt.Time, now)
	}

	if evt.Handler == nil {
		log.Panicf("event %s has no handler", reflect.TypeOf(evt.Event))
	}

	if evt.IsSecondary {
		e.secondaryQueue.Push(evt)

		return
	}

	e.queue.Push(evt)
}

func (e *SerialEngine) readNow() VTime {
	e.timeLock.RLock()
	t := e.time
	e.timeLock.RUnlock()

	return t
}

func (e *SerialEngine) writeNow(t VTime) {
	e.timeLock.Lock()
	e.time = t
	e.timeLock.Unlock()
}

// Run processes all the events scheduled in the SerialEngine
func (e *SerialEngine) Run() error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for !e.noMoreEvent() {
		if err := e.runOne(); err != nil {
			return err
		}
	}

	return nil
}

// RunUntil processes every event scheduled no later than t. The clock is left
// at t, even if the last event happened earlier.
func (e *SerialEngine) RunUntil(t VTime) error {
	e.singleRunLock.Lock()
	defer e.singleRunLock.Unlock()

	for !e.noMoreEvent() && e.peekTime() <= t {
		if err := e.runOne(); err != nil {
			return err
		}
	}

	if e.readNow() < t {
		e.writeNow(t)
	}

	return nil
}

func (e *SerialEngine) runOne() error {
	e.pauseLock.Lock()
	defer e.pauseLock.Unlock()

	evt := e.nextEvent()
	now := e.readNow()

	if evt.Time < now {
		log.Panicf(
			"cannot run event in the past, evt %s @ %s, now %s",
			reflect.TypeOf(evt.Event), evt.Time, now,
		)
	}

	e.writeNow(evt.Time)

	hookCtx := hooking.HookCtx{
		Domain: e,
		Pos:    HookPosBeforeEvent,
		Item:   evt,
	}
	e.InvokeHook(hookCtx)

	if err := evt.Handler.Handle(evt.Event); err != nil {
		return fmt.Errorf("handling %s @ %s: %w",
			reflect.TypeOf(evt.Event), evt.Time, err)
	}

	hookCtx.Pos = HookPosAfterEvent
	e.InvokeHook(hookCtx)

	return nil
}

func (e *SerialEngine) noMoreEvent() bool {
	return e.queue.Len() == 0 && e.secondaryQueue.Len() == 0
}

func (e *SerialEngine) peekTime() VTime {
	if e.queue.Len() == 0 {
		return e.secondaryQueue.Peek().Time
	}

	if e.secondaryQueue.Len() == 0 {
		return e.queue.Peek().Time
	}

	return min(e.queue.Peek().Time, e.secondaryQueue.Peek().Time)
}

func (e *SerialEngine) nextEvent() ScheduledEvent {
	if e.queue.Len() == 0 {
		return e.secondaryQueue.Pop()
	}

	if e.secondaryQueue.Len() == 0 {
		return e.queue.Pop()
	}

	primaryEvt := e.queue.Peek()
	secondaryEvt := e.secondaryQueue.Peek()

	if primaryEvt.Time <= secondaryEvt.Time {
		return e.queue.Pop()
	}

	return e.secondaryQueue.Pop()
}

// Pause prevents the SerialEngine to trigger more events.
func (e *SerialEngine) Pause() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if e.isPaused {
		return
	}

	e.pauseLock.Lock()
	e.isPaused = true
}

// Continue allows the SerialEngine to trigger more events.
func (e *SerialEngine) Continue() {
	e.isPausedLock.Lock()
	defer e.isPausedLock.Unlock()

	if !e.isPaused {
		return
	}

	e.pauseLock.Unlock()
	e.isPaused = false
}

// CurrentTime returns the current time at which the engine is at.
// Specifically, the run time of the current event.
func (e *SerialEngine) CurrentTime() VTime {
	return e.readNow()
}

// RegisterSimulationEndHandler registers a handler to be called after the
// simulation ends.
func (e *SerialEngine) RegisterSimulationEndHandler(h SimulationEndHandler) {
	e.endHandlersLock.Lock()
	e.endHandlers = append(e.endHandlers, h)
	e.endHandlersLock.Unlock()
}

// Finished should be called after the simulation ends. This function calls
// all the registered SimulationEndHandler, in registration order.
func (e *SerialEngine) Finished() {
	e.endHandlersLock.Lock()
	handlers := e.endHandlers
	e.endHandlersLock.Unlock()

	now := e.readNow()
	for _, h := range handlers {
		h.Handle(now)
	}
}

var _ Engine = (*SerialEngine)(nil)
