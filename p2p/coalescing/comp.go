// Package coalescing implements a point-to-point link device that saves
// energy the way Energy Efficient Ethernet does: it parks the link in low
// power and wakes it up only once enough frames have been coalesced or the
// oldest frame has waited long enough.
package coalescing

import (
	"errors"
	"fmt"

	"github.com/juju/loggo"

	"github.com/sarchlab/eeesim/p2p"
	"github.com/sarchlab/eeesim/p2p/channel"
	"github.com/sarchlab/eeesim/p2p/errormodel"
	"github.com/sarchlab/eeesim/p2p/framing"
	"github.com/sarchlab/eeesim/p2p/measurement"
	"github.com/sarchlab/eeesim/p2p/txqueue"
	"github.com/sarchlab/eeesim/sim/hooking"
	"github.com/sarchlab/eeesim/sim/id"
	"github.com/sarchlab/eeesim/sim/timing"
)

var logger = loggo.GetLogger("eeesim.p2p.coalescing")

// Errors returned by Send.
var (
	ErrLinkDown        = errors.New("link is down")
	ErrQueueOverflow   = errors.New("transmit queue overflow")
	ErrFrameTooLarge   = errors.New("payload exceeds MTU")
	ErrUnknownProtocol = framing.ErrUnknownProtocol
)

// ReceiveHandler is called with every frame the device receives, after the
// header has been removed.
type ReceiveHandler func(
	dev *Comp,
	payload []byte,
	proto framing.Protocol,
	from p2p.Address,
)

// PromiscReceiveHandler is the receive handler of a device in promiscuous
// mode.
type PromiscReceiveHandler func(
	dev *Comp,
	payload []byte,
	proto framing.Protocol,
	from, to p2p.Address,
)

// Comp is a point-to-point coalescing device.
type Comp struct {
	hooking.HookableBase

	name    string
	nodeID  uint32
	ifIndex uint32
	address p2p.Address
	cfg     Config

	engine      timing.EventScheduler
	queue       txqueue.Queue
	channel     channel.Channel
	idGenerator id.IDGenerator
	sink        measurement.Sink

	linkUp             bool
	linkChangeHandlers []func()
	rxHandler          ReceiveHandler
	promiscRxHandler   PromiscReceiveHandler
	receiveErrorModel  errormodel.ErrorModel

	txState      TxState
	currentFrame *p2p.Frame

	state         State
	cycle         uint64
	timerPending  bool
	lowPowerStart timing.VTime

	counters measurement.Counters
}

// Name returns the name of the device.
func (c *Comp) Name() string {
	return c.name
}

// NodeID returns the id of the node the device belongs to.
func (c *Comp) NodeID() uint32 {
	return c.nodeID
}

// IfIndex returns the index of the device on its node.
func (c *Comp) IfIndex() uint32 {
	return c.ifIndex
}

// Address returns the address of the device.
func (c *Comp) Address() p2p.Address {
	return c.address
}

// Remote returns the address of the device at the other end of the channel.
func (c *Comp) Remote() p2p.Address {
	if c.channel == nil {
		return p2p.BroadcastAddress
	}

	peer, ok := c.channel.Peer(c).(interface{ Address() p2p.Address })
	if !ok {
		return p2p.BroadcastAddress
	}

	return peer.Address()
}

// Config returns the configuration of the device.
func (c *Comp) Config() Config {
	return c.cfg
}

// MTU returns the largest payload the device carries.
func (c *Comp) MTU() int {
	return c.cfg.MTU
}

// Queue returns the transmit queue.
func (c *Comp) Queue() txqueue.Queue {
	return c.queue
}

// Channel returns the channel the device is attached to, or nil.
func (c *Comp) Channel() channel.Channel {
	return c.channel
}

// IsLinkUp reports whether the device is attached to a channel.
func (c *Comp) IsLinkUp() bool {
	return c.linkUp
}

// State returns the coalescing state.
func (c *Comp) State() State {
	return c.state
}

// TxState returns the state of the transmit pipeline.
func (c *Comp) TxState() TxState {
	return c.txState
}

// Cycle returns the timer cycle. It grows by one each time the queue drains.
func (c *Comp) Cycle() uint64 {
	return c.cycle
}

// TimerPending reports whether a coalescing timeout is scheduled.
func (c *Comp) TimerPending() bool {
	return c.timerPending
}

// Counters returns a snapshot of the measurements.
func (c *Comp) Counters() measurement.Counters {
	return c.counters
}

// Record returns the measurement record of the device.
func (c *Comp) Record() measurement.Record {
	return c.counters.Record(c.nodeID, c.ifIndex, c.cfg.DataRate)
}

// WriteMeasurements writes the measurement record into the sink of the
// device. It does nothing if the device has no sink.
func (c *Comp) WriteMeasurements() error {
	if c.sink == nil {
		return nil
	}

	return c.sink.Write(c.Record())
}

// SetReceiveHandler sets the function that receives incoming frames.
func (c *Comp) SetReceiveHandler(h ReceiveHandler) {
	c.rxHandler = h
}

// SetPromiscReceiveHandler puts the device in promiscuous mode.
func (c *Comp) SetPromiscReceiveHandler(h PromiscReceiveHandler) {
	c.promiscRxHandler = h
}

// SetReceiveErrorModel sets the model that corrupts incoming frames.
func (c *Comp) SetReceiveErrorModel(m errormodel.ErrorModel) {
	c.receiveErrorModel = m
}

// AddLinkChangeHandler registers a function called when the link goes up.
func (c *Comp) AddLinkChangeHandler(h func()) {
	c.linkChangeHandlers = append(c.linkChangeHandlers, h)
}

// Attach connects the device to a channel. The link is up as soon as the
// device is attached, even if the other end is not yet.
func (c *Comp) Attach(ch channel.Channel) error {
	if err := ch.Attach(c); err != nil {
		return err
	}

	c.channel = ch
	c.notifyLinkUp()

	return nil
}

func (c *Comp) notifyLinkUp() {
	c.linkUp = true

	for _, h := range c.linkChangeHandlers {
		h()
	}
}

// Send frames the payload and hands it to the coalescing logic. The
// destination is ignored since a point-to-point link has a single peer.
func (c *Comp) Send(
	payload []byte,
	dest p2p.Address,
	proto framing.Protocol,
) error {
	if !c.linkUp {
		c.hookFrame(HookPosMacTxDrop, c.newFrame(payload))
		return fmt.Errorf("%s: sending to %s: %w", c.name, dest, ErrLinkDown)
	}

	if len(payload) > c.cfg.MTU {
		c.hookFrame(HookPosMacTxDrop, c.newFrame(payload))
		return fmt.Errorf("%s: %d bytes, MTU %d: %w",
			c.name, len(payload), c.cfg.MTU, ErrFrameTooLarge)
	}

	framed, err := framing.Encode(payload, proto)
	if err != nil {
		c.hookFrame(HookPosMacTxDrop, c.newFrame(payload))
		return fmt.Errorf("%s: %w", c.name, err)
	}

	frame := c.newFrame(framed)
	c.hookFrame(HookPosMacTx, frame)

	c.armTimerIfIdle()

	if !c.queue.Enqueue(frame) {
		c.hookFrame(HookPosMacTxDrop, frame)
		return fmt.Errorf("%s: %s: %w", c.name, frame, ErrQueueOverflow)
	}

	c.counters.RecordArrival(c.engine.CurrentTime())
	c.wakeUpIfByteLimitReached()

	if c.state == StateSend && c.txState == TxReady {
		c.sendFrame(c.queue.Dequeue())
	}

	return nil
}

func (c *Comp) newFrame(payload []byte) *p2p.Frame {
	return p2p.NewFrame(c.idGenerator.Generate(), payload)
}

// Handle processes the events of the device.
func (c *Comp) Handle(event any) error {
	switch e := event.(type) {
	case TimeoutEvent:
		c.handleTimeout(e)
	case WakeupDoneEvent:
		c.handleWakeupDone()
	case SleepDoneEvent:
		c.handleSleepDone()
	case transmitCompleteEvent:
		c.handleTransmitComplete()
	case channel.DeliverEvent:
		c.receive(e.Frame)
	default:
		return fmt.Errorf("%s cannot handle event of type %T", c.name, event)
	}

	return nil
}

func (c *Comp) schedule(event any, after timing.VTime) {
	c.engine.Schedule(timing.ScheduledEvent{
		Event:   event,
		Time:    c.engine.CurrentTime() + after,
		Handler: c,
	})
}

// EndHandler returns the handler that writes the measurements of the device
// when the simulation ends.
func (c *Comp) EndHandler() timing.SimulationEndHandler {
	return measurementWriter{c}
}

type measurementWriter struct {
	c *Comp
}

func (w measurementWriter) Handle(timing.VTime) {
	if err := w.c.WriteMeasurements(); err != nil {
		logger.Errorf("%s: writing measurements: %v", w.c.name, err)
	}
}

var _ channel.Endpoint = (*Comp)(nil)
