// Package channel provides the wire between the two devices of a
// point-to-point link.
package channel

import (
	"errors"
	"fmt"
	"log"

	"github.com/sarchlab/eeesim/p2p"
	"github.com/sarchlab/eeesim/sim/hooking"
	"github.com/sarchlab/eeesim/sim/timing"
)

// ErrChannelFull is returned when a third device attaches to a channel.
var ErrChannelFull = errors.New("channel already has two devices")

// HookPosTxRx marks when a frame is put on the wire. The hook item is the
// frame and the detail is a TxRx.
var HookPosTxRx = &hooking.HookPos{Name: "Channel TxRx"}

// An Endpoint is a device that can be attached to a channel. Frames arrive at
// the endpoint as DeliverEvent.
type Endpoint interface {
	timing.Handler

	Name() string
	NodeID() uint32
	IfIndex() uint32
}

// DeliverEvent hands a frame to the receiving endpoint.
type DeliverEvent struct {
	Frame *p2p.Frame
}

// TxRx describes one transmission on a channel.
type TxRx struct {
	Src     Endpoint
	Dst     Endpoint
	TxTime  timing.VTime
	Arrival timing.VTime
}

// A Channel connects exactly two endpoints with a fixed propagation delay.
type Channel interface {
	hooking.Hookable

	Name() string

	// Attach connects an endpoint to the channel. The first endpoint owns
	// wire 0 and the second owns wire 1.
	Attach(ep Endpoint) error

	// TransmitStart puts a frame on the wire of src. The peer receives a copy
	// of the frame after txTime plus the propagation delay. It returns false
	// if the frame cannot be delivered.
	TransmitStart(frame *p2p.Frame, src Endpoint, txTime timing.VTime) bool

	NumDevices() int
	Device(i int) Endpoint
	Delay() timing.VTime

	// Peer returns the endpoint at the other end of the wire of ep.
	Peer(ep Endpoint) Endpoint
}

type link struct {
	src Endpoint
	dst Endpoint
}

// wires holds the two directed links of a channel. It is shared by the local
// and the distributed channel.
type wires struct {
	hooking.HookableBase

	name       string
	delay      timing.VTime
	links      [2]link
	numDevices int
}

func (w *wires) Name() string {
	return w.name
}

func (w *wires) Attach(ep Endpoint) error {
	if ep == nil {
		log.Panicf("channel %s: attaching a nil endpoint", w.name)
	}

	if w.numDevices >= len(w.links) {
		return fmt.Errorf("attaching %s to %s: %w", ep.Name(), w.name,
			ErrChannelFull)
	}

	w.links[w.numDevices].src = ep
	w.numDevices++

	if w.numDevices == len(w.links) {
		w.links[0].dst = w.links[1].src
		w.links[1].dst = w.links[0].src
	}

	return nil
}

func (w *wires) NumDevices() int {
	return w.numDevices
}

func (w *wires) Device(i int) Endpoint {
	if i < 0 || i >= len(w.links) {
		log.Panicf("channel %s: no device %d", w.name, i)
	}

	return w.links[i].src
}

func (w *wires) Delay() timing.VTime {
	return w.delay
}

func (w *wires) Peer(ep Endpoint) Endpoint {
	if w.numDevices < len(w.links) {
		return nil
	}

	return w.links[w.wireOf(ep)].dst
}

func (w *wires) wireOf(src Endpoint) int {
	if src == w.links[0].src {
		return 0
	}

	return 1
}

func (w *wires) mustBeInitialized() {
	if w.numDevices != len(w.links) {
		log.Panicf("channel %s: transmitting with %d of 2 devices attached",
			w.name, w.numDevices)
	}
}

func (w *wires) traceTxRx(
	domain hooking.Hookable,
	frame *p2p.Frame,
	src, dst Endpoint,
	txTime timing.VTime,
) {
	if w.NumHooks() == 0 {
		return
	}

	w.InvokeHook(hooking.HookCtx{
		Domain: domain,
		Pos:    HookPosTxRx,
		Item:   frame,
		Detail: TxRx{
			Src:     src,
			Dst:     dst,
			TxTime:  txTime,
			Arrival: txTime + w.delay,
		},
	})
}
