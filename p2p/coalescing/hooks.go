package coalescing

import (
	"github.com/sarchlab/eeesim/p2p"
	"github.com/sarchlab/eeesim/sim/hooking"
	"github.com/sarchlab/eeesim/sim/timing"
)

// Frame hook positions. The hook item is the *p2p.Frame and the detail is a
// FrameEvent.
var (
	// HookPosMacTx marks a frame accepted from the upper layer, with its
	// header.
	HookPosMacTx = &hooking.HookPos{Name: "MacTx"}

	// HookPosMacTxDrop marks a frame dropped before it reaches the queue.
	HookPosMacTxDrop = &hooking.HookPos{Name: "MacTxDrop"}

	// HookPosPhyTxBegin marks the start of a transmission.
	HookPosPhyTxBegin = &hooking.HookPos{Name: "PhyTxBegin"}

	// HookPosPhyTxEnd marks the end of a transmission.
	HookPosPhyTxEnd = &hooking.HookPos{Name: "PhyTxEnd"}

	// HookPosPhyTxDrop marks a frame the channel refused.
	HookPosPhyTxDrop = &hooking.HookPos{Name: "PhyTxDrop"}

	// HookPosPhyRxEnd marks a frame fully received.
	HookPosPhyRxEnd = &hooking.HookPos{Name: "PhyRxEnd"}

	// HookPosPhyRxDrop marks a received frame the error model corrupted.
	HookPosPhyRxDrop = &hooking.HookPos{Name: "PhyRxDrop"}

	// HookPosSniffer marks every frame sent or received, like a packet
	// capture on the device would see it.
	HookPosSniffer = &hooking.HookPos{Name: "Sniffer"}

	// HookPosPromiscSniffer is HookPosSniffer for promiscuous captures.
	HookPosPromiscSniffer = &hooking.HookPos{Name: "PromiscSniffer"}

	// HookPosMacRx marks a frame passed up to the receive handler.
	HookPosMacRx = &hooking.HookPos{Name: "MacRx"}

	// HookPosMacPromiscRx marks a frame passed up to the promiscuous handler.
	HookPosMacPromiscRx = &hooking.HookPos{Name: "MacPromiscRx"}
)

// HookPosStateChange marks a coalescing state transition. The hook item is a
// Transition.
var HookPosStateChange = &hooking.HookPos{Name: "StateChange"}

// FrameEvent is the detail of the frame hooks.
type FrameEvent struct {
	Time timing.VTime
}

func (c *Comp) hookFrame(pos *hooking.HookPos, f *p2p.Frame) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(hooking.HookCtx{
		Domain: c,
		Pos:    pos,
		Item:   f,
		Detail: FrameEvent{Time: c.engine.CurrentTime()},
	})
}
