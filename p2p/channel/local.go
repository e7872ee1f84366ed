package channel

import (
	"github.com/sarchlab/eeesim/p2p"
	"github.com/sarchlab/eeesim/sim/timing"
)

// LocalChannel delivers frames through the event scheduler that both of its
// endpoints share.
type LocalChannel struct {
	wires

	engine timing.EventScheduler
}

// TransmitStart schedules the delivery of a copy of the frame to the peer of
// src.
func (c *LocalChannel) TransmitStart(
	frame *p2p.Frame,
	src Endpoint,
	txTime timing.VTime,
) bool {
	c.mustBeInitialized()

	dst := c.links[c.wireOf(src)].dst
	now := c.engine.CurrentTime()

	c.engine.Schedule(timing.ScheduledEvent{
		Event:   DeliverEvent{Frame: frame.Clone()},
		Time:    now + txTime + c.delay,
		Handler: dst,
	})

	c.traceTxRx(c, frame, src, dst, txTime)

	return true
}

var _ Channel = (*LocalChannel)(nil)
