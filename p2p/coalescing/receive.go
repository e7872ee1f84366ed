package coalescing

import (
	"github.com/sarchlab/eeesim/p2p"
	"github.com/sarchlab/eeesim/p2p/framing"
)

func (c *Comp) receive(f *p2p.Frame) {
	if c.receiveErrorModel != nil && c.receiveErrorModel.IsCorrupt(f) {
		c.hookFrame(HookPosPhyRxDrop, f)
		return
	}

	c.hookFrame(HookPosSniffer, f)
	c.hookFrame(HookPosPromiscSniffer, f)
	c.hookFrame(HookPosPhyRxEnd, f)

	proto, payload := framing.Decode(f.Payload)
	from := c.Remote()

	if c.promiscRxHandler != nil {
		c.hookFrame(HookPosMacPromiscRx, f)
		c.promiscRxHandler(c, payload, proto, from, c.address)
	}

	c.hookFrame(HookPosMacRx, f)

	if c.rxHandler != nil {
		c.rxHandler(c, payload, proto, from)
	}
}
