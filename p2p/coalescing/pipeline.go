package coalescing

import (
	"log"

	"github.com/sarchlab/eeesim/p2p"
)

// sendFrame hands a frame that just left the queue to the transmit pipeline.
func (c *Comp) sendFrame(f *p2p.Frame) {
	c.hookFrame(HookPosSniffer, f)
	c.hookFrame(HookPosPromiscSniffer, f)
	c.transmitStart(f)
}

func (c *Comp) transmitStart(f *p2p.Frame) {
	if !c.linkUp {
		log.Panicf("%s: transmitting while the link is down", c.name)
	}

	if c.txState != TxReady {
		log.Panicf("%s: transmitting %s while %s is in flight",
			c.name, f, c.currentFrame)
	}

	c.txState = TxBusy
	c.currentFrame = f
	c.hookFrame(HookPosPhyTxBegin, f)

	txTime := c.cfg.DataRate.TxTime(f.Size())
	c.schedule(transmitCompleteEvent{}, txTime+c.cfg.InterframeGap)

	if !c.channel.TransmitStart(f, c, txTime) {
		c.hookFrame(HookPosPhyTxDrop, f)
	}

	c.counters.RecordTransmit(f.Size())
}

func (c *Comp) handleTransmitComplete() {
	if c.txState != TxBusy {
		log.Panicf("%s: transmit complete while not transmitting", c.name)
	}

	c.txState = TxReady
	c.hookFrame(HookPosPhyTxEnd, c.currentFrame)
	c.currentFrame = nil

	if c.queue.Len() == 0 {
		c.queueEmptied()
		return
	}

	if c.state != StateSend {
		return
	}

	c.sendFrame(c.queue.Dequeue())
}
