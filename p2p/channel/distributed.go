package channel

import (
	"fmt"
	"sync"

	"github.com/juju/loggo"

	"github.com/sarchlab/eeesim/p2p"
	"github.com/sarchlab/eeesim/sim/timing"
)

var logger = loggo.GetLogger("eeesim.p2p.channel")

// RemoteDelivery is a frame crossing from one partition of the simulation to
// another. RxTime is absolute.
type RemoteDelivery struct {
	RxTime  timing.VTime
	Frame   *p2p.Frame
	NodeID  uint32
	IfIndex uint32
}

// A Transport carries deliveries between partitions.
type Transport interface {
	Send(d RemoteDelivery) error
}

// DistributedChannel connects two endpoints that live in different
// partitions. Each partition runs its own engine, so the receive time is
// computed on the sending side and carried with the frame.
type DistributedChannel struct {
	wires

	timeTeller timing.TimeTeller
	transport  Transport
}

// TransmitStart hands a copy of the frame to the transport, addressed to the
// peer of src.
func (c *DistributedChannel) TransmitStart(
	frame *p2p.Frame,
	src Endpoint,
	txTime timing.VTime,
) bool {
	c.mustBeInitialized()

	dst := c.links[c.wireOf(src)].dst
	rxTime := c.timeTeller.CurrentTime() + txTime + c.delay

	err := c.transport.Send(RemoteDelivery{
		RxTime:  rxTime,
		Frame:   frame.Clone(),
		NodeID:  dst.NodeID(),
		IfIndex: dst.IfIndex(),
	})
	if err != nil {
		logger.Warningf("%s: %s to %s not delivered: %v",
			c.name, frame, dst.Name(), err)
		return false
	}

	c.traceTxRx(c, frame, src, dst, txTime)

	return true
}

var _ Channel = (*DistributedChannel)(nil)

type endpointKey struct {
	nodeID  uint32
	ifIndex uint32
}

type partitionEndpoint struct {
	ep     Endpoint
	engine timing.EventScheduler
}

// LoopbackTransport is a Transport for partitions that run in the same
// process. Each endpoint is registered together with the engine of its own
// partition.
type LoopbackTransport struct {
	lock      sync.Mutex
	endpoints map[endpointKey]partitionEndpoint
}

// NewLoopbackTransport creates an empty LoopbackTransport.
func NewLoopbackTransport() *LoopbackTransport {
	return &LoopbackTransport{
		endpoints: make(map[endpointKey]partitionEndpoint),
	}
}

// Register makes the endpoint reachable by its node id and interface index.
func (t *LoopbackTransport) Register(
	ep Endpoint,
	engine timing.EventScheduler,
) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.endpoints[endpointKey{ep.NodeID(), ep.IfIndex()}] = partitionEndpoint{
		ep:     ep,
		engine: engine,
	}
}

// Send schedules the delivery on the engine of the destination partition.
func (t *LoopbackTransport) Send(d RemoteDelivery) error {
	t.lock.Lock()
	pe, ok := t.endpoints[endpointKey{d.NodeID, d.IfIndex}]
	t.lock.Unlock()

	if !ok {
		return fmt.Errorf("no endpoint at node %d interface %d",
			d.NodeID, d.IfIndex)
	}

	if now := pe.engine.CurrentTime(); d.RxTime < now {
		return fmt.Errorf("delivery at %s is earlier than %s, the time of "+
			"node %d", d.RxTime, now, d.NodeID)
	}

	pe.engine.Schedule(timing.ScheduledEvent{
		Event:   DeliverEvent{Frame: d.Frame},
		Time:    d.RxTime,
		Handler: pe.ep,
	})

	return nil
}

var _ Transport = (*LoopbackTransport)(nil)
