package channel

import (
	"log"

	"github.com/sarchlab/eeesim/sim/timing"
)

// Builder can build channels.
type Builder struct {
	engine    timing.EventScheduler
	delay     timing.VTime
	transport Transport
}

// MakeBuilder creates a builder with a zero delay.
func MakeBuilder() Builder {
	return Builder{}
}

// WithEngine sets the engine that schedules the deliveries. For a
// distributed channel it is the engine of the sending partition.
func (b Builder) WithEngine(e timing.EventScheduler) Builder {
	b.engine = e
	return b
}

// WithDelay sets the propagation delay.
func (b Builder) WithDelay(d timing.VTime) Builder {
	b.delay = d
	return b
}

// WithTransport sets the transport a distributed channel sends through.
func (b Builder) WithTransport(t Transport) Builder {
	b.transport = t
	return b
}

// BuildLocal creates a LocalChannel.
func (b Builder) BuildLocal(name string) *LocalChannel {
	if b.engine == nil {
		log.Panicf("channel %s: engine is required", name)
	}

	c := &LocalChannel{engine: b.engine}
	c.name = name
	c.delay = b.delay

	return c
}

// BuildDistributed creates a DistributedChannel.
func (b Builder) BuildDistributed(name string) *DistributedChannel {
	if b.engine == nil {
		log.Panicf("channel %s: engine is required", name)
	}

	if b.transport == nil {
		log.Panicf("channel %s: transport is required", name)
	}

	c := &DistributedChannel{
		timeTeller: b.engine,
		transport:  b.transport,
	}
	c.name = name
	c.delay = b.delay

	return c
}
