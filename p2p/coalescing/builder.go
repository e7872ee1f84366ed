package coalescing

import (
	"log"

	"github.com/sarchlab/eeesim/p2p"
	"github.com/sarchlab/eeesim/p2p/measurement"
	"github.com/sarchlab/eeesim/p2p/txqueue"
	"github.com/sarchlab/eeesim/sim/id"
	"github.com/sarchlab/eeesim/sim/timing"
)

// Builder can build coalescing devices.
type Builder struct {
	engine      timing.EventScheduler
	cfg         Config
	nodeID      uint32
	ifIndex     uint32
	address     p2p.Address
	idGenerator id.IDGenerator
	sink        measurement.Sink
}

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		cfg:     DefaultConfig(),
		address: p2p.BroadcastAddress,
	}
}

// WithEngine sets the engine that schedules the events of the device.
func (b Builder) WithEngine(e timing.EventScheduler) Builder {
	b.engine = e
	return b
}

// WithConfig sets the configuration of the device.
func (b Builder) WithConfig(cfg Config) Builder {
	b.cfg = cfg
	return b
}

// WithNodeID sets the id of the node that owns the device.
func (b Builder) WithNodeID(nodeID uint32) Builder {
	b.nodeID = nodeID
	return b
}

// WithIfIndex sets the index of the device on its node.
func (b Builder) WithIfIndex(ifIndex uint32) Builder {
	b.ifIndex = ifIndex
	return b
}

// WithAddress sets the address of the device.
func (b Builder) WithAddress(a p2p.Address) Builder {
	b.address = a
	return b
}

// WithIDGenerator sets the generator of frame ids. Devices of the same
// simulation should share one.
func (b Builder) WithIDGenerator(g id.IDGenerator) Builder {
	b.idGenerator = g
	return b
}

// WithSink sets where the device writes its measurements.
func (b Builder) WithSink(s measurement.Sink) Builder {
	b.sink = s
	return b
}

// Build creates a device in low power. It panics if the configuration is
// invalid.
func (b Builder) Build(name string) *Comp {
	if b.engine == nil {
		log.Panicf("device %s: engine is required", name)
	}

	if err := b.cfg.Validate(); err != nil {
		log.Panicf("device %s: %v", name, err)
	}

	if b.cfg.ByteLimit > b.cfg.QueueCapacity {
		logger.Warningf("%s: byte limit %d exceeds queue capacity %d, "+
			"only the timeout can wake the link",
			name, b.cfg.ByteLimit, b.cfg.QueueCapacity)
	}

	c := &Comp{
		name:        name,
		nodeID:      b.nodeID,
		ifIndex:     b.ifIndex,
		address:     b.address,
		cfg:         b.cfg,
		engine:      b.engine,
		idGenerator: b.idGenerator,
		sink:        b.sink,
		txState:     TxReady,
		state:       StateLowPower,
	}

	if c.idGenerator == nil {
		c.idGenerator = id.NewSequentialIDGenerator()
	}

	c.queue = txqueue.MakeBuilder().
		WithCapacity(b.cfg.QueueCapacity).
		Build(name + ".Queue")
	c.lowPowerStart = b.engine.CurrentTime()

	return c
}
