package coalescing

import (
	"errors"
	"fmt"

	"github.com/sarchlab/eeesim/sim/timing"
)

// ErrInvalidConfig is wrapped by every error Config.Validate returns.
var ErrInvalidConfig = errors.New("invalid device configuration")

// Config is the fixed configuration of a device.
type Config struct {
	// DataRate is the serialization rate of the link.
	DataRate timing.DataRate

	// InterframeGap is the idle time after each frame before the next one
	// may start.
	InterframeGap timing.VTime

	// MTU is the largest payload the device carries, excluding the header.
	MTU int

	// QueueCapacity bounds the bytes the transmit queue holds.
	QueueCapacity int

	// Timeout (Te) is how long the first frame of a batch may wait in the
	// queue before the link wakes up.
	Timeout timing.VTime

	// ByteLimit (Bl) is the number of queued bytes that wakes the link
	// without waiting for the timeout.
	ByteLimit int

	// WakeTime (Tw) is how long leaving low power takes. Entering low power
	// takes the same time.
	WakeTime timing.VTime
}

// DefaultConfig returns the configuration of a 10 Gbps EEE link.
func DefaultConfig() Config {
	return Config{
		DataRate:      10 * timing.Gbps,
		InterframeGap: 0,
		MTU:           1500,
		QueueCapacity: 100 * 1502,
		Timeout:       800 * timing.Microsecond,
		ByteLimit:     24000,
		WakeTime:      4480 * timing.Nanosecond,
	}
}

// Validate checks that the configuration describes a usable device.
func (c Config) Validate() error {
	if c.DataRate == 0 {
		return fmt.Errorf("data rate must be positive: %w", ErrInvalidConfig)
	}

	if c.MTU <= 0 || c.MTU > 0xffff {
		return fmt.Errorf("MTU %d out of range: %w", c.MTU, ErrInvalidConfig)
	}

	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity %d must be positive: %w",
			c.QueueCapacity, ErrInvalidConfig)
	}

	if c.ByteLimit <= 0 {
		return fmt.Errorf("byte limit %d must be positive: %w",
			c.ByteLimit, ErrInvalidConfig)
	}

	return nil
}
