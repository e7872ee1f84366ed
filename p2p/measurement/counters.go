// Package measurement accumulates the per-device energy and traffic counters
// of a coalescing link and writes them out when the simulation ends.
package measurement

import "github.com/sarchlab/eeesim/sim/timing"

// Counters are the running measurements of one device.
type Counters struct {
	// LowPowerTime is the total time spent in low-power intervals, not
	// counting the first one.
	LowPowerTime timing.VTime

	// LowPowerIntervals counts every completed low-power interval, including
	// the first.
	LowPowerIntervals uint64

	Frames uint64
	Bytes  uint64

	Arrivals        uint64
	LastArrival     timing.VTime
	SumInterarrival timing.VTime
}

// RecordArrival accounts for a frame accepted into the transmit queue.
func (c *Counters) RecordArrival(now timing.VTime) {
	if c.Arrivals > 0 {
		c.SumInterarrival += now - c.LastArrival
	}

	c.LastArrival = now
	c.Arrivals++
}

// RecordTransmit accounts for a frame put on the wire.
func (c *Counters) RecordTransmit(size int) {
	c.Frames++
	c.Bytes += uint64(size)
}

// CompleteLowPowerInterval accounts for a low-power interval that just ended.
// Traffic may start well after the simulation does, so the first interval
// only counts as an interval and its duration is dropped.
func (c *Counters) CompleteLowPowerInterval(duration timing.VTime) {
	if c.LowPowerIntervals > 0 {
		c.LowPowerTime += duration
	}

	c.LowPowerIntervals++
}

// MeanInterarrival returns the mean gap between arrivals in seconds, or 0 if
// fewer than two frames arrived.
func (c *Counters) MeanInterarrival() float64 {
	if c.Arrivals < 2 {
		return 0
	}

	return c.SumInterarrival.Seconds() / float64(c.Arrivals-1)
}

// Record produces the persisted form of the counters.
func (c *Counters) Record(
	nodeID, ifIndex uint32,
	rate timing.DataRate,
) Record {
	intervals := c.LowPowerIntervals
	if intervals > 0 {
		intervals--
	}

	return Record{
		NodeID:            nodeID,
		IfIndex:           ifIndex,
		LowPowerNanos:     c.LowPowerTime.Nanoseconds(),
		LowPowerIntervals: intervals,
		Frames:            c.Frames,
		Bytes:             c.Bytes,
		MeanInterarrival:  c.MeanInterarrival(),
		LinkBitRate:       rate.BitsPerSecond(),
	}
}
