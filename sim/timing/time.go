package timing

import (
	"fmt"
	"log"
	"math"
	"math/bits"
	"time"
)

// VTime is a point on (or a span of) the simulated timeline, counted in
// picoseconds.
type VTime uint64

// Units of simulated time.
const (
	Picosecond  VTime = 1
	Nanosecond        = 1000 * Picosecond
	Microsecond       = 1000 * Nanosecond
	Millisecond       = 1000 * Microsecond
	Second            = 1000 * Millisecond
)

// FromDuration converts a wall-clock style duration into simulated time.
func FromDuration(d time.Duration) VTime {
	if d < 0 {
		log.Panicf("negative duration %s", d)
	}

	return VTime(d) * Nanosecond
}

// FromSeconds converts seconds into simulated time, rounded to the nearest
// picosecond.
func FromSeconds(s float64) VTime {
	if s < 0 || math.IsNaN(s) {
		log.Panicf("invalid time %f", s)
	}

	return VTime(math.Round(s * float64(Second)))
}

// Seconds returns the time in seconds.
func (t VTime) Seconds() float64 {
	return float64(t) / float64(Second)
}

// Nanoseconds returns the time in whole nanoseconds, truncated.
func (t VTime) Nanoseconds() uint64 {
	return uint64(t / Nanosecond)
}

// Duration converts the time to a time.Duration, truncated to nanoseconds.
func (t VTime) Duration() time.Duration {
	return time.Duration(t / Nanosecond)
}

func (t VTime) String() string {
	switch {
	case t == 0:
		return "0s"
	case t%Second == 0:
		return fmt.Sprintf("%ds", t/Second)
	case t%Microsecond == 0:
		return fmt.Sprintf("%dus", t/Microsecond)
	case t%Nanosecond == 0:
		return fmt.Sprintf("%dns", t/Nanosecond)
	default:
		return fmt.Sprintf("%dps", uint64(t))
	}
}

// DataRate is a link speed in bits per second.
type DataRate uint64

// Units of data rate.
const (
	BitPerSecond DataRate = 1
	Kbps                  = 1000 * BitPerSecond
	Mbps                  = 1000 * Kbps
	Gbps                  = 1000 * Mbps
)

// BitsPerSecond returns the rate as a plain integer.
func (r DataRate) BitsPerSecond() uint64 {
	return uint64(r)
}

// TxTime returns the time needed to serialize the given number of bytes,
// rounded up to the next picosecond.
func (r DataRate) TxTime(numBytes int) VTime {
	if r == 0 {
		log.Panic("data rate cannot be 0")
	}

	if numBytes < 0 {
		log.Panicf("negative byte count %d", numBytes)
	}

	numBits := uint64(numBytes) * 8
	hi, lo := bits.Mul64(numBits, uint64(Second))
	quo, rem := bits.Div64(hi, lo, uint64(r))

	if rem > 0 {
		quo++
	}

	return VTime(quo)
}

func (r DataRate) String() string {
	switch {
	case r%Gbps == 0:
		return fmt.Sprintf("%dGbps", r/Gbps)
	case r%Mbps == 0:
		return fmt.Sprintf("%dMbps", r/Mbps)
	case r%Kbps == 0:
		return fmt.Sprintf("%dKbps", r/Kbps)
	default:
		return fmt.Sprintf("%dbps", uint64(r))
	}
}
