package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/eeesim/sim/timing"
)

// DataRate is a link rate written with an SI prefix, such as "10Gbps".
type DataRate timing.DataRate

// ParseDataRate parses a rate in bits per second. The unit may be omitted.
func ParseDataRate(s string) (DataRate, error) {
	v, unit, err := humanize.ParseSI(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("data rate %q: %w", s, err)
	}

	switch unit {
	case "", "bps", "bit/s", "b/s":
	default:
		return 0, fmt.Errorf("data rate %q: unknown unit %q", s, unit)
	}

	if v < 0 {
		return 0, fmt.Errorf("data rate %q is negative", s)
	}

	return DataRate(v), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (r *DataRate) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseDataRate(value.Value)
	if err != nil {
		return err
	}

	*r = v

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (r DataRate) MarshalYAML() (any, error) {
	return r.String(), nil
}

func (r DataRate) String() string {
	return timing.DataRate(r).String()
}

// ByteSize is a number of bytes, such as "24kB" or "64KiB".
type ByteSize uint64

// ParseByteSize parses a byte count with an optional SI or IEC suffix.
func ParseByteSize(s string) (ByteSize, error) {
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("byte size %q: %w", s, err)
	}

	return ByteSize(v), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseByteSize(value.Value)
	if err != nil {
		return err
	}

	*b = v

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (b ByteSize) MarshalYAML() (any, error) {
	return uint64(b), nil
}

func (b ByteSize) String() string {
	return humanize.Bytes(uint64(b))
}

// Duration is a simulated duration written as a Go duration, such as "800us".
type Duration timing.VTime

// ParseDuration parses a non-negative duration.
func ParseDuration(s string) (Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", s, err)
	}

	if d < 0 {
		return 0, fmt.Errorf("duration %q is negative", s)
	}

	return Duration(timing.FromDuration(d)), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	v, err := ParseDuration(value.Value)
	if err != nil {
		return err
	}

	*d = v

	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return timing.VTime(d).Duration().String(), nil
}

// VTime returns the duration as simulated time.
func (d Duration) VTime() timing.VTime {
	return timing.VTime(d)
}

func (d Duration) String() string {
	return timing.VTime(d).String()
}
