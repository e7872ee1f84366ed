// Package p2p holds the types shared by every part of a point-to-point link:
// the frames that travel on it and the addresses of its ends.
package p2p

import (
	"fmt"
	"log"
	"net"
)

// A Frame is a unit of data on the wire. Once handed to a device the payload
// starts with the 2-byte framing header.
type Frame struct {
	ID      string
	Payload []byte
}

// NewFrame creates a frame. The payload is not copied.
func NewFrame(id string, payload []byte) *Frame {
	return &Frame{ID: id, Payload: payload}
}

// Size returns the number of bytes the frame occupies on the wire.
func (f *Frame) Size() int {
	return len(f.Payload)
}

// Clone returns a deep copy of the frame. Receivers always get a clone so
// that the sender and the receiver never share a buffer.
func (f *Frame) Clone() *Frame {
	payload := make([]byte, len(f.Payload))
	copy(payload, f.Payload)

	return &Frame{ID: f.ID, Payload: payload}
}

func (f *Frame) String() string {
	return fmt.Sprintf("frame %s (%dB)", f.ID, len(f.Payload))
}

// Address is a 48-bit MAC-style device address.
type Address [6]byte

// BroadcastAddress is the default address of a device that has not been
// given one.
var BroadcastAddress = Address{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// ParseAddress parses a colon-separated 48-bit address.
func ParseAddress(s string) (Address, error) {
	var a Address

	hw, err := net.ParseMAC(s)
	if err != nil {
		return a, err
	}

	if len(hw) != len(a) {
		return a, fmt.Errorf("address %q is not 48 bits long", s)
	}

	copy(a[:], hw)

	return a, nil
}

// MustParseAddress is ParseAddress that panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		log.Panic(err)
	}

	return a
}

// AddressFromUint64 builds an address from the low 48 bits of n. It gives
// every device in a generated topology a distinct address.
func AddressFromUint64(n uint64) Address {
	var a Address
	for i := len(a) - 1; i >= 0; i-- {
		a[i] = byte(n)
		n >>= 8
	}

	return a
}

func (a Address) String() string {
	return net.HardwareAddr(a[:]).String()
}
