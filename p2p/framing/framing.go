// Package framing implements the 2-byte point-to-point protocol header that
// prefixes every frame on a coalescing link.
package framing

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// HeaderSize is the number of bytes the header adds to a frame.
const HeaderSize = 2

// Protocol is the tag carried in the header.
type Protocol uint16

// The protocols a link can carry.
const (
	ProtocolIPv4 = Protocol(layers.PPPTypeIPv4)
	ProtocolIPv6 = Protocol(layers.PPPTypeIPv6)
)

// ErrUnknownProtocol is returned when a tag or an EtherType has no mapping.
var ErrUnknownProtocol = errors.New("unknown protocol")

// Valid reports whether the protocol can be carried.
func (p Protocol) Valid() bool {
	return p == ProtocolIPv4 || p == ProtocolIPv6
}

func (p Protocol) String() string {
	switch p {
	case ProtocolIPv4:
		return "IPv4"
	case ProtocolIPv6:
		return "IPv6"
	default:
		return fmt.Sprintf("Protocol(0x%04x)", uint16(p))
	}
}

// FromEtherType converts an EtherType into a header tag.
func FromEtherType(t layers.EthernetType) (Protocol, error) {
	switch t {
	case layers.EthernetTypeIPv4:
		return ProtocolIPv4, nil
	case layers.EthernetTypeIPv6:
		return ProtocolIPv6, nil
	default:
		return 0, fmt.Errorf("ethertype 0x%04x: %w", uint16(t), ErrUnknownProtocol)
	}
}

// EtherType converts the header tag into the matching EtherType.
func (p Protocol) EtherType() (layers.EthernetType, error) {
	switch p {
	case ProtocolIPv4:
		return layers.EthernetTypeIPv4, nil
	case ProtocolIPv6:
		return layers.EthernetTypeIPv6, nil
	default:
		return 0, fmt.Errorf("%s: %w", p, ErrUnknownProtocol)
	}
}

// Encode prepends the header to the payload and returns the framed bytes.
// The payload is left untouched.
func Encode(payload []byte, proto Protocol) ([]byte, error) {
	if !proto.Valid() {
		return nil, fmt.Errorf("encoding %s: %w", proto, ErrUnknownProtocol)
	}

	buf := gopacket.NewSerializeBufferExpectedSize(HeaderSize, len(payload))
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{},
		&layers.PPP{PPPType: layers.PPPType(proto)},
		gopacket.Payload(payload),
	)
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode strips the header, returning the tag and the inner payload. The
// returned payload aliases data.
//
// A frame that does not carry a known header means both ends disagree on the
// wire format, which no retry can fix, so Decode panics.
func Decode(data []byte) (Protocol, []byte) {
	if len(data) < HeaderSize {
		log.Panicf("frame of %d bytes is too short to carry a header", len(data))
	}

	// The tag is always two bytes. PPP address/control prefixes and
	// compressed protocol fields are not part of this header.
	proto := Protocol(binary.BigEndian.Uint16(data[:HeaderSize]))
	if !proto.Valid() {
		log.Panicf("header carries %s", proto)
	}

	return proto, data[HeaderSize:]
}
