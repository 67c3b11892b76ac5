package sdi12

import (
	"bytes"
	"fmt"
	"time"
)

// Payload marks the validated part of a response held in a caller's buffer.
//
// Start and End are offsets into that buffer. The span excludes the address,
// the CRC, the <CR><LF> terminator, and for binary packets the packet header.
type Payload struct {
	Address  Address
	Start    int
	End      int
	Format   FrameFormat
	CRC      uint16
	HasCRC   bool
	DataType BinaryType // binary packets only
}

// Bytes returns the payload bytes of buf without copying.
func (p Payload) Bytes(buf []byte) []byte { return buf[p.Start:p.End] }

// Len returns the payload length in bytes.
func (p Payload) Len() int { return p.End - p.Start }

// IsEmpty reports whether the response carried no payload, as for a!.
func (p Payload) IsEmpty() bool { return p.End <= p.Start }

// BinaryType is the data type byte of a binary data packet.
type BinaryType uint8

const (
	BinaryInvalid BinaryType = iota // no data, the request was invalid
	BinaryInt8
	BinaryUint8
	BinaryInt16
	BinaryUint16
	BinaryInt32
	BinaryUint32
	BinaryInt64
	BinaryUint64
	BinaryFloat32
	BinaryFloat64
)

var binaryTypeSizes = [...]int{
	BinaryInvalid: 0,
	BinaryInt8:    1,
	BinaryUint8:   1,
	BinaryInt16:   2,
	BinaryUint16:  2,
	BinaryInt32:   4,
	BinaryUint32:  4,
	BinaryInt64:   8,
	BinaryUint64:  8,
	BinaryFloat32: 4,
	BinaryFloat64: 8,
}

// Size returns the size of one value of type t, or 0 for BinaryInvalid and
// unknown types.
func (t BinaryType) Size() int {
	if int(t) < len(binaryTypeSizes) {
		return binaryTypeSizes[t]
	}

	return 0
}

// IsValid reports whether t is a defined data type.
func (t BinaryType) IsValid() bool { return int(t) < len(binaryTypeSizes) }

// BinaryHeader is the fixed part of a binary data packet:
// address, little-endian payload size, data type.
type BinaryHeader struct {
	Address Address
	Size    int
	Type    BinaryType
}

// ParseBinaryHeader decodes the first BinaryHeaderLength bytes of a packet.
func ParseBinaryHeader(b []byte) (BinaryHeader, error) {
	if len(b) < BinaryHeaderLength {
		return BinaryHeader{}, fmt.Errorf("%w: binary header needs %d bytes, got %d",
			ErrInvalidResponse, BinaryHeaderLength, len(b))
	}

	h := BinaryHeader{
		Address: Address(b[0]),
		Size:    int(b[1]) | int(b[2])<<8,
		Type:    BinaryType(b[3]),
	}

	if h.Size > MaxBinaryPayload {
		return h, fmt.Errorf("%w: binary payload size %d exceeds %d", ErrInvalidResponse, h.Size, MaxBinaryPayload)
	}

	if !h.Type.IsValid() {
		return h, fmt.Errorf("%w: unknown binary data type %d", ErrInvalidResponse, h.Type)
	}

	if sz := h.Type.Size(); sz > 0 && h.Size%sz != 0 {
		return h, fmt.Errorf("%w: binary payload size %d is not a multiple of %d", ErrInvalidResponse, h.Size, sz)
	}

	return h, nil
}

// PacketLength returns the total packet length announced by h, CRC included.
func (h BinaryHeader) PacketLength() int {
	return BinaryHeaderLength + h.Size + CRCBinaryLength
}

// MeasurementTiming is the "atttn", "atttnn" or "atttnnn" reply to a
// measurement, verification, high-volume, or identify-measurement command.
type MeasurementTiming struct {
	// Ready is the announced time until the data is available.
	Ready time.Duration
	// Values is the number of values the measurement returns.
	Values int
}

// ParseMeasurementTiming decodes the payload of a timing reply (without
// address, CRC or terminator): three digits of seconds followed by one to
// three digits of value count.
func ParseMeasurementTiming(p []byte) (MeasurementTiming, error) {
	if len(p) < 4 || len(p) > 6 {
		return MeasurementTiming{}, fmt.Errorf("%w: timing reply %q has length %d", ErrInvalidResponse, p, len(p))
	}

	secs, ok := parseDecimal(string(p[:3]))
	if !ok {
		return MeasurementTiming{}, fmt.Errorf("%w: timing reply %q has bad seconds", ErrInvalidResponse, p)
	}

	n, ok := parseDecimal(string(p[3:]))
	if !ok {
		return MeasurementTiming{}, fmt.Errorf("%w: timing reply %q has bad value count", ErrInvalidResponse, p)
	}

	return MeasurementTiming{Ready: time.Duration(secs) * time.Second, Values: n}, nil
}

// Identification is the reply to aI!.
type Identification struct {
	Version  string // "14" for v1.4
	Vendor   string
	Model    string
	Firmware string
	Serial   string // optional, up to 13 characters
}

// ParseIdentification decodes the payload of an aI! reply:
// ll cccccccc mmmmmm vvv [xxxxxxxxxxxxx].
func ParseIdentification(p []byte) (Identification, error) {
	const fixed = 2 + 8 + 6 + 3

	if len(p) < fixed || len(p) > fixed+13 {
		return Identification{}, fmt.Errorf("%w: identification of length %d", ErrInvalidResponse, len(p))
	}

	return Identification{
		Version:  string(p[0:2]),
		Vendor:   string(bytes.TrimRight(p[2:10], " ")),
		Model:    string(bytes.TrimRight(p[10:16], " ")),
		Firmware: string(bytes.TrimRight(p[16:19], " ")),
		Serial:   string(bytes.TrimRight(p[19:], " ")),
	}, nil
}

// CountValues returns the number of values in the payload of a D or R
// response. Every value starts with its sign character.
func CountValues(p []byte) int {
	n := 0
	for _, c := range p {
		if c == '+' || c == '-' {
			n++
		}
	}

	return n
}
