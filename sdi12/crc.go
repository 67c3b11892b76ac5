package sdi12

import (
	"fmt"

	"github.com/sigurn/crc16"
)

// CRC lengths on the wire.
const (
	CRCASCIILength  = 3
	CRCBinaryLength = 2
)

// crcTable is CRC-16/ARC: polynomial 0x8005 (0xA001 reflected), initial
// value 0, reflected input and output, no final XOR.
var crcTable = crc16.MakeTable(crc16.CRC16_ARC)

// ComputeCRC returns the SDI-12 CRC of p. For a response, p runs from the
// address character up to the last byte before the CRC.
func ComputeCRC(p []byte) uint16 {
	return crc16.Checksum(p, crcTable)
}

// EncodeCRCASCII returns the three printable characters representing crc
// (v1.4 §4.4.12.2): each carries 6 bits OR'd with 0x40, most significant first.
func EncodeCRCASCII(crc uint16) [CRCASCIILength]byte {
	return [CRCASCIILength]byte{
		0x40 | byte((crc>>12)&0x3F),
		0x40 | byte((crc>>6)&0x3F),
		0x40 | byte(crc&0x3F),
	}
}

// AppendCRCASCII appends the ASCII CRC of p to p.
func AppendCRCASCII(p []byte) []byte {
	enc := EncodeCRCASCII(ComputeCRC(p))
	return append(p, enc[:]...)
}

// DecodeCRCASCII is the inverse of EncodeCRCASCII.
//
// b must be exactly three characters in 0x40..0x7F. The first character can
// only carry 4 significant bits, so anything above 0x4F is rejected too.
func DecodeCRCASCII(b []byte) (uint16, error) {
	if len(b) != CRCASCIILength {
		return 0, fmt.Errorf("%w: got %d characters, want %d", ErrCRCDecode, len(b), CRCASCIILength)
	}

	for i, c := range b {
		if c&0xC0 != 0x40 {
			return 0, fmt.Errorf("%w: character %d is 0x%02X", ErrCRCDecode, i, c)
		}
	}

	if b[0] > 0x4F {
		return 0, fmt.Errorf("%w: first character 0x%02X exceeds 16 bits", ErrCRCDecode, b[0])
	}

	return uint16(b[0]&0x3F)<<12 | uint16(b[1]&0x3F)<<6 | uint16(b[2]&0x3F), nil
}

// EncodeCRCBinary returns crc as two raw bytes, least significant first.
func EncodeCRCBinary(crc uint16) [CRCBinaryLength]byte {
	return [CRCBinaryLength]byte{byte(crc), byte(crc >> 8)}
}

// DecodeCRCBinary is the inverse of EncodeCRCBinary.
func DecodeCRCBinary(b []byte) (uint16, error) {
	if len(b) != CRCBinaryLength {
		return 0, fmt.Errorf("%w: got %d bytes, want %d", ErrCRCDecode, len(b), CRCBinaryLength)
	}

	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// VerifyCRCASCII checks a response body (address through ASCII CRC, without
// <CR><LF>) and returns the CRC it carries.
func VerifyCRCASCII(body []byte) (uint16, error) {
	if len(body) < 1+CRCASCIILength {
		return 0, fmt.Errorf("%w: %d bytes cannot hold address and CRC", ErrCRCDecode, len(body))
	}

	split := len(body) - CRCASCIILength

	wire, err := DecodeCRCASCII(body[split:])
	if err != nil {
		return 0, err
	}

	if calc := ComputeCRC(body[:split]); calc != wire {
		return wire, fmt.Errorf("%w: wire=0x%04X, computed=0x%04X", ErrCRCMismatch, wire, calc)
	}

	return wire, nil
}

// VerifyCRCBinary checks a binary packet that ends with its 2-byte CRC and
// returns the CRC it carries.
func VerifyCRCBinary(packet []byte) (uint16, error) {
	if len(packet) < 1+CRCBinaryLength {
		return 0, fmt.Errorf("%w: %d bytes cannot hold address and CRC", ErrCRCDecode, len(packet))
	}

	split := len(packet) - CRCBinaryLength

	wire, err := DecodeCRCBinary(packet[split:])
	if err != nil {
		return 0, err
	}

	if calc := ComputeCRC(packet[:split]); calc != wire {
		return wire, fmt.Errorf("%w: wire=0x%04X, computed=0x%04X", ErrCRCMismatch, wire, calc)
	}

	return wire, nil
}
