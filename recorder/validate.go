package recorder

import (
	"fmt"

	"github.com/arloliu/go-sdi12/sdi12"
)

// checkAddress compares the address byte of a response with the expected
// one. Any sensor address answers an address query.
func checkAddress(got, want sdi12.Address) error {
	if want.IsQuery() {
		if got.IsValid() && !got.IsQuery() {
			return nil
		}
	} else if got == want {
		return nil
	}

	return fmt.Errorf("%w: got %q, want %q", sdi12.ErrAddressMismatch, byte(got), byte(want))
}

// validateASCII checks a response line ending with <CR><LF> and returns the
// span between the address and the CRC or terminator.
func validateASCII(line []byte, want sdi12.Address, expectCRC bool) (sdi12.Payload, error) {
	if len(line) < 3 {
		return sdi12.Payload{}, fmt.Errorf("%w: %d bytes cannot hold address and <CR><LF>", sdi12.ErrInvalidResponse, len(line))
	}

	if line[len(line)-2] != '\r' || line[len(line)-1] != '\n' {
		return sdi12.Payload{}, fmt.Errorf("%w: line ends with %q", sdi12.ErrMissingTerminator, line[len(line)-2:])
	}

	addr := sdi12.Address(line[0])
	if err := checkAddress(addr, want); err != nil {
		return sdi12.Payload{}, err
	}

	body := line[:len(line)-2]
	p := sdi12.Payload{
		Address: addr,
		Start:   1,
		End:     len(body),
		Format:  sdi12.FrameASCII7E1,
	}

	if expectCRC {
		crc, err := sdi12.VerifyCRCASCII(body)
		if err != nil {
			return sdi12.Payload{}, err
		}

		p.CRC = crc
		p.HasCRC = true
		p.End -= sdi12.CRCASCIILength
	}

	return p, nil
}

// validateBinary checks a complete binary packet and returns the span of
// its values.
func validateBinary(packet []byte, want sdi12.Address) (sdi12.Payload, error) {
	if len(packet) < sdi12.BinaryHeaderLength+sdi12.CRCBinaryLength {
		return sdi12.Payload{}, fmt.Errorf("%w: binary packet of %d bytes", sdi12.ErrInvalidResponse, len(packet))
	}

	if err := checkAddress(sdi12.Address(packet[0]), want); err != nil {
		return sdi12.Payload{}, err
	}

	h, err := sdi12.ParseBinaryHeader(packet)
	if err != nil {
		return sdi12.Payload{}, err
	}

	if h.PacketLength() != len(packet) {
		return sdi12.Payload{}, fmt.Errorf("%w: header announces %d bytes, packet has %d",
			sdi12.ErrInvalidResponse, h.PacketLength(), len(packet))
	}

	crc, err := sdi12.VerifyCRCBinary(packet)
	if err != nil {
		return sdi12.Payload{}, err
	}

	return sdi12.Payload{
		Address:  h.Address,
		Start:    sdi12.BinaryHeaderLength,
		End:      len(packet) - sdi12.CRCBinaryLength,
		Format:   sdi12.FrameBinary8N1,
		CRC:      crc,
		HasCRC:   true,
		DataType: h.Type,
	}, nil
}
