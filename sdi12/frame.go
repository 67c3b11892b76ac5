package sdi12

// FrameFormat is the UART character framing used for one exchange.
//
// Commands and all ASCII responses use 7 data bits, even parity, 1 stop bit.
// Only the binary packet returned by "aDBn!" uses 8 data bits, no parity,
// 1 stop bit. The baud rate is always 1200.
type FrameFormat uint8

const (
	// FrameASCII7E1 is the standard SDI-12 framing.
	FrameASCII7E1 FrameFormat = iota
	// FrameBinary8N1 is the framing of high-volume binary data packets.
	FrameBinary8N1
)

// BaudRate is the only line speed defined by SDI-12.
const BaudRate = 1200

func (f FrameFormat) String() string {
	switch f {
	case FrameASCII7E1:
		return "7E1"
	case FrameBinary8N1:
		return "8N1"
	default:
		return "Unknown"
	}
}

// IsBinary reports whether f is the binary packet framing.
func (f FrameFormat) IsBinary() bool { return f == FrameBinary8N1 }

// DataBits returns the number of data bits per character.
func (f FrameFormat) DataBits() int {
	if f == FrameBinary8N1 {
		return 8
	}

	return 7
}
