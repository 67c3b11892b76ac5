package sdi12

import "errors"

// Construction errors. These are reported before anything reaches the wire.
var (
	// ErrInvalidAddress indicates a character outside the SDI-12 address alphabet
	// ('0'-'9', 'a'-'z', 'A'-'Z', and '?' for the address query).
	ErrInvalidAddress = errors.New("sdi12: invalid address")

	// ErrIndexOutOfRange indicates a measurement, continuous, data, or parameter
	// index outside the range the standard allows.
	ErrIndexOutOfRange = errors.New("sdi12: index out of range")

	// ErrBufferTooSmall indicates that a caller-supplied buffer cannot hold
	// the formatted command or the announced response.
	ErrBufferTooSmall = errors.New("sdi12: buffer too small")

	// ErrInvalidCommand indicates a malformed command text or extended command body.
	ErrInvalidCommand = errors.New("sdi12: invalid command")
)

// Transport and timing errors. The recorder retries these within its retry limit.
var (
	// ErrTransport wraps a failure reported by the serial port.
	ErrTransport = errors.New("sdi12: transport failure")

	// ErrTimeout indicates that the response deadline elapsed, or that the
	// caller's context was done, before a complete response arrived.
	ErrTimeout = errors.New("sdi12: response timeout")
)

// Framing and validation errors.
var (
	// ErrAddressMismatch indicates that the response did not start with the
	// address of the sensor that was commanded.
	ErrAddressMismatch = errors.New("sdi12: response address mismatch")

	// ErrCRCMismatch indicates that the CRC carried by the response does not
	// match the CRC computed over the received bytes.
	ErrCRCMismatch = errors.New("sdi12: CRC mismatch")

	// ErrCRCDecode indicates a malformed 3-character ASCII CRC.
	ErrCRCDecode = errors.New("sdi12: malformed CRC")

	// ErrMissingTerminator indicates a response line without a proper <CR><LF>.
	ErrMissingTerminator = errors.New("sdi12: missing or garbled line terminator")

	// ErrInvalidResponse indicates a response too short or structurally wrong
	// to carry the expected frame.
	ErrInvalidResponse = errors.New("sdi12: invalid response")
)

// IsRetryable reports whether err belongs to the transport or timing classes.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransport)
}

// IsValidationError reports whether err belongs to the framing and validation class.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrAddressMismatch) ||
		errors.Is(err, ErrCRCMismatch) ||
		errors.Is(err, ErrCRCDecode) ||
		errors.Is(err, ErrMissingTerminator) ||
		errors.Is(err, ErrInvalidResponse)
}
