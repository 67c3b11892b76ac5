// Package sdi12 provides the protocol data model of SDI-12 v1.4, the
// 1200 baud single-wire multi-drop bus used by environmental sensors.
//
// The package has no I/O. It defines what goes on the wire and how to check
// what comes back; the recorder package drives an actual bus with it.
//
// # Addresses and Commands
//
// An [Address] is one character: '0'-'9', or 'a'-'z' and 'A'-'Z' since v1.4.
// The wildcard '?' appears only in the address query command "?!".
//
// A [Command] is an immutable value built by one constructor per command
// family, for example [StartMeasurement] for "aM!" or [SendData] for "aDn!".
// Index-bearing constructors take bounded index types ([MeasurementIndex],
// [ContinuousIndex], [DataIndex], [ParameterIndex]) that can only be
// obtained from a range-checked constructor. [Command.FormatInto] writes the
// exact wire bytes into a caller buffer; [ParseCommand] is its inverse.
//
// # Frames
//
// Commands and ASCII responses use 7 data bits, even parity, 1 stop bit.
// The binary packet returned by "aDBn!" uses 8N1:
//
//	address | size (2 bytes, LE) | type (1 byte) | payload | CRC (2 bytes, LE)
//
// # CRC
//
// SDI-12 uses CRC-16/ARC. ASCII responses carry it as three printable
// characters, each holding 6 bits OR'd with 0x40 ([EncodeCRCASCII]); binary
// packets carry the raw 2 bytes, least significant first.
//
// # Errors
//
// All failures wrap one of the sentinel errors in errors.go and are matched
// with errors.Is. [IsRetryable] and [IsValidationError] classify them.
package sdi12
