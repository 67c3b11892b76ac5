package sdi12

import (
	"fmt"
	"strings"
)

// ParseCommand decodes the wire bytes of one command, terminator included.
// It is the inverse of Command.FormatInto.
//
// Bodies outside the standard command namespace decode as extended commands.
func ParseCommand(b []byte) (Command, error) {
	if len(b) < 2 {
		return Command{}, fmt.Errorf("%w: %q is too short", ErrInvalidCommand, b)
	}

	if len(b) > MaxCommandLength {
		return Command{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidCommand, len(b), MaxCommandLength)
	}

	if b[len(b)-1] != CommandTerminator {
		return Command{}, fmt.Errorf("%w: %q lacks terminator", ErrInvalidCommand, b)
	}

	addr, err := NewAddress(b[0])
	if err != nil {
		return Command{}, err
	}

	body := string(b[1 : len(b)-1])

	if addr.IsQuery() {
		if body != "" {
			return Command{}, fmt.Errorf("%w: wildcard address only allowed in \"?!\"", ErrInvalidCommand)
		}

		return AddressQuery(), nil
	}

	switch body {
	case "":
		return Acknowledge(addr), nil
	case "I":
		return SendIdentification(addr), nil
	case "V":
		return StartVerification(addr), nil
	case "HA":
		return StartHighVolumeASCII(addr), nil
	case "HB":
		return StartHighVolumeBinary(addr), nil
	}

	if body[0] == 'A' && len(body) == 2 {
		newAddr, err := NewAddress(body[1])
		if err != nil {
			return Command{}, err
		}

		if newAddr.IsQuery() {
			return Command{}, fmt.Errorf("%w: cannot change address to wildcard", ErrInvalidAddress)
		}

		return ChangeAddress(addr, newAddr), nil
	}

	switch body[0] {
	case 'M', 'C':
		return parseMeasurement(addr, body)
	case 'D':
		return parseData(addr, body)
	case 'R':
		return parseContinuous(addr, body)
	case 'I':
		return parseIdentify(addr, body[1:])
	}

	if err := checkExtendedBody(body); err != nil {
		return Command{}, err
	}

	return Command{kind: KindExtended, addr: addr, body: body}, nil
}

func parseMeasurement(addr Address, body string) (Command, error) {
	var (
		kind CommandKind
		rest string
	)

	switch {
	case strings.HasPrefix(body, "MC"):
		kind, rest = KindMeasurementCRC, body[2:]
	case strings.HasPrefix(body, "CC"):
		kind, rest = KindConcurrentCRC, body[2:]
	case body[0] == 'M':
		kind, rest = KindMeasurement, body[1:]
	default:
		kind, rest = KindConcurrent, body[1:]
	}

	n, err := parseMeasurementDigit(rest, body)
	if err != nil {
		return Command{}, err
	}

	return Command{kind: kind, addr: addr, index: uint16(n.n)}, nil
}

func parseMeasurementDigit(s, body string) (MeasurementIndex, error) {
	switch len(s) {
	case 0:
		return BaseMeasurement, nil
	case 1:
		if !isDigit(s[0]) {
			return MeasurementIndex{}, fmt.Errorf("%w: %q", ErrInvalidCommand, body)
		}

		return NewMeasurementIndex(int(s[0] - '0'))
	default:
		return MeasurementIndex{}, fmt.Errorf("%w: %q", ErrInvalidCommand, body)
	}
}

func parseContinuousDigit(s, body string) (ContinuousIndex, error) {
	if len(s) != 1 || !isDigit(s[0]) {
		return ContinuousIndex{}, fmt.Errorf("%w: %q needs one index digit", ErrInvalidCommand, body)
	}

	return NewContinuousIndex(int(s[0] - '0'))
}

func parseData(addr Address, body string) (Command, error) {
	kind, digits := KindSendData, body[1:]
	if strings.HasPrefix(body, "DB") {
		kind, digits = KindSendBinaryData, body[2:]
	}

	n, ok := parseDecimal(digits)
	if !ok {
		return Command{}, fmt.Errorf("%w: %q needs a data index", ErrInvalidCommand, body)
	}

	idx, err := NewDataIndex(n)
	if err != nil {
		return Command{}, err
	}

	return Command{kind: kind, addr: addr, index: idx.n}, nil
}

func parseContinuous(addr Address, body string) (Command, error) {
	kind, rest := KindContinuous, body[1:]
	if strings.HasPrefix(body, "RC") {
		kind, rest = KindContinuousCRC, body[2:]
	}

	n, err := parseContinuousDigit(rest, body)
	if err != nil {
		return Command{}, err
	}

	return Command{kind: kind, addr: addr, index: uint16(n.n)}, nil
}

// parseIdentify decodes the part of an identify-measurement body after 'I'.
func parseIdentify(addr Address, body string) (Command, error) {
	main, paramText, hasParam := strings.Cut(body, "_")

	target, rest, ok := matchTarget(main)
	if !ok {
		return Command{}, fmt.Errorf("%w: unknown identify command \"I%s\"", ErrInvalidCommand, body)
	}

	var idx uint16

	switch target.indexClass() {
	case indexMeasurement:
		n, err := parseMeasurementDigit(rest, body)
		if err != nil {
			return Command{}, err
		}

		idx = uint16(n.n)
	case indexContinuous:
		n, err := parseContinuousDigit(rest, body)
		if err != nil {
			return Command{}, err
		}

		idx = uint16(n.n)
	case indexNone:
		if rest != "" {
			return Command{}, fmt.Errorf("%w: target %s takes no index", ErrInvalidCommand, target)
		}
	}

	if !hasParam {
		return Command{kind: KindIdentifyMeasurement, addr: addr, target: target, index: idx}, nil
	}

	if len(paramText) != 3 {
		return Command{}, fmt.Errorf("%w: parameter index %q needs three digits", ErrInvalidCommand, paramText)
	}

	n, ok := parseDecimal(paramText)
	if !ok {
		return Command{}, fmt.Errorf("%w: parameter index %q", ErrInvalidCommand, paramText)
	}

	p, err := NewParameterIndex(n)
	if err != nil {
		return Command{}, err
	}

	return Command{kind: KindIdentifyParameter, addr: addr, target: target, index: idx, param: p}, nil
}

func matchTarget(s string) (MetadataTarget, string, bool) {
	for _, tc := range targetCodes {
		if strings.HasPrefix(s, tc.code) {
			return tc.target, s[len(tc.code):], true
		}
	}

	return 0, "", false
}

// parseDecimal parses 1..4 ASCII digits. Four digits are accepted so that
// an out-of-range data index reports ErrIndexOutOfRange.
func parseDecimal(s string) (int, bool) {
	if len(s) == 0 || len(s) > 4 {
		return 0, false
	}

	n := 0
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return 0, false
		}

		n = n*10 + int(s[i]-'0')
	}

	return n, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
