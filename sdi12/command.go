package sdi12

import (
	"fmt"
	"strconv"
	"time"
)

const (
	// MaxExtendedBodyLength is the longest extended command body accepted,
	// excluding the address and the '!' terminator.
	MaxExtendedBodyLength = 30

	// MaxCommandLength is the longest formatted command, terminator included.
	// The longest standard command is "aICC9_999!" (10 bytes).
	MaxCommandLength = 1 + MaxExtendedBodyLength + 1

	// CommandTerminator ends every command.
	CommandTerminator = '!'
)

// CommandKind identifies a command family.
type CommandKind uint8

const (
	KindAcknowledge CommandKind = iota
	KindSendIdentification
	KindAddressQuery
	KindChangeAddress
	KindMeasurement
	KindMeasurementCRC
	KindConcurrent
	KindConcurrentCRC
	KindContinuous
	KindContinuousCRC
	KindVerification
	KindSendData
	KindSendBinaryData
	KindHighVolumeASCII
	KindHighVolumeBinary
	KindIdentifyMeasurement
	KindIdentifyParameter
	KindExtended
)

var kindNames = [...]string{
	KindAcknowledge:         "Acknowledge",
	KindSendIdentification:  "SendIdentification",
	KindAddressQuery:        "AddressQuery",
	KindChangeAddress:       "ChangeAddress",
	KindMeasurement:         "Measurement",
	KindMeasurementCRC:      "MeasurementCRC",
	KindConcurrent:          "Concurrent",
	KindConcurrentCRC:       "ConcurrentCRC",
	KindContinuous:          "Continuous",
	KindContinuousCRC:       "ContinuousCRC",
	KindVerification:        "Verification",
	KindSendData:            "SendData",
	KindSendBinaryData:      "SendBinaryData",
	KindHighVolumeASCII:     "HighVolumeASCII",
	KindHighVolumeBinary:    "HighVolumeBinary",
	KindIdentifyMeasurement: "IdentifyMeasurement",
	KindIdentifyParameter:   "IdentifyParameter",
	KindExtended:            "Extended",
}

func (k CommandKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return "Unknown"
}

// IsMeasurementStart reports whether k starts a measurement whose data is
// later collected with aDn! or aDBn!.
func (k CommandKind) IsMeasurementStart() bool {
	switch k {
	case KindMeasurement, KindMeasurementCRC, KindConcurrent, KindConcurrentCRC,
		KindVerification, KindHighVolumeASCII, KindHighVolumeBinary:
		return true
	default:
		return false
	}
}

// MetadataTarget is the command an identify-measurement command asks about.
type MetadataTarget uint8

const (
	TargetMeasurement MetadataTarget = iota
	TargetMeasurementCRC
	TargetVerification
	TargetConcurrent
	TargetConcurrentCRC
	TargetContinuous
	TargetContinuousCRC
	TargetHighVolumeASCII
	TargetHighVolumeBinary
)

// targetCodes are ordered so that a longer code precedes any code it extends,
// which lets the parser match prefixes greedily.
var targetCodes = [...]struct {
	target MetadataTarget
	code   string
}{
	{TargetMeasurementCRC, "MC"},
	{TargetMeasurement, "M"},
	{TargetConcurrentCRC, "CC"},
	{TargetConcurrent, "C"},
	{TargetContinuousCRC, "RC"},
	{TargetContinuous, "R"},
	{TargetVerification, "V"},
	{TargetHighVolumeASCII, "HA"},
	{TargetHighVolumeBinary, "HB"},
}

// Code returns the command letters of the target, e.g. "MC" for aIMC!.
func (t MetadataTarget) Code() string {
	for _, tc := range targetCodes {
		if tc.target == t {
			return tc.code
		}
	}

	return ""
}

func (t MetadataTarget) String() string {
	if code := t.Code(); code != "" {
		return code
	}

	return "Unknown"
}

func (t MetadataTarget) valid() bool { return t <= TargetHighVolumeBinary }

// CRCRequested reports whether the target command asks for CRC-protected data.
func (t MetadataTarget) CRCRequested() bool {
	switch t {
	case TargetMeasurementCRC, TargetConcurrentCRC, TargetContinuousCRC,
		TargetHighVolumeASCII, TargetHighVolumeBinary:
		return true
	default:
		return false
	}
}

// indexClass describes which index, if any, a target carries.
type indexClass uint8

const (
	indexNone indexClass = iota
	indexMeasurement
	indexContinuous
)

func (t MetadataTarget) indexClass() indexClass {
	switch t {
	case TargetMeasurement, TargetMeasurementCRC, TargetConcurrent, TargetConcurrentCRC:
		return indexMeasurement
	case TargetContinuous, TargetContinuousCRC:
		return indexContinuous
	default:
		return indexNone
	}
}

// Command is an SDI-12 v1.4 command addressed to one sensor.
//
// Command values are immutable and comparable; they are built only by the
// constructors in this package or by ParseCommand.
type Command struct {
	kind    CommandKind
	addr    Address
	newAddr Address
	target  MetadataTarget
	index   uint16 // measurement, continuous, or data index
	param   ParameterIndex
	body    string // extended command body
}

// Acknowledge returns the acknowledge active command "a!".
func Acknowledge(a Address) Command {
	return Command{kind: KindAcknowledge, addr: a}
}

// SendIdentification returns "aI!".
func SendIdentification(a Address) Command {
	return Command{kind: KindSendIdentification, addr: a}
}

// AddressQuery returns the address query command "?!".
func AddressQuery() Command {
	return Command{kind: KindAddressQuery, addr: QueryAddress}
}

// ChangeAddress returns "aAb!", which moves the sensor at a to b.
func ChangeAddress(a, b Address) Command {
	return Command{kind: KindChangeAddress, addr: a, newAddr: b}
}

// StartMeasurement returns "aM!" or "aMn!".
func StartMeasurement(a Address, n MeasurementIndex) Command {
	return Command{kind: KindMeasurement, addr: a, index: uint16(n.n)}
}

// StartMeasurementCRC returns "aMC!" or "aMCn!".
func StartMeasurementCRC(a Address, n MeasurementIndex) Command {
	return Command{kind: KindMeasurementCRC, addr: a, index: uint16(n.n)}
}

// StartConcurrent returns "aC!" or "aCn!".
func StartConcurrent(a Address, n MeasurementIndex) Command {
	return Command{kind: KindConcurrent, addr: a, index: uint16(n.n)}
}

// StartConcurrentCRC returns "aCC!" or "aCCn!".
func StartConcurrentCRC(a Address, n MeasurementIndex) Command {
	return Command{kind: KindConcurrentCRC, addr: a, index: uint16(n.n)}
}

// ReadContinuous returns "aRn!".
func ReadContinuous(a Address, n ContinuousIndex) Command {
	return Command{kind: KindContinuous, addr: a, index: uint16(n.n)}
}

// ReadContinuousCRC returns "aRCn!".
func ReadContinuousCRC(a Address, n ContinuousIndex) Command {
	return Command{kind: KindContinuousCRC, addr: a, index: uint16(n.n)}
}

// StartVerification returns "aV!".
func StartVerification(a Address) Command {
	return Command{kind: KindVerification, addr: a}
}

// SendData returns "aDn!".
func SendData(a Address, n DataIndex) Command {
	return Command{kind: KindSendData, addr: a, index: n.n}
}

// SendBinaryData returns "aDBn!". Its response is a binary packet at 8N1.
func SendBinaryData(a Address, n DataIndex) Command {
	return Command{kind: KindSendBinaryData, addr: a, index: n.n}
}

// StartHighVolumeASCII returns "aHA!".
func StartHighVolumeASCII(a Address) Command {
	return Command{kind: KindHighVolumeASCII, addr: a}
}

// StartHighVolumeBinary returns "aHB!".
func StartHighVolumeBinary(a Address) Command {
	return Command{kind: KindHighVolumeBinary, addr: a}
}

// IdentifyMeasurement returns "aI<target>[n]!", e.g. "aIMC2!" or "aIR0!".
//
// n is the target's index: 0 (base) or 1..9 for M, MC, C, and CC; 0..9 for
// R and RC; and must be 0 for V, HA, and HB.
func IdentifyMeasurement(a Address, t MetadataTarget, n int) (Command, error) {
	idx, err := targetIndex(t, n)
	if err != nil {
		return Command{}, err
	}

	return Command{kind: KindIdentifyMeasurement, addr: a, target: t, index: idx}, nil
}

// IdentifyParameter returns "aI<target>[n]_ppp!", e.g. "aIM1_002!".
// n follows the rules of IdentifyMeasurement.
func IdentifyParameter(a Address, t MetadataTarget, n int, p ParameterIndex) (Command, error) {
	idx, err := targetIndex(t, n)
	if err != nil {
		return Command{}, err
	}

	return Command{kind: KindIdentifyParameter, addr: a, target: t, index: idx, param: p}, nil
}

func targetIndex(t MetadataTarget, n int) (uint16, error) {
	if !t.valid() {
		return 0, fmt.Errorf("%w: unknown metadata target %d", ErrInvalidCommand, t)
	}

	switch t.indexClass() {
	case indexMeasurement:
		if n == 0 {
			return 0, nil
		}

		m, err := NewMeasurementIndex(n)
		if err != nil {
			return 0, err
		}

		return uint16(m.n), nil
	case indexContinuous:
		c, err := NewContinuousIndex(n)
		if err != nil {
			return 0, err
		}

		return uint16(c.n), nil
	default:
		if n != 0 {
			return 0, fmt.Errorf("%w: target %s takes no index, got %d", ErrIndexOutOfRange, t, n)
		}

		return 0, nil
	}
}

// Extended returns the vendor-specific command "a<body>!".
//
// body must be 1..MaxExtendedBodyLength printable ASCII characters without
// '!', and must not be the body of a standard command.
func Extended(a Address, body string) (Command, error) {
	if err := checkExtendedBody(body); err != nil {
		return Command{}, err
	}

	return Command{kind: KindExtended, addr: a, body: body}, nil
}

func checkExtendedBody(body string) error {
	if len(body) == 0 || len(body) > MaxExtendedBodyLength {
		return fmt.Errorf("%w: extended body length %d not in [1, %d]",
			ErrInvalidCommand, len(body), MaxExtendedBodyLength)
	}

	for i := 0; i < len(body); i++ {
		c := body[i]
		if c < 0x20 || c > 0x7E || c == CommandTerminator {
			return fmt.Errorf("%w: extended body has illegal character 0x%02X", ErrInvalidCommand, c)
		}
	}

	if isStandardBody(body) {
		return fmt.Errorf("%w: extended body %q is a standard command", ErrInvalidCommand, body)
	}

	return nil
}

// isStandardBody reports whether body falls in the namespace of the
// standard command set.
func isStandardBody(body string) bool {
	switch body {
	case "", "I", "V", "HA", "HB":
		return true
	}

	if body[0] == 'A' && len(body) == 2 {
		return true
	}

	switch body[0] {
	case 'M', 'C', 'D', 'R', 'I':
		return true
	}

	return false
}

// Kind returns the command family.
func (c Command) Kind() CommandKind { return c.kind }

// Address returns the address the command is sent to.
func (c Command) Address() Address { return c.addr }

// ResponseAddress returns the address the response is expected to start
// with: the new address for aAb!, the wildcard for ?!, otherwise Address.
func (c Command) ResponseAddress() Address {
	switch c.kind {
	case KindChangeAddress:
		return c.newAddr
	case KindAddressQuery:
		return QueryAddress
	default:
		return c.addr
	}
}

// Target returns the metadata target of an identify command.
func (c Command) Target() MetadataTarget { return c.target }

// Index returns the measurement, continuous, or data index of the command,
// or 0 if it carries none.
func (c Command) Index() int { return int(c.index) }

// Parameter returns the parameter index of an identify-parameter command.
func (c Command) Parameter() (ParameterIndex, bool) {
	return c.param, c.kind == KindIdentifyParameter
}

// Body returns the body of an extended command.
func (c Command) Body() string { return c.body }

// CRCRequested reports whether the command asks the sensor to protect its
// data with a CRC: MC, CC, RC, HA, HB, and the parameter forms of targets
// that do so.
func (c Command) CRCRequested() bool {
	switch c.kind {
	case KindMeasurementCRC, KindConcurrentCRC, KindContinuousCRC,
		KindHighVolumeASCII, KindHighVolumeBinary:
		return true
	case KindIdentifyParameter:
		return c.target.CRCRequested()
	default:
		return false
	}
}

// FrameFormat returns the framing of the response.
func (c Command) FrameFormat() FrameFormat {
	if c.kind == KindSendBinaryData {
		return FrameBinary8N1
	}

	return FrameASCII7E1
}

// ResponseTimeout returns how long after the command the complete response
// may take to arrive.
func (c Command) ResponseTimeout() time.Duration {
	switch c.kind {
	case KindAcknowledge, KindAddressQuery, KindChangeAddress:
		return ResponseDeadline(ackResponseLength)
	case KindSendIdentification:
		return ResponseDeadline(identifyResponseLength)
	case KindMeasurement, KindMeasurementCRC, KindConcurrent, KindConcurrentCRC,
		KindVerification, KindHighVolumeASCII, KindHighVolumeBinary, KindIdentifyMeasurement:
		return ResponseDeadline(timingResponseLength)
	case KindSendBinaryData:
		return ResponseDeadline(MaxBinaryPacketLength)
	default:
		return ResponseDeadline(MaxResponseLength)
	}
}

// Validate checks the addresses of c. A zero Command is invalid.
func (c Command) Validate() error {
	if c.kind == KindAddressQuery {
		return nil
	}

	if !IsValidAddressChar(byte(c.addr)) {
		return fmt.Errorf("%w: command address %q", ErrInvalidAddress, byte(c.addr))
	}

	if c.kind == KindChangeAddress && !IsValidAddressChar(byte(c.newAddr)) {
		return fmt.Errorf("%w: new address %q", ErrInvalidAddress, byte(c.newAddr))
	}

	return nil
}

// FormatInto writes the wire bytes of c into buf and returns their count.
func (c Command) FormatInto(buf []byte) (int, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}

	var tmp [MaxCommandLength]byte
	out := c.appendWire(tmp[:0])

	if len(buf) < len(out) {
		return 0, fmt.Errorf("%w: command needs %d bytes, have %d", ErrBufferTooSmall, len(out), len(buf))
	}

	return copy(buf, out), nil
}

// AppendTo appends the wire bytes of c to dst.
func (c Command) AppendTo(dst []byte) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return dst, err
	}

	return c.appendWire(dst), nil
}

// String returns the wire text of c, e.g. "0M!".
func (c Command) String() string {
	var tmp [MaxCommandLength]byte
	return string(c.appendWire(tmp[:0]))
}

func (c Command) appendWire(dst []byte) []byte {
	if c.kind == KindAddressQuery {
		return append(dst, byte(QueryAddress), CommandTerminator)
	}

	dst = append(dst, byte(c.addr))

	switch c.kind {
	case KindAcknowledge:
	case KindSendIdentification:
		dst = append(dst, 'I')
	case KindChangeAddress:
		dst = append(dst, 'A', byte(c.newAddr))
	case KindMeasurement:
		dst = appendOptionalDigit(append(dst, 'M'), c.index)
	case KindMeasurementCRC:
		dst = appendOptionalDigit(append(dst, 'M', 'C'), c.index)
	case KindConcurrent:
		dst = appendOptionalDigit(append(dst, 'C'), c.index)
	case KindConcurrentCRC:
		dst = appendOptionalDigit(append(dst, 'C', 'C'), c.index)
	case KindContinuous:
		dst = append(dst, 'R', '0'+byte(c.index))
	case KindContinuousCRC:
		dst = append(dst, 'R', 'C', '0'+byte(c.index))
	case KindVerification:
		dst = append(dst, 'V')
	case KindSendData:
		dst = strconv.AppendUint(append(dst, 'D'), uint64(c.index), 10)
	case KindSendBinaryData:
		dst = strconv.AppendUint(append(dst, 'D', 'B'), uint64(c.index), 10)
	case KindHighVolumeASCII:
		dst = append(dst, 'H', 'A')
	case KindHighVolumeBinary:
		dst = append(dst, 'H', 'B')
	case KindIdentifyMeasurement, KindIdentifyParameter:
		dst = c.appendIdentify(append(dst, 'I'))
	case KindExtended:
		dst = append(dst, c.body...)
	}

	return append(dst, CommandTerminator)
}

func (c Command) appendIdentify(dst []byte) []byte {
	dst = append(dst, c.target.Code()...)

	switch c.target.indexClass() {
	case indexMeasurement:
		dst = appendOptionalDigit(dst, c.index)
	case indexContinuous:
		dst = append(dst, '0'+byte(c.index))
	case indexNone:
	}

	if c.kind == KindIdentifyParameter {
		v := c.param.Value()
		dst = append(dst, '_', '0'+byte(v/100), '0'+byte(v/10%10), '0'+byte(v%10))
	}

	return dst
}

func appendOptionalDigit(dst []byte, n uint16) []byte {
	if n == 0 {
		return dst
	}

	return append(dst, '0'+byte(n))
}
