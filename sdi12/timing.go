package sdi12

import "time"

// Timing constants from SDI-12 v1.4 §7. Values are nominal; the standard
// allows ±0.40 ms on most of them, but not on the inter-character marking.
const (
	// BreakDuration is the minimum spacing a recorder must hold to send a break.
	BreakDuration = 12 * time.Millisecond
	// BreakRecognitionMax is the spacing above which a sensor must detect a break.
	BreakRecognitionMax = 12 * time.Millisecond
	// BreakIgnoreMax is the spacing below which a sensor must not detect a break.
	BreakIgnoreMax = 6500 * time.Microsecond
	// PostBreakMarking is the marking the recorder holds after a break before
	// the first command character.
	PostBreakMarking = 8330 * time.Microsecond

	// RecorderReleaseMax is the time after the command stop bit within which
	// the recorder must release the line.
	RecorderReleaseMax = 7900 * time.Microsecond
	// SensorPreResponseMarking is the marking a sensor sends before its response.
	SensorPreResponseMarking = 8330 * time.Microsecond
	// ResponseStartMax is the time from the command stop bit to the start
	// bit of the first response character.
	ResponseStartMax = 15400 * time.Microsecond
	// SensorReleaseMax is the time after the response stop bit within which
	// the sensor must release the line.
	SensorReleaseMax = 7900 * time.Microsecond
	// InterCharacterMarkingMax is the longest marking allowed between two
	// characters of a command or response.
	InterCharacterMarkingMax = 1660 * time.Microsecond

	// SensorWakeupMax is the time a sensor may take to wake after a break.
	SensorWakeupMax = 100 * time.Millisecond
	// SensorSleepMarking is the marking after which an idle sensor sleeps.
	SensorSleepMarking = 100 * time.Millisecond
	// PreCommandBreakThreshold is the marking after which the next command
	// must be preceded by a break.
	PreCommandBreakThreshold = 87 * time.Millisecond

	// RetryWaitMin is the minimum wait after a command before a retry.
	RetryWaitMin = 16670 * time.Microsecond
	// RetryWaitMaxNoBreak is the longest wait after which a retry may be
	// issued without a new break.
	RetryWaitMaxNoBreak = 87 * time.Millisecond
	// RetryPostBreakDelayMin is the delay after a break before at least one
	// retry, covering the sensor wake-up time.
	RetryPostBreakDelayMin = SensorWakeupMax

	// MultilineInterLineDelayMax is the longest delay between lines of a
	// multi-line text response.
	MultilineInterLineDelayMax = 150 * time.Millisecond

	// BitDuration is the nominal length of one bit at 1200 baud.
	BitDuration = 833333 * time.Nanosecond
	// ByteDuration is the nominal length of one 10-bit character at 1200 baud.
	ByteDuration = 8333 * time.Microsecond
)

// Response size limits in bytes, including address, CRC and <CR><LF>.
const (
	// MaxValuesLength is the longest <values> field of a D or R response.
	MaxValuesLength = 75
	// MaxResponseLength is the longest ASCII response line.
	MaxResponseLength = 1 + MaxValuesLength + CRCASCIILength + 2
	// MaxBinaryPayload is the largest payload of a binary data packet.
	MaxBinaryPayload = 1000
	// BinaryHeaderLength is address, 2-byte packet size and data type.
	BinaryHeaderLength = 4
	// MaxBinaryPacketLength is the longest binary packet including its CRC.
	MaxBinaryPacketLength = BinaryHeaderLength + MaxBinaryPayload + CRCBinaryLength
)

// response length classes used to derive per-command deadlines.
const (
	ackResponseLength      = 3  // a<CR><LF>
	timingResponseLength   = 9  // atttnnn<CR><LF>
	identifyResponseLength = 35 // a ll cccccccc mmmmmm vvv xxxxxxxxxxxxx <CR><LF>
)

// ResponseDeadline returns the time a sensor may take to deliver a response
// of at most n characters: the response start time plus n characters with
// the maximum inter-character marking between them.
func ResponseDeadline(n int) time.Duration {
	return ResponseStartMax + time.Duration(n)*(ByteDuration+InterCharacterMarkingMax)
}
