package sdi12

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustIdentify(t *testing.T, a Address, target MetadataTarget, n int) Command {
	t.Helper()

	cmd, err := IdentifyMeasurement(a, target, n)
	require.NoError(t, err)

	return cmd
}

func mustParam(t *testing.T, a Address, target MetadataTarget, n, p int) Command {
	t.Helper()

	cmd, err := IdentifyParameter(a, target, n, MustParameterIndex(p))
	require.NoError(t, err)

	return cmd
}

func mustExtended(t *testing.T, a Address, body string) Command {
	t.Helper()

	cmd, err := Extended(a, body)
	require.NoError(t, err)

	return cmd
}

func allCommandSamples(t *testing.T) []struct {
	cmd  Command
	wire string
} {
	t.Helper()

	a := MustAddress('a')
	z := MustAddress('0')

	return []struct {
		cmd  Command
		wire string
	}{
		{Acknowledge(a), "a!"},
		{SendIdentification(z), "0I!"},
		{AddressQuery(), "?!"},
		{ChangeAddress(z, MustAddress('Z')), "0AZ!"},
		{StartMeasurement(a, BaseMeasurement), "aM!"},
		{StartMeasurement(a, MustMeasurementIndex(9)), "aM9!"},
		{StartMeasurementCRC(z, BaseMeasurement), "0MC!"},
		{StartMeasurementCRC(z, MustMeasurementIndex(1)), "0MC1!"},
		{StartConcurrent(z, BaseMeasurement), "0C!"},
		{StartConcurrent(z, MustMeasurementIndex(3)), "0C3!"},
		{StartConcurrentCRC(z, BaseMeasurement), "0CC!"},
		{StartConcurrentCRC(z, MustMeasurementIndex(5)), "0CC5!"},
		{ReadContinuous(z, MustContinuousIndex(0)), "0R0!"},
		{ReadContinuousCRC(z, MustContinuousIndex(9)), "0RC9!"},
		{StartVerification(a), "aV!"},
		{SendData(a, MustDataIndex(0)), "aD0!"},
		{SendData(a, MustDataIndex(10)), "aD10!"},
		{SendData(a, MustDataIndex(999)), "aD999!"},
		{SendBinaryData(z, MustDataIndex(0)), "0DB0!"},
		{SendBinaryData(z, MustDataIndex(123)), "0DB123!"},
		{StartHighVolumeASCII(z), "0HA!"},
		{StartHighVolumeBinary(z), "0HB!"},
		{mustIdentify(t, z, TargetMeasurement, 0), "0IM!"},
		{mustIdentify(t, z, TargetMeasurement, 2), "0IM2!"},
		{mustIdentify(t, z, TargetMeasurementCRC, 0), "0IMC!"},
		{mustIdentify(t, z, TargetMeasurementCRC, 9), "0IMC9!"},
		{mustIdentify(t, z, TargetVerification, 0), "0IV!"},
		{mustIdentify(t, z, TargetConcurrent, 0), "0IC!"},
		{mustIdentify(t, z, TargetConcurrentCRC, 4), "0ICC4!"},
		{mustIdentify(t, z, TargetContinuous, 0), "0IR0!"},
		{mustIdentify(t, z, TargetContinuousCRC, 7), "0IRC7!"},
		{mustIdentify(t, z, TargetHighVolumeASCII, 0), "0IHA!"},
		{mustIdentify(t, z, TargetHighVolumeBinary, 0), "0IHB!"},
		{mustParam(t, z, TargetMeasurement, 0, 1), "0IM_001!"},
		{mustParam(t, z, TargetMeasurement, 1, 2), "0IM1_002!"},
		{mustParam(t, z, TargetMeasurementCRC, 0, 10), "0IMC_010!"},
		{mustParam(t, z, TargetVerification, 0, 999), "0IV_999!"},
		{mustParam(t, z, TargetConcurrent, 8, 3), "0IC8_003!"},
		{mustParam(t, z, TargetConcurrentCRC, 9, 999), "0ICC9_999!"},
		{mustParam(t, z, TargetContinuous, 0, 1), "0IR0_001!"},
		{mustParam(t, z, TargetContinuousCRC, 3, 45), "0IRC3_045!"},
		{mustParam(t, z, TargetHighVolumeASCII, 0, 100), "0IHA_100!"},
		{mustParam(t, z, TargetHighVolumeBinary, 0, 7), "0IHB_007!"},
		{mustExtended(t, z, "XRESET"), "0XRESET!"},
		{mustExtended(t, a, "XT=25.0"), "aXT=25.0!"},
	}
}

func TestCommand_FormatInto(t *testing.T) {
	for _, s := range allCommandSamples(t) {
		t.Run(s.wire, func(t *testing.T) {
			var buf [MaxCommandLength]byte

			n, err := s.cmd.FormatInto(buf[:])
			require.NoError(t, err)
			assert.Equal(t, s.wire, string(buf[:n]))
			assert.Equal(t, s.wire, s.cmd.String())

			out, err := s.cmd.AppendTo(nil)
			require.NoError(t, err)
			assert.Equal(t, s.wire, string(out))
		})
	}
}

func TestCommand_FormatParseRoundTrip(t *testing.T) {
	for _, s := range allCommandSamples(t) {
		t.Run(s.wire, func(t *testing.T) {
			var buf [MaxCommandLength]byte

			n, err := s.cmd.FormatInto(buf[:])
			require.NoError(t, err)

			parsed, err := ParseCommand(buf[:n])
			require.NoError(t, err)
			assert.Equal(t, s.cmd, parsed)
		})
	}
}

func TestCommand_FormatParseRoundTripAllIndices(t *testing.T) {
	a := MustAddress('5')
	var buf [MaxCommandLength]byte

	check := func(cmd Command) {
		n, err := cmd.FormatInto(buf[:])
		require.NoError(t, err)

		parsed, err := ParseCommand(buf[:n])
		require.NoError(t, err, "parse %q", buf[:n])
		require.Equal(t, cmd, parsed, "round trip %q", buf[:n])
	}

	for i := 0; i <= MaxDataIndex; i++ {
		check(SendData(a, MustDataIndex(i)))
		check(SendBinaryData(a, MustDataIndex(i)))
	}

	for i := MinParameterIndex; i <= MaxParameterIndex; i++ {
		check(mustParam(t, a, TargetMeasurementCRC, 9, i))
	}

	for i := 0; i <= MaxContinuousIndex; i++ {
		check(ReadContinuous(a, MustContinuousIndex(i)))
		check(ReadContinuousCRC(a, MustContinuousIndex(i)))
	}
}

func TestCommand_FormatIntoBufferTooSmall(t *testing.T) {
	cmd := mustParam(t, MustAddress('0'), TargetConcurrentCRC, 9, 999)

	buf := make([]byte, 9)
	n, err := cmd.FormatInto(buf)
	require.ErrorIs(t, err, ErrBufferTooSmall)
	assert.Zero(t, n)

	buf = make([]byte, 10)
	n, err = cmd.FormatInto(buf)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
}

func TestCommand_FormatIntoInvalidAddress(t *testing.T) {
	var buf [MaxCommandLength]byte

	_, err := Command{}.FormatInto(buf[:])
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = Acknowledge(QueryAddress).FormatInto(buf[:])
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = ChangeAddress(MustAddress('0'), QueryAddress).FormatInto(buf[:])
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = StartMeasurement(Address('#'), BaseMeasurement).AppendTo(nil)
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestIdentifyMeasurement_IndexValidation(t *testing.T) {
	a := MustAddress('0')

	_, err := IdentifyMeasurement(a, TargetMeasurement, 10)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = IdentifyMeasurement(a, TargetContinuous, -1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = IdentifyMeasurement(a, TargetVerification, 1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = IdentifyMeasurement(a, MetadataTarget(99), 0)
	require.ErrorIs(t, err, ErrInvalidCommand)

	_, err = IdentifyParameter(a, TargetHighVolumeBinary, 2, MustParameterIndex(1))
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestExtended_BodyValidation(t *testing.T) {
	a := MustAddress('0')

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"terminator", "X!"},
		{"control char", "X\r"},
		{"non ascii", "X\xC3"},
		{"too long", "X123456789012345678901234567890"},
		{"measurement", "M"},
		{"data", "D0"},
		{"identify", "IM"},
		{"change address", "A1"},
		{"verification", "V"},
		{"high volume", "HA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extended(a, tt.body)
			require.ErrorIs(t, err, ErrInvalidCommand)
		})
	}

	cmd, err := Extended(a, "X12345678901234567890123456789"[:MaxExtendedBodyLength])
	require.NoError(t, err)
	assert.Len(t, cmd.String(), MaxCommandLength)
}

func TestParseCommand_Errors(t *testing.T) {
	tests := []struct {
		in   string
		want error
	}{
		{"", ErrInvalidCommand},
		{"!", ErrInvalidCommand},
		{"0M", ErrInvalidCommand},
		{"#!", ErrInvalidAddress},
		{"?M!", ErrInvalidCommand},
		{"0A?!", ErrInvalidAddress},
		{"0A#!", ErrInvalidAddress},
		{"0M0!", ErrIndexOutOfRange},
		{"0MX!", ErrInvalidCommand},
		{"0M10!", ErrInvalidCommand},
		{"0MCX!", ErrInvalidCommand},
		{"0CC0!", ErrIndexOutOfRange},
		{"0D!", ErrInvalidCommand},
		{"0DX!", ErrInvalidCommand},
		{"0D1000!", ErrIndexOutOfRange},
		{"0DB!", ErrInvalidCommand},
		{"0R!", ErrInvalidCommand},
		{"0R10!", ErrInvalidCommand},
		{"0RCX!", ErrInvalidCommand},
		{"0IX!", ErrInvalidCommand},
		{"0IR!", ErrInvalidCommand},
		{"0IV1!", ErrInvalidCommand},
		{"0IHA2!", ErrInvalidCommand},
		{"0IM_01!", ErrInvalidCommand},
		{"0IM_0001!", ErrInvalidCommand},
		{"0IM_000!", ErrIndexOutOfRange},
		{"0IM_0a1!", ErrInvalidCommand},
		{"0IM0!", ErrIndexOutOfRange},
		{"0X\x01!", ErrInvalidCommand},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseCommand([]byte(tt.in))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCommand_Accessors(t *testing.T) {
	a := MustAddress('3')

	cmd := ChangeAddress(a, MustAddress('7'))
	assert.Equal(t, KindChangeAddress, cmd.Kind())
	assert.Equal(t, a, cmd.Address())
	assert.Equal(t, MustAddress('7'), cmd.ResponseAddress())

	assert.Equal(t, QueryAddress, AddressQuery().ResponseAddress())
	assert.Equal(t, a, StartMeasurement(a, BaseMeasurement).ResponseAddress())

	p := mustParam(t, a, TargetContinuousCRC, 4, 12)
	idx, ok := p.Parameter()
	assert.True(t, ok)
	assert.Equal(t, 12, idx.Value())
	assert.Equal(t, 4, p.Index())
	assert.Equal(t, TargetContinuousCRC, p.Target())

	_, ok = SendData(a, MustDataIndex(1)).Parameter()
	assert.False(t, ok)

	assert.Equal(t, "XYZ", mustExtended(t, a, "XYZ").Body())
	assert.Equal(t, "IdentifyParameter", p.Kind().String())
	assert.Equal(t, "Unknown", CommandKind(200).String())
}

func TestCommand_CRCRequested(t *testing.T) {
	a := MustAddress('0')

	assert.True(t, StartMeasurementCRC(a, BaseMeasurement).CRCRequested())
	assert.True(t, StartConcurrentCRC(a, BaseMeasurement).CRCRequested())
	assert.True(t, ReadContinuousCRC(a, MustContinuousIndex(0)).CRCRequested())
	assert.True(t, StartHighVolumeASCII(a).CRCRequested())
	assert.True(t, StartHighVolumeBinary(a).CRCRequested())
	assert.True(t, mustParam(t, a, TargetMeasurementCRC, 0, 1).CRCRequested())
	assert.True(t, mustParam(t, a, TargetHighVolumeBinary, 0, 1).CRCRequested())

	assert.False(t, StartMeasurement(a, BaseMeasurement).CRCRequested())
	assert.False(t, ReadContinuous(a, MustContinuousIndex(0)).CRCRequested())
	assert.False(t, SendData(a, MustDataIndex(0)).CRCRequested())
	assert.False(t, mustIdentify(t, a, TargetMeasurementCRC, 0).CRCRequested())
	assert.False(t, mustParam(t, a, TargetMeasurement, 0, 1).CRCRequested())
}

func TestCommand_FrameFormatAndTimeout(t *testing.T) {
	a := MustAddress('0')

	assert.Equal(t, FrameBinary8N1, SendBinaryData(a, MustDataIndex(0)).FrameFormat())
	assert.Equal(t, FrameASCII7E1, SendData(a, MustDataIndex(0)).FrameFormat())
	assert.Equal(t, FrameASCII7E1, StartHighVolumeBinary(a).FrameFormat())

	ack := Acknowledge(a).ResponseTimeout()
	meas := StartMeasurement(a, BaseMeasurement).ResponseTimeout()
	ident := SendIdentification(a).ResponseTimeout()
	data := SendData(a, MustDataIndex(0)).ResponseTimeout()
	bin := SendBinaryData(a, MustDataIndex(0)).ResponseTimeout()

	assert.Equal(t, ResponseDeadline(3), ack)
	assert.Greater(t, ack, ResponseStartMax)
	assert.Less(t, ack, meas)
	assert.Less(t, meas, ident)
	assert.Less(t, ident, data)
	assert.Less(t, data, bin)
}

func TestCommandKind_IsMeasurementStart(t *testing.T) {
	assert.True(t, KindMeasurement.IsMeasurementStart())
	assert.True(t, KindConcurrentCRC.IsMeasurementStart())
	assert.True(t, KindHighVolumeBinary.IsMeasurementStart())
	assert.False(t, KindSendData.IsMeasurementStart())
	assert.False(t, KindContinuous.IsMeasurementStart())
	assert.False(t, KindIdentifyMeasurement.IsMeasurementStart())
}
