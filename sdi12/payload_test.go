package sdi12

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_Bytes(t *testing.T) {
	buf := []byte("0+3.14OqZ\r\n")
	p := Payload{Address: '0', Start: 1, End: 6, HasCRC: true}

	assert.Equal(t, "+3.14", string(p.Bytes(buf)))
	assert.Equal(t, 5, p.Len())
	assert.False(t, p.IsEmpty())

	ack := Payload{Address: '0', Start: 1, End: 1}
	assert.True(t, ack.IsEmpty())
	assert.Empty(t, ack.Bytes(buf))
}

func TestParseMeasurementTiming(t *testing.T) {
	tests := []struct {
		in     string
		ready  time.Duration
		values int
	}{
		{"0055", 5 * time.Second, 5},
		{"12009", 120 * time.Second, 9},
		{"00220", 2 * time.Second, 20},
		{"00020", 0, 20},
		{"999999", 999 * time.Second, 999},
		{"0000", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			mt, err := ParseMeasurementTiming([]byte(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.ready, mt.Ready)
			assert.Equal(t, tt.values, mt.Values)
		})
	}

	for _, bad := range []string{"", "005", "0051234", "00a5", "005x"} {
		_, err := ParseMeasurementTiming([]byte(bad))
		require.ErrorIs(t, err, ErrInvalidResponse, "input %q", bad)
	}
}

func TestParseIdentification(t *testing.T) {
	id, err := ParseIdentification([]byte("14ACME    TH100 1.0SN12345"))
	require.NoError(t, err)

	assert.Equal(t, "14", id.Version)
	assert.Equal(t, "ACME", id.Vendor)
	assert.Equal(t, "TH100", id.Model)
	assert.Equal(t, "1.0", id.Firmware)
	assert.Equal(t, "SN12345", id.Serial)

	id, err = ParseIdentification([]byte("13VENDOR01MODEL1002"))
	require.NoError(t, err)
	assert.Equal(t, "VENDOR01", id.Vendor)
	assert.Empty(t, id.Serial)

	_, err = ParseIdentification([]byte("14SHORT"))
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestParseBinaryHeader(t *testing.T) {
	h, err := ParseBinaryHeader([]byte{'1', 0x08, 0x00, byte(BinaryFloat32)})
	require.NoError(t, err)
	assert.Equal(t, MustAddress('1'), h.Address)
	assert.Equal(t, 8, h.Size)
	assert.Equal(t, BinaryFloat32, h.Type)
	assert.Equal(t, BinaryHeaderLength+8+CRCBinaryLength, h.PacketLength())

	h, err = ParseBinaryHeader([]byte{'1', 0x00, 0x00, byte(BinaryInvalid)})
	require.NoError(t, err)
	assert.Zero(t, h.Size)

	tests := []struct {
		name string
		in   []byte
	}{
		{"short", []byte{'1', 0x00}},
		{"too large", []byte{'1', 0xE9, 0x03, byte(BinaryUint8)}},
		{"unknown type", []byte{'1', 0x01, 0x00, 0x20}},
		{"size not multiple", []byte{'1', 0x03, 0x00, byte(BinaryInt16)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBinaryHeader(tt.in)
			require.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestBinaryType_Size(t *testing.T) {
	assert.Equal(t, 0, BinaryInvalid.Size())
	assert.Equal(t, 1, BinaryInt8.Size())
	assert.Equal(t, 2, BinaryUint16.Size())
	assert.Equal(t, 4, BinaryFloat32.Size())
	assert.Equal(t, 8, BinaryFloat64.Size())
	assert.Equal(t, 0, BinaryType(42).Size())
	assert.False(t, BinaryType(42).IsValid())
}

func TestFrameFormat(t *testing.T) {
	assert.Equal(t, "7E1", FrameASCII7E1.String())
	assert.Equal(t, "8N1", FrameBinary8N1.String())
	assert.Equal(t, "Unknown", FrameFormat(9).String())
	assert.Equal(t, 7, FrameASCII7E1.DataBits())
	assert.Equal(t, 8, FrameBinary8N1.DataBits())
	assert.True(t, FrameBinary8N1.IsBinary())
}
