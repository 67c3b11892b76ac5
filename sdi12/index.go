package sdi12

import "fmt"

// Index ranges defined by SDI-12 v1.4.
const (
	MinMeasurementIndex = 1
	MaxMeasurementIndex = 9
	MaxContinuousIndex  = 9
	MaxDataIndex        = 999
	MinParameterIndex   = 1
	MaxParameterIndex   = 999
)

// MeasurementIndex selects the additional measurement of an M, MC, C, CC,
// or identify-measurement command. The zero value is the base command
// without an index digit ("aM!"); otherwise it is 1..9 ("aM1!".."aM9!").
type MeasurementIndex struct {
	n uint8
}

// BaseMeasurement is the measurement index of a command without an index digit.
var BaseMeasurement = MeasurementIndex{}

// NewMeasurementIndex returns the additional measurement index n (1..9).
func NewMeasurementIndex(n int) (MeasurementIndex, error) {
	if n < MinMeasurementIndex || n > MaxMeasurementIndex {
		return MeasurementIndex{}, fmt.Errorf("%w: measurement index %d not in [%d, %d]",
			ErrIndexOutOfRange, n, MinMeasurementIndex, MaxMeasurementIndex)
	}

	return MeasurementIndex{n: uint8(n)}, nil //nolint:gosec // range checked above
}

// MustMeasurementIndex is like NewMeasurementIndex but panics on error.
func MustMeasurementIndex(n int) MeasurementIndex {
	idx, err := NewMeasurementIndex(n)
	if err != nil {
		panic(err)
	}

	return idx
}

// IsBase reports whether the index denotes the command without an index digit.
func (m MeasurementIndex) IsBase() bool { return m.n == 0 }

// Value returns the index digit, or 0 for the base command.
func (m MeasurementIndex) Value() int { return int(m.n) }

// ContinuousIndex selects the continuous measurement of an R or RC command (0..9).
type ContinuousIndex struct {
	n uint8
}

// NewContinuousIndex returns the continuous measurement index n (0..9).
func NewContinuousIndex(n int) (ContinuousIndex, error) {
	if n < 0 || n > MaxContinuousIndex {
		return ContinuousIndex{}, fmt.Errorf("%w: continuous index %d not in [0, %d]",
			ErrIndexOutOfRange, n, MaxContinuousIndex)
	}

	return ContinuousIndex{n: uint8(n)}, nil //nolint:gosec // range checked above
}

// MustContinuousIndex is like NewContinuousIndex but panics on error.
func MustContinuousIndex(n int) ContinuousIndex {
	idx, err := NewContinuousIndex(n)
	if err != nil {
		panic(err)
	}

	return idx
}

// Value returns the index digit.
func (c ContinuousIndex) Value() int { return int(c.n) }

// DataIndex selects the data set of a D or DB command (0..999).
type DataIndex struct {
	n uint16
}

// NewDataIndex returns the data set index n (0..999).
func NewDataIndex(n int) (DataIndex, error) {
	if n < 0 || n > MaxDataIndex {
		return DataIndex{}, fmt.Errorf("%w: data index %d not in [0, %d]",
			ErrIndexOutOfRange, n, MaxDataIndex)
	}

	return DataIndex{n: uint16(n)}, nil //nolint:gosec // range checked above
}

// MustDataIndex is like NewDataIndex but panics on error.
func MustDataIndex(n int) DataIndex {
	idx, err := NewDataIndex(n)
	if err != nil {
		panic(err)
	}

	return idx
}

// Value returns the data set number.
func (d DataIndex) Value() int { return int(d.n) }

// ParameterIndex selects the parameter of an identify-measurement-parameter
// command ("_001".."_999"). The zero value is parameter 1.
type ParameterIndex struct {
	off uint16 // value - 1
}

// NewParameterIndex returns the parameter index n (1..999).
func NewParameterIndex(n int) (ParameterIndex, error) {
	if n < MinParameterIndex || n > MaxParameterIndex {
		return ParameterIndex{}, fmt.Errorf("%w: parameter index %d not in [%d, %d]",
			ErrIndexOutOfRange, n, MinParameterIndex, MaxParameterIndex)
	}

	return ParameterIndex{off: uint16(n - 1)}, nil //nolint:gosec // range checked above
}

// MustParameterIndex is like NewParameterIndex but panics on error.
func MustParameterIndex(n int) ParameterIndex {
	idx, err := NewParameterIndex(n)
	if err != nil {
		panic(err)
	}

	return idx
}

// Value returns the parameter number.
func (p ParameterIndex) Value() int { return int(p.off) + 1 }
