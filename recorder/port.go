package recorder

import (
	"context"
	"time"

	"github.com/arloliu/go-sdi12/internal/pool"
	"github.com/arloliu/go-sdi12/sdi12"
)

// Port is the serial line a Recorder drives.
//
// Implementations need not be goroutine-safe; a Recorder uses its Port from
// one goroutine at a time.
type Port interface {
	// Break holds the line in the spacing state for at least d.
	Break(d time.Duration) error
	// Write transmits p and returns once it has been handed to the line.
	Write(p []byte) (int, error)
	// ReadTimeout reads whatever arrives within timeout into p. It returns
	// 0, nil when nothing arrives in time.
	ReadTimeout(p []byte, timeout time.Duration) (int, error)
	// SetFrameFormat switches the character framing of both directions.
	SetFrameFormat(f sdi12.FrameFormat) error
}

// InputDiscarder is implemented by ports that can drop bytes received but
// not yet read. A Recorder uses it before every command so that stale
// responses cannot be mistaken for the new one.
type InputDiscarder interface {
	DiscardInput() error
}

// Clock provides the time base of a Recorder.
type Clock interface {
	// Now returns the current monotonic time.
	Now() time.Time
	// Sleep waits for d or until ctx is done, returning ctx.Err() in that case.
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the Clock backed by the runtime's monotonic clock.
type SystemClock struct{}

var _ Clock = SystemClock{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	return pool.Sleep(ctx, d)
}
