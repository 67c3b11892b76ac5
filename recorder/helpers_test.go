package recorder

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-sdi12/logger"
	"github.com/arloliu/go-sdi12/sdi12"
)

// fakeClock is a Clock that only moves when slept on or when a read times out.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()

	c.Advance(d)

	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]time.Duration(nil), c.sleeps...)
}

// fakePort simulates a bus with sensors answering through respond.
//
// Bytes are delivered one line at a time, like a UART FIFO drained between
// two responses. A read with nothing pending advances the clock by its
// timeout and returns 0, nil.
type fakePort struct {
	mu    sync.Mutex
	clock *fakeClock

	// respond returns what the sensors send back to a command, "" for silence.
	respond func(cmd string) string

	pending []byte
	format  sdi12.FrameFormat

	writes   []string
	writeAt  []time.Time
	formats  []sdi12.FrameFormat
	breaks   int
	discards int

	breakErr error
	writeErr error
	readErr  error
}

var (
	_ Port           = (*fakePort)(nil)
	_ InputDiscarder = (*fakePort)(nil)
)

func newFakePort(clock *fakeClock, respond func(cmd string) string) *fakePort {
	return &fakePort{clock: clock, respond: respond}
}

// respondMap answers commands from a fixed table.
func respondMap(m map[string]string) func(string) string {
	return func(cmd string) string { return m[cmd] }
}

func (p *fakePort) Break(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.breakErr != nil {
		return p.breakErr
	}

	p.breaks++

	return nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.writeErr != nil {
		return 0, p.writeErr
	}

	cmd := string(b)
	p.writes = append(p.writes, cmd)
	p.writeAt = append(p.writeAt, p.clock.Now())

	if p.respond != nil {
		p.pending = append(p.pending, p.respond(cmd)...)
	}

	return len(b), nil
}

func (p *fakePort) ReadTimeout(b []byte, timeout time.Duration) (int, error) {
	p.mu.Lock()

	if p.readErr != nil {
		p.mu.Unlock()
		return 0, p.readErr
	}

	if len(p.pending) == 0 {
		p.mu.Unlock()
		p.clock.Advance(timeout)

		return 0, nil
	}

	n := len(p.pending)
	if i := bytes.IndexByte(p.pending, '\n'); i >= 0 {
		n = i + 1
	}

	n = copy(b, p.pending[:n])
	p.pending = p.pending[n:]
	p.mu.Unlock()

	return n, nil
}

func (p *fakePort) SetFrameFormat(f sdi12.FrameFormat) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.format = f
	p.formats = append(p.formats, f)

	return nil
}

func (p *fakePort) DiscardInput() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.discards++
	p.pending = nil

	return nil
}

// push makes b available to the next reads, as if a sensor sent it unprompted.
func (p *fakePort) push(b string) {
	p.mu.Lock()
	p.pending = append(p.pending, b...)
	p.mu.Unlock()
}

func (p *fakePort) Writes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.writes...)
}

func (p *fakePort) Breaks() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.breaks
}

func (p *fakePort) Format() sdi12.FrameFormat {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.format
}

func (p *fakePort) LastWriteAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.writeAt[len(p.writeAt)-1]
}

// newTestRecorder creates a Recorder on a fake port and clock with a quiet
// logger and no retry delay.
func newTestRecorder(t *testing.T, respond func(string) string, opts ...Option) (*Recorder, *fakePort, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	port := newFakePort(clock, respond)

	defaults := []Option{
		WithClock(clock),
		WithLogger(logger.NewSlog(logger.ErrorLevel, false)),
	}

	rec, err := New(port, append(defaults, opts...)...)
	require.NoError(t, err)

	return rec, port, clock
}

// withCRC appends the ASCII CRC and <CR><LF> to a response body.
func withCRC(body string) string {
	return string(sdi12.AppendCRCASCII([]byte(body))) + "\r\n"
}

// binaryPacket builds a binary data packet for address a.
func binaryPacket(a byte, typ sdi12.BinaryType, payload []byte) []byte {
	pkt := []byte{a, byte(len(payload)), byte(len(payload) >> 8), byte(typ)}
	pkt = append(pkt, payload...)
	crc := sdi12.EncodeCRCBinary(sdi12.ComputeCRC(pkt))

	return append(pkt, crc[:]...)
}
