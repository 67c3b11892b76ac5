package recorder

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-sdi12/logger"
	"github.com/arloliu/go-sdi12/sdi12"
)

// ErrBusClosed is returned for requests submitted to, or still queued on, a
// closed Bus.
var ErrBusClosed = errors.New("recorder: bus closed")

// Result is the outcome of a transaction submitted to a Bus.
type Result struct {
	Payload sdi12.Payload
	Err     error
}

// request states
const (
	reqQueued int32 = iota
	reqRunning
	reqAbandoned
)

// busRequest is a unit of work for the bus worker: either a single
// transaction or, when fn is set, an exclusive sequence.
type busRequest struct {
	ctx  context.Context
	cmd  sdi12.Command
	buf  []byte
	opts []TxOption
	fn   func(ctx context.Context, r *Recorder) error

	state      atomic.Int32
	resultChan chan Result
}

// Bus shares one Recorder between goroutines.
//
// A single worker goroutine runs the submitted transactions one at a time
// in submission order, which keeps exactly one transaction on the wire.
// Callers wait on a channel instead of blocking on the serial line, and
// every wait runs the same Recorder.Transact as the blocking API does.
type Bus struct {
	rec    *Recorder
	logger logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// reqChan is read by the worker; producers write requests into it via
	// queue. It is created once in NewBus and never closed.
	reqChan chan *busRequest

	mu     sync.RWMutex
	closed bool
}

// NewBus starts a worker owning rec. The worker stops when ctx is done or
// Close is called. rec must not be used directly afterwards.
func NewBus(ctx context.Context, rec *Recorder) (*Bus, error) {
	if rec == nil {
		return nil, errors.New("recorder: recorder is nil")
	}

	b := &Bus{
		rec:     rec,
		logger:  rec.logger,
		done:    make(chan struct{}),
		reqChan: make(chan *busRequest, rec.cfg.busQueueSize),
	}
	b.ctx, b.cancel = context.WithCancel(ctx)

	go b.worker()

	return b, nil
}

// Submit queues a transaction and returns a channel that receives its
// result exactly once.
//
// buf belongs to the Bus until the result is received. If ctx is done
// before the transaction starts it is dropped without touching the line;
// once started, ctx cancellation aborts it like Recorder.Transact.
func (b *Bus) Submit(ctx context.Context, cmd sdi12.Command, buf []byte, opts ...TxOption) <-chan Result {
	req := &busRequest{
		ctx:        ctx,
		cmd:        cmd,
		buf:        buf,
		opts:       opts,
		resultChan: make(chan Result, 1),
	}

	b.queue(req)

	return req.resultChan
}

// Do submits a transaction and waits for its result.
//
// If ctx is done while the transaction is still queued, Do returns at once
// and buf is never written. If the transaction already runs, Do waits until
// the worker has released buf, which happens as soon as the transaction
// notices the cancellation.
func (b *Bus) Do(ctx context.Context, cmd sdi12.Command, buf []byte, opts ...TxOption) (sdi12.Payload, error) {
	req := &busRequest{
		ctx:        ctx,
		cmd:        cmd,
		buf:        buf,
		opts:       opts,
		resultChan: make(chan Result, 1),
	}

	b.queue(req)

	res, err := b.wait(ctx, req)
	if err != nil {
		return sdi12.Payload{}, err
	}

	return res.Payload, res.Err
}

// Run executes fn on the worker with exclusive use of the Recorder, so that
// a sequence such as measure, wait for service request, and collect data is
// not interleaved with other callers. fn must not retain r.
func (b *Bus) Run(ctx context.Context, fn func(ctx context.Context, r *Recorder) error) error {
	if fn == nil {
		return errors.New("recorder: nil bus function")
	}

	req := &busRequest{
		ctx:        ctx,
		fn:         fn,
		resultChan: make(chan Result, 1),
	}

	b.queue(req)

	res, err := b.wait(ctx, req)
	if err != nil {
		return err
	}

	return res.Err
}

// Close stops the worker, failing queued requests with ErrBusClosed, and
// waits for a running transaction to end. It is safe to call more than once.
func (b *Bus) Close() error {
	b.cancel()
	<-b.done

	return nil
}

// Metrics returns the counters of the underlying Recorder.
func (b *Bus) Metrics() *Metrics { return b.rec.Metrics() }

// State returns the state of the current or last transaction.
func (b *Bus) State() State { return b.rec.State() }

// Config returns the configuration of the underlying Recorder.
func (b *Bus) Config() *Config { return b.rec.Config() }

// queue puts req onto the worker's channel, or answers it at once when the
// bus is closed or ctx is done first.
func (b *Bus) queue(req *busRequest) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		req.resultChan <- Result{Err: ErrBusClosed}
		return
	}

	select {
	case <-b.ctx.Done():
		req.resultChan <- Result{Err: ErrBusClosed}
	case <-req.ctx.Done():
		req.resultChan <- Result{Err: cancelled(req.ctx.Err())}
	case b.reqChan <- req:
		b.rec.metrics.incInflightGauge()
	}
}

// wait returns the result of req, or abandons it when ctx is done before
// the worker picked it up.
func (b *Bus) wait(ctx context.Context, req *busRequest) (Result, error) {
	select {
	case res := <-req.resultChan:
		return res, nil
	case <-ctx.Done():
		if req.state.CompareAndSwap(reqQueued, reqAbandoned) {
			return Result{}, cancelled(ctx.Err())
		}

		return <-req.resultChan, nil
	}
}

// --- Worker ---

func (b *Bus) worker() {
	defer close(b.done)

	b.logger.Debug("sdi12: bus worker started")

	for {
		select {
		case <-b.ctx.Done():
			b.shutdown()
			return

		case req := <-b.reqChan:
			b.handleRequest(req)
		}
	}
}

func (b *Bus) handleRequest(req *busRequest) {
	if !req.state.CompareAndSwap(reqQueued, reqRunning) {
		// abandoned by Do or Run; nobody reads the result
		b.rec.metrics.decInflightGauge()
		return
	}

	res := b.execute(req)
	b.rec.metrics.decInflightGauge()
	req.resultChan <- res
}

func (b *Bus) execute(req *busRequest) Result {
	if b.ctx.Err() != nil {
		return Result{Err: ErrBusClosed}
	}

	// The transaction ends when either the caller or the bus gives up.
	ctx, cancel := context.WithCancel(req.ctx)
	stop := context.AfterFunc(b.ctx, cancel)

	defer func() {
		stop()
		cancel()
	}()

	if req.fn != nil {
		return Result{Err: req.fn(ctx, b.rec)}
	}

	p, err := b.rec.Transact(ctx, req.cmd, req.buf, req.opts...)

	return Result{Payload: p, Err: err}
}

// shutdown rejects new requests and fails the queued ones.
func (b *Bus) shutdown() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	for {
		select {
		case req := <-b.reqChan:
			b.rec.metrics.decInflightGauge()
			if req.state.CompareAndSwap(reqQueued, reqRunning) {
				req.resultChan <- Result{Err: ErrBusClosed}
			}
		default:
			b.logger.Debug("sdi12: bus worker stopped")
			return
		}
	}
}
