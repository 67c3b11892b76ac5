// Package recorder implements the data recorder (host) side of SDI-12: the
// transaction engine that wakes sensors with a break, sends a command,
// collects the response within its deadline, validates it, and retries.
//
// # Transactions
//
// A transaction walks through the states
//
//	Idle → BreakSent → MarkingWait → CommandSent → AwaitingResponse → Validating → Success
//
// and ends in Retry (back to BreakSent) or Failed on error. The break is
// skipped when the previous transaction with the same sensor succeeded
// less than 87 ms ago, unless BreakAlways is configured.
//
// The engine never allocates response buffers and never interprets the
// payload: [Recorder.Transact] reads into the caller's buffer and returns
// the offsets of the bytes between the address and the CRC or <CR><LF>.
//
// # Hardware boundary
//
// The engine drives a [Port] and a [Clock]. The serialport package provides
// a Port for host serial adapters; tests use simulated ones.
//
// # Concurrency
//
// A [Recorder] serves one bus from one goroutine and blocks while it waits.
// A [Bus] owns a Recorder and a worker goroutine, serialising transactions
// from any number of goroutines and handing results back on channels.
//
// # Retries
//
// Timeouts and transport errors are retried up to the configured limit,
// each retry starting with a fresh break by default. Address mismatch, CRC
// and framing errors are returned immediately unless configured otherwise.
// The returned error always wraps the concrete sentinel of the last attempt.
package recorder
