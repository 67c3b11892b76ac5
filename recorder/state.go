package recorder

import "sync/atomic"

// State is a step of the transaction state machine.
//
//	Idle → BreakSent → MarkingWait → CommandSent → AwaitingResponse → Validating → Success
//	                                                                              ↘ Retry → BreakSent ...
//	                                                                              ↘ Failed
//
// BreakSent and MarkingWait are skipped when no break is needed.
type State uint32

const (
	StateIdle State = iota
	StateBreakSent
	StateMarkingWait
	StateCommandSent
	StateAwaitingResponse
	StateValidating
	StateSuccess
	StateRetry
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBreakSent:
		return "BreakSent"
	case StateMarkingWait:
		return "MarkingWait"
	case StateCommandSent:
		return "CommandSent"
	case StateAwaitingResponse:
		return "AwaitingResponse"
	case StateValidating:
		return "Validating"
	case StateSuccess:
		return "Success"
	case StateRetry:
		return "Retry"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s ends a transaction.
func (s State) IsTerminal() bool {
	return s == StateSuccess || s == StateFailed
}

// atomicState lets other goroutines observe the state of a running transaction.
type atomicState struct {
	state atomic.Uint32
}

func (st *atomicState) Get() State { return State(st.state.Load()) }

func (st *atomicState) Set(s State) { st.state.Store(uint32(s)) }
