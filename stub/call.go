package stub

import "context"

// Outcome values recorded per call.
const (
	// OutcomeReturned - the call produced return values (or zero values).
	OutcomeReturned = "returned"
	// OutcomeThrew - a configured error was propagated synchronously.
	OutcomeThrew = "threw"
	// OutcomeResolved - the call produced a resolved future.
	OutcomeResolved = "resolved"
	// OutcomeRejected - a configured error was propagated as a rejected future.
	OutcomeRejected = "rejected"
	// OutcomeFailed - the until cap overflowed; no rule result was produced.
	OutcomeFailed = "failed"
)

// CallRecord captures one invocation of a stubbed member: its position in
// call order, the arguments received, and the outcome that fired.
type CallRecord struct {
	StubID  string // UUID of the stub
	Label   string // human-readable stub label
	Seq     int    // 1-based call index
	Args    []any  // arguments as received
	Outcome string // one of the Outcome constants
	Detail  string // rendered rule payload or error text
}

// Recorder persists call records outside the stub's in-memory log.
//
// Recording is strictly observational: a Recorder error is logged and
// dropped, never surfaced to the intercepted call, so wiring a recorder can
// never change stub semantics.
type Recorder interface {
	Record(ctx context.Context, call CallRecord) error
}
