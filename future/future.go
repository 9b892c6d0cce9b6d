// Package future provides an already-settled asynchronous value.
//
// Stub rules that resolve or reject asynchronously produce a *Future in a
// settled state. No scheduling is involved: the underlying computation
// (handing back a canned value) is immediate, so the Future is constructed
// resolved or rejected and Await returns without blocking.
package future

import "context"

// Future is an asynchronous value settled at construction time.
//
// A Future is either resolved (carrying a value) or rejected (carrying an
// error). It never transitions between the two states.
type Future struct {
	value any
	err   error
}

// Resolved creates a Future settled with the given value.
func Resolved(v any) *Future {
	return &Future{value: v}
}

// Rejected creates a Future settled with the given error.
//
// Panics if err is nil - a rejection without an error is a programming
// mistake that would otherwise surface as a resolved-with-nil value.
func Rejected(err error) *Future {
	if err == nil {
		panic("future: Rejected called with nil error")
	}
	return &Future{err: err}
}

// Await returns the settled value or error.
//
// The Future is already settled, so Await never blocks. An already-cancelled
// context takes priority over the settled state, matching the behavior a
// caller would observe awaiting a real asynchronous method under a dead
// context.
func (f *Future) Await(ctx context.Context) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.value, f.err
}

// Rejected reports whether the Future settled with an error.
func (f *Future) Rejected() bool {
	return f.err != nil
}
