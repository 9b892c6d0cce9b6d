// Package stub replaces a func-valued member with a programmable stand-in.
//
// A Stub intercepts every call to the replaced member, resolves exactly one
// configured behavior per call, and keeps an exact call count and argument
// log until the original implementation is restored.
//
// RESOLUTION ORDER:
//
// Several behavior modifiers can be configured on the same stub at once.
// Each call resolves by strict precedence, first match wins:
//
//  1. OnCall(n) - exact call number, the most specific intent
//  2. Once - first qualifying call only, then gone
//  3. Times(n) - the counted generalization of Once
//  4. Until(pred) - condition-driven, after the counted forms
//  5. WithArgs - argument rules in insertion order, value-identity match
//  6. the default - always present, fires when nothing else matched
//
// The order is deterministic across arbitrarily many calls, including after
// Reset clears the call history.
//
// BUILDER PROTOCOL:
//
// Once/Times/OnCall/Until arm a pending mode; the next Returns/Throws/
// Resolves consumes it. With no mode armed, a terminal call overwrites the
// default behavior. WithArgs bypasses the pending mode entirely.
//
//	s, err := stub.New(target.Var(&svc.Fetch))
//	s.OnCall(1).Returns("boot", nil).
//		Once().Throws(errRefused).
//		WithArgs(42).Returns("answer", nil).
//		Returns("fallback", nil)
//
// Counting and argument logging happen unconditionally before resolution,
// so a call that fails (until cap overflow) is still counted and logged.
package stub
