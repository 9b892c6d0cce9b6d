// Package trace renders a stub's call history as a deterministic text
// transcript, suitable for golden-file comparison.
package trace

import (
	"fmt"
	"strings"

	"github.com/roach88/restub/stub"
)

// Render produces the transcript for a live stub.
func Render(s *stub.Stub) []byte {
	return RenderHistory(s.Label(), s.History())
}

// RenderHistory produces the transcript for an already-captured history.
//
// One header line, then one line per call in call order:
//
//	stub fetch calls=3
//	  1: (1) -> returned (boot)
//	  2: (2) -> threw connection refused
//	  3: (3) -> returned (fallback)
//
// The format is deterministic: same history, same bytes. Arguments are
// rendered with fmt.Sprint, so the transcript is for humans and golden
// files, not for round-tripping values.
func RenderHistory(label string, calls []stub.CallRecord) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "stub %s calls=%d\n", label, len(calls))
	for _, c := range calls {
		fmt.Fprintf(&b, "  %d: %s -> %s %s\n", c.Seq, renderArgs(c.Args), c.Outcome, c.Detail)
	}
	return []byte(b.String())
}

func renderArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprint(a)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
