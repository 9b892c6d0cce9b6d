package stub

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/restub/future"
)

// ruleKind discriminates the three effects a rule can produce.
type ruleKind int

const (
	ruleReturns ruleKind = iota
	ruleThrows
	ruleResolves
)

// rule is one configured behavior: produce return values, throw an error, or
// produce an already-resolved future wrapping a payload.
type rule struct {
	kind    ruleKind
	values  []any // ruleReturns: mapped positionally onto the function's results
	err     error // ruleThrows: the caller-supplied failure, propagated verbatim
	payload any   // ruleResolves: wrapped in future.Resolved at fire time
}

// timesRule is a rule that stays eligible for a fixed number of calls.
// Exhaustion (remaining == 0) does not clear the configuration; only Reset does.
type timesRule struct {
	remaining int
	r         rule
}

// untilState holds an until rule's condition, optional rule, hit cap, and
// hit counter. The counter survives until the next Reset; the predicate,
// rule, and cap survive Reset.
type untilState struct {
	pred    func() bool
	r       *rule // nil until a terminal call installs one
	maxHits int   // 0 = uncapped
	hits    int
}

// argRule pairs an expected argument list with a rule. Evaluated in
// insertion order; first match wins.
type argRule struct {
	expect []any
	r      rule
}

var (
	errorType  = reflect.TypeOf((*error)(nil)).Elem()
	futureType = reflect.TypeOf((*future.Future)(nil))
)

// futureResult reports whether the function's first result is *future.Future,
// i.e. whether the patched member follows the asynchronous calling convention.
func futureResult(fn reflect.Type) bool {
	return fn.NumOut() > 0 && fn.Out(0) == futureType
}

// zeroResults produces zero values for every result of fn.
// This is the "return undefined" fallback and the initial default behavior.
func zeroResults(fn reflect.Type) []reflect.Value {
	outs := make([]reflect.Value, fn.NumOut())
	for i := range outs {
		outs[i] = reflect.Zero(fn.Out(i))
	}
	return outs
}

// deliverValues maps configured values positionally onto fn's results.
// Missing trailing values become zero values. A value that is neither
// assignable nor convertible to its result slot panics - the configuration
// cannot be honored and silently substituting a zero value would hide it.
func deliverValues(fn reflect.Type, values []any) []reflect.Value {
	outs := make([]reflect.Value, fn.NumOut())
	for i := range outs {
		out := fn.Out(i)
		if i >= len(values) || values[i] == nil {
			outs[i] = reflect.Zero(out)
			continue
		}
		v := reflect.ValueOf(values[i])
		switch {
		case v.Type().AssignableTo(out):
			outs[i] = v
		case v.Type().ConvertibleTo(out):
			outs[i] = v.Convert(out)
		default:
			panic(fmt.Sprintf("stub: configured value %v (%T) does not fit result %d of type %s", values[i], values[i], i, out))
		}
	}
	return outs
}

// deliverError propagates err through the channel the original method would
// have used: a rejected future when the first result is *future.Future, the
// trailing error result otherwise, and a panic when the function exposes
// neither.
func deliverError(fn reflect.Type, err error) []reflect.Value {
	if futureResult(fn) {
		outs := zeroResults(fn)
		outs[0] = reflect.ValueOf(future.Rejected(err))
		return outs
	}
	n := fn.NumOut()
	if n > 0 && fn.Out(n-1).Implements(errorType) {
		outs := zeroResults(fn)
		outs[n-1] = reflect.ValueOf(err)
		return outs
	}
	panic(err)
}

// deliverResolved produces a resolved future in the first result slot.
// Resolves validates the calling convention at configuration time, so the
// first result is known to be *future.Future here.
func deliverResolved(fn reflect.Type, payload any) []reflect.Value {
	outs := zeroResults(fn)
	outs[0] = reflect.ValueOf(future.Resolved(payload))
	return outs
}

// argsEqual compares two argument lists by ordered, pairwise value-identity.
// Same length, each pair identical; never deep equality.
func argsEqual(expect, got []any) bool {
	if len(expect) != len(got) {
		return false
	}
	for i := range expect {
		if !identical(expect[i], got[i]) {
			return false
		}
	}
	return true
}

// identical is strict value-identity: same dynamic type, comparable, and
// equal under ==. Uncomparable values (slices, maps, funcs) never match -
// the comparison is guarded so they do not panic.
func identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// renderTuple formats an argument or value list for call records.
func renderTuple(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
