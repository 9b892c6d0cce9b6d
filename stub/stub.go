package stub

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/restub/registry"
	"github.com/roach88/restub/target"
)

// pendingMode is the explicit tagged variant for the stateful-builder step:
// a modifier call arms a mode, the next terminal call consumes it.
type pendingMode int

const (
	pendingNone pendingMode = iota
	pendingOnce
	pendingTimes
	pendingOnCall
	pendingUntil
)

// pendingConfig is the armed modifier awaiting its terminal call.
// Keeping it a single discriminated field (rather than nullable slots)
// makes cross-contamination between modifiers impossible and the
// consumption step a single switch.
type pendingConfig struct {
	mode pendingMode
	n    int // times count or 1-based call index
}

// Stub owns one method replacement. It tracks invocation count and
// arguments, holds the configured behaviors, resolves every invocation to
// exactly one rule, and exposes the fluent configuration surface plus
// inspection and lifecycle operations.
//
// Thread-safety: the interception path and the configuration surface share
// a mutex, so the "exactly one rule fires per call, call count is exact"
// invariant holds even under parallel invocation. Call order is interception
// order; the log is never reordered.
type Stub struct {
	mu       sync.Mutex
	acc      target.Accessor
	fnType   reflect.Type
	original any
	id       string
	label    string
	reg      *registry.Registry
	handle   registry.Handle
	recorder Recorder
	restored bool

	callCount int
	calls     []CallRecord

	defaultRule rule
	once        *rule
	times       *timesRule
	onCall      map[int]rule
	until       *untilState
	argRules    []argRule
	pending     pendingConfig
}

// Option configures a Stub at creation time.
type Option func(*Stub)

// WithRegistry registers the stub's restore action with reg instead of the
// default process-wide registry. Tests use this for isolated registries.
func WithRegistry(reg *registry.Registry) Option {
	return func(s *Stub) {
		s.reg = reg
	}
}

// WithLabel sets a human-readable label used in call records, trace output,
// and error messages.
func WithLabel(label string) Option {
	return func(s *Stub) {
		s.label = label
	}
}

// WithRecorder wires a Recorder that persists every invocation.
func WithRecorder(rec Recorder) Option {
	return func(s *Stub) {
		s.recorder = rec
	}
}

// New replaces the member behind acc with a programmable interception
// function and returns the stub handle.
//
// The current member value must be an invocable (non-nil) function;
// otherwise New fails with an INVALID_TARGET ConfigError and modifies
// nothing. On success the original value is captured for restoration and a
// restore action is registered with the registry.
//
// The initial default behavior returns zero values for every result.
func New(acc target.Accessor, opts ...Option) (*Stub, error) {
	current := acc.Get()
	if current == nil {
		return nil, newInvalidTarget("member is nil, not an invocable function")
	}
	fn := reflect.ValueOf(current)
	if fn.Kind() != reflect.Func {
		return nil, newInvalidTarget(fmt.Sprintf("member is %T, not an invocable function", current))
	}
	if fn.IsNil() {
		return nil, newInvalidTarget("member is a nil function")
	}

	s := &Stub{
		acc:      acc,
		fnType:   fn.Type(),
		original: current,
		id:       uuid.NewString(),
		label:    "stub",
		reg:      registry.Default(),
		onCall:   make(map[int]rule),
	}
	for _, opt := range opts {
		opt(s)
	}

	shim := reflect.MakeFunc(s.fnType, s.intercept)
	if err := acc.Set(shim.Interface()); err != nil {
		return nil, newInvalidTarget(fmt.Sprintf("cannot install interception function: %v", err))
	}
	s.handle = s.reg.Register(s.restoreOriginal)

	return s, nil
}

// resolution is the outcome picked for one call, computed under the lock
// and delivered after it is released (delivery may panic).
type resolution struct {
	r        rule
	untilErr *UntilExceededError // until cap overflow: counted, logged, no rule result
	zero     bool                // until matched with no configured rule
}

// intercept runs on every call to the replaced member.
//
// Counting and argument logging happen unconditionally, before and
// independently of rule resolution - an UntilExceededError call is still a
// call.
func (s *Stub) intercept(in []reflect.Value) []reflect.Value {
	args := make([]any, len(in))
	for i, v := range in {
		args[i] = v.Interface()
	}

	s.mu.Lock()
	s.callCount++
	seq := s.callCount
	res := s.resolveLocked(seq, args)
	outcome, detail := s.describe(res)
	record := CallRecord{
		StubID:  s.id,
		Label:   s.label,
		Seq:     seq,
		Args:    args,
		Outcome: outcome,
		Detail:  detail,
	}
	s.calls = append(s.calls, record)
	recorder := s.recorder
	s.mu.Unlock()

	slog.Debug("stub call resolved",
		"stub", record.Label,
		"seq", record.Seq,
		"outcome", record.Outcome,
	)

	if recorder != nil {
		if err := recorder.Record(context.Background(), record); err != nil {
			// Log and continue: recording must never change stub semantics.
			slog.Warn("call recording failed",
				"stub", record.Label,
				"seq", record.Seq,
				"error", err,
			)
		}
	}

	return s.deliver(res)
}

// resolveLocked picks exactly one rule by strict precedence, first match
// wins:
//
//	a. onCall[callCount]
//	b. once (fired then cleared)
//	c. times while its remaining count > 0 (fired then decremented; an
//	   exhausted times rule stays configured until Reset)
//	d. until while its predicate holds (hit counter incremented; cap
//	   overflow produces an UntilExceededError instead of a rule result)
//	e. first argRules entry matching the arguments by value-identity
//	f. the always-present default
//
// onCall encodes the most specific intent (exact call number) and always
// wins; once and times are the counted forms; until is condition-driven, so
// it ranks after the counted forms but before the open-ended argument rules.
//
// Caller must hold s.mu.
func (s *Stub) resolveLocked(seq int, args []any) resolution {
	if r, ok := s.onCall[seq]; ok {
		return resolution{r: r}
	}
	if s.once != nil {
		r := *s.once
		s.once = nil
		return resolution{r: r}
	}
	if s.times != nil && s.times.remaining > 0 {
		s.times.remaining--
		return resolution{r: s.times.r}
	}
	if s.until != nil && s.until.pred() {
		s.until.hits++
		if s.until.maxHits > 0 && s.until.hits > s.until.maxHits {
			return resolution{untilErr: &UntilExceededError{
				Label: s.label,
				Hits:  s.until.hits,
				Limit: s.until.maxHits,
			}}
		}
		if s.until.r != nil {
			return resolution{r: *s.until.r}
		}
		return resolution{zero: true}
	}
	for _, ar := range s.argRules {
		if argsEqual(ar.expect, args) {
			return resolution{r: ar.r}
		}
	}
	return resolution{r: s.defaultRule}
}

// describe renders the outcome and detail strings for the call record.
func (s *Stub) describe(res resolution) (outcome, detail string) {
	switch {
	case res.untilErr != nil:
		return OutcomeFailed, res.untilErr.Error()
	case res.zero:
		return OutcomeReturned, "()"
	}
	switch res.r.kind {
	case ruleThrows:
		if futureResult(s.fnType) {
			return OutcomeRejected, res.r.err.Error()
		}
		return OutcomeThrew, res.r.err.Error()
	case ruleResolves:
		return OutcomeResolved, fmt.Sprint(res.r.payload)
	default:
		return OutcomeReturned, renderTuple(res.r.values)
	}
}

// deliver converts the resolution into the patched function's results,
// using the same propagation channel the original would have used for
// errors. Runs outside the lock because a throw without an error channel
// panics.
func (s *Stub) deliver(res resolution) []reflect.Value {
	switch {
	case res.untilErr != nil:
		return deliverError(s.fnType, res.untilErr)
	case res.zero:
		return zeroResults(s.fnType)
	}
	switch res.r.kind {
	case ruleThrows:
		return deliverError(s.fnType, res.r.err)
	case ruleResolves:
		return deliverResolved(s.fnType, res.r.payload)
	default:
		return deliverValues(s.fnType, res.r.values)
	}
}

// Once arms the next terminal call to install a behavior that fires for the
// first qualifying call only, then disappears.
func (s *Stub) Once() *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = pendingConfig{mode: pendingOnce}
	return s
}

// Times arms the next terminal call to install a behavior that fires for
// the next n qualifying calls.
//
// Panics with an INVALID_ARGUMENT ConfigError if n is not positive; the
// chain state is left untouched by the invalid call.
func (s *Stub) Times(n int) *Stub {
	if n <= 0 {
		panic(newInvalidArgument(fmt.Sprintf("Times requires a positive count, got %d", n)))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = pendingConfig{mode: pendingTimes, n: n}
	return s
}

// OnCall arms the next terminal call to install a behavior for the n-th
// call (1-based) to the stub.
//
// Panics with an INVALID_ARGUMENT ConfigError if n is not positive.
func (s *Stub) OnCall(n int) *Stub {
	if n <= 0 {
		panic(newInvalidArgument(fmt.Sprintf("OnCall requires a positive call index, got %d", n)))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = pendingConfig{mode: pendingOnCall, n: n}
	return s
}

// Until installs a fresh condition state (hit counter at zero) and arms the
// next terminal call to attach a rule to it. The rule applies while pred
// evaluates true. An optional maxCalls cap bounds the number of hits; once
// exceeded, the call fails with an UntilExceededError.
//
// Panics with an INVALID_ARGUMENT ConfigError if pred is nil or the cap is
// not positive.
func (s *Stub) Until(pred func() bool, maxCalls ...int) *Stub {
	if pred == nil {
		panic(newInvalidArgument("Until requires a non-nil predicate"))
	}
	limit := 0
	if len(maxCalls) > 0 {
		if len(maxCalls) > 1 {
			panic(newInvalidArgument("Until accepts at most one cap"))
		}
		if maxCalls[0] <= 0 {
			panic(newInvalidArgument(fmt.Sprintf("Until requires a positive cap, got %d", maxCalls[0])))
		}
		limit = maxCalls[0]
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.until = &untilState{pred: pred, maxHits: limit}
	s.pending = pendingConfig{mode: pendingUntil}
	return s
}

// Returns installs a rule producing the given values, mapped positionally
// onto the patched function's results (missing trailing values become zero
// values). The rule lands in the armed modifier slot, or overwrites the
// default behavior when none is armed.
func (s *Stub) Returns(values ...any) *Stub {
	s.install(rule{kind: ruleReturns, values: values})
	return s
}

// Throws installs a rule propagating err verbatim through the channel the
// original would have used: the trailing error result, a rejected future
// for asynchronous members, or a panic when the function exposes neither.
//
// Panics with an INVALID_ARGUMENT ConfigError if err is nil.
func (s *Stub) Throws(err error) *Stub {
	if err == nil {
		panic(newInvalidArgument("Throws requires a non-nil error"))
	}
	s.install(rule{kind: ruleThrows, err: err})
	return s
}

// Resolves installs a rule producing future.Resolved(value). The patched
// member must follow the asynchronous calling convention (first result is
// *future.Future); otherwise Resolves panics with an INVALID_ARGUMENT
// ConfigError at configuration time, not at first call.
func (s *Stub) Resolves(value any) *Stub {
	if !futureResult(s.fnType) {
		panic(newInvalidArgument("Resolves requires the patched member to return *future.Future"))
	}
	s.install(rule{kind: ruleResolves, payload: value})
	return s
}

// install consumes the armed modifier (if any) and clears it.
func (s *Stub) install(r rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.pending.mode {
	case pendingOnce:
		s.once = &r
	case pendingTimes:
		s.times = &timesRule{remaining: s.pending.n, r: r}
	case pendingOnCall:
		s.onCall[s.pending.n] = r
	case pendingUntil:
		if s.until != nil {
			s.until.r = &r
		}
	default:
		s.defaultRule = r
	}
	s.pending = pendingConfig{}
}

// ArgStub is the narrower surface returned by WithArgs. Its terminal calls
// append one argument rule each and hand back the parent stub.
type ArgStub struct {
	s      *Stub
	expect []any
}

// WithArgs returns a surface whose terminal calls install rules matching
// the given argument list by ordered, pairwise value-identity (never deep
// equality; two structurally equal but distinct pointers do not match).
//
// WithArgs bypasses and does not consume an armed Once/Times/OnCall/Until
// modifier.
func (s *Stub) WithArgs(expected ...any) *ArgStub {
	expect := make([]any, len(expected))
	copy(expect, expected)
	return &ArgStub{s: s, expect: expect}
}

// Returns appends an argument rule producing the given values.
func (a *ArgStub) Returns(values ...any) *Stub {
	a.append(rule{kind: ruleReturns, values: values})
	return a.s
}

// Throws appends an argument rule propagating err.
// Panics with an INVALID_ARGUMENT ConfigError if err is nil.
func (a *ArgStub) Throws(err error) *Stub {
	if err == nil {
		panic(newInvalidArgument("Throws requires a non-nil error"))
	}
	a.append(rule{kind: ruleThrows, err: err})
	return a.s
}

// Resolves appends an argument rule producing future.Resolved(value).
// Panics with an INVALID_ARGUMENT ConfigError if the member is not
// asynchronous.
func (a *ArgStub) Resolves(value any) *Stub {
	if !futureResult(a.s.fnType) {
		panic(newInvalidArgument("Resolves requires the patched member to return *future.Future"))
	}
	a.append(rule{kind: ruleResolves, payload: value})
	return a.s
}

func (a *ArgStub) append(r rule) {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	a.s.argRules = append(a.s.argRules, argRule{expect: a.expect, r: r})
}

// Reset clears the call count, the call log, and all consumable behavior
// state: once, times, the onCall map, the until hit counter, and any armed
// modifier. The original implementation, the argument rules, the until
// condition itself, and the default behavior survive, and the member stays
// patched. Reset is idempotent.
func (s *Stub) Reset() *Stub {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callCount = 0
	s.calls = nil
	s.once = nil
	s.times = nil
	s.onCall = make(map[int]rule)
	if s.until != nil {
		s.until.hits = 0
	}
	s.pending = pendingConfig{}
	return s
}

// Called returns the current call count.
func (s *Stub) Called() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

// CalledArgs returns a snapshot of the argument log: index i holds the
// arguments of the (i+1)-th call. The snapshot does not alias internal
// storage; mutating it does not affect subsequent calls.
func (s *Stub) CalledArgs() [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]any, len(s.calls))
	for i, c := range s.calls {
		args := make([]any, len(c.Args))
		copy(args, c.Args)
		out[i] = args
	}
	return out
}

// History returns a snapshot of the full call records, one per invocation
// in call order.
func (s *Stub) History() []CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CallRecord, len(s.calls))
	for i, c := range s.calls {
		args := make([]any, len(c.Args))
		copy(args, c.Args)
		c.Args = args
		out[i] = c
	}
	return out
}

// ID returns the stub's UUID.
func (s *Stub) ID() string {
	return s.id
}

// Label returns the stub's label.
func (s *Stub) Label() string {
	return s.label
}

// Restore writes the original implementation back and unregisters the
// stub's restore action. Calling Restore twice is tolerated: the second
// write-back is skipped and the second unregistration is a no-op. After
// Restore the member behaves as the original; the Stub intercepts nothing.
func (s *Stub) Restore() {
	s.restoreOriginal()
	s.reg.Unregister(s.handle)
}

// restoreOriginal is the action registered with the registry. It writes the
// original back exactly once per stub lifetime.
func (s *Stub) restoreOriginal() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.restored {
		return
	}
	s.restored = true
	if err := s.acc.Set(s.original); err != nil {
		slog.Error("restore failed",
			"stub", s.label,
			"error", err,
		)
	}
}
