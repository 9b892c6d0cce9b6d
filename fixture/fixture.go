// Package fixture loads declarative stub behaviors from YAML.
//
// A fixture is an ordered list of behaviors, each pairing at most one
// modifier (on_call, once, times, with_args) with exactly one terminal
// (returns, throws, resolves):
//
//	name: flaky-fetch
//	behaviors:
//	  - on_call: 1
//	    returns: [boot]
//	  - once: true
//	    throws: connection refused
//	  - times: 2
//	    returns: [7]
//	  - with_args: [1, 2]
//	    returns: [3]
//	  - returns: [fallback]
//
// A behavior with no modifier sets the default. until is deliberately not
// expressible in YAML - predicates are code, not data.
package fixture

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/restub/stub"
)

// Fixture is one declared set of behaviors for a single stub.
type Fixture struct {
	// Name identifies the fixture in errors and logs.
	Name string `yaml:"name"`

	// Behaviors are applied in declaration order. Order matters for
	// with_args rules (first structural match wins at call time).
	Behaviors []Behavior `yaml:"behaviors"`
}

// Behavior is one modifier/terminal pair.
type Behavior struct {
	// Modifiers - at most one may be set.
	OnCall   int    `yaml:"on_call,omitempty"`
	Once     bool   `yaml:"once,omitempty"`
	Times    int    `yaml:"times,omitempty"`
	WithArgs []any  `yaml:"with_args,omitempty"`

	// Terminals - exactly one must be set.
	Returns  []any  `yaml:"returns,omitempty"`
	Throws   string `yaml:"throws,omitempty"`
	Resolves any    `yaml:"resolves,omitempty"`
}

// LoadError represents an error that occurred during fixture loading.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants.
const (
	ErrCodeRead        = "F001" // File read error
	ErrCodeParse       = "F002" // YAML parse error
	ErrCodeNoBehaviors = "F003" // Fixture declares no behaviors
	ErrCodeModifier    = "F101" // More than one modifier on a behavior
	ErrCodeTerminal    = "F102" // Zero or several terminals on a behavior
	ErrCodeCount       = "F103" // Non-positive on_call/times count
)

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeRead, Message: fmt.Sprintf("reading fixture: %v", err)}
	}
	return Parse(data)
}

// Parse decodes and validates fixture YAML.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: fmt.Sprintf("parsing fixture: %v", err)}
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the structural rules: at least one behavior, at most one
// modifier and exactly one terminal per behavior, positive counts.
func (f *Fixture) Validate() error {
	if len(f.Behaviors) == 0 {
		return &LoadError{Code: ErrCodeNoBehaviors, Message: fmt.Sprintf("fixture %q declares no behaviors", f.Name)}
	}
	for i, b := range f.Behaviors {
		modifiers := 0
		if b.OnCall != 0 {
			if b.OnCall < 0 {
				return &LoadError{Code: ErrCodeCount, Message: fmt.Sprintf("behavior %d: on_call must be positive, got %d", i, b.OnCall)}
			}
			modifiers++
		}
		if b.Once {
			modifiers++
		}
		if b.Times != 0 {
			if b.Times < 0 {
				return &LoadError{Code: ErrCodeCount, Message: fmt.Sprintf("behavior %d: times must be positive, got %d", i, b.Times)}
			}
			modifiers++
		}
		if b.WithArgs != nil {
			modifiers++
		}
		if modifiers > 1 {
			return &LoadError{Code: ErrCodeModifier, Message: fmt.Sprintf("behavior %d: at most one of on_call/once/times/with_args", i)}
		}

		terminals := 0
		if b.Returns != nil {
			terminals++
		}
		if b.Throws != "" {
			terminals++
		}
		if b.Resolves != nil {
			terminals++
		}
		if terminals != 1 {
			return &LoadError{Code: ErrCodeTerminal, Message: fmt.Sprintf("behavior %d: exactly one of returns/throws/resolves required, got %d", i, terminals)}
		}
	}
	return nil
}

// Apply configures s with the fixture's behaviors in declaration order.
//
// throws values become errors via errors.New. resolves requires the patched
// member to follow the asynchronous calling convention, exactly as a direct
// Resolves call would.
func Apply(s *stub.Stub, f *Fixture) error {
	if err := f.Validate(); err != nil {
		return err
	}
	for _, b := range f.Behaviors {
		if b.WithArgs != nil {
			applyTerminal(s.WithArgs(b.WithArgs...), b)
			continue
		}
		switch {
		case b.OnCall > 0:
			s.OnCall(b.OnCall)
		case b.Once:
			s.Once()
		case b.Times > 0:
			s.Times(b.Times)
		}
		switch {
		case b.Throws != "":
			s.Throws(errors.New(b.Throws))
		case b.Resolves != nil:
			s.Resolves(b.Resolves)
		default:
			s.Returns(b.Returns...)
		}
	}
	return nil
}

func applyTerminal(a *stub.ArgStub, b Behavior) {
	switch {
	case b.Throws != "":
		a.Throws(errors.New(b.Throws))
	case b.Resolves != nil:
		a.Resolves(b.Resolves)
	default:
		a.Returns(b.Returns...)
	}
}
