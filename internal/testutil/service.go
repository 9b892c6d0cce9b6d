// Package testutil provides a shared fake service for package tests.
package testutil

import (
	"fmt"

	"github.com/roach88/restub/future"
)

// Service is a plain object with patchable func-valued members, covering
// the calling conventions the stub engine supports: value+error, single
// value, no results, and asynchronous (future-returning).
type Service struct {
	// Name is deliberately not a function - tests use it as an
	// invalid stubbing target.
	Name string

	Fetch  func(id int) (string, error)
	Add    func(a, b int) int
	Ping   func() error
	Load   func(key string) *future.Future
	Notify func(msg string)
}

// NewService returns a Service with working implementations, so restore
// round-trips can verify the pre-stub behavior comes back.
func NewService() *Service {
	return &Service{
		Name: "real",
		Fetch: func(id int) (string, error) {
			return fmt.Sprintf("real-%d", id), nil
		},
		Add: func(a, b int) int {
			return a + b
		},
		Ping: func() error {
			return nil
		},
		Load: func(key string) *future.Future {
			return future.Resolved("real:" + key)
		},
		Notify: func(msg string) {},
	}
}
