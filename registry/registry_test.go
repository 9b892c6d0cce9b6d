package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRegisterUnregister tests the basic add/remove lifecycle.
func TestRegisterUnregister(t *testing.T) {
	r := New()
	require.Equal(t, 0, r.Len())

	h1 := r.Register(func() {})
	h2 := r.Register(func() {})
	assert.NotEqual(t, h1, h2, "handles are unique")
	assert.Equal(t, 2, r.Len())

	r.Unregister(h1)
	assert.Equal(t, 1, r.Len())

	// Unregistering an unknown or already removed handle is a no-op.
	r.Unregister(h1)
	r.Unregister(Handle("nope"))
	assert.Equal(t, 1, r.Len())
}

// TestRestoreAll tests that every pending action runs exactly once and the
// set clears.
func TestRestoreAll(t *testing.T) {
	r := New()

	ran := make(map[string]int)
	r.Register(func() { ran["a"]++ })
	r.Register(func() { ran["b"]++ })
	r.Register(func() { ran["c"]++ })

	r.RestoreAll()
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, ran)
	assert.Equal(t, 0, r.Len())

	// A second bulk restore finds nothing to do.
	r.RestoreAll()
	assert.Equal(t, map[string]int{"a": 1, "b": 1, "c": 1}, ran)
}

// TestRestoreAll_ActionUnregistersItself tests the snapshot discipline: an
// action that unregisters its own handle mid-iteration cannot corrupt the
// walk.
func TestRestoreAll_ActionUnregistersItself(t *testing.T) {
	r := New()

	ran := 0
	var h Handle
	h = r.Register(func() {
		ran++
		r.Unregister(h)
	})
	r.Register(func() { ran++ })

	r.RestoreAll()
	assert.Equal(t, 2, ran)
	assert.Equal(t, 0, r.Len())
}

// TestDefaultRegistry tests the package-level RestoreAll forwarding.
func TestDefaultRegistry(t *testing.T) {
	ran := false
	h := Default().Register(func() { ran = true })
	defer Default().Unregister(h)

	RestoreAll()
	assert.True(t, ran)
	assert.Equal(t, 0, Default().Len())
}
