package record

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/restub/internal/testutil"
	"github.com/roach88/restub/registry"
	"github.com/roach88/restub/stub"
	"github.com/roach88/restub/target"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// TestOpen_File tests opening a store on disk.
func TestOpen_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calls.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Idempotent: reopening applies pragmas and schema again.
	store, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

// TestRecord_ViaStub tests the recorder wired into a live stub: one row per
// invocation, ordered by sequence.
func TestRecord_ViaStub(t *testing.T) {
	store := openStore(t)
	svc := testutil.NewService()

	s, err := stub.New(target.Var(&svc.Fetch),
		stub.WithRegistry(registry.New()),
		stub.WithLabel("fetch"),
		stub.WithRecorder(store),
	)
	require.NoError(t, err)

	s.Once().Returns("boot").Throws(errors.New("down"))

	svc.Fetch(1)
	svc.Fetch(2)

	calls, err := store.ReadCalls(context.Background(), s.ID())
	require.NoError(t, err)
	require.Len(t, calls, 2)

	assert.Equal(t, 1, calls[0].Seq)
	assert.Equal(t, "fetch", calls[0].Label)
	assert.Equal(t, "[1]", calls[0].Args)
	assert.Equal(t, stub.OutcomeReturned, calls[0].Outcome)
	assert.Equal(t, "(boot)", calls[0].Detail)

	assert.Equal(t, 2, calls[1].Seq)
	assert.Equal(t, "[2]", calls[1].Args)
	assert.Equal(t, stub.OutcomeThrew, calls[1].Outcome)
	assert.Equal(t, "down", calls[1].Detail)
}

// TestRecord_SurvivesReset tests that persisted rows outlive the stub's
// in-memory log.
func TestRecord_SurvivesReset(t *testing.T) {
	store := openStore(t)
	svc := testutil.NewService()

	s, err := stub.New(target.Var(&svc.Add),
		stub.WithRegistry(registry.New()),
		stub.WithRecorder(store),
	)
	require.NoError(t, err)

	svc.Add(1, 2)
	s.Reset()
	require.Equal(t, 0, s.Called())

	calls, err := store.ReadCalls(context.Background(), s.ID())
	require.NoError(t, err)
	assert.Len(t, calls, 1, "reset clears the stub log, not the store")
}

// TestRecord_Idempotent tests that writing the same (stub, seq) twice keeps
// a single row.
func TestRecord_Idempotent(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	call := stub.CallRecord{
		StubID:  "stub-1",
		Label:   "fetch",
		Seq:     1,
		Args:    []any{1, "x"},
		Outcome: stub.OutcomeReturned,
		Detail:  "(ok)",
	}
	require.NoError(t, store.Record(ctx, call))
	require.NoError(t, store.Record(ctx, call))

	calls, err := store.ReadCalls(ctx, "stub-1")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, `[1,"x"]`, calls[0].Args)
}

// TestRecord_UnmarshalableArgs tests the fmt fallback for values JSON
// cannot express.
func TestRecord_UnmarshalableArgs(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	call := stub.CallRecord{
		StubID:  "stub-2",
		Label:   "notify",
		Seq:     1,
		Args:    []any{func() {}, 7},
		Outcome: stub.OutcomeReturned,
	}
	require.NoError(t, store.Record(ctx, call))

	calls, err := store.ReadCalls(ctx, "stub-2")
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Args, "7")
}

// TestReadCalls_Empty tests reading an unknown stub.
func TestReadCalls_Empty(t *testing.T) {
	store := openStore(t)

	calls, err := store.ReadCalls(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, calls)
}
