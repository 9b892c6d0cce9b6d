package fixture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/restub/internal/testutil"
	"github.com/roach88/restub/registry"
	"github.com/roach88/restub/stub"
	"github.com/roach88/restub/target"
)

const flakyAdd = `
name: flaky-add
behaviors:
  - on_call: 1
    returns: [100]
  - once: true
    returns: [200]
  - times: 2
    returns: [300]
  - with_args: [1, 2]
    returns: [10]
  - returns: [400]
`

func newAddStub(t *testing.T, svc *testutil.Service) *stub.Stub {
	t.Helper()
	s, err := stub.New(target.Var(&svc.Add), stub.WithRegistry(registry.New()))
	require.NoError(t, err)
	return s
}

// TestParse tests decoding a well-formed fixture.
func TestParse(t *testing.T) {
	f, err := Parse([]byte(flakyAdd))
	require.NoError(t, err)

	assert.Equal(t, "flaky-add", f.Name)
	require.Len(t, f.Behaviors, 5)
	assert.Equal(t, 1, f.Behaviors[0].OnCall)
	assert.True(t, f.Behaviors[1].Once)
	assert.Equal(t, 2, f.Behaviors[2].Times)
	assert.Equal(t, []any{1, 2}, f.Behaviors[3].WithArgs)
	assert.Equal(t, []any{400}, f.Behaviors[4].Returns)
}

// TestParse_Invalid tests the validation error codes.
func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		code string
	}{
		{
			name: "no behaviors",
			yaml: "name: empty\nbehaviors: []\n",
			code: ErrCodeNoBehaviors,
		},
		{
			name: "two modifiers",
			yaml: "behaviors:\n  - once: true\n    times: 2\n    returns: [1]\n",
			code: ErrCodeModifier,
		},
		{
			name: "no terminal",
			yaml: "behaviors:\n  - once: true\n",
			code: ErrCodeTerminal,
		},
		{
			name: "two terminals",
			yaml: "behaviors:\n  - returns: [1]\n    throws: boom\n",
			code: ErrCodeTerminal,
		},
		{
			name: "negative on_call",
			yaml: "behaviors:\n  - on_call: -1\n    returns: [1]\n",
			code: ErrCodeCount,
		},
		{
			name: "malformed yaml",
			yaml: "behaviors: [",
			code: ErrCodeParse,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.Error(t, err)
			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tc.code, le.Code)
		})
	}
}

// TestLoad tests reading a fixture from disk, plus the read-error code.
func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flaky.yaml")
	require.NoError(t, os.WriteFile(path, []byte(flakyAdd), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "flaky-add", f.Name)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeRead, le.Code)
}

// TestApply_Precedence tests that a declared fixture reproduces the engine's
// resolution order end to end.
func TestApply_Precedence(t *testing.T) {
	svc := testutil.NewService()
	s := newAddStub(t, svc)

	f, err := Parse([]byte(flakyAdd))
	require.NoError(t, err)
	require.NoError(t, Apply(s, f))

	want := []int{100, 200, 300, 300, 400}
	for i, expected := range want {
		assert.Equal(t, expected, svc.Add(0, 0), "call %d", i+1)
	}
	// The declared argument rule outlives the counted behaviors.
	assert.Equal(t, 10, svc.Add(1, 2))
}

// TestApply_Throws tests error construction from a throws terminal.
func TestApply_Throws(t *testing.T) {
	svc := testutil.NewService()
	s, err := stub.New(target.Var(&svc.Fetch), stub.WithRegistry(registry.New()))
	require.NoError(t, err)

	f, err := Parse([]byte("behaviors:\n  - throws: connection refused\n"))
	require.NoError(t, err)
	require.NoError(t, Apply(s, f))

	_, callErr := svc.Fetch(1)
	require.Error(t, callErr)
	assert.Equal(t, "connection refused", callErr.Error())
}

// TestApply_Resolves tests the asynchronous terminal against a
// future-returning member.
func TestApply_Resolves(t *testing.T) {
	svc := testutil.NewService()
	s, err := stub.New(target.Var(&svc.Load), stub.WithRegistry(registry.New()))
	require.NoError(t, err)

	f, err := Parse([]byte("behaviors:\n  - resolves: payload\n"))
	require.NoError(t, err)
	require.NoError(t, Apply(s, f))

	fut := svc.Load("k")
	require.NotNil(t, fut)
	v, awaitErr := fut.Await(context.Background())
	require.NoError(t, awaitErr)
	assert.Equal(t, "payload", v)
}
