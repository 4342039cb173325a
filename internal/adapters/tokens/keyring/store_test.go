package keyring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbella/ava-cli/internal/domain"
)

// fakePass emulates the pass(1) surface the store touches: insert,
// show, rm, plus the "not in the password store" stderr convention.
type fakePass struct {
	entries map[string]string
	failErr error
}

func newFakePass() *fakePass {
	return &fakePass{entries: map[string]string{}}
}

func (f *fakePass) run(_ context.Context, input string, args ...string) (string, string, error) {
	if f.failErr != nil {
		return "", "pass: backend failure", f.failErr
	}

	switch args[0] {
	case "insert":
		entry := args[len(args)-1]
		f.entries[entry] = input
		return "", "", nil
	case "show":
		entry := args[len(args)-1]
		payload, ok := f.entries[entry]
		if !ok {
			return "", "Error: " + entry + " is not in the password store.", errors.New("exit status 1")
		}
		return payload, "", nil
	case "rm":
		entry := args[len(args)-1]
		if _, ok := f.entries[entry]; !ok {
			return "", "Error: " + entry + " is not in the password store.", errors.New("exit status 1")
		}
		delete(f.entries, entry)
		return "", "", nil
	default:
		return "", "", errors.New("unexpected pass invocation")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	pass := newFakePass()
	store := &Store{run: pass.run}

	creds := domain.Credentials{AccessToken: "access-1", RefreshToken: "refresh-1"}
	require.NoError(t, store.Save(context.Background(), creds))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, creds, loaded)
}

func TestLoadMissingEntryReturnsEmptyPair(t *testing.T) {
	t.Parallel()

	store := &Store{run: newFakePass().run}

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded.Empty())
}

func TestSaveRejectsHalfPair(t *testing.T) {
	t.Parallel()

	store := &Store{run: newFakePass().run}

	err := store.Save(context.Background(), domain.Credentials{AccessToken: "only-access"})
	assert.ErrorIs(t, err, errHalfCredentialPair)
}

func TestClearMissingEntryIsNotAnError(t *testing.T) {
	t.Parallel()

	pass := newFakePass()
	store := &Store{run: pass.run}

	require.NoError(t, store.Clear(context.Background()))

	creds := domain.Credentials{AccessToken: "a", RefreshToken: "r"}
	require.NoError(t, store.Save(context.Background(), creds))
	require.NoError(t, store.Clear(context.Background()))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded.Empty())
}

func TestBackendFailureSurfacesStderr(t *testing.T) {
	t.Parallel()

	pass := newFakePass()
	pass.failErr = errors.New("exit status 2")
	store := &Store{run: pass.run}

	err := store.Save(context.Background(), domain.Credentials{AccessToken: "a", RefreshToken: "r"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend failure")

	_, err = store.Load(context.Background())
	require.Error(t, err)

	assert.Error(t, store.Clear(context.Background()))
}

func TestCancelledContextShortCircuits(t *testing.T) {
	t.Parallel()

	store := &Store{run: newFakePass().run}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, store.Save(ctx, domain.Credentials{AccessToken: "a", RefreshToken: "r"}), context.Canceled)
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Clear(ctx), context.Canceled)
}
