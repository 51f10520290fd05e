package blob

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), []byte("test-signing-key"))
	require.NoError(t, err)
	return store
}

func TestStore_PutGetDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "uploads/notes.txt", []byte("hello")))

	data, err := store.Get(ctx, "uploads/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)

	require.NoError(t, store.Delete(ctx, "uploads/notes.txt"))
	_, err = store.Get(ctx, "uploads/notes.txt")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "uploads/notes.txt"), ErrNotFound)
}

func TestStore_RejectsTraversalRefs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, ref := range []string{"../outside.txt", "/etc/passwd", "a/../../b", "."} {
		assert.ErrorIs(t, store.Put(ctx, ref, []byte("x")), ErrInvalidRef, ref)
		_, err := store.Get(ctx, ref)
		assert.ErrorIs(t, err, ErrInvalidRef, ref)
	}
}

func TestStore_ReadAccessTokenRoundTrip(t *testing.T) {
	store := newTestStore(t)

	token, err := store.IssueReadAccess("uploads/invoice.pdf", time.Hour)
	require.NoError(t, err)

	ref, err := store.Resolve(token)
	require.NoError(t, err)
	assert.Equal(t, "uploads/invoice.pdf", ref)
}

func TestStore_ExpiredTokenIsRejected(t *testing.T) {
	store := newTestStore(t)

	token, err := store.IssueReadAccess("uploads/invoice.pdf", -time.Minute)
	require.NoError(t, err)

	_, err = store.Resolve(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestStore_TamperedTokenIsRejected(t *testing.T) {
	store := newTestStore(t)

	token, err := store.IssueReadAccess("uploads/invoice.pdf", time.Hour)
	require.NoError(t, err)

	// A token signed by a different key must not verify.
	other, err := NewStore(t.TempDir(), []byte("another-key"))
	require.NoError(t, err)
	_, err = other.Resolve(token)
	assert.ErrorIs(t, err, ErrBadSignature)

	_, err = store.Resolve("not-base64!!!")
	assert.Error(t, err)
}
