package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groundwork-io/groundwork/internal/engine"
	"github.com/groundwork-io/groundwork/internal/ir"
)

func tempStatePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), ".groundwork", "state.json")
}

func TestLocalBackend_FreshStateWhenMissing(t *testing.T) {
	backend := NewLocalBackend(tempStatePath(t))

	st, err := backend.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, st.Version)
	assert.Equal(t, 0, st.Serial)
	assert.NotEmpty(t, st.Lineage)
	assert.Empty(t, st.Resources)
}

func TestLocalBackend_SaveLoadRoundtrip(t *testing.T) {
	path := tempStatePath(t)
	backend := NewLocalBackend(path)
	ctx := context.Background()

	st := ir.NewState()
	st.Lineage = "test-lineage"
	st.Serial = 3
	st.Put("Null.a", &ir.StateEntry{
		Kind: "Null", Name: "a", Provider: "null", Status: ir.StatusApplied,
		Attributes: map[string]any{"size": "s"},
		Outputs:    map[string]any{"id": "null-1"},
	})
	st.AppliedOrder = []string{"Null.a"}

	require.NoError(t, backend.Save(ctx, st))

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Serial)
	assert.Equal(t, "test-lineage", loaded.Lineage)
	assert.Equal(t, []string{"Null.a"}, loaded.AppliedOrder)
	require.NotNil(t, loaded.Entry("Null.a"))
	assert.Equal(t, "null-1", loaded.Entry("Null.a").ID())
}

func TestLocalBackend_LockConflict(t *testing.T) {
	path := tempStatePath(t)
	ctx := context.Background()

	b1 := NewLocalBackend(path)
	b2 := NewLocalBackend(path)

	require.NoError(t, b1.Lock(ctx))
	defer b1.Unlock(ctx)

	err := b2.Lock(ctx)
	require.Error(t, err)
	var conflict *engine.StateConflictError
	assert.ErrorAs(t, err, &conflict)

	// After release the second process can lock.
	require.NoError(t, b1.Unlock(ctx))
	require.NoError(t, b2.Lock(ctx))
	require.NoError(t, b2.Unlock(ctx))
}

func TestLocalBackend_StaleLockReclaimed(t *testing.T) {
	path := tempStatePath(t)
	ctx := context.Background()

	b1 := NewLocalBackend(path)
	require.NoError(t, b1.Lock(ctx))

	// Age the lock file past the stale threshold.
	lockPath := path + ".lock"
	old := time.Now().Add(-staleLockAge - time.Minute)
	require.NoError(t, os.Chtimes(lockPath, old, old))

	b2 := NewLocalBackend(path)
	require.NoError(t, b2.Lock(ctx))
	require.NoError(t, b2.Unlock(ctx))
}

func TestStore_CommitIncrementsSerial(t *testing.T) {
	store := NewStore(NewLocalBackend(tempStatePath(t)))
	ctx := context.Background()

	st, err := store.Read(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, st.Serial)

	require.NoError(t, store.Commit(ctx, func(s *ir.State) {
		s.Put("Null.a", &ir.StateEntry{Kind: "Null", Name: "a", Provider: "null"})
	}))
	require.NoError(t, store.Commit(ctx, func(s *ir.State) {
		s.Remove("Null.a")
	}))

	st, err = store.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Serial)
	assert.Empty(t, st.Resources)
}

func TestStore_LockIsExclusiveInProcess(t *testing.T) {
	store := NewStore(NewLocalBackend(tempStatePath(t)))
	ctx := context.Background()

	require.NoError(t, store.Lock(ctx))

	err := store.Lock(ctx)
	require.Error(t, err)
	var conflict *engine.StateConflictError
	assert.ErrorAs(t, err, &conflict)

	require.NoError(t, store.Unlock(ctx))
	require.NoError(t, store.Lock(ctx))
	require.NoError(t, store.Unlock(ctx))
}

func TestEncryption_Roundtrip(t *testing.T) {
	t.Setenv(EncryptionKeyEnvVar, "correct-horse-battery-staple")

	plaintext := []byte(`{"version":1}`)
	encrypted, err := Encrypt(plaintext)
	require.NoError(t, err)

	assert.True(t, IsEncrypted(encrypted))
	assert.NotContains(t, string(encrypted), "version")

	decrypted, err := Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryption_PassthroughWithoutKey(t *testing.T) {
	t.Setenv(EncryptionKeyEnvVar, "")

	plaintext := []byte(`{"version":1}`)
	out, err := Encrypt(plaintext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, out)
	assert.False(t, IsEncrypted(out))
}

func TestEncryption_WrongKeyRejected(t *testing.T) {
	t.Setenv(EncryptionKeyEnvVar, "key-one")
	encrypted, err := Encrypt([]byte(`{"version":1}`))
	require.NoError(t, err)

	t.Setenv(EncryptionKeyEnvVar, "key-two")
	_, err = Decrypt(encrypted)
	require.Error(t, err)
}

func TestEncryption_MissingKeyOnLoad(t *testing.T) {
	t.Setenv(EncryptionKeyEnvVar, "key-one")
	encrypted, err := Encrypt([]byte(`{"version":1}`))
	require.NoError(t, err)

	t.Setenv(EncryptionKeyEnvVar, "")
	_, err = Decrypt(encrypted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), EncryptionKeyEnvVar)
}

func TestLocalBackend_EncryptedStateOnDisk(t *testing.T) {
	t.Setenv(EncryptionKeyEnvVar, "state-key")

	path := tempStatePath(t)
	backend := NewLocalBackend(path)
	ctx := context.Background()

	st := ir.NewState()
	st.Lineage = "enc-lineage"
	require.NoError(t, backend.Save(ctx, st))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, IsEncrypted(raw))
	assert.NotContains(t, string(raw), "enc-lineage")

	loaded, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "enc-lineage", loaded.Lineage)
}
