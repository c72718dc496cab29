package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract runs the behaviour every backend shares.
func storeContract(t *testing.T, open func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("MissingRecord", func(t *testing.T) {
		s := open(t)
		_, err := s.GetString(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetUint(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("StringRoundTrip", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SetString(ctx, KeyAccessPIN, "4711"))
		got, err := s.GetString(ctx, KeyAccessPIN)
		require.NoError(t, err)
		assert.Equal(t, "4711", got)

		require.NoError(t, s.SetString(ctx, KeyAccessPIN, "0815"))
		got, err = s.GetString(ctx, KeyAccessPIN)
		require.NoError(t, err)
		assert.Equal(t, "0815", got)
	})

	t.Run("UintRoundTrip", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SetUint(ctx, KeyDoorDuration, 42))
		got, err := s.GetUint(ctx, KeyDoorDuration)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), got)
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.SetUint(ctx, KeyDoorDuration, 5))
		_, err := s.GetString(ctx, KeyDoorDuration)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("TooLong", func(t *testing.T) {
		s := open(t)
		long := make([]byte, MaxStringLength+1)
		for i := range long {
			long[i] = '1'
		}
		assert.ErrorIs(t, s.SetString(ctx, KeyAccessPIN, string(long)), ErrTooLong)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store { return NewMemoryStore() })

	t.Run("CommitSnapshots", func(t *testing.T) {
		s := NewMemoryStore()
		ctx := context.Background()
		require.NoError(t, s.SetString(ctx, KeyAdminPIN, "12345678"))
		assert.False(t, s.Committed(KeyAdminPIN))

		require.NoError(t, s.Commit(ctx))
		assert.True(t, s.Committed(KeyAdminPIN))
		assert.Equal(t, 1, s.Commits())
	})

	t.Run("Closed", func(t *testing.T) {
		s := NewMemoryStore()
		require.NoError(t, s.Close())
		_, err := s.GetString(context.Background(), KeyAccessPIN)
		assert.ErrorIs(t, err, ErrClosed)
	})
}

func TestFileStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, err := OpenFileStore(filepath.Join(t.TempDir(), "store.json"), Namespace)
		require.NoError(t, err)
		return s
	})

	t.Run("CommitPersists", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "store.json")
		ctx := context.Background()

		s, err := OpenFileStore(path, Namespace)
		require.NoError(t, err)
		require.NoError(t, s.SetString(ctx, KeyAccessPIN, "2468"))
		require.NoError(t, s.SetUint(ctx, KeyDoorDuration, 7))
		require.NoError(t, s.Commit(ctx))
		require.NoError(t, s.Close())

		reopened, err := OpenFileStore(path, Namespace)
		require.NoError(t, err)
		got, err := reopened.GetString(ctx, KeyAccessPIN)
		require.NoError(t, err)
		assert.Equal(t, "2468", got)
		secs, err := reopened.GetUint(ctx, KeyDoorDuration)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), secs)
	})

	t.Run("UncommittedLost", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "store.json")
		ctx := context.Background()

		s, err := OpenFileStore(path, Namespace)
		require.NoError(t, err)
		require.NoError(t, s.SetString(ctx, KeyAccessPIN, "2468"))
		require.NoError(t, s.Close())

		reopened, err := OpenFileStore(path, Namespace)
		require.NoError(t, err)
		_, err = reopened.GetString(ctx, KeyAccessPIN)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("NamespacesIsolated", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "store.json")
		ctx := context.Background()

		a, err := OpenFileStore(path, "a")
		require.NoError(t, err)
		require.NoError(t, a.SetString(ctx, "k", "from-a"))
		require.NoError(t, a.Commit(ctx))

		b, err := OpenFileStore(path, "b")
		require.NoError(t, err)
		_, err = b.GetString(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)
		require.NoError(t, b.SetString(ctx, "k", "from-b"))
		require.NoError(t, b.Commit(ctx))

		again, err := OpenFileStore(path, "a")
		require.NoError(t, err)
		got, err := again.GetString(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "from-a", got)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeContract(t, func(t *testing.T) Store {
		s, err := OpenSQLite(SQLiteConfig{Path: filepath.Join(t.TempDir(), "store.db")})
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})

	t.Run("Reopen", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "store.db")
		ctx := context.Background()

		s, err := OpenSQLite(SQLiteConfig{Path: path})
		require.NoError(t, err)
		require.NoError(t, s.SetString(ctx, KeyAdminPIN, "87654321"))
		require.NoError(t, s.Close())

		reopened, err := OpenSQLite(SQLiteConfig{Path: path})
		require.NoError(t, err)
		defer reopened.Close()
		got, err := reopened.GetString(ctx, KeyAdminPIN)
		require.NoError(t, err)
		assert.Equal(t, "87654321", got)
	})

	t.Run("RequiresPath", func(t *testing.T) {
		_, err := OpenSQLite(SQLiteConfig{})
		assert.Error(t, err)
	})
}
