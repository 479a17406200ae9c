package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract runs the behavior every backend must share.
func storeContract(t *testing.T, newStore func() Store) {
	t.Helper()

	t.Run("absent by default", func(t *testing.T) {
		cred, err := newStore().Get()
		require.NoError(t, err)
		assert.Empty(t, cred)
	})

	t.Run("set overwrites", func(t *testing.T) {
		s := newStore()
		require.NoError(t, s.Set("first"))
		require.NoError(t, s.Set("second"))

		cred, err := s.Get()
		require.NoError(t, err)
		assert.Equal(t, "second", cred)
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		s := newStore()
		require.NoError(t, s.Clear())
		require.NoError(t, s.Set("abc"))
		require.NoError(t, s.Clear())
		require.NoError(t, s.Clear())

		cred, err := s.Get()
		require.NoError(t, err)
		assert.Empty(t, cred)
	})

	t.Run("set empty clears", func(t *testing.T) {
		s := newStore()
		require.NoError(t, s.Set("abc"))
		require.NoError(t, s.Set(""))

		cred, err := s.Get()
		require.NoError(t, err)
		assert.Empty(t, cred)
	})
}

func TestMemoryStore(t *testing.T) {
	storeContract(t, func() Store { return NewMemoryStore() })
}

func TestFileStore(t *testing.T) {
	storeContract(t, func() Store {
		return NewFileStore(filepath.Join(t.TempDir(), "credential"))
	})

	t.Run("survives a new instance", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "credential")
		require.NoError(t, NewFileStore(path).Set("abc"))

		cred, err := NewFileStore(path).Get()
		require.NoError(t, err)
		assert.Equal(t, "abc", cred)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("expands home directory", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)

		s := NewFileStore("")
		assert.Equal(t, filepath.Join(home, ".adminctl", "credential"), s.Path())
	})
}

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")

	storeContract(t, func() Store {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), "http://localhost:8080", nil)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})

	t.Run("profiles are isolated", func(t *testing.T) {
		a, err := NewSQLiteStore(dbPath, "http://a", nil)
		require.NoError(t, err)
		defer a.Close()
		b, err := NewSQLiteStore(dbPath, "http://b", nil)
		require.NoError(t, err)
		defer b.Close()

		require.NoError(t, a.Set("token-a"))
		require.NoError(t, b.Set("token-b"))
		require.NoError(t, b.Clear())

		cred, err := a.Get()
		require.NoError(t, err)
		assert.Equal(t, "token-a", cred)

		cred, err = b.Get()
		require.NoError(t, err)
		assert.Empty(t, cred)
	})
}

func TestNew(t *testing.T) {
	s, err := New(Options{Backend: BackendMemory}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(Options{Backend: BackendFile, Path: filepath.Join(t.TempDir(), "cred")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = New(Options{Backend: "keychain"}, nil)
	assert.Error(t, err)
}
