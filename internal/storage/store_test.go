package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/feedlens/internal/model"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	_, found, err := s.Get(model.VariantOverrideKey)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(model.VariantOverrideKey, "comparison"))
	v, found, err := s.Get(model.VariantOverrideKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "comparison", v)

	require.NoError(t, s.Set(model.VariantOverrideKey, "treatment"))
	v, _, _ = s.Get(model.VariantOverrideKey)
	assert.Equal(t, "treatment", v)

	require.NoError(t, s.Remove(model.VariantOverrideKey))
	_, found, err = s.Get(model.VariantOverrideKey)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Remove("never-set"))

	require.NoError(t, s.Close())
	_, _, err = s.Get(model.VariantOverrideKey)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Set("k", "v"), ErrClosed)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	exerciseStore(t, NewFileStore(filepath.Join(t.TempDir(), "nested", "storage.json")))
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")

	first := NewFileStore(path)
	require.NoError(t, first.Set(model.VariantOverrideKey, "comparison"))
	require.NoError(t, first.Close())

	second := NewFileStore(path)
	v, found, err := second.Get(model.VariantOverrideKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "comparison", v)
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, _, err := NewFileStore(path).Get("k")
	assert.Error(t, err)
}

func TestBadgerStore(t *testing.T) {
	s, err := OpenBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	exerciseStore(t, s)
	require.NoError(t, s.Close(), "double close is a no-op")
}

func TestBadgerStore_RequiresPath(t *testing.T) {
	_, err := OpenBadgerStore(BadgerConfig{})
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	s, err := Open(model.StorageConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(model.StorageConfig{Backend: "file", Path: filepath.Join(t.TempDir(), "s.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	_, err = Open(model.StorageConfig{Backend: "etcd"})
	assert.Error(t, err)
}
