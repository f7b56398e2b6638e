package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	ierrors "github.com/abgdnv/inventory/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_GetMissingFile(t *testing.T) {
	// given
	s, err := NewFileStore(filepath.Join(t.TempDir(), "nested", "inventory.json"))
	require.NoError(t, err)

	// when
	_, err = s.Get(context.Background(), "products")

	// then
	assert.ErrorIs(t, err, ierrors.ErrKeyNotFound)
}

func TestFileStore_SetSurvivesReopen(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "inventory.json")
	first, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(context.Background(), "products", `[{"id":"a"}]`))
	require.NoError(t, first.Set(context.Background(), "other", "x"))

	// when
	second, err := NewFileStore(path)
	require.NoError(t, err)
	value, err := second.Get(context.Background(), "products")

	// then
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, value)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStore_CorruptFile(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "inventory.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
	s, err := NewFileStore(path)
	require.NoError(t, err)

	// when
	_, getErr := s.Get(context.Background(), "products")
	setErr := s.Set(context.Background(), "products", "[]")

	// then
	assert.Error(t, getErr)
	assert.NotErrorIs(t, getErr, ierrors.ErrKeyNotFound)
	assert.Error(t, setErr)
}

func TestFileStore_CancelledContext(t *testing.T) {
	// given
	s, err := NewFileStore(filepath.Join(t.TempDir(), "inventory.json"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// when
	err = s.Set(ctx, "products", "[]")

	// then
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewFileStore_EmptyPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)
}
