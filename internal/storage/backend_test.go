package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	file, err := NewFileBackend(filepath.Join(dir, "nested", "store.json"), 0)
	require.NoError(t, err)
	sqliteBackend, err := NewSQLiteBackend(ctx, filepath.Join(dir, "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteBackend.Close() })

	return map[string]Backend{
		"memory": NewMemoryBackend(0),
		"file":   file,
		"sqlite": sqliteBackend,
	}
}

func TestBackendContract(t *testing.T) {
	ctx := context.Background()
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := b.Get(ctx, "resumeData")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, b.Set(ctx, "resumeData", []byte(`{"name":"홍길동"}`)))
			require.NoError(t, b.Set(ctx, "other", []byte(`[1,2]`)))
			require.NoError(t, b.Set(ctx, "resumeData", []byte(`{"name":"김철수"}`)))

			got, err := b.Get(ctx, "resumeData")
			require.NoError(t, err)
			assert.JSONEq(t, `{"name":"김철수"}`, string(got))

			require.NoError(t, b.Delete(ctx, "resumeData"))
			_, err = b.Get(ctx, "resumeData")
			assert.ErrorIs(t, err, ErrNotFound)

			got, err = b.Get(ctx, "other")
			require.NoError(t, err)
			assert.JSONEq(t, `[1,2]`, string(got))

			require.NoError(t, b.Delete(ctx, "missing"))
		})
	}
}

func TestFileBackendQuota(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")
	b, err := NewFileBackend(path, 64)
	require.NoError(t, err)

	require.NoError(t, b.Set(ctx, "k", []byte(`"small"`)))
	err = b.Set(ctx, "k", []byte(`"`+strings.Repeat("x", 100)+`"`))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"small"`, string(got), "failed write must leave the old value")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must be cleaned up")
}

func TestFileBackendRejectsNonJSON(t *testing.T) {
	b, err := NewFileBackend(filepath.Join(t.TempDir(), "store.json"), 0)
	require.NoError(t, err)
	assert.Error(t, b.Set(context.Background(), "k", []byte("not json")))
}

func TestMemoryBackendQuota(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryBackend(20)
	require.NoError(t, m.Set(ctx, "a", []byte("0123456789")))
	// replacing a key does not count its old value
	require.NoError(t, m.Set(ctx, "a", []byte("9876543210")))
	assert.ErrorIs(t, m.Set(ctx, "b", []byte("0123456789")), ErrQuotaExceeded)
}

func TestMapRedisError(t *testing.T) {
	err := mapRedisError(errors.New("OOM command not allowed when used memory > 'maxmemory'."))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	err = mapRedisError(errors.New("READONLY You can't write against a read only replica."))
	assert.NotErrorIs(t, err, ErrQuotaExceeded)
}

func TestSQLiteInMemory(t *testing.T) {
	ctx := context.Background()
	b, err := NewSQLiteBackend(ctx, ":memory:")
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.Set(ctx, "k", []byte(`{}`)))
	got, err := b.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))
}
