package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerr "folio/internal/domain/errors"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestFS_ListAndRead(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b-post.mdx"), "b")
	writeFile(t, filepath.Join(root, "a-post.md"), "a")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, "2025", "nested.md"), "nested")
	writeFile(t, filepath.Join(root, ".hidden.md"), "hidden")

	s := NewFS(root)
	ids, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a-post", "b-post"}, ids)

	raw, err := s.Read(context.Background(), "b-post")
	require.NoError(t, err)
	assert.Equal(t, "b", string(raw))
}

func TestFS_ProvisionsMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "content", "posts")
	s := NewFS(root)

	ids, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFS_RootIsAFile(t *testing.T) {
	root := filepath.Join(t.TempDir(), "posts")
	writeFile(t, root, "not a directory")

	_, err := NewFS(root).List(context.Background())
	var unavailable *domainerr.StoreUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "stat", unavailable.Op)
}

func TestFS_ReadUnknownOrEscaping(t *testing.T) {
	s := NewFS(t.TempDir())
	_, err := s.Read(context.Background(), "missing")
	assert.ErrorIs(t, err, domainerr.ErrNotFound)

	_, err = s.Read(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, domainerr.ErrNotFound)
}

func TestFS_CustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "one.md"), "1")
	writeFile(t, filepath.Join(root, "two.mdx"), "2")

	ids, err := NewFS(root, ".mdx").List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"two"}, ids)
}

func TestMemory(t *testing.T) {
	m := NewMemory(map[string]string{"b": "B", "a": "A"})
	ctx := context.Background()

	ids, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	m.Put("c", "C")
	m.Delete("a")
	ids, err = m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids)

	raw, err := m.Read(ctx, "c")
	require.NoError(t, err)
	raw[0] = 'x'
	again, err := m.Read(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, "C", string(again))

	_, err = m.Read(ctx, "a")
	assert.ErrorIs(t, err, domainerr.ErrNotFound)
}

func TestMemory_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMemory(nil).List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
