package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutWritesFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := New(dir)
	require.NoError(t, err)

	uri, err := store.Put(context.Background(), "pages/sub-1.html", []byte("<html>hi</html>"))
	require.NoError(t, err)
	require.Equal(t, "file://"+filepath.Join(dir, "pages", "sub-1.html"), uri)

	body, err := os.ReadFile(filepath.Join(dir, "pages", "sub-1.html"))
	require.NoError(t, err)
	require.Equal(t, "<html>hi</html>", string(body))
}

func TestPutRejectsEscapingPaths(t *testing.T) {
	t.Parallel()

	store, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../outside.html", []byte("x"))
	require.Error(t, err)

	_, err = store.Put(context.Background(), "/etc/owned.html", []byte("x"))
	require.Error(t, err)

	_, err = store.Put(context.Background(), "", []byte("x"))
	require.Error(t, err)
}

func TestNewRequiresDirectory(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)
}
