package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frtem2008/Server-finale-2.0/pkg/audit"
)

func TestFileStore_AppendAndReadAll(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.AppendLine(audit.CategoryIDs, "1"))
	require.NoError(t, store.AppendLine(audit.CategoryIDs, "2"))

	lines, err := store.ReadAll(audit.CategoryIDs)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, lines)
}

func TestFileStore_EmptyCategory(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	lines, err := store.ReadAll(audit.CategoryRequests)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestFileStore_Clear(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.AppendLine(audit.CategoryLastID, "41"))
	require.NoError(t, store.Clear(audit.CategoryLastID))
	require.NoError(t, store.AppendLine(audit.CategoryLastID, "42"))

	lines, err := store.ReadAll(audit.CategoryLastID)
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, lines)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.AppendLine(audit.CategoryConnections, "x$1$c"))
	require.NoError(t, store.Close())

	reopened, err := NewFileStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	lines, err := reopened.ReadAll(audit.CategoryConnections)
	require.NoError(t, err)
	assert.Equal(t, []string{"x$1$c"}, lines)
}

func TestFileStore_UsesExpectedFileNames(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.AppendLine(audit.CategoryRequests, "r"))

	for _, name := range []string{"req.dat", "commandIDs.dat", "connections.dat", "on-off.dat", "ids.dat"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	path, err := store.Path(audit.CategoryRequests)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "req.dat"), path)
}

func TestFileStore_UnknownCategory(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	assert.ErrorIs(t, store.AppendLine("bogus", "x"), audit.ErrUnknownCategory)
	_, err = store.ReadAll("bogus")
	assert.ErrorIs(t, err, audit.ErrUnknownCategory)
	assert.ErrorIs(t, store.Clear("bogus"), audit.ErrUnknownCategory)
	_, err = store.Path("bogus")
	assert.ErrorIs(t, err, audit.ErrUnknownCategory)
}

func TestFileStore_LinesMayContainSeparators(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	line := "01.01.2024[00:00:00]$1$2$exec$echo$hi$OK"
	require.NoError(t, store.AppendLine(audit.CategoryRequests, line))

	lines, err := store.ReadAll(audit.CategoryRequests)
	require.NoError(t, err)
	assert.Equal(t, []string{line}, lines)
}
