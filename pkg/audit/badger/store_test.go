package badger

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frtem2008/Server-finale-2.0/pkg/audit"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBadgerStore_AppendAndReadAll(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.AppendLine(audit.CategoryIDs, "1"))
	require.NoError(t, store.AppendLine(audit.CategoryIDs, "2"))

	lines, err := store.ReadAll(audit.CategoryIDs)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, lines)
}

func TestBadgerStore_EmptyCategory(t *testing.T) {
	store := newTestStore(t)

	lines, err := store.ReadAll(audit.CategoryRequests)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestBadgerStore_CategoriesAreIsolated(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.AppendLine(audit.CategoryIDs, "7"))
	require.NoError(t, store.AppendLine(audit.CategoryConnections, "x$7$c"))

	ids, err := store.ReadAll(audit.CategoryIDs)
	require.NoError(t, err)
	assert.Equal(t, []string{"7"}, ids)

	conns, err := store.ReadAll(audit.CategoryConnections)
	require.NoError(t, err)
	assert.Equal(t, []string{"x$7$c"}, conns)
}

func TestBadgerStore_OrderSurvivesManyAppends(t *testing.T) {
	store := newTestStore(t)

	// Enough entries that naive (non-padded) key ordering would shuffle
	// them.
	want := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		line := fmt.Sprintf("line-%d", i)
		require.NoError(t, store.AppendLine(audit.CategoryRequests, line))
		want = append(want, line)
	}

	lines, err := store.ReadAll(audit.CategoryRequests)
	require.NoError(t, err)
	assert.Equal(t, want, lines)
}

func TestBadgerStore_Clear(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.AppendLine(audit.CategoryLastID, "41"))
	require.NoError(t, store.Clear(audit.CategoryLastID))

	lines, err := store.ReadAll(audit.CategoryLastID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.NoError(t, store.AppendLine(audit.CategoryLastID, "42"))
	lines, err = store.ReadAll(audit.CategoryLastID)
	require.NoError(t, err)
	assert.Equal(t, []string{"42"}, lines)
}

func TestBadgerStore_SequencesRecoverAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewBadgerStore(Options{Dir: dir})
	require.NoError(t, err)
	require.NoError(t, store.AppendLine(audit.CategoryIDs, "1"))
	require.NoError(t, store.AppendLine(audit.CategoryIDs, "2"))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(Options{Dir: dir})
	require.NoError(t, err)
	defer reopened.Close()

	require.NoError(t, reopened.AppendLine(audit.CategoryIDs, "3"))
	lines, err := reopened.ReadAll(audit.CategoryIDs)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, lines)
}

func TestBadgerStore_OnDiskWritesAreSynchronous(t *testing.T) {
	store, err := NewBadgerStore(Options{Dir: t.TempDir()})
	require.NoError(t, err)
	defer store.Close()

	// Appends are acknowledged as durable, so the commit path must fsync.
	assert.True(t, store.db.Opts().SyncWrites)

	inMem := newTestStore(t)
	assert.False(t, inMem.db.Opts().SyncWrites)
}

func TestBadgerStore_UnknownCategory(t *testing.T) {
	store := newTestStore(t)

	assert.ErrorIs(t, store.AppendLine("bogus", "x"), audit.ErrUnknownCategory)
	_, err := store.ReadAll("bogus")
	assert.ErrorIs(t, err, audit.ErrUnknownCategory)
	assert.ErrorIs(t, store.Clear("bogus"), audit.ErrUnknownCategory)
}
