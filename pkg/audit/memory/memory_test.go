package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frtem2008/Server-finale-2.0/pkg/audit"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.AppendLine(audit.CategoryIDs, "1"))
	require.NoError(t, store.AppendLine(audit.CategoryIDs, "2"))

	lines, err := store.ReadAll(audit.CategoryIDs)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, lines)

	require.NoError(t, store.Clear(audit.CategoryIDs))
	lines, err = store.ReadAll(audit.CategoryIDs)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestMemoryStore_ReadAllReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.AppendLine(audit.CategoryIDs, "1"))

	lines, err := store.ReadAll(audit.CategoryIDs)
	require.NoError(t, err)
	lines[0] = "mutated"

	again, err := store.ReadAll(audit.CategoryIDs)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, again)
}

func TestMemoryStore_UnknownCategory(t *testing.T) {
	store := NewMemoryStore()

	assert.ErrorIs(t, store.AppendLine("bogus", "x"), audit.ErrUnknownCategory)
	_, err := store.ReadAll("bogus")
	assert.ErrorIs(t, err, audit.ErrUnknownCategory)
	assert.ErrorIs(t, store.Clear("bogus"), audit.ErrUnknownCategory)
}
