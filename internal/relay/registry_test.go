package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frtem2008/Server-finale-2.0/pkg/audit"
	"github.com/frtem2008/Server-finale-2.0/pkg/audit/memory"
)

func TestRegistry_RegisterPersistsAndRejectsDuplicates(t *testing.T) {
	store := memory.NewMemoryStore()
	r, err := NewRegistry(store)
	require.NoError(t, err)

	require.NoError(t, r.Register(5))
	assert.True(t, r.IsRegistered(5))
	assert.False(t, r.IsRegistered(6))

	err = r.Register(5)
	assert.ErrorIs(t, err, ErrIDExists)

	lines, err := store.ReadAll(audit.CategoryIDs)
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, lines)
}

func TestRegistry_LoadsFromStore(t *testing.T) {
	store := memory.NewMemoryStore()
	require.NoError(t, store.AppendLine(audit.CategoryIDs, "3"))
	require.NoError(t, store.AppendLine(audit.CategoryIDs, "7"))
	require.NoError(t, store.AppendLine(audit.CategoryIDs, ""))

	r, err := NewRegistry(store)
	require.NoError(t, err)
	assert.True(t, r.IsRegistered(3))
	assert.True(t, r.IsRegistered(7))
	assert.Equal(t, []int{3, 7}, r.RegisteredIDs())
}

func TestRegistry_LoadRejectsGarbage(t *testing.T) {
	store := memory.NewMemoryStore()
	require.NoError(t, store.AppendLine(audit.CategoryIDs, "not an id"))

	_, err := NewRegistry(store)
	assert.Error(t, err)
}

func TestRegistry_RoleSetsAccumulate(t *testing.T) {
	r, err := NewRegistry(memory.NewMemoryStore())
	require.NoError(t, err)

	require.NoError(t, r.Register(1))
	require.NoError(t, r.Register(2))

	r.MarkOnline(1, RoleAdmin)
	r.MarkOnline(2, RoleClient)
	assert.True(t, r.IsAdmin(1))
	assert.True(t, r.IsClient(2))
	assert.True(t, r.IsOnline(1))

	// Going offline never removes role membership.
	r.SetOnline(nil)
	assert.False(t, r.IsOnline(1))
	assert.True(t, r.IsAdmin(1))
	assert.True(t, r.IsClient(2))
	assert.Equal(t, []int{1}, r.AdminIDs())
	assert.Equal(t, []int{2}, r.ClientIDs())
}

func TestRegistry_SetOnlineReplaces(t *testing.T) {
	r, err := NewRegistry(memory.NewMemoryStore())
	require.NoError(t, err)

	r.SetOnline([]int{4, 2})
	assert.Equal(t, []int{2, 4}, r.OnlineIDs())

	r.SetOnline([]int{9})
	assert.Equal(t, []int{9}, r.OnlineIDs())
	assert.False(t, r.IsOnline(2))
}
