package relay

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frtem2008/Server-finale-2.0/pkg/audit"
	"github.com/frtem2008/Server-finale-2.0/pkg/audit/memory"
)

func TestLedger_SeedsAtOneWhenEmpty(t *testing.T) {
	l, err := NewLedger(memory.NewMemoryStore())
	require.NoError(t, err)
	assert.Equal(t, int64(1), l.LastID())
}

func TestLedger_SeedsFromStore(t *testing.T) {
	store := memory.NewMemoryStore()
	require.NoError(t, store.AppendLine(audit.CategoryLastID, "41"))

	l, err := NewLedger(store)
	require.NoError(t, err)
	assert.Equal(t, int64(41), l.LastID())

	req := l.CreatePending(1, 2, "reboot", "now")
	assert.Equal(t, int64(42), req.ID)
}

func TestLedger_IgnoresGarbageSeed(t *testing.T) {
	store := memory.NewMemoryStore()
	require.NoError(t, store.AppendLine(audit.CategoryLastID, "not a number"))

	l, err := NewLedger(store)
	require.NoError(t, err)
	assert.Equal(t, int64(1), l.LastID())
}

func TestLedger_CreatePendingIsMonotonic(t *testing.T) {
	l, err := NewLedger(memory.NewMemoryStore())
	require.NoError(t, err)

	first := l.CreatePending(1, 2, "reboot", "now")
	second := l.CreatePending(1, 3, "status", "all")
	assert.Equal(t, int64(2), first.ID)
	assert.Equal(t, int64(3), second.ID)
	assert.Equal(t, 2, l.PendingCount())
}

func TestLedger_LookupUnknownIsZero(t *testing.T) {
	l, err := NewLedger(memory.NewMemoryStore())
	require.NoError(t, err)

	assert.True(t, l.Lookup(999).IsZero())

	req := l.CreatePending(1, 2, "reboot", "now")
	found := l.Lookup(req.ID)
	assert.False(t, found.IsZero())
	assert.Equal(t, "NaN", found.Status)
}

func TestLedger_CompleteWritesAuditRecord(t *testing.T) {
	store := memory.NewMemoryStore()
	l, err := NewLedger(store)
	require.NoError(t, err)

	req := l.CreatePending(7, 3, "reboot", "now")
	ts := time.Date(2024, 3, 7, 9, 5, 2, 0, time.UTC)

	done, err := l.Complete(req, "OK", ts)
	require.NoError(t, err)
	assert.Equal(t, "OK", done.Status)
	assert.Equal(t, 0, l.PendingCount())
	assert.True(t, l.Lookup(req.ID).IsZero())

	records, err := store.ReadAll(audit.CategoryRequests)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "07.03.2024[09:05:02]$7$3$reboot$now$OK", records[0])
}

func TestLedger_CompletePersistsHighWaterMark(t *testing.T) {
	store := memory.NewMemoryStore()
	l, err := NewLedger(store)
	require.NoError(t, err)

	first := l.CreatePending(1, 2, "a", "x")
	l.CreatePending(1, 3, "b", "y")

	_, err = l.Complete(first, "OK", time.Now())
	require.NoError(t, err)

	// The persisted value is the allocator's high-water mark, not the id
	// of the request that happened to complete first.
	lines, err := store.ReadAll(audit.CategoryLastID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "3", lines[0])

	// A restart must continue above every id ever issued.
	restarted, err := NewLedger(store)
	require.NoError(t, err)
	assert.Equal(t, int64(4), restarted.CreatePending(1, 2, "c", "z").ID)
}

func TestLedger_CompleteAbsentIsZeroNoError(t *testing.T) {
	l, err := NewLedger(memory.NewMemoryStore())
	require.NoError(t, err)

	done, err := l.Complete(Request{ID: 99}, "OK", time.Now())
	require.NoError(t, err)
	assert.True(t, done.IsZero())

	done, err = l.Complete(ZeroRequest, "OK", time.Now())
	require.NoError(t, err)
	assert.True(t, done.IsZero())
}

// faultyStore fails Clear once, simulating a backend error between the
// completed-request append and the last-id rewrite.
type faultyStore struct {
	audit.Store
	failClear bool
}

func (s *faultyStore) Clear(category audit.Category) error {
	if s.failClear {
		s.failClear = false
		return errors.New("disk full")
	}
	return s.Store.Clear(category)
}

func TestLedger_PersistFailureLeavesNoPendingEntry(t *testing.T) {
	backing := memory.NewMemoryStore()
	store := &faultyStore{Store: backing, failClear: true}
	l, err := NewLedger(store)
	require.NoError(t, err)

	req := l.CreatePending(1, 2, "reboot", "now")
	done, err := l.Complete(req, "OK", time.Now())
	require.Error(t, err)
	assert.Equal(t, "OK", done.Status)
	assert.Equal(t, 0, l.PendingCount())

	// The record is already written and the entry gone, so a retried
	// report resolves to nothing instead of appending a duplicate.
	done, err = l.Complete(req, "OK", time.Now())
	require.NoError(t, err)
	assert.True(t, done.IsZero())

	records, err := backing.ReadAll(audit.CategoryRequests)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLedger_ArgsMayContainSeparator(t *testing.T) {
	store := memory.NewMemoryStore()
	l, err := NewLedger(store)
	require.NoError(t, err)

	req := l.CreatePending(1, 2, "exec", "echo$hi")
	_, err = l.Complete(req, "exit$0", time.Now())
	require.NoError(t, err)

	records, err := store.ReadAll(audit.CategoryRequests)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, strings.HasSuffix(records[0], "$1$2$exec$echo$hi$exit$0"))
}
