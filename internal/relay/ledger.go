package relay

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/frtem2008/Server-finale-2.0/pkg/audit"
)

// Request is one admin-issued command tracked through its full lifecycle.
// While pending, Status is "NaN"; completion fills in the client's reported
// status.
type Request struct {
	ID       int64
	AdminID  int
	ClientID int
	Cmd      string
	Args     string
	Status   string
}

// ZeroRequest is the distinguished not-found sentinel. It is equal only to
// itself, so callers branch with IsZero instead of a separate existence
// check.
var ZeroRequest = Request{}

// IsZero reports whether r is the not-found sentinel.
func (r Request) IsZero() bool {
	return r == ZeroRequest
}

// pendingStatus marks a request whose completion is not yet known.
const pendingStatus = "NaN"

// Ledger is the in-memory table of pending requests plus the correlation-id
// allocator.
//
// Correlation ids are strictly increasing for the process lifetime. The
// allocator is seeded from the audit store at startup, so ids stay unique
// across restarts; pending entries themselves are not persisted and a
// restart loses them.
type Ledger struct {
	store audit.Store

	mu      sync.Mutex
	pending map[int64]Request
	lastID  int64
}

// NewLedger seeds the correlation-id allocator from the last value in the
// store. An empty or unparsable store seeds at 1.
func NewLedger(store audit.Store) (*Ledger, error) {
	l := &Ledger{
		store:   store,
		pending: make(map[int64]Request),
		lastID:  1,
	}

	lines, err := store.ReadAll(audit.CategoryLastID)
	if err != nil {
		return nil, fmt.Errorf("load last correlation id: %w", err)
	}
	if len(lines) > 0 {
		last, err := strconv.ParseInt(lines[len(lines)-1], 10, 64)
		if err == nil && last > 0 {
			l.lastID = last
		}
	}

	return l, nil
}

// LastID returns the most recently issued correlation id (or the seed if
// none was issued yet).
func (l *Ledger) LastID() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastID
}

// CreatePending allocates the next correlation id and inserts a pending
// request into the table.
func (l *Ledger) CreatePending(adminID, clientID int, cmd, args string) Request {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.lastID++
	req := Request{
		ID:       l.lastID,
		AdminID:  adminID,
		ClientID: clientID,
		Cmd:      cmd,
		Args:     args,
		Status:   pendingStatus,
	}
	l.pending[req.ID] = req
	return req
}

// Lookup returns the pending request with the given correlation id, or
// ZeroRequest if none exists.
func (l *Ledger) Lookup(id int64) Request {
	l.mu.Lock()
	defer l.mu.Unlock()

	req, ok := l.pending[id]
	if !ok {
		return ZeroRequest
	}
	return req
}

// Complete finalizes a pending request: it writes the completed-request
// audit record, removes the entry from the pending table and persists the
// latest correlation id. If the last-id persistence fails the request is
// still completed and removed; the error reports the persistence failure
// only.
//
// Completing a request that is absent from the table (including the zero
// request) returns ZeroRequest with no error; the caller logs it as a
// warning.
func (l *Ledger) Complete(req Request, status string, now time.Time) (Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.pending[req.ID]; !ok {
		return ZeroRequest, nil
	}

	done := req
	done.Status = status

	record := fmt.Sprintf("%s$%d$%d$%s$%s$%s",
		formatDate(now), done.AdminID, done.ClientID, done.Cmd, done.Args, done.Status)
	if err := l.store.AppendLine(audit.CategoryRequests, record); err != nil {
		return ZeroRequest, fmt.Errorf("persist completed request %d: %w", done.ID, err)
	}

	// The request is settled once its record is written: drop it from the
	// table before touching the last-id slot, so a failure below cannot
	// leave a pending entry whose retry would append the record twice.
	delete(l.pending, req.ID)

	// The last-id slot holds a single value: clear, then rewrite with the
	// allocator's high-water mark so a restart can never reissue an id.
	if err := l.store.Clear(audit.CategoryLastID); err != nil {
		return done, fmt.Errorf("clear last correlation id: %w", err)
	}
	if err := l.store.AppendLine(audit.CategoryLastID, strconv.FormatInt(l.lastID, 10)); err != nil {
		return done, fmt.Errorf("persist last correlation id: %w", err)
	}

	return done, nil
}

// PendingCount returns the current pending-table size.
func (l *Ledger) PendingCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
