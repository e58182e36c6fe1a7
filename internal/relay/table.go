package relay

import (
	"errors"
	"sync"
)

// ErrIDOnline is returned by bind when the id already has a live session.
var ErrIDOnline = errors.New("relay: id already online")

// sessionTable holds every live session, authorized or not, and the
// id-to-session binding established at login.
//
// The check-and-bind step is atomic under the table lock; it is what
// enforces at-most-one-login-per-identity against concurrent logins.
type sessionTable struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	byID     map[int]*Session
}

func newSessionTable() *sessionTable {
	return &sessionTable{
		sessions: make(map[*Session]struct{}),
		byID:     make(map[int]*Session),
	}
}

// add inserts a freshly accepted session.
func (t *sessionTable) add(sess *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[sess] = struct{}{}
}

// bind reserves the id for the session and promotes it. Fails when another
// live session already holds the id.
func (t *sessionTable) bind(sess *Session, id int, role Role) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, online := t.byID[id]; online {
		return ErrIDOnline
	}
	t.byID[id] = sess
	sess.promote(id, role)
	return nil
}

// remove drops the session and releases its id binding, if any.
func (t *sessionTable) remove(sess *Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.sessions, sess)
	if id := sess.ID(); t.byID[id] == sess {
		delete(t.byID, id)
	}
}

// get returns the live session bound to id, nil if none.
func (t *sessionTable) get(id int) *Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.byID[id]
}

// snapshot returns every live session, in no particular order.
func (t *sessionTable) snapshot() []*Session {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*Session, 0, len(t.sessions))
	for sess := range t.sessions {
		out = append(out, sess)
	}
	return out
}

// onlineIDs returns the ids of every bound session.
func (t *sessionTable) onlineIDs() []int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]int, 0, len(t.byID))
	for id := range t.byID {
		ids = append(ids, id)
	}
	return ids
}

func (t *sessionTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.sessions)
}
