package relay

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/frtem2008/Server-finale-2.0/pkg/audit"
)

// ErrIDExists is returned by Register for an id that is already registered.
var ErrIDExists = errors.New("relay: id already registered")

// Registry tracks every id ever registered plus the derived online and
// role-membership sets.
//
// The registered set is durable: it is loaded from the audit store at
// startup and every successful Register appends to the store before the
// in-memory set is updated, so a crash right after registration still
// preserves uniqueness on restart.
//
// The admin/client sets accumulate: an id seen logging in as admin stays
// classified as admin even after it goes offline. The online set is always
// recomputed from the live-session table, never maintained incrementally.
type Registry struct {
	store audit.Store

	mu      sync.RWMutex
	all     map[int]struct{}
	online  map[int]struct{}
	admins  map[int]struct{}
	clients map[int]struct{}
}

// NewRegistry loads the registered-id set from the store.
func NewRegistry(store audit.Store) (*Registry, error) {
	r := &Registry{
		store:   store,
		all:     make(map[int]struct{}),
		online:  make(map[int]struct{}),
		admins:  make(map[int]struct{}),
		clients: make(map[int]struct{}),
	}

	lines, err := store.ReadAll(audit.CategoryIDs)
	if err != nil {
		return nil, fmt.Errorf("load registered ids: %w", err)
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("parse registered id %q: %w", line, err)
		}
		r.all[id] = struct{}{}
	}

	return r, nil
}

// Register adds the id to the durable registered set. The append to the
// store happens synchronously before the in-memory set changes.
func (r *Registry) Register(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.all[id]; exists {
		return ErrIDExists
	}
	if err := r.store.AppendLine(audit.CategoryIDs, strconv.Itoa(id)); err != nil {
		return fmt.Errorf("persist registered id %d: %w", id, err)
	}
	r.all[id] = struct{}{}
	return nil
}

func (r *Registry) IsRegistered(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.all[id]
	return ok
}

func (r *Registry) IsOnline(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.online[id]
	return ok
}

func (r *Registry) IsAdmin(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.admins[id]
	return ok
}

func (r *Registry) IsClient(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[id]
	return ok
}

// MarkOnline records a successful login under the given role. Role
// membership accumulates and is never pruned on disconnect.
func (r *Registry) MarkOnline(id int, role Role) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.online[id] = struct{}{}
	switch role {
	case RoleAdmin:
		r.admins[id] = struct{}{}
	case RoleClient:
		r.clients[id] = struct{}{}
	}
}

// SetOnline replaces the online set with the ids of the current live
// sessions. Calling it redundantly is safe.
func (r *Registry) SetOnline(ids []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.online = make(map[int]struct{}, len(ids))
	for _, id := range ids {
		r.online[id] = struct{}{}
	}
}

// RegisteredIDs returns every registered id in ascending order.
func (r *Registry) RegisteredIDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedIDs(r.all)
}

// AdminIDs returns every id ever seen as admin, ascending.
func (r *Registry) AdminIDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedIDs(r.admins)
}

// ClientIDs returns every id ever seen as client, ascending.
func (r *Registry) ClientIDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedIDs(r.clients)
}

// OnlineIDs returns the ids with a currently live session, ascending.
func (r *Registry) OnlineIDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedIDs(r.online)
}

func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
