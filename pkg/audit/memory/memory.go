// Package memory implements audit.Store in process memory. It provides no
// durability and exists for tests and throwaway runs.
package memory

import (
	"sync"

	"github.com/frtem2008/Server-finale-2.0/pkg/audit"
)

type MemoryStore struct {
	mu    sync.Mutex
	lines map[audit.Category][]string
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{lines: make(map[audit.Category][]string, len(audit.Categories))}
	for _, cat := range audit.Categories {
		s.lines[cat] = []string{}
	}
	return s
}

func (s *MemoryStore) AppendLine(category audit.Category, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[category]; !ok {
		return audit.ErrUnknownCategory
	}
	s.lines[category] = append(s.lines[category], line)
	return nil
}

func (s *MemoryStore) ReadAll(category audit.Category) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, ok := s.lines[category]
	if !ok {
		return nil, audit.ErrUnknownCategory
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out, nil
}

func (s *MemoryStore) Clear(category audit.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lines[category]; !ok {
		return audit.ErrUnknownCategory
	}
	s.lines[category] = []string{}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
