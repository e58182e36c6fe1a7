// Package file implements audit.Store on plain append-only line files, one
// file per category inside a single log directory.
package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/frtem2008/Server-finale-2.0/pkg/audit"
)

// fileNames maps each category to its on-disk file name. The names are part
// of the server's external surface: operators read these files directly.
var fileNames = map[audit.Category]string{
	audit.CategoryRequests:    "req.dat",
	audit.CategoryLastID:      "commandIDs.dat",
	audit.CategoryConnections: "connections.dat",
	audit.CategoryOnOff:       "on-off.dat",
	audit.CategoryIDs:         "ids.dat",
}

// FileStore keeps one open append handle per category. All writes to a file
// go through the store mutex, so concurrent appends never interleave.
type FileStore struct {
	dir   string
	mu    sync.Mutex
	files map[audit.Category]*os.File
}

// NewFileStore creates the log directory (if missing) and opens or creates
// every category file.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", dir, err)
	}

	s := &FileStore{
		dir:   dir,
		files: make(map[audit.Category]*os.File, len(fileNames)),
	}
	for cat, name := range fileNames {
		f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("open log file %s: %w", name, err)
		}
		s.files[cat] = f
	}
	return s, nil
}

// Dir returns the absolute path of the log directory.
func (s *FileStore) Dir() string {
	abs, err := filepath.Abs(s.dir)
	if err != nil {
		return s.dir
	}
	return abs
}

// Path returns the on-disk path of the category's file.
func (s *FileStore) Path(category audit.Category) (string, error) {
	name, ok := fileNames[category]
	if !ok {
		return "", audit.ErrUnknownCategory
	}
	return filepath.Join(s.dir, name), nil
}

func (s *FileStore) AppendLine(category audit.Category, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[category]
	if !ok {
		return audit.ErrUnknownCategory
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append to %s: %w", category, err)
	}
	// Durability before success: registration uniqueness relies on it.
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", category, err)
	}
	return nil
}

func (s *FileStore) ReadAll(category audit.Category) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, ok := fileNames[category]
	if !ok {
		return nil, audit.ErrUnknownCategory
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", category, err)
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return []string{}, nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines, nil
}

func (s *FileStore) Clear(category audit.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[category]
	if !ok {
		return audit.ErrUnknownCategory
	}
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate %s: %w", category, err)
	}
	// The handle is append-only; after truncation the kernel keeps appending
	// at the end of file, so no seek is needed.
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for cat, f := range s.files {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", cat, err)
		}
	}
	s.files = map[audit.Category]*os.File{}
	return firstErr
}
