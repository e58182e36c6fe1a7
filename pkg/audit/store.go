// Package audit defines the durable append-only storage consumed by the relay
// core: one line-oriented log per category plus a single-value slot for the
// last issued correlation id.
//
// The core treats this purely as durable key-ordered append storage. File
// layout, key schema and sync behavior are the concern of the individual
// implementations (file, badger, memory).
package audit

import "errors"

// Category names one append-only log stream.
type Category string

const (
	// CategoryRequests holds completed-request records,
	// one "date$adminID$clientID$cmd$args$status" line each.
	CategoryRequests Category = "requests"

	// CategoryLastID holds the last issued correlation id. Writers clear the
	// category and append a single line with the new value.
	CategoryLastID Category = "last-id"

	// CategoryConnections holds "date$id$c" / "date$id$d" connection events.
	CategoryConnections Category = "connections"

	// CategoryOnOff holds "date$On" / "date$Off" server lifecycle events.
	CategoryOnOff Category = "on-off"

	// CategoryIDs holds every registered id, one per line, append-only.
	CategoryIDs Category = "ids"
)

// Categories lists every category a store must support.
var Categories = []Category{
	CategoryRequests,
	CategoryLastID,
	CategoryConnections,
	CategoryOnOff,
	CategoryIDs,
}

// ErrUnknownCategory is returned for a category outside Categories.
var ErrUnknownCategory = errors.New("audit: unknown category")

// Store is the persistence gateway interface.
//
// AppendLine must be durable before returning: a crash immediately after a
// successful append must not lose the line. Appends to the same category are
// serialized by the implementation so lines never interleave.
type Store interface {
	// AppendLine appends one line to the category's log.
	AppendLine(category Category, line string) error

	// ReadAll returns every line of the category, oldest first.
	// An empty category yields an empty slice, not an error.
	ReadAll(category Category) ([]string, error)

	// Clear removes all lines of the category.
	Clear(category Category) error

	// Close releases underlying resources. The store is unusable afterwards.
	Close() error
}

// Valid reports whether c is a known category.
func Valid(c Category) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
