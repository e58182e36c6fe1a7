// Package badger implements audit.Store on BadgerDB, for deployments that
// want the audit trail in a single crash-safe embedded database instead of a
// directory of line files.
package badger

import (
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/frtem2008/Server-finale-2.0/pkg/audit"
)

// BadgerStore appends each line as one Badger entry under the category's key
// prefix. The database is opened with synchronous writes, so every committed
// append is durable, matching the synchronous-append contract of
// audit.Store.
//
// A single store-wide mutex serializes appends so per-category sequence
// numbers stay dense and ordered. Reads run in Badger read transactions and
// only take the mutex to snapshot the sequence table.
type BadgerStore struct {
	db *badger.DB

	mu   sync.Mutex
	next map[audit.Category]uint64
}

// Options configures the Badger-backed store.
type Options struct {
	// Dir is the database directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in RAM. Used by tests; provides no
	// durability.
	InMemory bool
}

// NewBadgerStore opens (or creates) the database and recovers the next
// sequence number of every category.
func NewBadgerStore(opts Options) (*BadgerStore, error) {
	// Appends are acknowledged as durable, so the WAL must be fsynced on
	// every commit rather than on Badger's default schedule.
	badgerOpts := badger.DefaultOptions(opts.Dir).
		WithInMemory(opts.InMemory).
		WithSyncWrites(!opts.InMemory).
		WithLogger(nil)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &BadgerStore{
		db:   db,
		next: make(map[audit.Category]uint64, len(audit.Categories)),
	}
	if err := s.recoverSequences(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// recoverSequences counts existing entries per category so appends continue
// where the previous process stopped.
func (s *BadgerStore) recoverSequences() error {
	return s.db.View(func(txn *badger.Txn) error {
		for _, cat := range audit.Categories {
			prefix := categoryPrefix(cat)

			it := txn.NewIterator(badger.IteratorOptions{
				Prefix:  prefix,
				Reverse: false,
			})
			var count uint64
			for it.Rewind(); it.Valid(); it.Next() {
				count++
			}
			it.Close()

			s.next[cat] = count
		}
		return nil
	})
}

func (s *BadgerStore) AppendLine(category audit.Category, line string) error {
	if !audit.Valid(category) {
		return audit.ErrUnknownCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.next[category]
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(lineKey(category, seq), []byte(line))
	})
	if err != nil {
		return fmt.Errorf("append to %s: %w", category, err)
	}
	s.next[category] = seq + 1
	return nil
}

func (s *BadgerStore) ReadAll(category audit.Category) ([]string, error) {
	if !audit.Valid(category) {
		return nil, audit.ErrUnknownCategory
	}

	lines := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := categoryPrefix(category)
		it := txn.NewIterator(badger.IteratorOptions{
			Prefix:         prefix,
			PrefetchValues: true,
			PrefetchSize:   100,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				lines = append(lines, string(val))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", category, err)
	}
	return lines, nil
}

func (s *BadgerStore) Clear(category audit.Category) error {
	if !audit.Valid(category) {
		return audit.ErrUnknownCategory
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		prefix := categoryPrefix(category)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("clear %s: %w", category, err)
	}
	s.next[category] = 0
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
