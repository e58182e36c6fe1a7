package badger

import (
	"fmt"

	"github.com/frtem2008/Server-finale-2.0/pkg/audit"
)

// Key Namespace Design
// ====================
//
// BadgerDB is a key-value store, so each audit category becomes a key prefix
// and each appended line one entry under it:
//
//	Data Type   Key Format           Value
//	--------------------------------------------
//	Log line    l:<category>:<seq>   line bytes
//
// <seq> is a 12-digit zero-padded decimal, so lexicographic key order equals
// append order and ReadAll is a single ordered prefix scan. The next sequence
// number per category is recovered at open time by counting the entries
// under the prefix; no separate counter entry is stored.

const linePrefix = "l:"

func categoryPrefix(cat audit.Category) []byte {
	return []byte(linePrefix + string(cat) + ":")
}

func lineKey(cat audit.Category, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%012d", linePrefix, cat, seq))
}
