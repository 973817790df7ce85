package pipeline

import (
	"strconv"
	"strings"
)

// KeySet remembers dedup keys for one dataset run. First occurrence wins.
//
// A key is the raw landing values at the key columns, each prefixed with its
// byte length. Values are not trimmed: rows that differ only in surrounding
// whitespace on a key column are distinct keys.
type KeySet struct {
	cols []int
	seen map[string]struct{}
	b    strings.Builder
}

// NewKeySet returns an empty set keyed on the given 0-based landing columns.
func NewKeySet(cols []int) *KeySet {
	return &KeySet{cols: cols, seen: make(map[string]struct{})}
}

// Add records raw's key and reports whether it was new. Columns beyond the
// end of raw contribute a "-" marker, distinct from any present value.
func (k *KeySet) Add(raw []string) bool {
	k.b.Reset()
	for _, c := range k.cols {
		if c >= len(raw) {
			k.b.WriteByte('-')
			continue
		}
		k.b.WriteString(strconv.Itoa(len(raw[c])))
		k.b.WriteByte(':')
		k.b.WriteString(raw[c])
	}
	key := k.b.String()
	if _, ok := k.seen[key]; ok {
		return false
	}
	k.seen[key] = struct{}{}
	return true
}

// Len returns the number of distinct keys seen.
func (k *KeySet) Len() int { return len(k.seen) }
