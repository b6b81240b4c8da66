package parse

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Equal compares records by identity: same concrete record type (the
// schema when both carry one), same class name, same non-empty id. When
// either id is missing only the same instance is equal. Journal contents
// and fetchedKeys never participate, so two records differing only in
// dirty state or selectively-fetched fields compare equal.
//
// Comparing incompatible record types is not an error, just "not equal".
func Equal(a, b *Record) bool {
	if a == nil || b == nil {
		return a == b
	}

	if a.schema != nil && b.schema != nil && a.schema != b.schema {
		return false
	}

	if a.className != b.className {
		return false
	}

	if a.id == "" || b.id == "" {
		return a == b
	}

	return a.id == b.id
}

// Hash derives a hash from (className, id) only, falling back to the
// instance itself when the id is missing, so equal records always hash
// equal no matter their dirty or fetch state.
func Hash(r *Record) uint64 {
	if r == nil {
		return 0
	}

	if r.id == "" {
		return xxhash.Sum64String(fmt.Sprintf("%s@%p", r.className, r))
	}

	return xxhash.Sum64String(r.className + "$" + r.id)
}

// Uniq removes duplicates by identity, keeping the first occurrence. Two
// records sharing (className, id) collapse even when their field content,
// journals or fetchedKeys differ.
func Uniq(records []*Record) []*Record {
	seen := make(map[uint64][]*Record, len(records))
	out := make([]*Record, 0, len(records))

	for _, r := range records {
		h := Hash(r)
		dup := false
		for _, prev := range seen[h] {
			if Equal(prev, r) {
				dup = true
				break
			}
		}

		if dup {
			continue
		}

		seen[h] = append(seen[h], r)
		out = append(out, r)
	}

	return out
}
