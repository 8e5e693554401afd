// Package ids provides the identifier source for the substrate: ULIDs,
// which are 128-bit, globally unique, and lexicographically sortable by
// creation time. Every executor, metric, label, and service in the
// substrate is named by one.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// New returns a fresh time-sortable ULID. IDs produced by a single
// process are strictly monotonic within the same millisecond.
func New() ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
}

// Parse decodes the canonical 26-character ULID encoding.
func Parse(s string) (ulid.ULID, error) {
	return ulid.ParseStrict(s)
}

// MustParse decodes the canonical encoding and panics on malformed
// input. Intended for package-level id constants.
func MustParse(s string) ulid.ULID {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		panic(err)
	}
	return id
}
