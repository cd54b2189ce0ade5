// Package content owns the live document text for an edit session.
package content

import (
	"fmt"
	"sync"
)

// Store holds the live document and the immutable session-start snapshot
// used by revert. The live document is only ever replaced wholesale: the
// controller computes the new text by splicing into a task snapshot and
// installs the result here.
type Store struct {
	mu      sync.Mutex
	live    string
	initial string
}

func NewStore(initial string) *Store {
	return &Store{live: initial, initial: initial}
}

// Live returns the current document text.
func (s *Store) Live() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live
}

// Snapshot returns the document text at call time. Snapshots are plain
// string values; the caller owns the copy.
func (s *Store) Snapshot() string {
	return s.Live()
}

// SetLive installs text as the new live document.
func (s *Store) SetLive(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = text
}

// Revert restores the session-start snapshot and returns it. Calling it
// repeatedly yields the same document.
func (s *Store) Revert() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = s.initial
	return s.live
}

// Initial returns the session-start snapshot.
func (s *Store) Initial() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initial
}

// Splice replaces snapshot[start:end) with replacement. The controller only
// ever passes offsets resolved against this exact snapshot, so out-of-range
// offsets are an invariant violation and Splice panics rather than returning
// an error.
func Splice(snapshot string, start, end int, replacement string) string {
	if start < 0 || end < start || end > len(snapshot) {
		panic(fmt.Sprintf("content: splice offsets [%d,%d) out of range for snapshot of %d bytes", start, end, len(snapshot)))
	}
	return snapshot[:start] + replacement + snapshot[end:]
}
