// Package blob is an in-memory store for binary handles. A handle is the
// service-side analogue of a browser object URL: minted when a decoder
// needs to hand the renderer a raw payload, served over /api/blob/{id},
// and explicitly released when the owning pane moves on. Unreleased
// handles leak for the session's lifetime, so every owner must release on
// content change or unmount.
package blob

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const urlPrefix = "/api/blob/"

// Entry is one stored payload.
type Entry struct {
	ID          string
	Owner       string
	ContentType string
	FileName    string
	Data        []byte
	CreatedAt   time.Time
}

// Store holds live handles keyed by id. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*Entry)}
}

// Put stores data under a fresh id and returns the handle URL. Owner tags
// the handle so ReleaseOwner can sweep everything a pane allocated.
func (s *Store) Put(owner, contentType, fileName string, data []byte) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.entries[id] = &Entry{
		ID:          id,
		Owner:       owner,
		ContentType: contentType,
		FileName:    fileName,
		Data:        data,
		CreatedAt:   time.Now(),
	}
	s.mu.Unlock()
	return urlPrefix + id
}

// Get returns the entry for a handle URL or bare id.
func (s *Store) Get(idOrURL string) (*Entry, bool) {
	id := strings.TrimPrefix(idOrURL, urlPrefix)
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	return e, ok
}

// Release drops a single handle. Releasing an unknown id is a no-op.
func (s *Store) Release(idOrURL string) {
	id := strings.TrimPrefix(idOrURL, urlPrefix)
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
}

// ReleaseOwner drops every handle tagged with owner and reports how many
// were released.
func (s *Store) ReleaseOwner(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		if e.Owner == owner {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// SweepOlderThan drops every handle created before cutoff and reports how
// many were dropped. This is the backstop for panes whose client never
// unmounts; handles in active use are re-minted on the next resolution.
func (s *Store) SweepOlderThan(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.entries {
		if e.CreatedAt.Before(cutoff) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// CountOwner reports live handles for an owner. Used by tests and /metrics.
func (s *Store) CountOwner(owner string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e.Owner == owner {
			n++
		}
	}
	return n
}

// Len reports total live handles.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// IsHandle reports whether a URL points into this store.
func IsHandle(url string) bool { return strings.HasPrefix(url, urlPrefix) }

func (e *Entry) String() string {
	return fmt.Sprintf("blob %s (%s, %d bytes)", e.ID, e.ContentType, len(e.Data))
}
