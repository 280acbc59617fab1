// internal/store/memory.go
//
// In-memory implementation of the session.Store interface.
// This is a lightweight persistence layer used for ephemeral sessions,
// primarily in development/testing, or when durability is not required.
//
// Characteristics:
//   - Stores session clones keyed by ID in a map; callers never share
//     pointers with the store.
//   - Locking is two-level: a map-wide mutex guards entry lookup and
//     insertion only, and each entry carries its own mutex held across the
//     mutate callback. A slow mutation (the exhaustive solver's turn, say)
//     blocks further writes to that session but never touches other
//     sessions. Lock order is always map then entry; entries are never
//     removed, so held entry pointers stay valid.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/aradz/mastermind-server/internal/session"
)

// memoryEntry is one stored session plus its write lock.
type memoryEntry struct {
	mu sync.Mutex
	s  *session.Session
}

// memory is a map-backed session.Store.
type memory struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry // keyed by Session.ID
}

// NewMemoryStore constructs a new in-memory session store.
func NewMemoryStore() session.Store {
	return &memory{sessions: make(map[string]*memoryEntry)}
}

// entry returns the stored entry for id, or nil.
func (m *memory) entry(id string) *memoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// snapshot returns all entries for iteration outside the map lock.
func (m *memory) snapshot() []*memoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*memoryEntry, 0, len(m.sessions))
	for _, e := range m.sessions {
		out = append(out, e)
	}
	return out
}

// Create adds a new session. The stored copy is detached from the caller's.
func (m *memory) Create(ctx context.Context, s *session.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	clone := s.Clone()
	clone.Version = 1
	m.sessions[s.ID] = &memoryEntry{s: clone}
	s.Version = 1
	return nil
}

// Get returns a clone of the stored session.
func (m *memory) Get(ctx context.Context, id string) (*session.Session, error) {
	e := m.entry(id)
	if e == nil {
		return nil, session.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.s.Clone(), nil
}

// AtomicUpdate mutates a clone under the session's own lock and swaps it in
// on success. A mutate error leaves the stored record untouched, and updates
// to other sessions proceed concurrently.
func (m *memory) AtomicUpdate(ctx context.Context, id string, mutate func(*session.Session) error) (*session.Session, error) {
	e := m.entry(id)
	if e == nil {
		return nil, session.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	next := e.s.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.Version = e.s.Version + 1
	e.s = next
	return next.Clone(), nil
}

// ClaimOneWaiting marks any one waiting session of the mode as joining.
// The per-entry check-and-set keeps claims exclusive: a second claimant
// either sees the entry already joining and moves on, or finds nothing.
func (m *memory) ClaimOneWaiting(ctx context.Context, mode session.Mode) (*session.Session, error) {
	for _, e := range m.snapshot() {
		e.mu.Lock()
		if e.s.Mode == mode && e.s.Status == session.StatusWaiting {
			next := e.s.Clone()
			next.Status = session.StatusJoining
			next.Version = e.s.Version + 1
			e.s = next
			e.mu.Unlock()
			return next.Clone(), nil
		}
		e.mu.Unlock()
	}
	return nil, session.ErrNotFound
}

// ListInProgressFor returns clones of every in-progress session the
// identity participates in.
func (m *memory) ListInProgressFor(ctx context.Context, identity string) ([]*session.Session, error) {
	var out []*session.Session
	for _, e := range m.snapshot() {
		e.mu.Lock()
		if e.s.Status == session.StatusInProgress && e.s.HasParticipant(identity) {
			out = append(out, e.s.Clone())
		}
		e.mu.Unlock()
	}
	return out, nil
}
