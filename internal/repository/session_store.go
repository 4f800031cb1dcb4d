package repository

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spec-kit/semillero-service/internal/domain"
)

// ErrSessionNotFound is returned for unknown or expired sessions.
var ErrSessionNotFound = errors.New("session not found")

type sessionEntry struct {
	mu        sync.Mutex
	session   domain.Session
	expiresAt atomic.Int64
}

// SessionStore keeps sessions in process memory and drops them after ttl without access.
// Each session is mutated under its own lock.
type SessionStore struct {
	mu    sync.RWMutex
	items map[string]*sessionEntry
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewSessionStore starts a store with a cleanup goroutine running every cleanupInterval.
func NewSessionStore(ttl, cleanupInterval time.Duration) *SessionStore {
	s := &SessionStore{
		items: make(map[string]*sessionEntry),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

// Create stores a new session.
func (s *SessionStore) Create(session domain.Session) domain.Session {
	session.UpdatedAt = s.now()
	entry := &sessionEntry{session: session}
	s.touch(entry)

	s.mu.Lock()
	s.items[session.ID] = entry
	s.mu.Unlock()
	return session
}

// Get returns a copy of the session.
func (s *SessionStore) Get(id string) (domain.Session, error) {
	entry, err := s.entry(id)
	if err != nil {
		return domain.Session{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	s.touch(entry)
	return entry.session, nil
}

// Update replaces the session with fn's result while holding the session lock.
// fn must not block.
func (s *SessionStore) Update(id string, fn func(domain.Session) domain.Session) (domain.Session, error) {
	entry, err := s.entry(id)
	if err != nil {
		return domain.Session{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	next := fn(entry.session)
	next.ID = entry.session.ID
	next.UpdatedAt = s.now()
	entry.session = next
	s.touch(entry)
	return next, nil
}

// Delete removes a session.
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Len returns the number of stored sessions, expired ones included until the next sweep.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// DeleteExpired sweeps expired sessions and returns how many were removed.
func (s *SessionStore) DeleteExpired() int {
	now := s.now().UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entry := range s.items {
		if exp := entry.expiresAt.Load(); exp > 0 && now > exp {
			delete(s.items, id)
			removed++
		}
	}
	return removed
}

// Stop ends the cleanup goroutine.
func (s *SessionStore) Stop() {
	s.once.Do(func() { close(s.stop) })
}

func (s *SessionStore) entry(id string) (*sessionEntry, error) {
	s.mu.RLock()
	entry, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if exp := entry.expiresAt.Load(); exp > 0 && s.now().UnixNano() > exp {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

func (s *SessionStore) touch(entry *sessionEntry) {
	if s.ttl <= 0 {
		return
	}
	entry.expiresAt.Store(s.now().Add(s.ttl).UnixNano())
}

func (s *SessionStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.DeleteExpired()
		case <-s.stop:
			return
		}
	}
}
