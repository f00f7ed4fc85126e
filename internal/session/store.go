// Package session keeps per-session generation history in memory.
package session

import (
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ideaforge/internal/models"
)

const idPrefix = "game_gen_"

// ErrNotFound indicates an unknown session id.
var ErrNotFound = errors.New("session not found")

// Session owns an append-only history. Appends publish a new slice; readers load
// the current one without locking.
type Session struct {
	id      string
	created time.Time
	now     func() time.Time
	history atomic.Pointer[[]models.HistoryEntry]
}

func newSession(id string, now func() time.Time) *Session {
	s := &Session{id: id, created: now(), now: now}
	s.history.Store(&[]models.HistoryEntry{})
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns when the session was started.
func (s *Session) CreatedAt() time.Time { return s.created }

// Record appends an entry for an accepted result and returns it.
func (s *Session) Record(req models.GenerationRequest, resultText, providerName string) models.HistoryEntry {
	entry := models.HistoryEntry{
		ID:           uuid.NewString(),
		Request:      req,
		ResultText:   resultText,
		ProviderName: providerName,
		Timestamp:    s.now(),
	}
	for {
		old := s.history.Load()
		next := make([]models.HistoryEntry, 0, len(*old)+1)
		next = append(next, entry)
		next = append(next, (*old)...)
		if s.history.CompareAndSwap(old, &next) {
			return entry
		}
	}
}

// History returns the entries recorded so far, newest first. Later appends do
// not affect the returned slice.
func (s *Session) History() []models.HistoryEntry {
	return slices.Clone(*s.history.Load())
}

// Len reports the number of recorded entries.
func (s *Session) Len() int {
	return len(*s.history.Load())
}

// Store indexes live sessions by id.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source for session and entry timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{sessions: make(map[string]*Session), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewID returns a fresh session identifier.
func NewID() string {
	return idPrefix + uuid.NewString()
}

// Create starts a session with a fresh id.
func (s *Store) Create() *Session {
	sess := newSession(NewID(), s.now)
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session with id.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Ensure returns the session with id, starting it if the id is new. Callers that
// generate their own ids get a history without a separate create call. Sessions
// are kept until Reset; there is no expiry.
func (s *Store) Ensure(id string) *Session {
	if sess, err := s.Get(id); err == nil {
		return sess
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := newSession(id, s.now)
	s.sessions[id] = sess
	return sess
}

// Reset discards the session with id and its history and starts a new one.
func (s *Store) Reset(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return nil, ErrNotFound
	}
	delete(s.sessions, id)
	sess := newSession(NewID(), s.now)
	s.sessions[sess.id] = sess
	return sess, nil
}
