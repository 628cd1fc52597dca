// Package session tracks per-user conversational state for multi-step
// flows. Sessions are keyed by (user, endpoint) and expire after a TTL
// so an abandoned flow never permanently swallows a user's free text.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/tinyland-inc/wishbot/pkg/bus"
	"github.com/tinyland-inc/wishbot/pkg/logger"
)

// State is the conversation state tag.
type State int

const (
	StateIdle State = iota
	StateAwaitingDescription
)

// Key identifies one user's session on one endpoint.
type Key struct {
	UserID   string
	Endpoint bus.Endpoint
}

// Session is one in-flight conversational flow.
type Session struct {
	Key        Key
	State      State
	SenderName string
	expiresAt  time.Time
}

// Store holds active sessions. All methods are safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	sessions map[Key]*Session
	ttl      time.Duration
}

// NewStore creates a session store with the given TTL. A zero or
// negative TTL disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[Key]*Session),
		ttl:      ttl,
	}
}

// Begin creates (or replaces) a session in AwaitingDescription state.
func (s *Store) Begin(key Key, senderName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &Session{
		Key:        key,
		State:      StateAwaitingDescription,
		SenderName: senderName,
	}
	if s.ttl > 0 {
		sess.expiresAt = time.Now().Add(s.ttl)
	}
	s.sessions[key] = sess
}

// Get returns the active session for key, or nil. Expired sessions are
// removed lazily on read.
func (s *Store) Get(key Key) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		return nil
	}
	if !sess.expiresAt.IsZero() && time.Now().After(sess.expiresAt) {
		delete(s.sessions, key)
		return nil
	}
	return sess
}

// End destroys the session for key, if any.
func (s *Store) End(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// Len returns the number of live sessions (expired ones included until
// swept).
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweep removes every expired session and returns how many were removed.
func (s *Store) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for key, sess := range s.sessions {
		if !sess.expiresAt.IsZero() && now.After(sess.expiresAt) {
			delete(s.sessions, key)
			removed++
		}
	}
	return removed
}

// StartSweeper launches a background goroutine that periodically evicts
// expired sessions until ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.sweep(); n > 0 {
					logger.DebugCF("session", "expired sessions swept", map[string]any{"count": n})
				}
			}
		}
	}()
}
