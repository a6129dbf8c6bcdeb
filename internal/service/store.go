package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type storeEntry struct {
	session  *Session
	lastSeen time.Time
}

// SessionStore keeps page sessions in memory until they go idle for longer
// than the TTL. Nothing is persisted.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*storeEntry
	ttl      time.Duration
	factory  func(id string) *Session
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionStore builds sessions with factory and expires them after ttl
// without a Get.
func NewSessionStore(ttl time.Duration, factory func(id string) *Session, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*storeEntry),
		ttl:      ttl,
		factory:  factory,
		logger:   logger,
		now:      time.Now,
	}
}

// Create registers a new session under a fresh uuid.
func (st *SessionStore) Create() *Session {
	sess := st.factory(uuid.NewString())

	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[sess.ID()] = &storeEntry{session: sess, lastSeen: st.now()}
	return sess
}

// Get returns a live session and refreshes its idle timer.
func (st *SessionStore) Get(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	now := st.now()
	if now.Sub(e.lastSeen) > st.ttl {
		delete(st.sessions, id)
		e.session.Close()
		return nil, false
	}
	e.lastSeen = now
	return e.session, true
}

// Delete removes and closes a session.
func (st *SessionStore) Delete(id string) {
	st.mu.Lock()
	e, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		e.session.Close()
	}
}

// Sweep closes and removes every session idle since before now-TTL.
func (st *SessionStore) Sweep(now time.Time) int {
	st.mu.Lock()
	var expired []*Session
	for id, e := range st.sessions {
		if now.Sub(e.lastSeen) > st.ttl {
			expired = append(expired, e.session)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Run sweeps on every tick until ctx is done.
func (st *SessionStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if n := st.Sweep(t); n > 0 {
				st.logger.Debug("expired sessions", "count", n)
			}
		}
	}
}
