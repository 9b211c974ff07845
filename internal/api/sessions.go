// internal/api/sessions.go
package api

import (
	"time"

	"github.com/google/uuid"

	"banking-assistant/internal/cache"
	"banking-assistant/internal/models"
)

const sessionKeyPrefix = "session:"

// SessionStore keeps chat sessions in the context cache. Stored sessions are
// never modified in place; Append stores a new copy.
type SessionStore struct {
	cache  *cache.Cache
	window int
	now    func() time.Time
}

func NewSessionStore(c *cache.Cache, window int) *SessionStore {
	return &SessionStore{cache: c, window: window, now: time.Now}
}

// NewSessionID returns a fresh random session ID.
func NewSessionID() string {
	return uuid.NewString()
}

// History returns the stored turns of a session, oldest first.
func (s *SessionStore) History(id string) []models.Turn {
	if sess, ok := s.load(id); ok {
		return sess.History()
	}
	return nil
}

// Append adds turns to the session and keeps the configured window.
func (s *SessionStore) Append(id string, turns ...models.Turn) models.Session {
	now := s.now().UTC()
	next := models.Session{ID: id, CreatedAt: now}
	if prev, ok := s.load(id); ok {
		next.CreatedAt = prev.CreatedAt
		next.Turns = prev.History()
	}
	for _, t := range turns {
		if t.Timestamp.IsZero() {
			t.Timestamp = now
		}
		next.Append(t, s.window)
	}
	s.cache.Set(sessionKeyPrefix+id, &next, 0)
	return next
}

// Reset drops a session's history. It reports whether the session existed.
func (s *SessionStore) Reset(id string) bool {
	_, ok := s.load(id)
	s.cache.Delete(sessionKeyPrefix + id)
	return ok
}

func (s *SessionStore) load(id string) (*models.Session, bool) {
	v, ok := s.cache.Get(sessionKeyPrefix + id)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*models.Session)
	return sess, ok
}
