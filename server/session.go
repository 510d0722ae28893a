package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"auto_docx_case_generator/filler"
)

const sessionCookie = "docfill_session"

// session is one browser's state: the last artifact and a guard that
// allows a single generation at a time.
type session struct {
	id  string
	sem *semaphore.Weighted

	mu       sync.Mutex
	artifact *filler.Artifact
	lastSeen time.Time
}

func (s *session) Artifact() (filler.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifact == nil {
		return filler.Artifact{}, false
	}
	return *s.artifact, true
}

func (s *session) setArtifact(a filler.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifact = &a
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
	onChange func(n int)
}

func newStore(ttl time.Duration, onChange func(n int)) *sessionStore {
	if onChange == nil {
		onChange = func(int) {}
	}
	return &sessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
		onChange: onChange,
	}
}

// get returns a live session and refreshes its idle timer.
func (s *sessionStore) get(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.mu.Lock()
	sess.lastSeen = now
	sess.mu.Unlock()
	return sess, true
}

func (s *sessionStore) create() *session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	sess := &session{
		id:       uuid.NewString(),
		sem:      semaphore.NewWeighted(1),
		lastSeen: now,
	}
	s.sessions[sess.id] = sess
	s.onChange(len(s.sessions))
	return sess
}

func (s *sessionStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweepLocked drops idle sessions. A session with a generation in flight
// is kept.
func (s *sessionStore) sweepLocked(now time.Time) {
	removed := false
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastSeen)
		sess.mu.Unlock()
		if idle <= s.ttl {
			continue
		}
		if !sess.sem.TryAcquire(1) {
			continue
		}
		sess.sem.Release(1)
		delete(s.sessions, id)
		removed = true
	}
	if removed {
		s.onChange(len(s.sessions))
	}
}

// lookup finds the caller's session without creating one.
func (s *Server) lookup(r *http.Request) (*session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}
	return s.store.get(c.Value)
}

// session finds or creates the caller's session and sets its cookie.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session {
	if sess, ok := s.lookup(r); ok {
		return sess
	}
	sess := s.store.create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.cfg.SessionTTL.Seconds()),
	})
	return sess
}
