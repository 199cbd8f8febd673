// Package state keeps the per-user application state: the session user and
// the user's timelines. Each AppState serializes its own mutations.
package state

import (
	"errors"
	"sync"
	"time"

	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/timeline"
)

// ErrEvicted is returned when a state is mutated after the manager let go
// of it. The change would be lost, so the caller must fetch a fresh state.
var ErrEvicted = errors.New("session state expired")

// Session records the authenticated identity, if any.
type Session struct {
	user *model.User
}

func (s *Session) SetUser(user *model.User) {
	if user == nil {
		s.user = nil
		return
	}
	u := *user
	u.PasswordHash = nil
	s.user = &u
}

func (s *Session) User() *model.User {
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Session) IsPremium() bool {
	return s.user != nil && s.user.IsPremium()
}

type AppState struct {
	mu         sync.Mutex
	session    Session
	timelines  *timeline.Registry
	onboarded  bool
	lastAccess time.Time
	createdAt  time.Time
	evicted    bool
}

func newAppState(reg *timeline.Registry) *AppState {
	now := time.Now()
	return &AppState{
		timelines:  reg,
		lastAccess: now,
		createdAt:  now,
	}
}

// Update runs fn with exclusive access to the user's timelines. It fails
// with ErrEvicted once the state has been evicted.
func (s *AppState) Update(fn func(reg *timeline.Registry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evicted {
		return ErrEvicted
	}
	s.lastAccess = time.Now()
	return fn(s.timelines)
}

// Read runs fn with exclusive access; fn must not mutate the registry.
func (s *AppState) Read(fn func(reg *timeline.Registry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAccess = time.Now()
	fn(s.timelines)
}

// attach refreshes the session and marks the state as used. It reports
// false when the state was evicted in the meantime.
func (s *AppState) attach(user *model.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.evicted {
		return false
	}
	s.lastAccess = time.Now()
	s.session.SetUser(user)
	if user != nil && user.IsOnboarded() {
		s.onboarded = true
	}
	return true
}

func (s *AppState) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.User()
}

func (s *AppState) IsPremium() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.IsPremium()
}

func (s *AppState) SetOnboarded(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onboarded = v
}

func (s *AppState) IsOnboarded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onboarded
}

// Evicted reports whether the manager has let go of the state.
func (s *AppState) Evicted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evicted
}

// evictIfIdle marks the state evicted when it has not been used for longer
// than ttl.
func (s *AppState) evictIfIdle(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastAccess) <= ttl {
		return false
	}
	s.evicted = true
	return true
}

func (s *AppState) evict() {
	s.mu.Lock()
	s.evicted = true
	s.mu.Unlock()
}
