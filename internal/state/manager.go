package state

import (
	"log/slog"
	"sync"
	"time"

	"github.com/lineaapp/linea/internal/model"
	"github.com/lineaapp/linea/internal/timeline"
)

type Options struct {
	// DefaultTimelineName names the timeline every new state starts with.
	// Empty means new states start without timelines.
	DefaultTimelineName string
	// DemoEvents seeds the default timeline with sample memories.
	DemoEvents bool
	// IdleTTL evicts states untouched for this long. Zero disables eviction.
	IdleTTL time.Duration
	// OnSizeChange is called with the number of live states after it changes.
	OnSizeChange func(n int)
	// OnCreate is called after a state is created for a user.
	OnCreate func(userID string, at time.Time)
	// OnEvict is called after an idle state is evicted.
	OnEvict func(userID string, at time.Time)
	// RegistryOptions are passed to every new timeline registry.
	RegistryOptions []timeline.Option
}

// Manager hands out one AppState per user id.
type Manager struct {
	mu     sync.RWMutex
	states map[string]*AppState
	opts   Options
	stop   chan struct{}
	once   sync.Once
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		states: make(map[string]*AppState),
		opts:   opts,
		stop:   make(chan struct{}),
	}
	if opts.IdleTTL > 0 {
		go m.cleanupLoop()
	}
	return m
}

// State returns the user's state, creating and seeding it on first use.
// The session is refreshed with the given user on every call.
func (m *Manager) State(user *model.User) *AppState {
	for {
		s := m.getOrCreate(user.ID)
		if s.attach(user) {
			return s
		}
	}
}

func (m *Manager) getOrCreate(userID string) *AppState {
	m.mu.RLock()
	s, ok := m.states[userID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	s, ok = m.states[userID]
	if !ok {
		s = newAppState(m.seed())
		m.states[userID] = s
	}
	n := len(m.states)
	m.mu.Unlock()

	if !ok {
		slog.Debug("app state created", "user_id", userID)
		m.notify(n)
		if m.opts.OnCreate != nil {
			m.opts.OnCreate(userID, s.createdAt)
		}
	}
	return s
}

func (m *Manager) Get(userID string) (*AppState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[userID]
	return s, ok
}

// Drop discards the user's state. Later updates through it fail with
// ErrEvicted.
func (m *Manager) Drop(userID string) {
	m.mu.Lock()
	s, ok := m.states[userID]
	if ok {
		s.evict()
		delete(m.states, userID)
	}
	n := len(m.states)
	m.mu.Unlock()

	if ok {
		m.notify(n)
	}
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.states)
}

// Evict removes states idle for longer than ttl and returns how many went.
func (m *Manager) Evict(ttl time.Duration) int {
	now := time.Now()

	m.mu.Lock()
	var evicted []string
	for userID, s := range m.states {
		if s.evictIfIdle(now, ttl) {
			delete(m.states, userID)
			evicted = append(evicted, userID)
		}
	}
	n := len(m.states)
	m.mu.Unlock()

	if len(evicted) == 0 {
		return 0
	}
	slog.Info("idle app states evicted", "count", len(evicted), "remaining", n)
	m.notify(n)
	if m.opts.OnEvict != nil {
		for _, userID := range evicted {
			m.opts.OnEvict(userID, now)
		}
	}
	return len(evicted)
}

func (m *Manager) Close() {
	m.once.Do(func() { close(m.stop) })
}

func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(m.opts.IdleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Evict(m.opts.IdleTTL)
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) seed() *timeline.Registry {
	reg := timeline.NewRegistry(m.opts.RegistryOptions...)
	if m.opts.DefaultTimelineName == "" {
		return reg
	}
	reg.AddTimeline(m.opts.DefaultTimelineName)
	if m.opts.DemoEvents {
		store := reg.Current()
		for _, e := range DemoEvents() {
			store.AddEvent(e)
		}
	}
	return reg
}

func (m *Manager) notify(n int) {
	if m.opts.OnSizeChange != nil {
		m.opts.OnSizeChange(n)
	}
}
