// Package session keeps one contact form instance per visitor.
//
// Sessions are identified by a random UUID carried in a cookie. Idle sessions
// expire after the configured TTL; when the table is full the least recently
// used session is evicted. Removing a session always closes its controller,
// which cancels any pending success reset.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joaovieira77/contactForm/internal/contact"
	"github.com/joaovieira77/contactForm/internal/logging"
)

// Session is one visitor's form instance.
type Session struct {
	ID         string
	Controller *contact.Controller
	CreatedAt  time.Time

	lastSeen time.Time
}

// Factory builds the controller for a new session.
type Factory func(id string) *contact.Controller

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	TTL             time.Duration
	MaxSessions     int
	CleanupInterval time.Duration
}

// DefaultManagerConfig returns the defaults used by the server.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		TTL:             30 * time.Minute,
		MaxSessions:     10000,
		CleanupInterval: time.Minute,
	}
}

// Manager owns every live session.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	config   ManagerConfig
	factory  Factory
	logger   logging.Logger
	now      func() time.Time

	// onCount observes the session count after every change.
	onCount func(int)
	// onRemove runs after a session is removed and its controller closed.
	onRemove func(id string)

	done    chan struct{}
	wg      sync.WaitGroup
	stopped bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCountHook observes the number of sessions.
func WithCountHook(fn func(int)) ManagerOption {
	return func(m *Manager) {
		m.onCount = fn
	}
}

// WithRemoveHook is called with the id of every removed session.
func WithRemoveHook(fn func(id string)) ManagerOption {
	return func(m *Manager) {
		m.onRemove = fn
	}
}

// WithNow replaces time.Now, for tests.
func WithNow(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a manager. Call Start to run the expiry loop.
func NewManager(config ManagerConfig, factory Factory, logger logging.Logger, opts ...ManagerOption) *Manager {
	defaults := DefaultManagerConfig()
	if config.TTL <= 0 {
		config.TTL = defaults.TTL
	}
	if config.MaxSessions <= 0 {
		config.MaxSessions = defaults.MaxSessions
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if factory == nil {
		factory = func(string) *contact.Controller { return contact.NewController() }
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}

	m := &Manager{
		sessions: make(map[string]*Session),
		config:   config,
		factory:  factory,
		logger:   logger.WithComponent("session"),
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start runs the expiry loop until Shutdown or ctx is done.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.cleanupLoop(ctx)
	}()
}

// GetOrCreate returns the session for id, creating a fresh one when id is
// empty, malformed or unknown. created reports whether a new session was made.
func (m *Manager) GetOrCreate(id string) (sess *Session, created bool) {
	if id != "" {
		if s, ok := m.Get(id); ok {
			return s, false
		}
	}

	newID := uuid.NewString()
	ctrl := m.factory(newID)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		ctrl.Close()
		return &Session{ID: newID, Controller: ctrl, CreatedAt: m.now()}, true
	}

	var evicted *Session
	if len(m.sessions) >= m.config.MaxSessions {
		evicted = m.evictOneLocked()
	}

	now := m.now()
	sess = &Session{
		ID:         newID,
		Controller: ctrl,
		CreatedAt:  now,
		lastSeen:   now,
	}
	m.sessions[newID] = sess
	count := len(m.sessions)
	m.mu.Unlock()

	if evicted != nil {
		m.finalize(evicted)
		m.logger.Debug(context.Background(), "Session evicted", "session", evicted.ID)
	}
	m.reportCount(count)
	m.logger.Debug(context.Background(), "Session created", "session", newID, "total", count)

	return sess, true
}

// Get returns the session for id without creating one.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastSeen = m.now()
	return s, true
}

// LastSeen returns when the session was last used.
func (m *Manager) LastSeen(id string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return time.Time{}, false
	}
	return s.lastSeen, true
}

// Touch marks the session as used.
func (m *Manager) Touch(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.lastSeen = m.now()
	}
}

// Remove tears the session down.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	count := len(m.sessions)
	m.mu.Unlock()

	if ok {
		m.finalize(s)
		m.reportCount(count)
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Shutdown stops the expiry loop and closes every controller.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	close(m.done)

	all := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		all = append(all, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, s := range all {
		m.finalize(s)
	}
	m.reportCount(0)

	waitDone := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.logger.Info(ctx, "Session manager stopped", "closed", len(all))
	return nil
}

func (m *Manager) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(m.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupExpired()
		case <-m.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// cleanupExpired removes sessions idle for longer than the TTL.
func (m *Manager) cleanupExpired() int {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return 0
	}

	now := m.now()
	var expired []*Session
	for id, s := range m.sessions {
		if now.Sub(s.lastSeen) > m.config.TTL {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()

	for _, s := range expired {
		m.finalize(s)
	}

	if len(expired) > 0 {
		m.reportCount(count)
		m.logger.Debug(context.Background(), "Cleaned up expired sessions",
			"count", len(expired),
			"remaining", count)
	}
	return len(expired)
}

// evictOneLocked removes the least recently used session and returns it for
// finalisation outside the lock.
func (m *Manager) evictOneLocked() *Session {
	var oldest *Session
	for _, s := range m.sessions {
		if oldest == nil || s.lastSeen.Before(oldest.lastSeen) {
			oldest = s
		}
	}
	if oldest != nil {
		delete(m.sessions, oldest.ID)
	}
	return oldest
}

func (m *Manager) finalize(s *Session) {
	if s.Controller != nil {
		s.Controller.Close()
	}
	if m.onRemove != nil {
		m.onRemove(s.ID)
	}
}

func (m *Manager) reportCount(n int) {
	if m.onCount != nil {
		m.onCount(n)
	}
}
