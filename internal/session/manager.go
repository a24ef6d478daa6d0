// Package session binds dashboard controllers to viewers.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	common "github.com/bobmcallan/stock-portal/internal/common"
	"github.com/bobmcallan/stock-portal/internal/dashboard"
	"github.com/bobmcallan/stock-portal/internal/models"
)

// CookieName is the cookie carrying the viewer's session ID.
const CookieName = "stock_session"

// DefaultTTL is the idle time after which a session is torn down.
const DefaultTTL = 30 * time.Minute

// Factory builds an uninitialized controller for a new viewer.
type Factory func() *dashboard.Controller

type entry struct {
	meta models.Session
	ctrl *dashboard.Controller
}

// Manager maps session IDs to live controllers.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	factory  Factory
	ttl      time.Duration
	logger   *common.Logger
	now      func() time.Time
}

// NewManager creates a manager. A non-positive ttl uses DefaultTTL.
func NewManager(factory Factory, ttl time.Duration, logger *common.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Manager{
		sessions: make(map[string]*entry),
		factory:  factory,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the live controller for id and marks the session as seen.
func (m *Manager) Get(id string) (*dashboard.Controller, bool) {
	if id == "" {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok || e.ctrl.Closed() {
		return nil, false
	}
	e.meta.LastSeen = m.now()
	return e.ctrl, true
}

// GetOrCreate returns the controller for id, or starts a new session when id
// is empty, unknown or torn down. A new controller is initialized before it
// is returned; a failed initial load is logged and left on its banner.
func (m *Manager) GetOrCreate(ctx context.Context, id string) (string, *dashboard.Controller, bool) {
	if ctrl, ok := m.Get(id); ok {
		return id, ctrl, false
	}

	ctrl := m.factory()
	if err := ctrl.Initialize(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("Initial stock load failed for new session")
	}

	now := m.now()
	newID := uuid.New().String()

	m.mu.Lock()
	if old, ok := m.sessions[id]; ok {
		old.ctrl.Close()
		delete(m.sessions, id)
	}
	m.sessions[newID] = &entry{
		meta: models.Session{ID: newID, CreatedAt: now, LastSeen: now},
		ctrl: ctrl,
	}
	count := len(m.sessions)
	m.mu.Unlock()

	m.logger.Debug().Str("session", newID).Int("sessions", count).Msg("Dashboard session created")
	return newID, ctrl, true
}

// Delete tears down and forgets a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		e.ctrl.Close()
	}
}

// Cleanup tears down sessions idle longer than the TTL, and forgets
// sessions whose controller was closed by a teardown event.
func (m *Manager) Cleanup() int {
	now := m.now()
	var stale []*entry

	m.mu.Lock()
	for id, e := range m.sessions {
		if e.meta.IsIdle(now, m.ttl) || e.ctrl.Closed() {
			stale = append(stale, e)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, e := range stale {
		e.ctrl.Close()
	}
	if len(stale) > 0 {
		m.logger.Debug().Int("removed", len(stale)).Msg("Dashboard sessions cleaned up")
	}
	return len(stale)
}

// Each visits every live controller. fn runs without the manager lock held.
func (m *Manager) Each(fn func(id string, ctrl *dashboard.Controller)) {
	m.mu.RLock()
	type pair struct {
		id   string
		ctrl *dashboard.Controller
	}
	live := make([]pair, 0, len(m.sessions))
	for id, e := range m.sessions {
		if !e.ctrl.Closed() {
			live = append(live, pair{id, e.ctrl})
		}
	}
	m.mu.RUnlock()

	for _, p := range live {
		fn(p.id, p.ctrl)
	}
}

// Sessions returns metadata for every tracked session.
func (m *Manager) Sessions() []models.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Session, 0, len(m.sessions))
	for _, e := range m.sessions {
		out = append(out, e.meta)
	}
	return out
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close tears down every session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range all {
		e.ctrl.Close()
	}
}

// FromRequest returns the session ID carried by the request cookie.
func FromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetCookie writes the session cookie.
func SetCookie(w http.ResponseWriter, id string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// TTL returns the idle timeout.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}
