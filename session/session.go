// Package session implements the bounded-lifetime, bounded-history session
// table shared by the connection engine and MCP dispatcher: session ids are
// CSPRNG-generated, expiry is enforced lazily on validate plus a batched
// cleanup, and each session carries a capped ring of formatted SSE events
// for Last-Event-ID replay.
package session

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCapacityExceeded is returned by Create when the live session count is
// at Config.MaxSessions even after purging expired entries.
var ErrCapacityExceeded = errors.New("session: capacity exceeded")

// Config bundles the session manager's tunables, per spec.md §4.E/§6.
// Tags validate with config.Validate.
type Config struct {
	Timeout             time.Duration `validate:"gte=0"`
	ResumabilityEnabled bool          `validate:"-"`
	MaxHistorySize      int           `validate:"gte=0"`
	HistoryDuration     time.Duration `validate:"gte=0"`
	MaxSessions         int           `validate:"gte=0"`
}

// historyEntry is one replayable SSE event recorded against a session.
type historyEntry struct {
	eventID   string
	data      string
	recordedAt time.Time
}

// session is the internal record; Manager never exposes it directly.
type session struct {
	id         string
	createdAt  time.Time
	lastAccess time.Time
	history    []historyEntry
}

// Manager is a mutex-guarded session table. All methods are safe for
// concurrent use from both the reactor goroutine and worker-pool
// goroutines, per spec.md §4.E's concurrency note.
type Manager struct {
	cfg Config

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a Manager with the given configuration.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg, sessions: make(map[string]*session)}
}

// Create allocates a new session id, purging expired sessions first if the
// live count is at capacity. Returns ErrCapacityExceeded if the table is
// still full after purging.
func (m *Manager) Create() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.purgeExpiredLocked()
		if len(m.sessions) >= m.cfg.MaxSessions {
			return "", ErrCapacityExceeded
		}
	}

	id, err := newSessionID()
	if err != nil {
		return "", fmt.Errorf("session: generating id: %w", err)
	}
	now := time.Now()
	m.sessions[id] = &session{id: id, createdAt: now, lastAccess: now}
	return id, nil
}

// Validate reports whether id refers to a live, unexpired session,
// updating its last-access time as a side effect of success. An expired
// session is removed as a side effect of a failed validation.
func (m *Manager) Validate(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	if m.expiredLocked(s) {
		delete(m.sessions, id)
		return false
	}
	s.lastAccess = time.Now()
	return true
}

// Alive reports whether id refers to a live, unexpired session without the
// side effect Validate has of refreshing last-access — for callers (like a
// stream-subscriber sweep) that need a liveness check but must not count
// as the "activity" that keeps a session from expiring.
func (m *Manager) Alive(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return ok && !m.expiredLocked(s)
}

// Terminate removes id's session, reporting whether it existed.
func (m *Manager) Terminate(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	return ok
}

// AddEvent appends a formatted event to id's history, evicting the oldest
// entry once the configured maximum is exceeded. A no-op when resumability
// is disabled or id is unknown.
func (m *Manager) AddEvent(id, eventID, formatted string) {
	if !m.cfg.ResumabilityEnabled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return
	}
	now := time.Now()
	s.history = append(s.history, historyEntry{eventID: eventID, data: formatted, recordedAt: now})
	if m.cfg.HistoryDuration > 0 {
		cutoff := now.Add(-m.cfg.HistoryDuration)
		for len(s.history) > 0 && s.history[0].recordedAt.Before(cutoff) {
			s.history = s.history[1:]
		}
	}
	if m.cfg.MaxHistorySize > 0 {
		for len(s.history) > m.cfg.MaxHistorySize {
			s.history = s.history[1:]
		}
	}
}

// EventsSince returns the formatted events recorded after lastEventID. An
// empty lastEventID returns the full history; an unrecognized id returns no
// events (the client must fall back to a fresh stream).
func (m *Manager) EventsSince(id, lastEventID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil
	}
	if lastEventID == "" {
		return formattedOf(s.history)
	}
	for i, e := range s.history {
		if e.eventID == lastEventID {
			return formattedOf(s.history[i+1:])
		}
	}
	return nil
}

func formattedOf(entries []historyEntry) []string {
	if len(entries) == 0 {
		return nil
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.data
	}
	return out
}

// CleanupExpired purges every session whose idle time exceeds the
// configured timeout. Intended to be called periodically by a background
// goroutine; also performed opportunistically within Create.
func (m *Manager) CleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeExpiredLocked()
}

func (m *Manager) purgeExpiredLocked() {
	for id, s := range m.sessions {
		if m.expiredLocked(s) {
			delete(m.sessions, id)
		}
	}
}

func (m *Manager) expiredLocked(s *session) bool {
	if m.cfg.Timeout <= 0 {
		return false
	}
	return time.Since(s.lastAccess) > m.cfg.Timeout
}

// Count returns the number of sessions currently in the table, including
// expired ones that Validate, Create or CleanupExpired has not yet purged.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// newSessionID builds a "session-<ms-since-epoch-hex>-<rand>-<rand>" id
// with both random components drawn from a CSPRNG, per spec.md §4.E and
// the §9 "replace global rand()" redesign flag.
func newSessionID() (string, error) {
	var a, b [8]byte
	if _, err := rand.Read(a[:]); err != nil {
		return "", err
	}
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	ms := time.Now().UnixMilli()
	var msBuf [8]byte
	binary.BigEndian.PutUint64(msBuf[:], uint64(ms))
	return fmt.Sprintf("session-%s-%s-%s",
		hex.EncodeToString(msBuf[:]), hex.EncodeToString(a[:]), hex.EncodeToString(b[:])), nil
}
