package conversation

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/veilsearch/gateway/internal/config"
)

// ErrSessionBusy is returned when a second chat request arrives for a
// session whose lease is still held. Concurrent chat on one session is
// rejected, not queued: rejection is deterministic and keeps the window
// ordering trivial to reason about.
var ErrSessionBusy = errors.New("session busy")

// session is the per-token state. The mutex serializes chat exchanges so
// the user message and assistant reply of one turn are never interleaved
// with another turn's.
type session struct {
	mu       sync.Mutex
	window   Window
	lastSeen time.Time
}

// Manager owns all live sessions. Sessions are keyed by an opaque
// caller-generated token - never by anything derived from transport
// metadata - and exist only in memory.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*session
	ttl      time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
}

// NewManager creates a session manager and starts the idle-session sweeper.
func NewManager(ttl, sweepInterval time.Duration) *Manager {
	if ttl <= 0 {
		ttl = config.DefaultSessionTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = config.DefaultSessionSweepInterval
	}
	m := &Manager{
		sessions: make(map[string]*session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	m.wg.Add(1)
	go m.sweepLoop(sweepInterval)
	return m
}

// Lease is exclusive access to one session's window for the duration of a
// single chat exchange. Release must be called exactly once.
type Lease struct {
	s        *session
	released bool
}

// Acquire takes the exclusive lease for token, creating the session on
// first use. Returns ErrSessionBusy if another exchange holds the lease.
func (m *Manager) Acquire(token string) (*Lease, error) {
	m.mu.Lock()
	s, ok := m.sessions[token]
	if !ok {
		s = &session{lastSeen: time.Now()}
		m.sessions[token] = s
	}
	m.mu.Unlock()

	if !s.mu.TryLock() {
		return nil, ErrSessionBusy
	}
	s.lastSeen = time.Now()
	return &Lease{s: s}, nil
}

// Window returns the session's current window.
func (l *Lease) Window() Window { return l.s.window }

// SetWindow replaces the session's window. Only called after a complete
// round-trip: no partial state is committed on cancellation.
func (l *Lease) SetWindow(w Window) { l.s.window = w }

// Release gives up the lease.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.s.lastSeen = time.Now()
	l.s.mu.Unlock()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close stops the sweeper. Window contents are discarded with the process;
// nothing is persisted.
func (m *Manager) Close() {
	close(m.done)
	m.wg.Wait()
}

func (m *Manager) sweepLoop(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

// sweep drops sessions idle past the TTL. A session whose lease is held is
// in active use and skipped regardless of lastSeen.
func (m *Manager) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for token, s := range m.sessions {
		if !s.mu.TryLock() {
			continue
		}
		idle := now.Sub(s.lastSeen)
		s.mu.Unlock()
		if idle > m.ttl {
			delete(m.sessions, token)
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Int("remaining", len(m.sessions)).Msg("swept idle sessions")
	}
}
