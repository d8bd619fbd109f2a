package session

import (
	"context"
	"errors"
	"sync"

	"debatetimer/internal/clock"

	"github.com/rs/zerolog/log"
)

var (
	ErrSessionExists = errors.New("a timer session is already running for this debate")
	ErrNoSession     = errors.New("no timer session for this debate")
)

// Manager keeps one live session per debate.
type Manager struct {
	ctx  context.Context
	opts []Option

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns a manager whose sessions tick until ctx is cancelled.
// The options apply to every session it starts.
func NewManager(ctx context.Context, opts ...Option) *Manager {
	return &Manager{
		ctx:      ctx,
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Observe adds observers to sessions started from now on.
func (m *Manager) Observe(obs ...Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts = append(m.opts, WithObservers(obs...))
}

// Start creates and starts a session. A finished session for the same debate
// is replaced.
func (m *Manager) Start(debateID string, phases []clock.Phase, extra ...Option) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[debateID]; ok && !existing.Ended() {
		return nil, ErrSessionExists
	}

	opts := make([]Option, 0, len(m.opts)+len(extra))
	opts = append(opts, m.opts...)
	opts = append(opts, extra...)
	s, err := New(debateID, phases, opts...)
	if err != nil {
		return nil, err
	}
	m.sessions[debateID] = s
	s.Start(m.ctx)

	log.Info().Str("debate_id", debateID).Int("phases", len(phases)).Msg("timer session started")
	return s, nil
}

// Get returns the session of a debate, finished or not.
func (m *Manager) Get(debateID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[debateID]
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Stop aborts a running session and forgets it.
func (m *Manager) Stop(debateID string) error {
	m.mu.Lock()
	s, ok := m.sessions[debateID]
	delete(m.sessions, debateID)
	m.mu.Unlock()

	if !ok {
		return ErrNoSession
	}
	if err := s.Abort(); err != nil && !errors.Is(err, ErrSessionEnded) {
		return err
	}
	log.Info().Str("debate_id", debateID).Msg("timer session stopped")
	return nil
}

// StopAll aborts every running session and waits for their final events.
func (m *Manager) StopAll(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for id, s := range sessions {
		_ = s.Abort()
		if err := s.Wait(ctx); err != nil {
			log.Warn().Err(err).Str("debate_id", id).Msg("timer session did not drain")
		}
	}
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
