package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"debatetimer/models"

	"github.com/jonboulle/clockwork"
)

// MemoryRepository keeps everything in process memory. It backs the server
// when no MongoDB URI is configured and the controller tests.
type MemoryRepository struct {
	mu          sync.RWMutex
	debates     map[string]*models.Debate
	transcripts map[string][]models.Transcript
	suggestions map[string][]models.Suggestion
	clock       clockwork.Clock
}

// NewMemoryRepository returns an empty repository stamping updates with c,
// or with the wall clock when c is nil.
func NewMemoryRepository(c clockwork.Clock) *MemoryRepository {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &MemoryRepository{
		clock:       c,
		debates:     make(map[string]*models.Debate),
		transcripts: make(map[string][]models.Transcript),
		suggestions: make(map[string][]models.Suggestion),
	}
}

func cloneDebate(d *models.Debate) *models.Debate {
	c := *d
	c.Phases = append([]models.DebatePhase(nil), d.Phases...)
	return &c
}

func (m *MemoryRepository) CreateDebate(_ context.Context, debate *models.Debate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debates[debate.ID] = cloneDebate(debate)
	return nil
}

func (m *MemoryRepository) GetDebate(_ context.Context, id string) (*models.Debate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.debates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneDebate(d), nil
}

func (m *MemoryRepository) ListDebates(_ context.Context, filter models.DebateFilter) ([]models.Debate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Debate, 0, len(m.debates))
	for _, d := range m.debates {
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, *cloneDebate(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	if filter.Skip > 0 {
		if int(filter.Skip) >= len(out) {
			return []models.Debate{}, nil
		}
		out = out[filter.Skip:]
	}
	if filter.Limit > 0 && int(filter.Limit) < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) UpdateDebate(_ context.Context, id string, update models.DebateUpdate) (*models.Debate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.debates[id]
	if !ok {
		return nil, ErrNotFound
	}
	if update.Topic != nil {
		d.Topic = *update.Topic
	}
	if update.Affirmative != nil {
		d.Affirmative = *update.Affirmative
	}
	if update.Negative != nil {
		d.Negative = *update.Negative
	}
	d.UpdatedAt = m.clock.Now()
	return cloneDebate(d), nil
}

func (m *MemoryRepository) DeleteDebate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.debates[id]; !ok {
		return ErrNotFound
	}
	delete(m.debates, id)
	delete(m.transcripts, id)
	delete(m.suggestions, id)
	return nil
}

func (m *MemoryRepository) MarkDebateStarted(_ context.Context, id string, at time.Time) error {
	return m.withDebate(id, func(d *models.Debate) error {
		d.Status = models.StatusInProgress
		d.StartedAt = &at
		d.EndedAt = nil
		return nil
	})
}

func (m *MemoryRepository) MarkDebateEnded(_ context.Context, id string, at time.Time) error {
	return m.withDebate(id, func(d *models.Debate) error {
		d.Status = models.StatusEnded
		d.EndedAt = &at
		return nil
	})
}

func (m *MemoryRepository) MarkPhaseStarted(_ context.Context, debateID, phaseID string, at time.Time) error {
	return m.withPhase(debateID, phaseID, func(p *models.DebatePhase) {
		p.StartedAt = &at
		p.EndedAt = nil
	})
}

func (m *MemoryRepository) MarkPhaseEnded(_ context.Context, debateID, phaseID string, at time.Time) error {
	return m.withPhase(debateID, phaseID, func(p *models.DebatePhase) {
		p.EndedAt = &at
	})
}

func (m *MemoryRepository) withDebate(id string, fn func(*models.Debate) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.debates[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(d); err != nil {
		return err
	}
	d.UpdatedAt = m.clock.Now()
	return nil
}

func (m *MemoryRepository) withPhase(debateID, phaseID string, fn func(*models.DebatePhase)) error {
	return m.withDebate(debateID, func(d *models.Debate) error {
		for i := range d.Phases {
			if d.Phases[i].ID == phaseID {
				fn(&d.Phases[i])
				return nil
			}
		}
		return ErrNotFound
	})
}

func (m *MemoryRepository) AddTranscript(_ context.Context, t *models.Transcript, attribute Attributor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.debates[t.DebateID]
	if !ok {
		return ErrNotFound
	}
	return addTranscript(t, attribute,
		func() (int, error) {
			seq := d.NextSeq
			d.NextSeq++
			return seq, nil
		},
		func() error {
			m.transcripts[t.DebateID] = append(m.transcripts[t.DebateID], *t)
			return nil
		},
		func() error {
			d.TranscriptCount++
			d.Statistics.Apply(t.Speaker, t.Duration)
			return nil
		})
}

func (m *MemoryRepository) ListTranscripts(_ context.Context, debateID string) ([]models.Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Transcript{}, m.transcripts[debateID]...), nil
}

func (m *MemoryRepository) RecentTranscripts(_ context.Context, debateID string, n int) ([]models.Transcript, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.transcripts[debateID]
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return append([]models.Transcript{}, all...), nil
}

func (m *MemoryRepository) CountTranscripts(_ context.Context, debateID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.transcripts[debateID]), nil
}

func (m *MemoryRepository) SaveSuggestion(_ context.Context, s *models.Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.debates[s.DebateID]; !ok {
		return ErrNotFound
	}
	m.suggestions[s.DebateID] = append(m.suggestions[s.DebateID], *s)
	return nil
}

func (m *MemoryRepository) ListSuggestions(_ context.Context, debateID string, limit int) ([]models.Suggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.suggestions[debateID]
	out := make([]models.Suggestion, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, all[i])
	}
	return out, nil
}
