package persistence

import (
	"context"
	"sync"

	"github.com/pokertool/core/internal/model"
)

// MemoryAdapter is an in-process Adapter backed by plain slices and
// maps. It is the round-trip contract double every Adapter test runs
// against, and a reasonable default when no on-disk persistence is
// configured.
type MemoryAdapter struct {
	mu       sync.RWMutex
	hands    []model.HandHistory
	profiles map[string]model.HUDProfile
}

// NewMemoryAdapter builds an empty MemoryAdapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{profiles: make(map[string]model.HUDProfile)}
}

func (m *MemoryAdapter) SaveHand(ctx context.Context, h model.HandHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = append(m.hands, h)
	return nil
}

func (m *MemoryAdapter) SaveHUDProfile(ctx context.Context, p model.HUDProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.Name] = p
	return nil
}

func (m *MemoryAdapter) LoadHUDProfile(ctx context.Context, name string) (model.HUDProfile, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[name]
	return p, ok, nil
}

func (m *MemoryAdapter) ListHUDProfiles(ctx context.Context) ([]model.HUDProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.HUDProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, nil
}

// Hands returns a snapshot of every saved hand, for test assertions.
func (m *MemoryAdapter) Hands() []model.HandHistory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.HandHistory, len(m.hands))
	copy(out, m.hands)
	return out
}
