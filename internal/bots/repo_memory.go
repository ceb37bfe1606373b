package bots

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and sandbox runs.
type MemoryRepo struct {
	mu    sync.Mutex
	byID  map[string]Meta
	loads int
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byID: map[string]Meta{}} }

func (r *MemoryRepo) Insert(ctx context.Context, m Meta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[m.ID] = m
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Meta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	m, ok := r.byID[id]
	if !ok {
		return Meta{}, ErrNotFound
	}
	return m, nil
}

// Loads reports how many times Get was called.
func (r *MemoryRepo) Loads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads
}

func (r *MemoryRepo) ListByTenant(ctx context.Context, tenantID string) ([]Meta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Meta
	for _, m := range r.byID {
		if m.TenantID == tenantID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) update(id string, fn func(*Meta)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(&m)
	r.byID[id] = m
	return nil
}

func (r *MemoryRepo) UpdateVoice(ctx context.Context, in Meta) error {
	return r.update(in.ID, func(m *Meta) {
		m.Language = in.Language
		m.Voice = in.Voice
		m.FallbackResponse = in.FallbackResponse
		m.OutboundGreeting = in.OutboundGreeting
		m.UpdatedAt = in.UpdatedAt
	})
}

func (r *MemoryRepo) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	return r.update(id, func(m *Meta) {
		m.IsActive = active
		m.UpdatedAt = now
	})
}

func (r *MemoryRepo) SetCredential(ctx context.Context, id, credential string, now time.Time) error {
	return r.update(id, func(m *Meta) {
		m.Credential = credential
		m.UpdatedAt = now
	})
}
