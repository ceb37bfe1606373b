package audit

import (
	"context"
	"sync"
)

// MemoryRepo keeps events in insertion order for tests and sandbox runs.
type MemoryRepo struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(ctx context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns every recorded event, oldest first.
func (r *MemoryRepo) Events() []Event {
	return r.filter(func(Event) bool { return true })
}

// ForTenant returns the events recorded for tenantID, oldest first.
func (r *MemoryRepo) ForTenant(tenantID string) []Event {
	return r.filter(func(e Event) bool { return e.TenantID == tenantID })
}

// OfType returns the events of type t, oldest first.
func (r *MemoryRepo) OfType(t EventType) []Event {
	return r.filter(func(e Event) bool { return e.Type == t })
}

func (r *MemoryRepo) filter(keep func(Event) bool) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, 0, len(r.events))
	for _, e := range r.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
