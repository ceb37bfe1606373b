package numbers

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository for tests and sandbox runs.
// One mutex serializes all operations, which gives SetDefault and RecordOutcomes their atomicity.
type MemoryRepo struct {
	mu   sync.Mutex
	byID map[string]PhoneNumber
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: map[string]PhoneNumber{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, n PhoneNumber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.byID {
		if !x.Live() {
			continue
		}
		if x.Number == n.Number {
			return ErrConflict
		}
		if n.IsDefault && x.TenantID == n.TenantID && x.IsDefault {
			return errDefaultTaken
		}
	}
	r.byID[n.ID] = n
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, tenantID, id string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok || n.TenantID != tenantID {
		return PhoneNumber{}, ErrNotFound
	}
	return n, nil
}

func (r *MemoryRepo) GetByNumber(ctx context.Context, number string) (PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.byID {
		if n.Live() && n.Number == number {
			return n, nil
		}
	}
	return PhoneNumber{}, ErrNotFound
}

func (r *MemoryRepo) ListByTenant(ctx context.Context, tenantID string) ([]PhoneNumber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PhoneNumber
	for _, n := range r.byID {
		if n.TenantID == tenantID && n.Live() {
			out = append(out, n)
		}
	}
	sortDefaultThenNewest(out)
	return out, nil
}

func sortDefaultThenNewest(ns []PhoneNumber) {
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].IsDefault != ns[j].IsDefault {
			return ns[i].IsDefault
		}
		if !ns[i].CreatedAt.Equal(ns[j].CreatedAt) {
			return ns[i].CreatedAt.After(ns[j].CreatedAt)
		}
		return ns[i].ID < ns[j].ID
	})
}

func (r *MemoryRepo) CountLive(ctx context.Context, tenantID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := 0
	for _, n := range r.byID {
		if n.TenantID == tenantID && n.Live() {
			c++
		}
	}
	return c, nil
}

func (r *MemoryRepo) SetDefault(ctx context.Context, tenantID, id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.byID[id]
	if !ok || target.TenantID != tenantID || !target.Live() {
		return ErrNotFound
	}
	for k, n := range r.byID {
		if n.TenantID == tenantID && n.IsDefault && k != id {
			n.IsDefault = false
			n.UpdatedAt = now
			r.byID[k] = n
		}
	}
	target.IsDefault = true
	target.UpdatedAt = now
	r.byID[id] = target
	return nil
}

func (r *MemoryRepo) mutateLive(tenantID, id string, fn func(*PhoneNumber)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok || n.TenantID != tenantID || !n.Live() {
		return ErrNotFound
	}
	fn(&n)
	r.byID[id] = n
	return nil
}

func (r *MemoryRepo) SetAssignment(ctx context.Context, tenantID, id string, mode Assignment, botID string, now time.Time) error {
	return r.mutateLive(tenantID, id, func(n *PhoneNumber) {
		n.Assignment = mode
		n.DedicatedBotID = botID
		n.UpdatedAt = now
	})
}

func (r *MemoryRepo) UpdateAlias(ctx context.Context, tenantID, id, alias string, now time.Time) error {
	return r.mutateLive(tenantID, id, func(n *PhoneNumber) {
		n.Alias = alias
		n.UpdatedAt = now
	})
}

func (r *MemoryRepo) MarkReleased(ctx context.Context, tenantID, id string, now time.Time) error {
	return r.mutateLive(tenantID, id, func(n *PhoneNumber) {
		n.Status = StatusReleased
		n.IsDefault = false
		n.Assignment = AssignmentPooled
		n.DedicatedBotID = ""
		n.UpdatedAt = now
	})
}

func (r *MemoryRepo) RecordOutcomes(ctx context.Context, id string, total, successful int, at time.Time) (UsageStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.byID[id]
	if !ok {
		return UsageStats{}, ErrNotFound
	}
	n.Usage.TotalCalls += int64(total)
	n.Usage.SuccessfulCalls += int64(successful)
	n.Usage.SuccessRate = successRate(n.Usage.SuccessfulCalls, n.Usage.TotalCalls)
	t := at
	n.Usage.LastUsed = &t
	n.UpdatedAt = at
	r.byID[id] = n
	return n.Usage, nil
}
