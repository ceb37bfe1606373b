package analytics

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory repository for tests and local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	records []Record
	byCall  map[string]struct{}
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byCall: map[string]struct{}{}}
}

func (r *MemoryRepo) Insert(ctx context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCall[rec.CallUUID]; ok {
		return ErrDuplicateRecord
	}
	r.byCall[rec.CallUUID] = struct{}{}
	r.records = append(r.records, rec)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context, q Query) ([]Record, error) {
	return r.filter(func(rec Record) bool {
		if rec.TenantID != q.TenantID || rec.BotID != q.BotID {
			return false
		}
		return q.RecipientNumber == "" || rec.RecipientNumber == q.RecipientNumber
	}), nil
}

func (r *MemoryRepo) ListRange(ctx context.Context, tenantID, botID string, from, to time.Time) ([]Record, error) {
	tr := TimeRange{From: from, To: to}
	return r.filter(func(rec Record) bool {
		return rec.TenantID == tenantID && rec.BotID == botID && tr.Contains(rec.CreatedAt)
	}), nil
}

func (r *MemoryRepo) filter(keep func(Record) bool) []Record {
	r.mu.Lock()
	out := make([]Record, 0)
	for _, rec := range r.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	r.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
