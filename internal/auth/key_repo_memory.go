package auth

import (
	"context"
	"errors"
	"sync"
	"time"
)

type MemoryKeyRepo struct {
	mu     sync.Mutex
	byHash map[string]KeyRecord
}

func NewMemoryKeyRepo() *MemoryKeyRepo {
	return &MemoryKeyRepo{byHash: map[string]KeyRecord{}}
}

func (r *MemoryKeyRepo) Insert(ctx context.Context, k KeyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHash[k.Hash]; ok {
		return errors.New("auth: duplicate key hash")
	}
	r.byHash[k.Hash] = k
	return nil
}

func (r *MemoryKeyRepo) GetByHash(ctx context.Context, hash string) (KeyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k, ok := r.byHash[hash]
	if !ok {
		return KeyRecord{}, ErrInvalidKey
	}
	return k, nil
}

func (r *MemoryKeyRepo) Touch(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h, k := range r.byHash {
		if k.ID == id {
			t := at
			k.LastUsed = &t
			r.byHash[h] = k
			return nil
		}
	}
	return ErrInvalidKey
}
