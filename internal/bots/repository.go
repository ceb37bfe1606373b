package bots

import (
	"context"
	"time"
)

// Repository persists bot metadata. Reads by id are not tenant-scoped; the service enforces ownership.
type Repository interface {
	Insert(ctx context.Context, m Meta) error
	Get(ctx context.Context, id string) (Meta, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Meta, error)
	UpdateVoice(ctx context.Context, m Meta) error
	SetActive(ctx context.Context, id string, active bool, now time.Time) error
	SetCredential(ctx context.Context, id, credential string, now time.Time) error
}
