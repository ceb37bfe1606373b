package analytics

import (
	"context"
	"time"
)

// Repository persists analytics records. Every read is tenant scoped.
type Repository interface {
	// Insert returns ErrDuplicateRecord when the call uuid is already stored.
	Insert(ctx context.Context, r Record) error
	// List returns matching records, newest first.
	List(ctx context.Context, q Query) ([]Record, error)
	ListRange(ctx context.Context, tenantID, botID string, from, to time.Time) ([]Record, error)
}
