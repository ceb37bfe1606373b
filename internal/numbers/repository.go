package numbers

import (
	"context"
	"time"
)

// Repository persists phone numbers.
//
// Rules:
// - All reads and writes are tenant-scoped except GetByNumber (inbound routing) and RecordOutcomes.
// - Usage counters change only through RecordOutcomes, which must be a single atomic update.
// - SetDefault must clear and set in one transaction.
type Repository interface {
	Insert(ctx context.Context, n PhoneNumber) error
	Get(ctx context.Context, tenantID, id string) (PhoneNumber, error)
	// GetByNumber returns the live record for an E.164 number.
	GetByNumber(ctx context.Context, number string) (PhoneNumber, error)
	// ListByTenant returns live numbers, default first then newest first.
	ListByTenant(ctx context.Context, tenantID string) ([]PhoneNumber, error)
	CountLive(ctx context.Context, tenantID string) (int, error)

	SetDefault(ctx context.Context, tenantID, id string, now time.Time) error
	SetAssignment(ctx context.Context, tenantID, id string, mode Assignment, botID string, now time.Time) error
	UpdateAlias(ctx context.Context, tenantID, id, alias string, now time.Time) error
	MarkReleased(ctx context.Context, tenantID, id string, now time.Time) error

	// RecordOutcomes adds total calls, of which successful succeeded, and returns the new stats.
	RecordOutcomes(ctx context.Context, id string, total, successful int, at time.Time) (UsageStats, error)
}
