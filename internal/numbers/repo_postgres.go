package numbers

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"voice-platform/pkg/utils"

	"github.com/google/uuid"
)

// PostgresRepo stores numbers in phone_numbers (see migrations).
// ux_phone_numbers_default and ux_phone_numbers_live back the service-level invariants.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// validID guards the uuid id column; path ids that cannot parse name no row.
func validID(id string) bool { return uuid.Validate(id) == nil }

const numberColumns = `
id, tenant_id, number, provider_number_id, alias, number_type, country, monthly_cost,
voice_enabled, sms_enabled, status, assignment, dedicated_bot_id, campaign_tag, is_default,
total_calls, successful_calls, success_rate, last_used, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNumber(s rowScanner) (PhoneNumber, error) {
	var (
		n        PhoneNumber
		botID    sql.NullString
		lastUsed sql.NullTime
	)
	if err := s.Scan(
		&n.ID,
		&n.TenantID,
		&n.Number,
		&n.ProviderNumberID,
		&n.Alias,
		&n.NumberType,
		&n.Country,
		&n.MonthlyCost,
		&n.VoiceEnabled,
		&n.SMSEnabled,
		&n.Status,
		&n.Assignment,
		&botID,
		&n.CampaignTag,
		&n.IsDefault,
		&n.Usage.TotalCalls,
		&n.Usage.SuccessfulCalls,
		&n.Usage.SuccessRate,
		&lastUsed,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		return PhoneNumber{}, err
	}
	n.DedicatedBotID = botID.String
	if lastUsed.Valid {
		t := lastUsed.Time
		n.Usage.LastUsed = &t
	}
	return n, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *PostgresRepo) Insert(ctx context.Context, n PhoneNumber) error {
	const q = `
INSERT INTO phone_numbers (
  id, tenant_id, number, provider_number_id, alias, number_type, country, monthly_cost,
  voice_enabled, sms_enabled, status, assignment, dedicated_bot_id, campaign_tag, is_default,
  created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
)
`
	_, err := r.db.ExecContext(ctx, q,
		n.ID,
		n.TenantID,
		n.Number,
		n.ProviderNumberID,
		n.Alias,
		n.NumberType,
		n.Country,
		n.MonthlyCost,
		n.VoiceEnabled,
		n.SMSEnabled,
		n.Status,
		n.Assignment,
		nullable(n.DedicatedBotID),
		n.CampaignTag,
		n.IsDefault,
		n.CreatedAt,
		n.UpdatedAt,
	)
	switch {
	case utils.IsUniqueViolation(err, "ux_phone_numbers_default"):
		return errDefaultTaken
	case utils.IsUniqueViolation(err, "ux_phone_numbers_live"):
		return ErrConflict
	}
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, tenantID, id string) (PhoneNumber, error) {
	if !validID(id) {
		return PhoneNumber{}, ErrNotFound
	}
	q := `SELECT` + numberColumns + `
FROM phone_numbers
WHERE tenant_id = $1 AND id = $2
`
	n, err := scanNumber(r.db.QueryRowContext(ctx, q, tenantID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return PhoneNumber{}, ErrNotFound
	}
	return n, err
}

func (r *PostgresRepo) GetByNumber(ctx context.Context, number string) (PhoneNumber, error) {
	q := `SELECT` + numberColumns + `
FROM phone_numbers
WHERE number = $1 AND status <> 'released'
`
	n, err := scanNumber(r.db.QueryRowContext(ctx, q, number))
	if errors.Is(err, sql.ErrNoRows) {
		return PhoneNumber{}, ErrNotFound
	}
	return n, err
}

func (r *PostgresRepo) ListByTenant(ctx context.Context, tenantID string) ([]PhoneNumber, error) {
	q := `SELECT` + numberColumns + `
FROM phone_numbers
WHERE tenant_id = $1 AND status <> 'released'
ORDER BY is_default DESC, created_at DESC, id
`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PhoneNumber
	for rows.Next() {
		n, err := scanNumber(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) CountLive(ctx context.Context, tenantID string) (int, error) {
	const q = `SELECT COUNT(*) FROM phone_numbers WHERE tenant_id = $1 AND status <> 'released'`
	var c int
	err := r.db.QueryRowContext(ctx, q, tenantID).Scan(&c)
	return c, err
}

func (r *PostgresRepo) SetDefault(ctx context.Context, tenantID, id string, now time.Time) error {
	if !validID(id) {
		return ErrNotFound
	}
	return utils.WithTx(ctx, r.db, &sql.TxOptions{}, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the tenant's live numbers so concurrent default switches serialize.
		const lockQ = `
SELECT id FROM phone_numbers
WHERE tenant_id = $1 AND status <> 'released'
FOR UPDATE
`
		rows, err := tx.QueryContext(ctx, lockQ, tenantID)
		if err != nil {
			return err
		}
		found := false
		for rows.Next() {
			var rid string
			if err := rows.Scan(&rid); err != nil {
				_ = rows.Close()
				return err
			}
			if rid == id {
				found = true
			}
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}

		const clearQ = `
UPDATE phone_numbers SET is_default = FALSE, updated_at = $2
WHERE tenant_id = $1 AND is_default
`
		if _, err := tx.ExecContext(ctx, clearQ, tenantID, now); err != nil {
			return err
		}
		const setQ = `
UPDATE phone_numbers SET is_default = TRUE, updated_at = $3
WHERE tenant_id = $1 AND id = $2
`
		_, err = tx.ExecContext(ctx, setQ, tenantID, id, now)
		return err
	})
}

func (r *PostgresRepo) execLive(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) SetAssignment(ctx context.Context, tenantID, id string, mode Assignment, botID string, now time.Time) error {
	if !validID(id) {
		return ErrNotFound
	}
	const q = `
UPDATE phone_numbers SET assignment = $3, dedicated_bot_id = $4, updated_at = $5
WHERE tenant_id = $1 AND id = $2 AND status <> 'released'
`
	return r.execLive(ctx, q, tenantID, id, mode, nullable(botID), now)
}

func (r *PostgresRepo) UpdateAlias(ctx context.Context, tenantID, id, alias string, now time.Time) error {
	if !validID(id) {
		return ErrNotFound
	}
	const q = `
UPDATE phone_numbers SET alias = $3, updated_at = $4
WHERE tenant_id = $1 AND id = $2 AND status <> 'released'
`
	return r.execLive(ctx, q, tenantID, id, alias, now)
}

func (r *PostgresRepo) MarkReleased(ctx context.Context, tenantID, id string, now time.Time) error {
	if !validID(id) {
		return ErrNotFound
	}
	const q = `
UPDATE phone_numbers
SET status = 'released', is_default = FALSE, assignment = 'pooled', dedicated_bot_id = NULL, updated_at = $3
WHERE tenant_id = $1 AND id = $2 AND status <> 'released'
`
	return r.execLive(ctx, q, tenantID, id, now)
}

// RecordOutcomes increments in a single statement; SET expressions read the pre-update row.
func (r *PostgresRepo) RecordOutcomes(ctx context.Context, id string, total, successful int, at time.Time) (UsageStats, error) {
	if !validID(id) {
		return UsageStats{}, ErrNotFound
	}
	const q = `
UPDATE phone_numbers SET
  total_calls      = total_calls + $2,
  successful_calls = successful_calls + $3,
  success_rate     = (successful_calls + $3)::float8 * 100 / GREATEST(total_calls + $2, 1),
  last_used        = $4,
  updated_at       = $4
WHERE id = $1
RETURNING total_calls, successful_calls, success_rate, last_used
`
	var (
		u        UsageStats
		lastUsed sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, id, total, successful, at).Scan(
		&u.TotalCalls,
		&u.SuccessfulCalls,
		&u.SuccessRate,
		&lastUsed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return UsageStats{}, ErrNotFound
	}
	if err != nil {
		return UsageStats{}, err
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		u.LastUsed = &t
	}
	return u, nil
}
