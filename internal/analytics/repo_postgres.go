package analytics

import (
	"context"
	"database/sql"
	"time"

	"voice-platform/pkg/utils"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

const recordColumns = `
id, tenant_id, bot_id, call_uuid, recipient_name, recipient_number, sentiment_category,
confidence, reason, follow_up_action, duration_seconds, created_at`

func (r *PostgresRepo) Insert(ctx context.Context, rec Record) error {
	const q = `
INSERT INTO call_analytics (
  id, tenant_id, bot_id, call_uuid, recipient_name, recipient_number, sentiment_category,
  confidence, reason, follow_up_action, duration_seconds, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`
	var dur any
	if rec.DurationSeconds != nil {
		dur = *rec.DurationSeconds
	}
	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.TenantID,
		rec.BotID,
		rec.CallUUID,
		rec.RecipientName,
		rec.RecipientNumber,
		rec.Category,
		rec.Confidence,
		rec.Reason,
		rec.FollowUpAction,
		dur,
		rec.CreatedAt,
	)
	if utils.IsUniqueViolation(err, "call_analytics_call_uuid_key") {
		return ErrDuplicateRecord
	}
	return err
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Record, error) {
	query := `SELECT` + recordColumns + `
FROM call_analytics
WHERE tenant_id = $1 AND bot_id = $2 AND ($3 = '' OR recipient_number = $3)
ORDER BY created_at DESC, id
`
	return r.query(ctx, query, q.TenantID, q.BotID, q.RecipientNumber)
}

func (r *PostgresRepo) ListRange(ctx context.Context, tenantID, botID string, from, to time.Time) ([]Record, error) {
	query := `SELECT` + recordColumns + `
FROM call_analytics
WHERE tenant_id = $1 AND bot_id = $2
  AND ($3::timestamptz IS NULL OR created_at >= $3)
  AND ($4::timestamptz IS NULL OR created_at < $4)
ORDER BY created_at DESC, id
`
	return r.query(ctx, query, tenantID, botID, nullTime(from), nullTime(to))
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func (r *PostgresRepo) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		var (
			rec Record
			dur sql.NullInt64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.TenantID,
			&rec.BotID,
			&rec.CallUUID,
			&rec.RecipientName,
			&rec.RecipientNumber,
			&rec.Category,
			&rec.Confidence,
			&rec.Reason,
			&rec.FollowUpAction,
			&dur,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		if dur.Valid {
			d := int(dur.Int64)
			rec.DurationSeconds = &d
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
