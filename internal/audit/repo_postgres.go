package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends events to audit_events. There is deliberately no update path.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, tenant_id, type, actor_kind, ip_address, number_id, bot_id, call_id, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		e.TenantID,
		e.Type,
		e.ActorKind,
		e.IPAddress,
		e.NumberID,
		e.BotID,
		e.CallID,
		e.Message,
		e.Metadata,
		e.CreatedAt,
	)
	return err
}
