package bots

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// PostgresRepo stores bots in voice_bots (see migrations).
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// Ids arrive from request paths and provider callbacks. A value the uuid column
// cannot parse names no row, so it is rejected before Postgres raises 22P02.
func validID(id string) bool { return uuid.Validate(id) == nil }

const botColumns = `
id, tenant_id, name, company_name, credential, language, voice,
fallback_response, outbound_greeting, is_active, created_at, updated_at`

func scanBot(s interface{ Scan(dest ...any) error }) (Meta, error) {
	var m Meta
	err := s.Scan(
		&m.ID,
		&m.TenantID,
		&m.Name,
		&m.CompanyName,
		&m.Credential,
		&m.Language,
		&m.Voice,
		&m.FallbackResponse,
		&m.OutboundGreeting,
		&m.IsActive,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

func (r *PostgresRepo) Insert(ctx context.Context, m Meta) error {
	const q = `
INSERT INTO voice_bots (` + botColumns + `
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
)
`
	_, err := r.db.ExecContext(ctx, q,
		m.ID,
		m.TenantID,
		m.Name,
		m.CompanyName,
		m.Credential,
		m.Language,
		m.Voice,
		m.FallbackResponse,
		m.OutboundGreeting,
		m.IsActive,
		m.CreatedAt,
		m.UpdatedAt,
	)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Meta, error) {
	if !validID(id) {
		return Meta{}, ErrNotFound
	}
	const q = `SELECT` + botColumns + `
FROM voice_bots
WHERE id = $1
`
	m, err := scanBot(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Meta{}, ErrNotFound
	}
	return m, err
}

func (r *PostgresRepo) ListByTenant(ctx context.Context, tenantID string) ([]Meta, error) {
	const q = `SELECT` + botColumns + `
FROM voice_bots
WHERE tenant_id = $1
ORDER BY created_at DESC
`
	rows, err := r.db.QueryContext(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Meta
	for rows.Next() {
		m, err := scanBot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) exec(ctx context.Context, q, id string, args ...any) error {
	if !validID(id) {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, q, append([]any{id}, args...)...)
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

func (r *PostgresRepo) UpdateVoice(ctx context.Context, m Meta) error {
	const q = `
UPDATE voice_bots
SET language = $2, voice = $3, fallback_response = $4, outbound_greeting = $5, updated_at = $6
WHERE id = $1
`
	return r.exec(ctx, q, m.ID, m.Language, m.Voice, m.FallbackResponse, m.OutboundGreeting, m.UpdatedAt)
}

func (r *PostgresRepo) SetActive(ctx context.Context, id string, active bool, now time.Time) error {
	const q = `UPDATE voice_bots SET is_active = $2, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, q, id, active, now)
}

func (r *PostgresRepo) SetCredential(ctx context.Context, id, credential string, now time.Time) error {
	const q = `UPDATE voice_bots SET credential = $2, updated_at = $3 WHERE id = $1`
	return r.exec(ctx, q, id, credential, now)
}
