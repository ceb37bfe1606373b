package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PostgresKeyRepo stores keys in api_keys. key_hash is unique.
type PostgresKeyRepo struct {
	db *sql.DB
}

func NewPostgresKeyRepo(db *sql.DB) *PostgresKeyRepo { return &PostgresKeyRepo{db: db} }

func (r *PostgresKeyRepo) Insert(ctx context.Context, k KeyRecord) error {
	const q = `
INSERT INTO api_keys (id, tenant_id, kind, key_name, key_hash, key_hint, expires_at, is_active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`
	_, err := r.db.ExecContext(ctx, q, k.ID, k.TenantID, k.Kind, k.Name, k.Hash, k.Hint, k.ExpiresAt, k.IsActive, k.CreatedAt)
	return err
}

func (r *PostgresKeyRepo) GetByHash(ctx context.Context, hash string) (KeyRecord, error) {
	const q = `
SELECT id, tenant_id, kind, key_name, key_hash, key_hint, expires_at, last_used, is_active, created_at
FROM api_keys
WHERE key_hash = $1
`
	var (
		k        KeyRecord
		lastUsed sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, q, hash).Scan(
		&k.ID, &k.TenantID, &k.Kind, &k.Name, &k.Hash, &k.Hint, &k.ExpiresAt, &lastUsed, &k.IsActive, &k.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return KeyRecord{}, ErrInvalidKey
	}
	if err != nil {
		return KeyRecord{}, err
	}
	if lastUsed.Valid {
		t := lastUsed.Time
		k.LastUsed = &t
	}
	return k, nil
}

func (r *PostgresKeyRepo) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = $2 WHERE id = $1`, id, at)
	return err
}
