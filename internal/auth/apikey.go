package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voice-platform/internal/audit"

	"github.com/google/uuid"
)

// Kind is the product surface an API key is scoped to.
type Kind string

const (
	KindWebsite        Kind = "website"
	KindWhatsApp       Kind = "whatsapp"
	KindVoice          Kind = "voice"
	KindVirtualNumbers Kind = "virtual_numbers"
)

const keyPrefix = "bot_"

// The two-letter tag after "bot_" names the kind, so resolution never tries kinds in turn.
var kindTags = map[Kind]string{
	KindWebsite:        "we",
	KindWhatsApp:       "wh",
	KindVoice:          "vo",
	KindVirtualNumbers: "vi",
}

func (k Kind) Valid() bool {
	_, ok := kindTags[k]
	return ok
}

// KindOf decodes the kind from a raw key.
func KindOf(raw string) (Kind, bool) {
	rest, ok := strings.CutPrefix(raw, keyPrefix)
	if !ok {
		return "", false
	}
	tag, _, ok := strings.Cut(rest, "_")
	if !ok {
		return "", false
	}
	for k, t := range kindTags {
		if t == tag {
			return k, true
		}
	}
	return "", false
}

var (
	ErrInvalidKey  = errors.New("auth: invalid api key")
	ErrKeyExpired  = errors.New("auth: api key expired")
	ErrInvalidKind = errors.New("auth: unknown api key kind")
	ErrForbidden   = errors.New("auth: api key not valid for this scope")
)

// Principal is who a resolved API key acts for.
type Principal struct {
	KeyID    string `json:"key_id"`
	Kind     Kind   `json:"kind"`
	TenantID string `json:"tenant_id"`
}

// KeyRecord is the stored form of a key. Only the hash of the secret is kept.
type KeyRecord struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Kind      Kind       `json:"kind"`
	Name      string     `json:"name"`
	Hash      string     `json:"-"`
	Hint      string     `json:"hint"`
	ExpiresAt time.Time  `json:"expires_at"`
	LastUsed  *time.Time `json:"last_used,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

// IssuedKey is returned once at issuance; Key is never retrievable again.
type IssuedKey struct {
	Key string `json:"api_key"`
	KeyRecord
}

type KeyRepository interface {
	Insert(ctx context.Context, k KeyRecord) error
	GetByHash(ctx context.Context, hash string) (KeyRecord, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

// KeyService issues and resolves tenant API keys.
type KeyService struct {
	repo  KeyRepository
	ttl   time.Duration
	audit *audit.Service
	log   *slog.Logger
	clock func() time.Time
}

func NewKeyService(repo KeyRepository, ttl time.Duration, auditSvc *audit.Service, log *slog.Logger) *KeyService {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = 3 * time.Hour
	}
	return &KeyService{repo: repo, ttl: ttl, audit: auditSvc, log: log, clock: time.Now}
}

func hashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func (s *KeyService) Issue(ctx context.Context, tenantID string, kind Kind, name string) (IssuedKey, error) {
	if tenantID == "" {
		return IssuedKey{}, fmt.Errorf("%w: tenant required", ErrInvalidKey)
	}
	if !kind.Valid() {
		return IssuedKey{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return IssuedKey{}, err
	}
	raw := keyPrefix + kindTags[kind] + "_" + hex.EncodeToString(b)

	name = strings.TrimSpace(name)
	if name == "" {
		name = string(kind) + " key"
	}
	now := s.clock().UTC()
	rec := KeyRecord{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Kind:      kind,
		Name:      name,
		Hash:      hashKey(raw),
		Hint:      raw[len(raw)-4:],
		ExpiresAt: now.Add(s.ttl),
		IsActive:  true,
		CreatedAt: now,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return IssuedKey{}, err
	}
	s.audit.Record(ctx, audit.Event{
		TenantID:  tenantID,
		Type:      audit.EventTypeAPIKeyIssued,
		ActorKind: "dashboard",
		Message:   string(kind),
	})
	s.log.Info("api key issued", "tenant_id", tenantID, "kind", kind, "key_id", rec.ID)
	return IssuedKey{Key: raw, KeyRecord: rec}, nil
}

// Resolve maps a raw key to its principal. The kind comes from the key prefix.
func (s *KeyService) Resolve(ctx context.Context, raw string) (Principal, error) {
	raw = strings.TrimSpace(raw)
	kind, ok := KindOf(raw)
	if !ok {
		return Principal{}, ErrInvalidKey
	}
	rec, err := s.repo.GetByHash(ctx, hashKey(raw))
	if err != nil {
		return Principal{}, err
	}
	// A stored kind that disagrees with the prefix means the row was tampered with.
	if !rec.IsActive || rec.Kind != kind {
		return Principal{}, ErrInvalidKey
	}
	now := s.clock().UTC()
	if !now.Before(rec.ExpiresAt) {
		return Principal{}, ErrKeyExpired
	}
	if err := s.repo.Touch(ctx, rec.ID, now); err != nil {
		s.log.Warn("api key touch failed", "key_id", rec.ID, "err", err)
	}
	return Principal{KeyID: rec.ID, Kind: rec.Kind, TenantID: rec.TenantID}, nil
}
