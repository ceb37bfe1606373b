package bots

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voice-platform/internal/audit"

	"github.com/google/uuid"
)

// Service manages voice bot metadata and owns the live bot registry.
//
// Every mutation writes through the repository first and then drops the registry entry,
// so the next read reloads the whole row. Partial-column writes never put a snapshot
// back into the cache, which would resurrect a concurrently changed activation flag.
type Service struct {
	repo     Repository
	registry *Registry[Meta]
	audit    *audit.Service
	log      *slog.Logger
	clock    func() time.Time
}

func NewService(repo Repository, auditSvc *audit.Service, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:     repo,
		registry: NewRegistry[Meta](repo.Get),
		audit:    auditSvc,
		log:      log,
		clock:    time.Now,
	}
}

const credentialPrefix = "voice_"

func newCredential() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return credentialPrefix + hex.EncodeToString(b), nil
}

// Create registers a bot with default speech settings. New bots start inactive.
func (s *Service) Create(ctx context.Context, tenantID, name, company string) (Meta, error) {
	name = strings.TrimSpace(name)
	company = strings.TrimSpace(company)
	if tenantID == "" || name == "" || company == "" {
		return Meta{}, fmt.Errorf("%w: tenant, name and company_name required", ErrValidation)
	}
	cred, err := newCredential()
	if err != nil {
		return Meta{}, err
	}
	now := s.clock().UTC()
	m := Meta{
		ID:               uuid.NewString(),
		TenantID:         tenantID,
		Name:             name,
		CompanyName:      company,
		Credential:       cred,
		Language:         DefaultLanguage,
		Voice:            DefaultVoice,
		FallbackResponse: DefaultFallback,
		OutboundGreeting: DefaultGreeting,
		IsActive:         false,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Insert(ctx, m); err != nil {
		return Meta{}, err
	}
	s.registry.Put(m.ID, m)
	s.log.Info("voice bot created", "tenant_id", tenantID, "bot_id", m.ID)
	return m, nil
}

// Lookup returns a bot by id without a tenant check. Used by provider callbacks.
func (s *Service) Lookup(ctx context.Context, id string) (Meta, error) {
	if id == "" {
		return Meta{}, ErrNotFound
	}
	return s.registry.Get(ctx, id)
}

// Get returns a bot owned by tenantID; a bot of another tenant yields ErrUnauthorized.
func (s *Service) Get(ctx context.Context, tenantID, id string) (Meta, error) {
	m, err := s.Lookup(ctx, id)
	if err != nil {
		return Meta{}, err
	}
	if m.TenantID != tenantID {
		return Meta{}, ErrUnauthorized
	}
	return m, nil
}

// GetActive is Get followed by the activation gate.
func (s *Service) GetActive(ctx context.Context, tenantID, id string) (Meta, error) {
	m, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return Meta{}, err
	}
	if err := RequireActive(m); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// OwnsBot reports whether id exists and belongs to tenantID.
func (s *Service) OwnsBot(ctx context.Context, tenantID, id string) (bool, error) {
	_, err := s.Get(ctx, tenantID, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnauthorized):
		return false, nil
	default:
		return false, err
	}
}

func (s *Service) List(ctx context.Context, tenantID string) ([]Meta, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}

// ConfigureVoice updates speech settings after validating language and voice availability.
func (s *Service) ConfigureVoice(ctx context.Context, tenantID, id string, cfg VoiceConfig) (Meta, error) {
	m, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return Meta{}, err
	}
	if cfg.Language != nil {
		m.Language = strings.TrimSpace(*cfg.Language)
	}
	if cfg.Voice != nil {
		m.Voice = strings.ToUpper(strings.TrimSpace(*cfg.Voice))
	}
	if cfg.FallbackResponse != nil {
		if f := strings.TrimSpace(*cfg.FallbackResponse); f != "" {
			m.FallbackResponse = f
		}
	}
	if cfg.OutboundGreeting != nil {
		if g := strings.TrimSpace(*cfg.OutboundGreeting); g != "" {
			m.OutboundGreeting = g
		}
	}
	if _, ok := SupportedLanguages[m.Language]; !ok {
		return Meta{}, fmt.Errorf("%w: unsupported language %q", ErrValidation, m.Language)
	}
	if _, ok := VoiceTypes[m.Voice]; !ok {
		return Meta{}, fmt.Errorf("%w: unsupported voice %q", ErrValidation, m.Voice)
	}
	if !voiceAvailable(m.Language, m.Voice) {
		return Meta{}, fmt.Errorf("%w: voice %s not available for %s (available: %s)",
			ErrValidation, m.Voice, m.Language, strings.Join(LanguageVoices[m.Language], ", "))
	}

	m.UpdatedAt = s.clock().UTC()
	err = s.repo.UpdateVoice(ctx, m)
	s.registry.Invalidate(id)
	if err != nil {
		return Meta{}, err
	}
	return s.reload(ctx, m), nil
}

// SetActive toggles the activation gate.
func (s *Service) SetActive(ctx context.Context, tenantID, id string, active bool) (Meta, error) {
	m, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return Meta{}, err
	}
	now := s.clock().UTC()
	err = s.repo.SetActive(ctx, id, active, now)
	s.registry.Invalidate(id)
	if err != nil {
		return Meta{}, err
	}
	m.IsActive = active
	m.UpdatedAt = now
	m = s.reload(ctx, m)

	s.audit.LogBotEvent(ctx, tenantID, audit.EventTypeBotActivation, id, statusWord(active))
	s.log.Info("voice bot activation changed", "tenant_id", tenantID, "bot_id", id, "active", active)
	return m, nil
}

// RotateCredential issues a new bot credential; the old one stops resolving immediately.
func (s *Service) RotateCredential(ctx context.Context, tenantID, id string) (Meta, error) {
	m, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return Meta{}, err
	}
	cred, err := newCredential()
	if err != nil {
		return Meta{}, err
	}
	now := s.clock().UTC()
	err = s.repo.SetCredential(ctx, id, cred, now)
	s.registry.Invalidate(id)
	if err != nil {
		return Meta{}, err
	}
	m.Credential = cred
	m.UpdatedAt = now
	m = s.reload(ctx, m)

	s.audit.LogBotEvent(ctx, tenantID, audit.EventTypeCredentialRotated, id, "")
	return m, nil
}

// reload returns the persisted row after a write, falling back to the local copy
// when the read fails. The registry is not populated from the fallback.
func (s *Service) reload(ctx context.Context, fallback Meta) Meta {
	m, err := s.registry.Get(ctx, fallback.ID)
	if err != nil {
		s.log.Warn("voice bot reload failed", "bot_id", fallback.ID, "err", err)
		return fallback
	}
	return m
}

func statusWord(active bool) string {
	if active {
		return "active"
	}
	return "paused"
}

func (s *Service) Status(ctx context.Context, tenantID, id string) (StatusView, error) {
	m, err := s.Get(ctx, tenantID, id)
	if err != nil {
		return StatusView{}, err
	}
	msg := "Bot is active and can make and receive calls."
	if !m.IsActive {
		msg = "Bot is paused and will not make or receive calls. Activate it to resume."
	}
	return StatusView{
		BotID:    m.ID,
		Name:     m.Name,
		IsActive: m.IsActive,
		Status:   statusWord(m.IsActive),
		Message:  msg,
		Language: m.Language,
		Voice:    m.Voice,
	}, nil
}
