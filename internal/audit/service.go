package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"voice-platform/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service logs internal audit information.
//
// IMPORTANT:
// - Audit is internal-only. Do not expose these records to tenant users by default.
// - Callers should treat audit logging as best-effort (see Record).
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.TenantID == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	if a, ok := actorFrom(ctx); ok {
		if e.ActorKind == "" {
			e.ActorKind = a.kind
		}
		if e.IPAddress == "" {
			e.IPAddress = a.ip
		}
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Record appends e and logs instead of failing. A nil Service is a no-op.
func (s *Service) Record(ctx context.Context, e Event) {
	if s == nil {
		return
	}
	if err := s.Append(ctx, e); err != nil {
		logger.From(ctx).Warn("audit append failed",
			slog.String("type", string(e.Type)),
			slog.String("tenant_id", e.TenantID),
			slog.Any("err", err),
		)
	}
}

// LogNumberEvent records a number lifecycle change.
func (s *Service) LogNumberEvent(ctx context.Context, tenantID string, typ EventType, numberID, botID, message string) {
	s.Record(ctx, Event{
		TenantID: tenantID,
		Type:     typ,
		NumberID: numberID,
		BotID:    botID,
		Message:  message,
	})
}

// LogBotEvent records a bot configuration change.
func (s *Service) LogBotEvent(ctx context.Context, tenantID string, typ EventType, botID, message string) {
	s.Record(ctx, Event{
		TenantID: tenantID,
		Type:     typ,
		BotID:    botID,
		Message:  message,
	})
}
