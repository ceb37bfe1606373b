package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voice-platform/internal/sentiment"

	"github.com/google/uuid"
)

type Service struct {
	repo  Repository
	log   *slog.Logger
	clock func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{repo: repo, log: log, clock: time.Now}
}

// Record stores the verdict for one call. A second record for the same call uuid
// yields ErrDuplicateRecord and leaves the first untouched.
func (s *Service) Record(ctx context.Context, rec Record) (Record, error) {
	if rec.TenantID == "" || rec.BotID == "" || rec.CallUUID == "" {
		return Record{}, fmt.Errorf("%w: tenant, bot and call uuid required", ErrInvalidRequest)
	}
	if !rec.Category.Known() {
		return Record{}, fmt.Errorf("%w: category %q", ErrInvalidRequest, rec.Category)
	}
	if rec.Confidence < 0 || rec.Confidence > 1 {
		return Record{}, fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalidRequest, rec.Confidence)
	}
	if strings.TrimSpace(rec.RecipientName) == "" {
		rec.RecipientName = UnknownRecipient
	}
	if strings.TrimSpace(rec.RecipientNumber) == "" {
		rec.RecipientNumber = UnknownRecipient
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock().UTC()
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return Record{}, err
	}
	s.log.Info("call analytics recorded",
		"tenant_id", rec.TenantID, "bot_id", rec.BotID, "call_uuid", rec.CallUUID,
		"category", rec.Category, "confidence", rec.Confidence)
	return rec, nil
}

// Query lists a bot's records newest first.
func (s *Service) Query(ctx context.Context, tenantID, botID, recipientNumber string) ([]Record, error) {
	if tenantID == "" || botID == "" {
		return nil, ErrInvalidRequest
	}
	return s.repo.List(ctx, Query{
		TenantID:        tenantID,
		BotID:           botID,
		RecipientNumber: strings.TrimSpace(recipientNumber),
	})
}

// Summary aggregates a bot's records in the range. Zero bounds are open.
func (s *Service) Summary(ctx context.Context, tenantID, botID string, r TimeRange) (Summary, error) {
	if tenantID == "" || botID == "" {
		return Summary{}, ErrInvalidRequest
	}
	if !r.From.IsZero() && !r.To.IsZero() && !r.To.After(r.From) {
		return Summary{}, fmt.Errorf("%w: range end must be after start", ErrInvalidRequest)
	}

	rows, err := s.repo.ListRange(ctx, tenantID, botID, r.From, r.To)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{TenantID: tenantID, BotID: botID, Range: r, ByCategory: map[sentiment.Category]int{}}
	var confidence float64
	for _, rec := range rows {
		out.TotalCalls++
		out.ByCategory[rec.Category]++
		confidence += rec.Confidence
		if rec.DurationSeconds != nil {
			out.TimedCalls++
			out.TotalDurationSeconds += *rec.DurationSeconds
		}
	}
	if out.TotalCalls > 0 {
		out.AverageConfidence = confidence / float64(out.TotalCalls)
	}
	if out.TimedCalls > 0 {
		out.AverageDurationSeconds = out.TotalDurationSeconds / out.TimedCalls
	}
	return out, nil
}
