package analytics

import (
	"errors"
	"time"

	"voice-platform/internal/sentiment"
)

var (
	ErrDuplicateRecord = errors.New("analytics: call already recorded")
	ErrInvalidRequest  = errors.New("analytics: invalid request")
)

// UnknownRecipient fills recipient fields the call never identified.
const UnknownRecipient = "Unknown"

// Record is the terminal, immutable verdict for one call.
type Record struct {
	ID              string             `json:"id"`
	TenantID        string             `json:"tenant_id"`
	BotID           string             `json:"bot_id"`
	CallUUID        string             `json:"call_uuid"`
	RecipientName   string             `json:"recipient_name"`
	RecipientNumber string             `json:"recipient_number"`
	Category        sentiment.Category `json:"sentiment_category"`
	Confidence      float64            `json:"confidence"`
	Reason          string             `json:"reason"`
	FollowUpAction  string             `json:"follow_up_action"`
	DurationSeconds *int               `json:"duration_seconds,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

// Query selects a bot's records. RecipientNumber narrows to one recipient.
type Query struct {
	TenantID        string
	BotID           string
	RecipientNumber string
}

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains treats zero bounds as open.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}

type Summary struct {
	TenantID string    `json:"tenant_id"`
	BotID    string    `json:"bot_id"`
	Range    TimeRange `json:"range"`

	TotalCalls        int                        `json:"total_calls"`
	ByCategory        map[sentiment.Category]int `json:"by_category"`
	AverageConfidence float64                    `json:"average_confidence"`

	// Durations only count calls whose hangup reported one.
	TimedCalls             int `json:"timed_calls"`
	TotalDurationSeconds   int `json:"total_duration_seconds"`
	AverageDurationSeconds int `json:"average_duration_seconds"`
}
