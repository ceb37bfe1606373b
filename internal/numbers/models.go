package numbers

import (
	"time"

	"voice-platform/internal/telephony"
)

// PhoneNumber is a telephony number owned by exactly one tenant.
//
// Invariants:
// - At most one live number per tenant has IsDefault.
// - AssignmentDedicated implies DedicatedBotID, and that bot belongs to TenantID.
// - StatusReleased is terminal; released numbers are never listed or selected.
type PhoneNumber struct {
	ID               string `json:"id" db:"id"`
	TenantID         string `json:"tenant_id" db:"tenant_id"`
	Number           string `json:"number" db:"number"`
	ProviderNumberID string `json:"provider_number_id" db:"provider_number_id"`
	Alias            string `json:"alias" db:"alias"`

	NumberType  telephony.NumberType `json:"number_type" db:"number_type"`
	Country     string               `json:"country" db:"country"`
	MonthlyCost float64              `json:"monthly_cost" db:"monthly_cost"`

	VoiceEnabled bool `json:"voice_enabled" db:"voice_enabled"`
	SMSEnabled   bool `json:"sms_enabled" db:"sms_enabled"`

	Status         Status     `json:"status" db:"status"`
	Assignment     Assignment `json:"assignment" db:"assignment"`
	DedicatedBotID string     `json:"dedicated_bot_id,omitempty" db:"dedicated_bot_id"`
	CampaignTag    string     `json:"campaign_tag,omitempty" db:"campaign_tag"`
	IsDefault      bool       `json:"is_default" db:"is_default"`

	Usage UsageStats `json:"usage_stats"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusReleased Status = "released"
	StatusReserved Status = "reserved"
	StatusDisabled Status = "disabled"
)

type Assignment string

const (
	AssignmentPooled    Assignment = "pooled"
	AssignmentDedicated Assignment = "dedicated"
	AssignmentCampaign  Assignment = "campaign"
)

// UsageStats is only ever changed through Repository.RecordOutcomes.
type UsageStats struct {
	TotalCalls      int64      `json:"total_calls"`
	SuccessfulCalls int64      `json:"successful_calls"`
	SuccessRate     float64    `json:"success_rate"`
	LastUsed        *time.Time `json:"last_used,omitempty"`
}

// View is the tenant-facing usage summary; a number with no calls reports 100%.
func (u UsageStats) View() UsageStats {
	if u.TotalCalls == 0 {
		u.SuccessRate = 100
	}
	return u
}

func successRate(successful, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(successful) / float64(total) * 100
}

func (n PhoneNumber) Live() bool { return n.Status != StatusReleased }

// Callable reports whether the number may be used as caller id.
func (n PhoneNumber) Callable() bool { return n.Status == StatusActive && n.VoiceEnabled }

// ListFilter narrows ListForTenant.
type ListFilter struct {
	ActiveOnly bool
	Type       telephony.NumberType
}

// DropdownEntry is one selectable caller id for a bot.
type DropdownEntry struct {
	ID          string  `json:"id"`
	Number      string  `json:"number"`
	Label       string  `json:"label"`
	IsDefault   bool    `json:"is_default"`
	Dedicated   bool    `json:"dedicated"`
	SuccessRate float64 `json:"success_rate"`
}
