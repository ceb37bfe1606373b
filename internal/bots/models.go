package bots

import (
	"errors"
	"time"
)

// Meta is a tenant-owned voice bot configuration.
// PhoneNumber references it through the dedicated-bot link but never owns it.
type Meta struct {
	ID          string `json:"id" db:"id"`
	TenantID    string `json:"tenant_id" db:"tenant_id"`
	Name        string `json:"name" db:"name"`
	CompanyName string `json:"company_name" db:"company_name"`

	// Credential identifies the bot to the widget and test tools. Never logged.
	Credential string `json:"-" db:"credential"`

	Language         string `json:"language" db:"language"`
	Voice            string `json:"voice" db:"voice"`
	FallbackResponse string `json:"fallback_response" db:"fallback_response"`
	OutboundGreeting string `json:"outbound_greeting" db:"outbound_greeting"`

	IsActive bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

const (
	DefaultLanguage = "en-IN"
	DefaultVoice    = "WOMAN"
	DefaultFallback = "Sorry, I don't know the answer to that."
	DefaultGreeting = "Hello! This is your assistant calling. How can I help you today?"
)

var (
	ErrValidation   = errors.New("bots: invalid input")
	ErrNotFound     = errors.New("bots: bot not found")
	ErrUnauthorized = errors.New("bots: bot not owned by tenant")
	// ErrBotInactive means the bot exists but is administratively paused.
	ErrBotInactive = errors.New("bots: bot is inactive")
)

// RequireActive is the activation gate for every calling operation.
func RequireActive(m Meta) error {
	if !m.IsActive {
		return ErrBotInactive
	}
	return nil
}

// VoiceConfig updates speech settings; nil fields are left unchanged.
type VoiceConfig struct {
	Language         *string `json:"language,omitempty"`
	Voice            *string `json:"voice,omitempty"`
	FallbackResponse *string `json:"fallback_response,omitempty"`
	OutboundGreeting *string `json:"outbound_greeting,omitempty"`
}

// StatusView is the tenant-facing activation summary.
type StatusView struct {
	BotID    string `json:"bot_id"`
	Name     string `json:"name"`
	IsActive bool   `json:"is_active"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Language string `json:"language"`
	Voice    string `json:"voice"`
}
