package telephony

import (
	"context"
	"errors"
)

// Provider defines the provider-agnostic interface used by business logic.
//
// Rules:
// - No provider REST calls outside telephony adapters.
// - Every call is bounded by the adapter's timeout and fails with ErrProviderTimeout or ErrProviderRejected.
// - Keep request/response types provider-agnostic.
type Provider interface {
	Name() string
	HealthCheck(ctx context.Context) error

	SearchNumbers(ctx context.Context, req SearchRequest) ([]Listing, error)
	BuyNumber(ctx context.Context, req BuyNumberRequest) (BuyNumberResult, error)
	ReleaseNumber(ctx context.Context, req ReleaseNumberRequest) error

	CreateCall(ctx context.Context, req CreateCallRequest) (CreateCallResult, error)
	Speak(ctx context.Context, req SpeakRequest) ([]byte, error)
}

var (
	// ErrProviderRejected means the provider answered and refused the request.
	ErrProviderRejected = errors.New("telephony: provider rejected request")
	// ErrProviderTimeout means no answer arrived within the client timeout.
	ErrProviderTimeout = errors.New("telephony: provider timeout")
	// ErrUnsupported is returned for operations a provider does not offer.
	ErrUnsupported = errors.New("telephony: operation not supported by provider")
)

// NumberType is the provider-agnostic number class.
type NumberType string

const (
	NumberTypeLocal    NumberType = "local"
	NumberTypeTollFree NumberType = "toll_free"
	NumberTypeMobile   NumberType = "mobile"
	NumberTypeFixed    NumberType = "fixed"
)

func (t NumberType) Valid() bool {
	switch t {
	case NumberTypeLocal, NumberTypeTollFree, NumberTypeMobile, NumberTypeFixed:
		return true
	default:
		return false
	}
}

type SearchRequest struct {
	CountryISO string     `json:"country_iso"`
	Type       NumberType `json:"type"`
	Pattern    string     `json:"pattern,omitempty"`
	Region     string     `json:"region,omitempty"`
	// Services is a comma separated capability filter, e.g. "voice,sms".
	Services string `json:"services,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Listing is one number available for purchase.
type Listing struct {
	Number      string     `json:"number"`
	Type        NumberType `json:"type"`
	Country     string     `json:"country"`
	Region      string     `json:"region,omitempty"`
	City        string     `json:"city,omitempty"`
	MonthlyCost float64    `json:"monthly_cost"`
	SetupCost   float64    `json:"setup_cost"`

	VoiceEnabled bool `json:"voice_enabled"`
	SMSEnabled   bool `json:"sms_enabled"`

	// ComplianceRequired is set when the country demands documents before activation.
	ComplianceRequired bool   `json:"compliance_required"`
	Restriction        string `json:"restriction,omitempty"`
}

type BuyNumberRequest struct {
	// Number is the E.164 number to buy.
	Number string `json:"number"`
}

type BuyNumberResult struct {
	Number           string     `json:"number"`
	ProviderNumberID string     `json:"provider_number_id"`
	Type             NumberType `json:"type"`
	Country          string     `json:"country"`
	MonthlyCost      float64    `json:"monthly_cost"`
	VoiceEnabled     bool       `json:"voice_enabled"`
	SMSEnabled       bool       `json:"sms_enabled"`

	// Pending is true when the provider holds the number behind a compliance step.
	Pending bool `json:"pending"`
}

type ReleaseNumberRequest struct {
	Number           string `json:"number"`
	ProviderNumberID string `json:"provider_number_id,omitempty"`
}

// CreateCallRequest places one call to every destination in To.
type CreateCallRequest struct {
	From      string   `json:"from"`
	To        []string `json:"to"`
	AnswerURL string   `json:"answer_url"`
	HangupURL string   `json:"hangup_url,omitempty"`
}

// CreateCallResult holds provider call ids in the same order as CreateCallRequest.To.
type CreateCallResult struct {
	CallIDs []string `json:"call_ids"`
}

type SpeakRequest struct {
	Text     string `json:"text"`
	Voice    string `json:"voice"`
	Language string `json:"language"`
}
