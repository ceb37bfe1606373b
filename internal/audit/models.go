package audit

import "time"

// Event is an immutable, append-only audit log record.
//
// Invariants:
// - Events are never updated or deleted.
// - tenant_id is required for tenancy isolation.
// - Actor and ip capture are best-effort; do not block number or call flows on audit failures.
//
// Storage: table audit_events, insert-only, guarded by a trigger (see migrations).
type Event struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`

	Type EventType `json:"type" db:"type"`

	// ActorKind is the credential kind that caused the event (e.g. virtual_numbers, voice).
	ActorKind string `json:"actor_kind,omitempty" db:"actor_kind"`
	IPAddress string `json:"ip_address,omitempty" db:"ip_address"`

	// Target identifiers, depending on the event type.
	NumberID string `json:"number_id,omitempty" db:"number_id"`
	BotID    string `json:"bot_id,omitempty" db:"bot_id"`
	CallID   string `json:"call_id,omitempty" db:"call_id"`

	Message  string `json:"message,omitempty" db:"message"`
	Metadata string `json:"metadata,omitempty" db:"metadata"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeNumberPurchased  EventType = "number_purchased"
	EventTypeNumberReleased   EventType = "number_released"
	EventTypeNumberAssigned   EventType = "number_assigned"
	EventTypeNumberUnassigned EventType = "number_unassigned"
	EventTypeDefaultChanged   EventType = "default_number_changed"

	EventTypeBotActivation     EventType = "bot_activation_changed"
	EventTypeCredentialRotated EventType = "bot_credential_rotated"
	EventTypeAPIKeyIssued      EventType = "api_key_issued"
)
