package routing

// Decision is the outcome of routing one inbound call.
//
// It carries only what the call lifecycle needs to build the provider response.
// Reason is for logs; it is never spoken to the caller.
type Decision struct {
	TenantID string `json:"tenant_id,omitempty"`
	NumberID string `json:"number_id,omitempty"`
	BotID    string `json:"bot_id,omitempty"`

	Action Action `json:"action"`
	Reason string `json:"reason,omitempty"`
}

type Action string

const (
	// ActionAnswer hands the call to BotID.
	ActionAnswer Action = "answer"
	// ActionReject refuses the call before it is answered.
	ActionReject Action = "reject"
	// ActionHangup ends the call without a bot.
	ActionHangup Action = "hangup"
)

const (
	ReasonNumberUnknown  = "number_unknown"
	ReasonNumberInactive = "number_inactive"
	ReasonNotAssigned    = "number_not_assigned"
	ReasonBotMissing     = "bot_missing"
	ReasonBotInactive    = "bot_inactive"
	ReasonDedicated      = "dedicated_bot"
)
