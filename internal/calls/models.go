package calls

import (
	"errors"

	"voice-platform/internal/transcripts"
)

var (
	ErrValidation   = errors.New("calls: invalid input")
	ErrUnauthorized = errors.New("calls: bot not owned by tenant")

	ErrAmbiguousInput    = errors.New("calls: provide recipients or a spreadsheet, not both")
	ErrNoRecipients      = errors.New("calls: no recipients provided")
	ErrNoValidRecipients = errors.New("calls: no recipient has a usable number")
	ErrInvalidFormat     = errors.New("calls: spreadsheet must be .xlsx with name and number columns")

	ErrConcurrencyLimit = errors.New("calls: too many calls in progress")
)

// Recipient is one call destination.
type Recipient = transcripts.Recipient

// State is a call's position in its lifecycle. Only transitions listed in
// transitions are legal; PROVIDER_REJECTED and PURGED are terminal.
type State string

const (
	StateInitiated        State = "INITIATED"
	StateProviderAccepted State = "PROVIDER_ACCEPTED"
	StateProviderRejected State = "PROVIDER_REJECTED"
	StateRecording        State = "RECORDING"
	StateSegmentCaptured  State = "SEGMENT_CAPTURED"
	StateEnded            State = "ENDED"
	StateAnalyzed         State = "ANALYZED"
	StatePurged           State = "PURGED"
)

var transitions = map[State][]State{
	StateInitiated:        {StateProviderAccepted, StateProviderRejected},
	StateProviderAccepted: {StateRecording, StateEnded},
	StateRecording:        {StateSegmentCaptured, StateEnded},
	StateSegmentCaptured:  {StateRecording, StateEnded},
	StateEnded:            {StateAnalyzed},
	StateAnalyzed:         {StatePurged},
}

func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s State) Terminal() bool { return len(transitions[s]) == 0 }

// CallRequest is a single outbound call.
type CallRequest struct {
	Recipient Recipient `json:"recipient"`
	// From is an optional explicit caller id; the resolver picks one otherwise.
	From string `json:"from_number,omitempty"`
	// Message replaces the spoken greeting for this call.
	Message string `json:"message,omitempty"`
}

type CallResult struct {
	CallUUID  string    `json:"call_uuid"`
	BotID     string    `json:"bot_id"`
	From      string    `json:"from_number"`
	Recipient Recipient `json:"recipient"`
	State     State     `json:"state"`
}

// BulkRequest is one provider request fanned out to every recipient.
type BulkRequest struct {
	Intake  Intake
	From    string
	Message string
}

type BulkResult struct {
	BotID         string       `json:"bot_id"`
	From          string       `json:"from_number"`
	SpokenMessage string       `json:"spoken_message"`
	Calls         []CallResult `json:"calls"`
	// Unplaced lists recipients the provider returned no call id for.
	Unplaced []Recipient `json:"unplaced,omitempty"`
}
