package telephony

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// Plivo posts application/x-www-form-urlencoded callbacks; answer callbacks may also
// arrive as GET with query parameters, so FormValue is used throughout.

// AnswerEvent is delivered when a call leg is answered.
type AnswerEvent struct {
	BotID     string
	CallUUID  string
	From      string
	To        string
	Direction string
}

// TranscriptEvent carries one speech-to-text segment for an in-progress call.
type TranscriptEvent struct {
	BotID         string
	CallUUID      string
	Transcription string
	From          string
	To            string
}

// HangupEvent is delivered once the provider tears the call down.
type HangupEvent struct {
	BotID       string
	CallUUID    string
	From        string
	To          string
	HangupCause string

	// DurationSeconds is nil when the provider omitted or garbled it.
	DurationSeconds *int
}

var ErrMissingCallUUID = errors.New("telephony: callback missing call uuid")

func ParseAnswerCallback(r *http.Request, botID string) (AnswerEvent, error) {
	if err := r.ParseForm(); err != nil {
		return AnswerEvent{}, err
	}
	return AnswerEvent{
		BotID:     botID,
		CallUUID:  callUUID(r),
		From:      normalizePhone(r.FormValue("From")),
		To:        normalizePhone(r.FormValue("To")),
		Direction: strings.TrimSpace(r.FormValue("Direction")),
	}, nil
}

func ParseTranscriptCallback(r *http.Request, botID string) (TranscriptEvent, error) {
	if err := r.ParseForm(); err != nil {
		return TranscriptEvent{}, err
	}
	ev := TranscriptEvent{
		BotID:         botID,
		CallUUID:      callUUID(r),
		Transcription: strings.TrimSpace(r.FormValue("transcription")),
		From:          normalizePhone(r.FormValue("From")),
		To:            normalizePhone(r.FormValue("To")),
	}
	if ev.CallUUID == "" {
		return TranscriptEvent{}, ErrMissingCallUUID
	}
	return ev, nil
}

func ParseHangupCallback(r *http.Request, botID string) (HangupEvent, error) {
	if err := r.ParseForm(); err != nil {
		return HangupEvent{}, err
	}
	ev := HangupEvent{
		BotID:       botID,
		CallUUID:    callUUID(r),
		From:        normalizePhone(r.FormValue("From")),
		To:          normalizePhone(r.FormValue("To")),
		HangupCause: strings.TrimSpace(r.FormValue("HangupCause")),
	}
	if ev.CallUUID == "" {
		return HangupEvent{}, ErrMissingCallUUID
	}
	for _, k := range []string{"CallDuration", "Duration", "BillDuration"} {
		if v := strings.TrimSpace(r.FormValue(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				ev.DurationSeconds = &n
				break
			}
		}
	}
	return ev, nil
}

// callUUID accepts both spellings seen across Plivo callback types.
func callUUID(r *http.Request) string {
	for _, k := range []string{"CallUUID", "call_uuid", "RequestUUID"} {
		if v := strings.TrimSpace(r.FormValue(k)); v != "" {
			return v
		}
	}
	return ""
}

func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "sip:") {
		return s
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			// "anonymous" and similar are kept as-is.
			return s
		}
	}
	return "+" + s
}
