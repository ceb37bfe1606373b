package telephony

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func formRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/voice/b1/x", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestParseTranscriptCallbackAcceptsEitherUUIDField(t *testing.T) {
	ev, err := ParseTranscriptCallback(formRequest("call_uuid=c-1&transcription=+hi+there+&From=15551234567"), "b1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev.CallUUID != "c-1" || ev.Transcription != "hi there" || ev.BotID != "b1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.From != "+15551234567" {
		t.Fatalf("expected e164 from, got %q", ev.From)
	}

	ev, err = ParseTranscriptCallback(formRequest("CallUUID=c-2&transcription=ok"), "b1")
	if err != nil || ev.CallUUID != "c-2" {
		t.Fatalf("unexpected: %+v %v", ev, err)
	}
}

func TestParseTranscriptCallbackRequiresUUID(t *testing.T) {
	_, err := ParseTranscriptCallback(formRequest("transcription=hello"), "b1")
	if !errors.Is(err, ErrMissingCallUUID) {
		t.Fatalf("expected ErrMissingCallUUID, got %v", err)
	}
}

func TestParseHangupCallbackDuration(t *testing.T) {
	ev, err := ParseHangupCallback(formRequest("CallUUID=c-1&To=%2B15557654321&CallDuration=42"), "b1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev.DurationSeconds == nil || *ev.DurationSeconds != 42 {
		t.Fatalf("expected duration 42, got %v", ev.DurationSeconds)
	}
	if ev.To != "+15557654321" {
		t.Fatalf("unexpected to: %q", ev.To)
	}

	ev, err = ParseHangupCallback(formRequest("CallUUID=c-1&CallDuration=abc"), "b1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev.DurationSeconds != nil {
		t.Fatalf("expected nil duration for garbage, got %d", *ev.DurationSeconds)
	}
}

func TestParseAnswerCallbackFromQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/voice/b1/answer?CallUUID=c-9&From=anonymous&To=15557654321", nil)
	ev, err := ParseAnswerCallback(r, "b1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ev.CallUUID != "c-9" || ev.From != "anonymous" || ev.To != "+15557654321" {
		t.Fatalf("unexpected event: %+v", ev)
	}
}
