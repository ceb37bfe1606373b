package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakeFlow struct {
	answered []AnswerEvent
	turns    []TranscriptEvent
	ended    []HangupEvent
	inbound  []AnswerEvent

	script   Script
	result   CallEndedResult
	endedErr error
	err      error
}

func (f *fakeFlow) Answer(ctx context.Context, ev AnswerEvent) (Script, error) {
	f.answered = append(f.answered, ev)
	return f.script, f.err
}

func (f *fakeFlow) Transcript(ctx context.Context, ev TranscriptEvent) (Script, error) {
	f.turns = append(f.turns, ev)
	return f.script, f.err
}

func (f *fakeFlow) CallEnded(ctx context.Context, ev HangupEvent) (CallEndedResult, error) {
	f.ended = append(f.ended, ev)
	return f.result, f.endedErr
}

func (f *fakeFlow) Inbound(ctx context.Context, ev AnswerEvent) (Script, error) {
	f.inbound = append(f.inbound, ev)
	return f.script, f.err
}

func webhookRouter(f *fakeFlow) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := VoiceWebhookHandler{Flow: f}
	r := gin.New()
	r.POST("/webhooks/voice/inbound", h.HandleInbound)
	r.POST("/webhooks/voice/inbound/hangup", h.HandleCallEnded)
	r.POST("/webhooks/voice/:bot_id/answer", h.HandleAnswer)
	r.POST("/webhooks/voice/:bot_id/transcript", h.HandleTranscript)
	r.POST("/webhooks/voice/:bot_id/call-ended", h.HandleCallEnded)
	return r
}

func postForm(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleAnswerWritesXML(t *testing.T) {
	f := &fakeFlow{script: Script{Say: "Hello", Record: &RecordStep{ActionURL: "https://x/t"}}}
	r := webhookRouter(f)

	w := postForm(r, "/webhooks/voice/b1/answer", url.Values{"CallUUID": {"c1"}, "To": {"14155550001"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Fatalf("expected xml content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<Record") || !strings.Contains(w.Body.String(), "Hello") {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if len(f.answered) != 1 || f.answered[0].BotID != "b1" || f.answered[0].CallUUID != "c1" {
		t.Fatalf("unexpected answer events %+v", f.answered)
	}
}

func TestHandleTranscriptFlowErrorHangsUp(t *testing.T) {
	f := &fakeFlow{err: errors.New("boom")}
	r := webhookRouter(f)

	w := postForm(r, "/webhooks/voice/b1/transcript", url.Values{"call_uuid": {"c1"}, "transcription": {"hi"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<Hangup") {
		t.Fatalf("expected hangup, got %s", w.Body.String())
	}

	w = postForm(r, "/webhooks/voice/b1/transcript", url.Values{"transcription": {"hi"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing uuid: expected 400, got %d", w.Code)
	}
}

func TestHandleCallEndedStatuses(t *testing.T) {
	f := &fakeFlow{result: CallEndedResult{CallUUID: "c1", Category: "neutral_inquiry", Confidence: 0.5}}
	r := webhookRouter(f)

	w := postForm(r, "/webhooks/voice/b1/call-ended", url.Values{"CallUUID": {"c1"}, "CallDuration": {"42"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "analysis_completed" || body["sentiment_category"] != "neutral_inquiry" {
		t.Fatalf("unexpected body %v", body)
	}
	if d := f.ended[0].DurationSeconds; d == nil || *d != 42 {
		t.Fatalf("expected duration 42, got %v", d)
	}

	f.result.Duplicate = true
	w = postForm(r, "/webhooks/voice/inbound/hangup", url.Values{"CallUUID": {"c1"}})
	if !strings.Contains(w.Body.String(), "already_processed") {
		t.Fatalf("expected duplicate status, got %s", w.Body.String())
	}
	if f.ended[1].BotID != "" {
		t.Fatalf("inbound hangup should carry no bot id, got %q", f.ended[1].BotID)
	}

	f.endedErr = ErrUnknownTarget
	if w = postForm(r, "/webhooks/voice/nope/call-ended", url.Values{"CallUUID": {"c2"}}); w.Code != http.StatusNotFound {
		t.Fatalf("unknown bot: expected 404, got %d", w.Code)
	}

	f.endedErr = errors.New("db down")
	if w = postForm(r, "/webhooks/voice/b1/call-ended", url.Values{"CallUUID": {"c3"}}); w.Code != http.StatusInternalServerError {
		t.Fatalf("processing failure: expected 500, got %d", w.Code)
	}
}

func TestHandleInboundPassesDialedNumber(t *testing.T) {
	f := &fakeFlow{script: Script{HangupReason: "rejected"}}
	r := webhookRouter(f)

	w := postForm(r, "/webhooks/voice/inbound", url.Values{"CallUUID": {"c9"}, "From": {"+14155550001"}, "To": {"+14155550100"}})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(f.inbound) != 1 || f.inbound[0].To != "+14155550100" {
		t.Fatalf("unexpected inbound events %+v", f.inbound)
	}
	if !strings.Contains(w.Body.String(), `reason="rejected"`) {
		t.Fatalf("expected rejected hangup, got %s", w.Body.String())
	}
}
