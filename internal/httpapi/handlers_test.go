package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voice-platform/internal/analytics"
	"voice-platform/internal/audit"
	"voice-platform/internal/auth"
	"voice-platform/internal/bots"
	"voice-platform/internal/calls"
	"voice-platform/internal/llm"
	"voice-platform/internal/numbers"
	"voice-platform/internal/telephony"
	"voice-platform/internal/transcripts"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type echoCompleter struct{}

func (echoCompleter) Complete(ctx context.Context, prompt string, o llm.Options) (string, error) {
	return "We open at nine.", nil
}

type apiFixture struct {
	router     *gin.Engine
	h          Handlers
	provider   *telephony.SandboxProvider
	voiceKey   string
	numbersKey string
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	auditSvc := audit.NewService(audit.NewMemoryRepo())
	botsSvc := bots.NewService(bots.NewMemoryRepo(), auditSvc, nil)
	provider := telephony.NewSandboxProvider()
	numsSvc := numbers.NewService(numbers.NewMemoryRepo(), provider, botsSvc, auditSvc, nil)
	sessions := transcripts.New(transcripts.Options{})
	t.Cleanup(sessions.Close)
	keys := auth.NewKeyService(auth.NewMemoryKeyRepo(), time.Hour, auditSvc, nil)

	h := Handlers{
		Numbers:   numsSvc,
		Bots:      botsSvc,
		Calls:     calls.NewOrchestrator(botsSvc, numsSvc, provider, sessions, nil, calls.Webhooks{BaseURL: "https://voice.example.com"}, nil),
		Analytics: analytics.NewService(analytics.NewMemoryRepo(), nil),
		Chat:      llm.NewChatEngine(echoCompleter{}, nil, "test", nil),
		Voice:     provider,
		Keys:      keys,
	}

	voice, err := keys.Issue(context.Background(), "t1", auth.KindVoice, "")
	require.NoError(t, err)
	nk, err := keys.Issue(context.Background(), "t1", auth.KindVirtualNumbers, "")
	require.NoError(t, err)

	r := gin.New()
	num := r.Group("/v1/numbers", auth.RequireScope(keys, auth.KindVirtualNumbers))
	num.POST("", h.BuyNumber)
	num.GET("", h.ListNumbers)
	num.POST("/:number_id/default", h.SetDefaultNumber)

	vb := r.Group("/v1/voice-bots", auth.RequireScope(keys, auth.KindVoice))
	vb.POST("", h.CreateBot)
	vb.PUT("/:bot_id/active", h.ToggleActive)
	vb.POST("/:bot_id/test-call", h.TestCall)
	vb.POST("/:bot_id/bulk-call", h.BulkCall)
	vb.POST("/:bot_id/chat", h.ChatTest)
	vb.POST("/:bot_id/preview-voice", h.PreviewVoice)
	vb.GET("/:bot_id/analytics/summary", h.BotAnalyticsSummary)

	return apiFixture{router: r, h: h, provider: provider, voiceKey: voice.Key, numbersKey: nk.Key}
}

func (fx apiFixture) do(t *testing.T, method, path, key string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", key)
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func (fx apiFixture) createBot(t *testing.T, active bool) string {
	t.Helper()
	w := fx.do(t, http.MethodPost, "/v1/voice-bots", fx.voiceKey, gin.H{"name": "Ava", "company_name": "Acme"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var m bots.Meta
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	if active {
		w = fx.do(t, http.MethodPut, "/v1/voice-bots/"+m.ID+"/active", fx.voiceKey, gin.H{"is_active": true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	return m.ID
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestTestCallFlow(t *testing.T) {
	fx := newAPIFixture(t)
	paused := fx.createBot(t, false)
	botID := fx.createBot(t, true)
	call := gin.H{"recipient": gin.H{"name": "Ann", "number": "+14155550001"}}

	w := fx.do(t, http.MethodPost, "/v1/voice-bots/"+paused+"/test-call", fx.voiceKey, call)
	assert.Equal(t, http.StatusLocked, w.Code)
	assert.Equal(t, "bot_inactive", decode(t, w)["code"])

	w = fx.do(t, http.MethodPost, "/v1/voice-bots/"+botID+"/test-call", fx.voiceKey, call)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "no_phone_number", decode(t, w)["code"])

	w = fx.do(t, http.MethodPost, "/v1/numbers", fx.numbersKey, gin.H{"number": "+14155550100"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = fx.do(t, http.MethodPost, "/v1/voice-bots/"+botID+"/test-call", fx.voiceKey, call)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res calls.CallResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.NotEmpty(t, res.CallUUID)
	assert.Equal(t, "+14155550100", res.From)

	placed := fx.provider.Calls()
	require.Len(t, placed, 1)
	assert.Equal(t, "https://voice.example.com/webhooks/voice/"+botID+"/answer", placed[0].AnswerURL)
}

func TestScopesAreEnforced(t *testing.T) {
	fx := newAPIFixture(t)
	w := fx.do(t, http.MethodPost, "/v1/voice-bots", fx.numbersKey, gin.H{"name": "Ava", "company_name": "Acme"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = fx.do(t, http.MethodGet, "/v1/numbers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOtherTenantBotIsForbidden(t *testing.T) {
	fx := newAPIFixture(t)
	other, err := fx.h.Bots.Create(context.Background(), "t2", "Zed", "Other")
	require.NoError(t, err)

	w := fx.do(t, http.MethodPost, "/v1/voice-bots/"+other.ID+"/chat", fx.voiceKey, gin.H{"message": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestChatUsesActiveBot(t *testing.T) {
	fx := newAPIFixture(t)
	botID := fx.createBot(t, true)

	w := fx.do(t, http.MethodPost, "/v1/voice-bots/"+botID+"/chat", fx.voiceKey, gin.H{"message": "When do you open?"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "We open at nine.", decode(t, w)["response"])

	w = fx.do(t, http.MethodPost, "/v1/voice-bots/"+botID+"/chat", fx.voiceKey, gin.H{"message": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBulkCallJSONAndIntakeErrors(t *testing.T) {
	fx := newAPIFixture(t)
	botID := fx.createBot(t, true)
	_, err := fx.h.Numbers.Purchase(context.Background(), "t1", "+14155550100", "")
	require.NoError(t, err)

	w := fx.do(t, http.MethodPost, "/v1/voice-bots/"+botID+"/bulk-call", fx.voiceKey, gin.H{"recipients": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = fx.do(t, http.MethodPost, "/v1/voice-bots/"+botID+"/bulk-call", fx.voiceKey, gin.H{
		"recipients": []gin.H{{"name": "A", "number": "+14155550001"}, {"name": "B", "number": "+14155550002"}},
		"message":    "Flash sale today",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res calls.BulkResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Len(t, res.Calls, 2)
	assert.Equal(t, "Flash sale today", res.SpokenMessage)
}

func TestBulkCallSpreadsheetUpload(t *testing.T) {
	fx := newAPIFixture(t)
	botID := fx.createBot(t, true)
	_, err := fx.h.Numbers.Purchase(context.Background(), "t1", "+14155550100", "")
	require.NoError(t, err)

	f := excelize.NewFile()
	rows := [][]any{{"Name", "Number"}, {"Ann", "14155550001"}, {"Bob", "+14155550002"}}
	for i, row := range rows {
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &r))
	}
	xlsx, err := f.WriteToBuffer()
	require.NoError(t, err)
	_ = f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "contacts.xlsx")
	require.NoError(t, err)
	_, err = part.Write(xlsx.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/voice-bots/"+botID+"/bulk-call", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-API-Key", fx.voiceKey)
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res calls.BulkResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Calls, 2)
	assert.Equal(t, "+14155550001", res.Calls[0].Recipient.Number)
	assert.Equal(t, bots.DefaultGreeting, res.SpokenMessage)
}

func TestPreviewVoiceReturnsAudio(t *testing.T) {
	fx := newAPIFixture(t)
	botID := fx.createBot(t, false)

	w := fx.do(t, http.MethodPost, "/v1/voice-bots/"+botID+"/preview-voice", fx.voiceKey, gin.H{"text": "Hello there"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
	assert.Equal(t, "RIFF", w.Body.String()[:4])
}

func TestAnalyticsSummaryRejectsBadRange(t *testing.T) {
	fx := newAPIFixture(t)
	botID := fx.createBot(t, false)

	w := fx.do(t, http.MethodGet, "/v1/voice-bots/"+botID+"/analytics/summary?from=yesterday", fx.voiceKey, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = fx.do(t, http.MethodGet, "/v1/voice-bots/"+botID+"/analytics/summary?from=2026-02-01T00:00:00Z&to=2026-01-01T00:00:00Z", fx.voiceKey, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = fx.do(t, http.MethodGet, "/v1/voice-bots/"+botID+"/analytics/summary", fx.voiceKey, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["total_calls"])
}

func TestWriteErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("wrap: %w", numbers.ErrValidation), http.StatusBadRequest},
		{calls.ErrAmbiguousInput, http.StatusBadRequest},
		{bots.ErrNotFound, http.StatusNotFound},
		{calls.ErrUnauthorized, http.StatusForbidden},
		{numbers.ErrNumberNotOwned, http.StatusForbidden},
		{bots.ErrBotInactive, http.StatusLocked},
		{numbers.ErrNoPhoneNumber, http.StatusConflict},
		{analytics.ErrDuplicateRecord, http.StatusConflict},
		{calls.ErrConcurrencyLimit, http.StatusTooManyRequests},
		{telephony.ErrUnsupported, http.StatusNotImplemented},
		{fmt.Errorf("%w: 500", telephony.ErrProviderRejected), http.StatusBadGateway},
		{telephony.ErrProviderTimeout, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		writeError(c, tc.err)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}
}
