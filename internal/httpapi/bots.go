package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"voice-platform/internal/analytics"
	"voice-platform/internal/bots"
	"voice-platform/internal/calls"
	"voice-platform/internal/llm"
	"voice-platform/internal/telephony"

	"github.com/gin-gonic/gin"
)

type createBotRequest struct {
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
}

func (h Handlers) CreateBot(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	var req createBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	m, err := h.Bots.Create(c.Request.Context(), tenantID, req.Name, req.CompanyName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, m)
}

func (h Handlers) ListBots(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	list, err := h.Bots.List(c.Request.Context(), tenantID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bots": list, "count": len(list)})
}

func (h Handlers) BotStatus(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	v, err := h.Bots.Status(c.Request.Context(), tenantID, c.Param("bot_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h Handlers) ConfigureVoice(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	var req bots.VoiceConfig
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	m, err := h.Bots.ConfigureVoice(c.Request.Context(), tenantID, c.Param("bot_id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

func (h Handlers) ToggleActive(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	var req toggleActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		badRequest(c, "is_active required")
		return
	}
	id := c.Param("bot_id")
	if _, err := h.Bots.SetActive(c.Request.Context(), tenantID, id, *req.IsActive); err != nil {
		writeError(c, err)
		return
	}
	v, err := h.Bots.Status(c.Request.Context(), tenantID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// RotateCredential returns the new bot credential. This is the only response that carries it.
func (h Handlers) RotateCredential(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	m, err := h.Bots.RotateCredential(c.Request.Context(), tenantID, c.Param("bot_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bot_id": m.ID, "credential": m.Credential, "rotated_at": m.UpdatedAt})
}

func (h Handlers) BotNumbers(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	list, err := h.Numbers.ForBot(c.Request.Context(), tenantID, c.Param("bot_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": list, "count": len(list)})
}

func (h Handlers) TestCall(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	var req calls.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	res, err := h.Calls.MakeCall(c.Request.Context(), tenantID, c.Param("bot_id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type bulkCallRequest struct {
	Recipients []calls.Recipient `json:"recipients"`
	From       string            `json:"from_number"`
	Message    string            `json:"message"`
}

// BulkCall accepts either a JSON body or a multipart form with an .xlsx "file"
// and optional "recipients" (JSON array), "from_number" and "message" fields.
func (h Handlers) BulkCall(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	var req calls.BulkRequest
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		req.From = c.PostForm("from_number")
		req.Message = c.PostForm("message")
		if raw := strings.TrimSpace(c.PostForm("recipients")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Intake.Manual); err != nil {
				badRequest(c, "recipients must be a JSON array")
				return
			}
		}
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				badRequest(c, "unreadable upload")
				return
			}
			defer f.Close()
			req.Intake.Spreadsheet = f
			req.Intake.SpreadsheetName = fh.Filename
		}
	} else {
		var body bulkCallRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "invalid json")
			return
		}
		req.Intake.Manual = body.Recipients
		req.From = body.From
		req.Message = body.Message
	}

	res, err := h.Calls.MakeBulkCall(c.Request.Context(), tenantID, c.Param("bot_id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h Handlers) ChatTest(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		badRequest(c, "message required")
		return
	}
	m, err := h.Bots.GetActive(c.Request.Context(), tenantID, c.Param("bot_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	reply := h.Chat.Chat(c.Request.Context(), m.ID, llm.Persona{
		Name:     m.Name,
		Company:  m.CompanyName,
		Fallback: m.FallbackResponse,
	}, req.Message)
	c.JSON(http.StatusOK, gin.H{"bot_id": m.ID, "response": reply})
}

type previewVoiceRequest struct {
	Text string `json:"text"`
}

// PreviewVoice renders text in the bot's configured voice and returns the audio.
func (h Handlers) PreviewVoice(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	var req previewVoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	m, err := h.Bots.Get(c.Request.Context(), tenantID, c.Param("bot_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		text = m.OutboundGreeting
	}
	audio, err := h.Voice.Speak(c.Request.Context(), telephony.SpeakRequest{
		Text:     text,
		Voice:    m.Voice,
		Language: m.Language,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "audio/wav", audio)
}

func (h Handlers) BotAnalytics(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	m, err := h.Bots.Get(c.Request.Context(), tenantID, c.Param("bot_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	recs, err := h.Analytics.Query(c.Request.Context(), tenantID, m.ID, c.Query("recipient_number"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bot_id": m.ID, "calls": recs, "count": len(recs)})
}

// BotAnalyticsSummary accepts optional RFC3339 "from" and "to" bounds.
func (h Handlers) BotAnalyticsSummary(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	var r analytics.TimeRange
	for _, b := range []struct {
		name string
		dst  *time.Time
	}{{"from", &r.From}, {"to", &r.To}} {
		v := c.Query(b.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			badRequest(c, b.name+" must be RFC3339")
			return
		}
		*b.dst = t.UTC()
	}
	m, err := h.Bots.Get(c.Request.Context(), tenantID, c.Param("bot_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	s, err := h.Analytics.Summary(c.Request.Context(), tenantID, m.ID, r)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type languageView struct {
	Code   string   `json:"code"`
	Name   string   `json:"name"`
	Voices []string `json:"voices"`
}

func (h Handlers) SupportedLanguages(c *gin.Context) {
	codes := bots.LanguageCodes()
	out := make([]languageView, 0, len(codes))
	for _, code := range codes {
		out = append(out, languageView{Code: code, Name: bots.SupportedLanguages[code], Voices: bots.LanguageVoices[code]})
	}
	c.JSON(http.StatusOK, gin.H{"languages": out, "voices": bots.VoiceTypes})
}
