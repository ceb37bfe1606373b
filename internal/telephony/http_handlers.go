package telephony

import (
	"context"
	"errors"
	"net/http"

	"voice-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CallFlow drives a call from provider callbacks. Implemented by the call lifecycle.
type CallFlow interface {
	Answer(ctx context.Context, ev AnswerEvent) (Script, error)
	Transcript(ctx context.Context, ev TranscriptEvent) (Script, error)
	CallEnded(ctx context.Context, ev HangupEvent) (CallEndedResult, error)
	Inbound(ctx context.Context, ev AnswerEvent) (Script, error)
}

// CallEndedResult is returned to the provider (and logged) after post-call processing.
type CallEndedResult struct {
	CallUUID   string  `json:"call_uuid"`
	Category   string  `json:"sentiment_category"`
	Confidence float64 `json:"confidence"`
	// Duplicate is set when the call was already analyzed by an earlier delivery.
	Duplicate bool `json:"duplicate"`
}

// ErrUnknownTarget marks callbacks for bots or numbers this service does not know.
var ErrUnknownTarget = errors.New("telephony: unknown callback target")

// VoiceWebhookHandler converts provider callbacks to internal events,
// delegates to the CallFlow, and writes Plivo XML.
//
// No business logic here.
// NOTE: these endpoints should sit behind provider signature validation at the edge.
type VoiceWebhookHandler struct {
	Flow CallFlow
}

const hangupOnError = "error"

func (h VoiceWebhookHandler) HandleAnswer(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Flow == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call flow not configured"})
		return
	}
	ev, err := ParseAnswerCallback(c.Request, c.Param("bot_id"))
	if err != nil {
		log.Warn("answer callback parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	script, err := h.Flow.Answer(c.Request.Context(), ev)
	if err != nil {
		log.Error("answer failed", "bot_id", ev.BotID, "call_uuid", ev.CallUUID, "err", err)
		script = Script{HangupReason: hangupOnError}
	}
	h.writeScript(c, script)
}

func (h VoiceWebhookHandler) HandleTranscript(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Flow == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call flow not configured"})
		return
	}
	ev, err := ParseTranscriptCallback(c.Request, c.Param("bot_id"))
	if err != nil {
		log.Warn("transcript callback parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	script, err := h.Flow.Transcript(c.Request.Context(), ev)
	if err != nil {
		log.Error("transcript turn failed", "bot_id", ev.BotID, "call_uuid", ev.CallUUID, "err", err)
		script = Script{HangupReason: hangupOnError}
	}
	h.writeScript(c, script)
}

func (h VoiceWebhookHandler) HandleCallEnded(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Flow == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call flow not configured"})
		return
	}
	ev, err := ParseHangupCallback(c.Request, c.Param("bot_id"))
	if err != nil {
		log.Warn("hangup callback parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	res, err := h.Flow.CallEnded(c.Request.Context(), ev)
	switch {
	case errors.Is(err, ErrUnknownTarget):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown bot"})
		return
	case err != nil:
		// 5xx lets the provider redeliver; the session is still open.
		log.Error("call-ended processing failed", "bot_id", ev.BotID, "call_uuid", ev.CallUUID, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}
	status := "analysis_completed"
	if res.Duplicate {
		status = "already_processed"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":             status,
		"call_uuid":          res.CallUUID,
		"sentiment_category": res.Category,
		"confidence":         res.Confidence,
	})
}

func (h VoiceWebhookHandler) HandleInbound(c *gin.Context) {
	log := logger.FromGin(c)
	if h.Flow == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "call flow not configured"})
		return
	}
	ev, err := ParseAnswerCallback(c.Request, "")
	if err != nil {
		log.Warn("inbound callback parse failed", "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	script, err := h.Flow.Inbound(c.Request.Context(), ev)
	if err != nil {
		log.Error("inbound routing failed", "to", ev.To, "err", err)
		script = Script{HangupReason: hangupOnError}
	}
	h.writeScript(c, script)
}

func (h VoiceWebhookHandler) writeScript(c *gin.Context, s Script) {
	out, err := RenderPlivoXML(s)
	if err != nil {
		logger.FromGin(c).Error("plivo xml render failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "xml failed"})
		return
	}
	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, out)
}
