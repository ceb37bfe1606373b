package httpapi

import (
	"errors"
	"net/http"

	"voice-platform/internal/analytics"
	"voice-platform/internal/auth"
	"voice-platform/internal/bots"
	"voice-platform/internal/calls"
	"voice-platform/internal/llm"
	"voice-platform/internal/numbers"
	"voice-platform/internal/telephony"
	"voice-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Numbers   *numbers.Service
	Bots      *bots.Service
	Calls     *calls.Orchestrator
	Analytics *analytics.Service
	Chat      *llm.ChatEngine
	Voice     telephony.Provider
	Keys      *auth.KeyService
	Auth      *auth.Manager
}

// tenant returns the tenant set by the auth middleware, or aborts with 401.
func tenant(c *gin.Context) (string, bool) {
	id, err := auth.TenantID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "tenant_id required"})
		return "", false
	}
	return id, true
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// writeError maps domain errors to HTTP responses. Unknown errors are logged and hidden.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, ""
	switch {
	case errors.Is(err, numbers.ErrValidation), errors.Is(err, calls.ErrValidation), errors.Is(err, bots.ErrValidation),
		errors.Is(err, analytics.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, calls.ErrAmbiguousInput), errors.Is(err, calls.ErrNoRecipients),
		errors.Is(err, calls.ErrNoValidRecipients), errors.Is(err, calls.ErrInvalidFormat):
		status = http.StatusBadRequest
	case errors.Is(err, numbers.ErrNotFound), errors.Is(err, bots.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, numbers.ErrUnauthorized), errors.Is(err, calls.ErrUnauthorized), errors.Is(err, bots.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, numbers.ErrNumberNotOwned):
		status, code = http.StatusForbidden, "number_not_owned"
	case errors.Is(err, bots.ErrBotInactive):
		status, code = http.StatusLocked, "bot_inactive"
	case errors.Is(err, numbers.ErrNoPhoneNumber):
		status, code = http.StatusConflict, "no_phone_number"
	case errors.Is(err, numbers.ErrConflict), errors.Is(err, analytics.ErrDuplicateRecord):
		status = http.StatusConflict
	case errors.Is(err, calls.ErrConcurrencyLimit):
		status = http.StatusTooManyRequests
	case errors.Is(err, auth.ErrInvalidKind):
		status = http.StatusBadRequest
	case errors.Is(err, telephony.ErrUnsupported):
		status = http.StatusNotImplemented
	case errors.Is(err, telephony.ErrProviderRejected):
		status = http.StatusBadGateway
	case errors.Is(err, telephony.ErrProviderTimeout):
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", "path", c.FullPath(), "err", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	body := gin.H{"error": err.Error()}
	if code != "" {
		body["code"] = code
	}
	c.AbortWithStatusJSON(status, body)
}

func (h Handlers) Health(c *gin.Context) {
	if h.Voice != nil {
		if err := h.Voice.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "provider": h.Voice.Name()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
