package main

import (
	"voice-platform/internal/auth"
	"voice-platform/internal/httpapi"
	"voice-platform/internal/rbac"
	"voice-platform/internal/telephony"

	"github.com/gin-gonic/gin"
)

// Keep this file free of business logic. Handlers delegate to internal modules.

// registerPublicRoutes wires health and provider callbacks.
// NOTE: callbacks should sit behind Plivo signature validation at the edge.
func registerPublicRoutes(r *gin.Engine, h httpapi.Handlers, voice telephony.VoiceWebhookHandler) {
	r.GET("/healthz", h.Health)

	hooks := r.Group("/webhooks/voice")
	{
		hooks.POST("/inbound", voice.HandleInbound)
		hooks.POST("/inbound/hangup", voice.HandleCallEnded)

		hooks.GET("/:bot_id/answer", voice.HandleAnswer)
		hooks.POST("/:bot_id/answer", voice.HandleAnswer)
		hooks.POST("/:bot_id/transcript", voice.HandleTranscript)
		hooks.POST("/:bot_id/call-ended", voice.HandleCallEnded)
	}
}

// registerAuthRoutes wires dashboard-authenticated routes. The token issue route
// skips credential checks and is not mounted when locked.
func registerAuthRoutes(r *gin.Engine, h httpapi.Handlers, m *auth.Manager, locked bool) {
	v1 := r.Group("/v1")
	if !locked {
		v1.POST("/auth/token", h.IssueToken)
	}

	keys := v1.Group("/api-keys")
	keys.Use(auth.RequireAccessToken(m), rbac.RequireTenant(), rbac.RequireAnyRole(rbac.KeyManagers...))
	{
		keys.POST("", h.IssueKey)
	}
}

// registerTenantRoutes wires the X-API-Key protected tenant API.
func registerTenantRoutes(r *gin.Engine, h httpapi.Handlers, keys auth.Resolver) {
	v1 := r.Group("/v1")

	nums := v1.Group("/numbers")
	nums.Use(auth.RequireScope(keys, auth.KindVirtualNumbers))
	{
		nums.GET("/search", h.SearchNumbers)
		nums.POST("", h.BuyNumber)
		nums.GET("", h.ListNumbers)
		nums.GET("/:number_id", h.GetNumber)
		nums.GET("/:number_id/usage", h.NumberUsage)
		nums.POST("/:number_id/default", h.SetDefaultNumber)
		nums.POST("/:number_id/assign", h.AssignNumber)
		nums.POST("/:number_id/release-from-bot", h.ReleaseNumberFromBot)
		nums.PATCH("/:number_id/alias", h.UpdateNumberAlias)
		nums.DELETE("/:number_id", h.ReleaseNumber)
	}

	vb := v1.Group("/voice-bots")
	vb.Use(auth.RequireScope(keys, auth.KindVoice))
	{
		vb.POST("", h.CreateBot)
		vb.GET("", h.ListBots)
		vb.GET("/languages", h.SupportedLanguages)
		vb.GET("/:bot_id/status", h.BotStatus)
		vb.PUT("/:bot_id/voice", h.ConfigureVoice)
		vb.PUT("/:bot_id/active", h.ToggleActive)
		vb.POST("/:bot_id/credential", h.RotateCredential)
		vb.GET("/:bot_id/numbers", h.BotNumbers)
		vb.POST("/:bot_id/test-call", h.TestCall)
		vb.POST("/:bot_id/bulk-call", h.BulkCall)
		vb.POST("/:bot_id/chat", h.ChatTest)
		vb.POST("/:bot_id/preview-voice", h.PreviewVoice)
		vb.GET("/:bot_id/analytics", h.BotAnalytics)
		vb.GET("/:bot_id/analytics/summary", h.BotAnalyticsSummary)
	}
}
