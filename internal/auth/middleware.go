package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"voice-platform/internal/audit"
	"voice-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer "
	apiKeyHeader        = "X-API-Key"
)

// RequireAccessToken verifies a dashboard access token and injects identity into the request context.
// It does not perform role checks; those belong to internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(authorizationHeader))
		if raw == "" || !strings.HasPrefix(raw, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tok := strings.TrimPrefix(raw, bearerPrefix)

		claims, err := m.Verify(tok, TokenTypeAccess, time.Now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx := WithIdentity(c.Request.Context(), claims.UserID, claims.TenantID, claims.Role)
		ctx = audit.WithActor(ctx, "dashboard", c.ClientIP())
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", claims.UserID)
		c.Set("tenant_id", claims.TenantID)
		c.Set("role", claims.Role)

		c.Next()
	}
}

// Resolver maps a raw API key to its principal. Implemented by KeyService.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (Principal, error)
}

// RequireScope admits requests whose X-API-Key resolves to a key of the given kind.
func RequireScope(r Resolver, kind Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(apiKeyHeader))
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing api key"})
			return
		}
		p, err := r.Resolve(c.Request.Context(), raw)
		switch {
		case errors.Is(err, ErrInvalidKey), errors.Is(err, ErrKeyExpired):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		case err != nil:
			logger.FromGin(c).Error("api key resolution failed", "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}
		if p.Kind != kind {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": ErrForbidden.Error()})
			return
		}

		ctx := WithPrincipal(c.Request.Context(), p)
		ctx = audit.WithActor(ctx, string(p.Kind), c.ClientIP())
		c.Request = c.Request.WithContext(ctx)
		c.Set("tenant_id", p.TenantID)

		c.Next()
	}
}
