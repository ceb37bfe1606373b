package httpapi

import (
	"net/http"
	"time"

	"voice-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

type issueKeyRequest struct {
	Kind auth.Kind `json:"kind"`
	Name string    `json:"name"`
}

// IssueKey creates a tenant API key. The raw key appears only in this response.
// RBAC: key managers of the token's tenant.
func (h Handlers) IssueKey(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	var req issueKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	k, err := h.Keys.Issue(c.Request.Context(), tenantID, req.Kind, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, k)
}

type tokenRequest struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
}

// IssueToken issues a JWT token pair without checking credentials.
// Only registered outside staging and production.
func (h Handlers) IssueToken(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.UserID == "" || req.TenantID == "" || req.Role == "" {
		badRequest(c, "user_id, tenant_id, role required")
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.TenantID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, pair)
}
