package httpapi

import (
	"net/http"
	"strconv"

	"voice-platform/internal/numbers"
	"voice-platform/internal/telephony"

	"github.com/gin-gonic/gin"
)

func (h Handlers) SearchNumbers(c *gin.Context) {
	if _, ok := tenant(c); !ok {
		return
	}
	req := telephony.SearchRequest{
		CountryISO: c.Query("country_iso"),
		Type:       telephony.NumberType(c.Query("type")),
		Pattern:    c.Query("pattern"),
		Region:     c.Query("region"),
		Services:   c.Query("services"),
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		req.Limit = n
	}
	list, err := h.Numbers.SearchAvailable(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": list, "count": len(list)})
}

type buyNumberRequest struct {
	Number string `json:"number"`
	Alias  string `json:"alias"`
}

func (h Handlers) BuyNumber(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	var req buyNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	n, err := h.Numbers.Purchase(c.Request.Context(), tenantID, req.Number, req.Alias)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, n)
}

func (h Handlers) ListNumbers(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	f := numbers.ListFilter{
		ActiveOnly: c.Query("active_only") == "true",
		Type:       telephony.NumberType(c.Query("type")),
	}
	list, err := h.Numbers.ListForTenant(c.Request.Context(), tenantID, f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"numbers": list, "count": len(list)})
}

func (h Handlers) GetNumber(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	n, err := h.Numbers.Get(c.Request.Context(), tenantID, c.Param("number_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h Handlers) NumberUsage(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	u, err := h.Numbers.Usage(c.Request.Context(), tenantID, c.Param("number_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h Handlers) SetDefaultNumber(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	id := c.Param("number_id")
	if err := h.Numbers.SetDefault(c.Request.Context(), tenantID, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"number_id": id, "is_default": true})
}

type assignNumberRequest struct {
	BotID string `json:"bot_id"`
}

func (h Handlers) AssignNumber(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	var req assignNumberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	id := c.Param("number_id")
	if err := h.Numbers.AssignToBot(c.Request.Context(), tenantID, id, req.BotID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"number_id": id, "bot_id": req.BotID, "assignment": numbers.AssignmentDedicated})
}

func (h Handlers) ReleaseNumberFromBot(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	id := c.Param("number_id")
	if err := h.Numbers.ReleaseFromBot(c.Request.Context(), tenantID, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"number_id": id, "assignment": numbers.AssignmentPooled})
}

type aliasRequest struct {
	Alias string `json:"alias"`
}

func (h Handlers) UpdateNumberAlias(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	var req aliasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	n, err := h.Numbers.UpdateAlias(c.Request.Context(), tenantID, c.Param("number_id"), req.Alias)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (h Handlers) ReleaseNumber(c *gin.Context) {
	tenantID, ok := tenant(c)
	if !ok {
		return
	}
	id := c.Param("number_id")
	if err := h.Numbers.Release(c.Request.Context(), tenantID, id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"number_id": id, "status": numbers.StatusReleased})
}
