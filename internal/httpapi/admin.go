package httpapi

import (
	"net/http"
	"strconv"

	"deployment-tracker/internal/accounts"
	"deployment-tracker/internal/audit"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListUsers(c *gin.Context) {
	list, err := h.Accounts.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if list == nil {
		list = []accounts.Account{}
	}
	c.JSON(http.StatusOK, list)
}

func (h Handlers) CreateUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req accounts.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	acct, err := h.Accounts.Create(c.Request.Context(), a, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, acct)
}

func (h Handlers) UpdateUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	var req accounts.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	acct, err := h.Accounts.Update(c.Request.Context(), a, c.Param("id"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

// DeleteUser removes the account; the audit entry keeps enough to restore it.
func (h Handlers) DeleteUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	if err := h.Accounts.Delete(c.Request.Context(), a, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type auditListResponse struct {
	Entries []audit.Entry `json:"entries"`
	HasMore bool          `json:"hasMore"`
	Limit   int           `json:"limit"`
	Offset  int           `json:"offset"`
}

// ListAuditLogs pages newest-first. Query: limit, offset, action_type.
// hasMore is set when the page is full.
func (h Handlers) ListAuditLogs(c *gin.Context) {
	limit, ok := queryInt(c, "limit", audit.DefaultListLimit)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}
	if offset < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "offset must be >= 0"})
		return
	}
	limit = audit.NormalizeLimit(limit)

	entries, err := h.Audit.List(c.Request.Context(), audit.Filter{ActionType: audit.ActionType(c.Query("action_type"))}, limit, offset)
	if err != nil {
		writeError(c, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	c.JSON(http.StatusOK, auditListResponse{
		Entries: entries,
		HasMore: len(entries) == limit,
		Limit:   limit,
		Offset:  offset,
	})
}

// RestoreUser recreates a deleted account from its delete entry. The
// temporary password is only ever returned here.
func (h Handlers) RestoreUser(c *gin.Context) {
	a, ok := actor(c)
	if !ok {
		return
	}
	res, err := h.Accounts.Restore(c.Request.Context(), a, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, res)
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": name + " must be an integer"})
		return 0, false
	}
	return n, true
}
