package httpapi

import (
	"errors"
	"net/http"
	"time"

	"deployment-tracker/internal/accounts"
	"deployment-tracker/internal/auth"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken        string           `json:"access_token"`
	RefreshToken       string           `json:"refresh_token"`
	NeedsPasswordReset bool             `json:"needs_password_reset"`
	User               accounts.Account `json:"user"`
}

// Login checks credentials and issues a JWT token pair.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	acct, err := h.Accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	h.issue(c, acct)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new pair carrying the current role.
func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	acct, err := h.Accounts.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, accounts.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account no longer exists"})
			return
		}
		writeError(c, err)
		return
	}
	h.issue(c, acct)
}

func (h Handlers) issue(c *gin.Context, acct accounts.Account) {
	pair, err := h.Auth.IssuePair(time.Now(), auth.Identity{UserID: acct.ID, Email: acct.Email, Role: acct.Role})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:        pair.AccessToken,
		RefreshToken:       pair.RefreshToken,
		NeedsPasswordReset: acct.NeedsPasswordReset,
		User:               acct,
	})
}

// Me returns the caller's account.
func (h Handlers) Me(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	acct, err := h.Accounts.Get(c.Request.Context(), uid)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	Password        string `json:"password"`
}

// ChangePassword sets the caller's password. The current password is
// required unless the account is flagged for reset.
func (h Handlers) ChangePassword(c *gin.Context) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "password required"})
		return
	}

	ctx := c.Request.Context()
	acct, err := h.Accounts.Get(ctx, uid)
	if err != nil {
		writeError(c, err)
		return
	}
	if !acct.NeedsPasswordReset {
		if _, err := h.Accounts.Authenticate(ctx, acct.Email, req.CurrentPassword); err != nil {
			writeError(c, err)
			return
		}
	}

	updated, err := h.Accounts.ChangePassword(ctx, uid, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
