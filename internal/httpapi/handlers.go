package httpapi

import (
	"context"
	"errors"
	"net/http"

	"deployment-tracker/internal/accounts"
	"deployment-tracker/internal/audit"
	"deployment-tracker/internal/auth"
	"deployment-tracker/internal/deployments"
	"deployment-tracker/internal/identity"
	"deployment-tracker/internal/reporting"
	"deployment-tracker/pkg/logger"

	"github.com/gin-gonic/gin"
)

// DeploymentStore is the deployment record store as used by the API.
type DeploymentStore interface {
	ListAll(ctx context.Context) ([]deployments.Record, error)
	Get(ctx context.Context, id string) (deployments.Record, error)
	Create(ctx context.Context, rec deployments.Record) (deployments.Record, error)
	UpdateFull(ctx context.Context, rec deployments.Record) (deployments.UpdateResult, error)
	UpdateFields(ctx context.Context, rec deployments.Record, changed []string) (deployments.UpdateResult, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth        *auth.Manager
	Accounts    *accounts.Service
	Audit       *audit.Service
	Deployments DeploymentStore
	Reports     *reporting.Service
}

// actor returns the caller as recorded in audit entries.
func actor(c *gin.Context) (audit.Actor, bool) {
	id, err := auth.FromContext(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return audit.Actor{}, false
	}
	return audit.Actor{UserID: id.UserID, Email: id.Email}, true
}

// writeError maps service errors to a status and a JSON body. Server-side
// failures are logged with their cause and answered with a generic message.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch {
	case status == http.StatusBadGateway:
		msg = "upstream service unavailable"
	case status >= http.StatusInternalServerError:
		msg = "internal error"
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logger.FromGin(c).Error("request failed", "status", status, "err", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, identity.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, deployments.ErrMissingIdentifier),
		errors.Is(err, accounts.ErrInvalidArgument),
		errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrInvalidPassword),
		errors.Is(err, reporting.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, deployments.ErrRecordNotFound),
		errors.Is(err, audit.ErrNotFound),
		errors.Is(err, accounts.ErrNotFound),
		errors.Is(err, identity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, audit.ErrInvalidAction),
		errors.Is(err, audit.ErrInvalidEntry):
		return http.StatusUnprocessableEntity
	case errors.Is(err, deployments.ErrRemoteRead),
		errors.Is(err, deployments.ErrRemoteWrite),
		errors.Is(err, deployments.ErrMissingHeader),
		errors.Is(err, accounts.ErrIdentityProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
