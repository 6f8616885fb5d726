package httpapi

import (
	"deployment-tracker/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Register mounts the /v1 API on r. authMW must verify access tokens;
// loginLimit guards the login endpoint and may be nil.
func (h Handlers) Register(r gin.IRouter, authMW, loginLimit gin.HandlerFunc) {
	v1 := r.Group("/v1")

	// AUTH routes (public)
	authGroup := v1.Group("/auth")
	{
		login := []gin.HandlerFunc{h.Login}
		if loginLimit != nil {
			login = append([]gin.HandlerFunc{loginLimit}, login...)
		}
		authGroup.POST("/login", login...)
		authGroup.POST("/refresh", h.Refresh)
	}

	protected := v1.Group("")
	protected.Use(authMW, rbac.RequireKnownRole())
	{
		protected.GET("/me", h.Me)
		protected.POST("/me/password", h.ChangePassword)
		protected.GET("/dashboard/summary", h.DashboardSummary)

		// DEPLOYMENT routes
		deps := protected.Group("/deployments")
		{
			read := rbac.RequireAnyRole(rbac.RoleTechnician, rbac.RoleViewer)
			write := rbac.RequireAnyRole(rbac.RoleTechnician)

			deps.GET("", read, h.ListDeployments)
			deps.GET("/:id", read, h.GetDeployment)
			deps.POST("", write, h.CreateDeployment)
			deps.PUT("", write, h.UpdateDeployment)
		}

		// ADMIN routes
		admin := protected.Group("/admin")
		admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin))
		{
			admin.GET("/users", h.ListUsers)
			admin.POST("/users", h.CreateUser)
			admin.PATCH("/users/:id", h.UpdateUser)
			admin.DELETE("/users/:id", h.DeleteUser)

			admin.GET("/audit-logs", h.ListAuditLogs)
			admin.POST("/audit-logs/:id/restore", h.RestoreUser)
		}
	}
}
