package httpapi

import (
	"net/http"

	"hr-platform/internal/auth"
	"hr-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func RegisterRoutes(r *gin.Engine, h Handlers) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/logout", h.Logout)
	}

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(h.Guard))
	{
		v1.GET("/me", h.Me)

		// Resource endpoints live in their own services; they share this gate.
		v1.GET("/leave", rbac.RequirePermission(h.Guard, rbac.PermLeaveRead), NotImplemented)
		v1.GET("/payroll", rbac.RequirePermission(h.Guard, rbac.PermPayrollRead), NotImplemented)
		v1.GET("/documents", rbac.RequirePermission(h.Guard, rbac.PermDocumentsRead), NotImplemented)

		// Staff roles only; a permission claim alone does not open the admin surface.
		admin := v1.Group("/admin")
		admin.Use(
			rbac.RequireAnyRole(rbac.RoleHRManager),
			rbac.RequirePermission(h.Guard, rbac.PermSessionsRevoke),
		)
		{
			admin.POST("/sessions/:session_id/revoke", h.AdminRevokeSession)
			admin.POST("/subjects/:subject_id/revoke", h.AdminRevokeSubject)
		}
	}
}
