package main

import (
	"kidcoms-platform/internal/httpapi"
	"kidcoms-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// AUTH routes (token issuance).
	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/refresh", h.Refresh)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.Use(rbac.RequireFamilyFile())
	{
		// SESSION routes. Any family member may look at or leave a session;
		// creation is for the two calling sides only, never the parent.
		sessionsGroup := v1.Group("/sessions")
		{
			sessionsGroup.POST("", rbac.RequireAnyRole(rbac.RoleChild, rbac.RoleCircleContact), h.CreateSession)
			sessionsGroup.GET("", h.ListSessions)
			sessionsGroup.GET("/:session_id", h.GetSession)
			sessionsGroup.POST("/:session_id/join", h.JoinSession)
			sessionsGroup.POST("/:session_id/end", h.EndSession)

			// MESSAGE routes (chat overlay inside a session)
			sessionsGroup.GET("/:session_id/messages", h.ListMessages)
			sessionsGroup.POST("/:session_id/messages", h.SendMessage)
		}

		// PERMISSION routes
		perms := v1.Group("/permissions")
		{
			perms.GET("", rbac.RequireAnyRole(rbac.RoleParent), h.ListPermissions)
			perms.PUT("", rbac.RequireAnyRole(rbac.RoleParent), h.UpsertPermission)
			perms.GET("/mine", rbac.RequireAnyRole(rbac.RoleCircleContact), h.MyPermissions)
		}

		// INCOMING CALL routes (polling surface for the ringing state machine)
		calls := v1.Group("/incoming-calls")
		{
			calls.GET("", h.MyIncomingCalls)
			calls.POST("/:session_id/accept", h.AcceptIncomingCall)
			calls.POST("/:session_id/reject", h.RejectIncomingCall)
		}

		// AUDIT routes (parent-visible family activity log)
		v1.GET("/audit-events", rbac.RequireAnyRole(rbac.RoleParent), h.ListAuditEvents)
	}
}
