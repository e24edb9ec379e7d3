package rbac

import (
	"net/http"

	"kidcoms-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireFamilyFile enforces the tenancy invariant: family_file_id must exist
// in context. Every session, message and permission row is scoped to one
// family file; a token without one cannot act at all.
func RequireFamilyFile() gin.HandlerFunc {
	return func(c *gin.Context) {
		fid, err := auth.FamilyFileID(c.Request.Context())
		if err != nil || fid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "family_file_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows access if the caller has any of the provided roles.
// There is no bypass role: parents administer permissions but do not gain
// access to child-only or contact-only call actions through this check.
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}
		if !IsKnownRole(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		if _, ok := allowedSet[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
