package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"kidcoms-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

func identityMW(id auth.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func TestRequireAnyRole_AllowsListedRole(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x",
		identityMW(auth.Identity{UserID: "u", FamilyFileID: "f", Role: RoleChild}),
		RequireFamilyFile(), RequireAnyRole(RoleChild, RoleCircleContact),
		func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequireAnyRole_ParentHasNoBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x",
		identityMW(auth.Identity{UserID: "u", FamilyFileID: "f", Role: RoleParent}),
		RequireFamilyFile(), RequireAnyRole(RoleChild),
		func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	if w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireAnyRole_UnknownRoleDenied(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x",
		identityMW(auth.Identity{UserID: "u", FamilyFileID: "f", Role: "admin"}),
		RequireFamilyFile(), RequireAnyRole(RoleParent),
		func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	if w.Code != 403 {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestRequireFamilyFile_MissingIs401(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/x",
		identityMW(auth.Identity{UserID: "u", Role: RoleParent}),
		RequireFamilyFile(), RequireAnyRole(RoleParent),
		func(c *gin.Context) { c.Status(200) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	if w.Code != 401 {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}
