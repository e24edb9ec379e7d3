package httpapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kidcoms-platform/internal/sessions"
	"kidcoms-platform/internal/transport"

	"github.com/gin-gonic/gin"
)

func statusFor(t *testing.T, err error) (int, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	writeServiceError(c, err)
	return w.Code, w.Body.String()
}

func TestWriteServiceError_Taxonomy(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{sessions.ErrValidation, http.StatusBadRequest},
		{sessions.ErrNotFound, http.StatusNotFound},
		{sessions.ErrNotJoinable, http.StatusConflict},
		{sessions.ErrPermissionDenied, http.StatusForbidden},
		{transport.ErrTransport, http.StatusBadGateway},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got, _ := statusFor(t, tc.err); got != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}

func TestWriteServiceError_PermissionReasonSurfaces(t *testing.T) {
	err := fmt.Errorf("%w: %s", sessions.ErrPermissionDenied, "outside allowed hours")
	code, body := statusFor(t, err)
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	if want := `"reason":"outside allowed hours"`; !strings.Contains(body, want) {
		t.Fatalf("reason missing from body: %s", body)
	}
}
