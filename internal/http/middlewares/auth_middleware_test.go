package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/primeestates/primeestates/internal/auth"
	"github.com/primeestates/primeestates/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newProtectedRouter(m *middlewares.AuthMiddleware, requiredRole string) *gin.Engine {
	r := gin.New()

	group := r.Group("/secure", m.RequireAuth())

	if requiredRole != "" {
		group.Use(m.RequireRole(requiredRole))
	}

	group.GET("", func(c *gin.Context) {
		id, _ := middlewares.UserIDFromContext(c)
		role, _ := middlewares.RoleFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": id, "role": role})
	})

	return r
}

func TestRequireAuth(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Hour)
	m := middlewares.NewAuthMiddleware(manager, "token")

	valid, err := manager.GenerateSessionToken("u1", "user")

	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	foreign, err := auth.NewManager("other-secret", time.Hour).GenerateSessionToken("u1", "user")

	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	tests := []struct {
		name       string
		header     string
		cookie     string
		wantStatus int
	}{
		{"no credential", "", "", http.StatusUnauthorized},
		{"bearer token", "Bearer " + valid, "", http.StatusOK},
		{"cookie token", "", valid, http.StatusOK},
		{"forged token", "Bearer " + foreign, "", http.StatusUnauthorized},
		{"garbage header", "Bearer not.a.jwt", "", http.StatusUnauthorized},
		{"logged out cookie", "", "none", http.StatusUnauthorized},
	}

	r := newProtectedRouter(m, "")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)

			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "token", Value: tt.cookie})
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}

			if tt.wantStatus == http.StatusUnauthorized {
				want := `"Not authorized to access this route"`
				if body := w.Body.String(); !strings.Contains(body, want) {
					t.Fatalf("unexpected body: %s", body)
				}
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	manager := auth.NewManager("test-secret", time.Hour)
	m := middlewares.NewAuthMiddleware(manager, "token")

	r := newProtectedRouter(m, "admin")

	asRole := func(role string) *httptest.ResponseRecorder {
		token, err := manager.GenerateSessionToken("u1", role)

		if err != nil {
			t.Fatalf("token generation failed: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/secure", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		return w
	}

	if w := asRole("admin"); w.Code != http.StatusOK {
		t.Fatalf("admin should pass, got %d", w.Code)
	}

	w := asRole("user")

	if w.Code != http.StatusForbidden {
		t.Fatalf("user role should be forbidden, got %d", w.Code)
	}

	if body := w.Body.String(); !strings.Contains(body, "Role 'user' is not authorized to access this route") {
		t.Fatalf("unexpected body: %s", body)
	}
}
