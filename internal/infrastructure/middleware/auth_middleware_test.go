package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"talentwire/internal/core/domain"
	"talentwire/internal/core/services"
	"talentwire/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(auth services.AuthService, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handlers := append([]gin.HandlerFunc{middleware.AuthMiddleware(auth)}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		identity, _ := middleware.IdentityFromContext(c)
		c.JSON(http.StatusOK, gin.H{"userId": identity.UserID, "role": identity.Role})
	})
	router.GET("/protected", handlers...)
	return router
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	auth := services.NewAuthService("test-secret", time.Minute)
	router := newAuthRouter(auth)

	token, err := auth.GenerateToken("user-1", "a@b.com", domain.RoleInterviewer)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-1")
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	auth := services.NewAuthService("test-secret", time.Minute)
	other := services.NewAuthService("other-secret", time.Minute)
	router := newAuthRouter(auth)

	foreignToken, err := other.GenerateToken("user-1", "a@b.com", domain.RoleHR)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"malformed header", "token-without-scheme"},
		{"wrong scheme", "Basic abc"},
		{"wrong secret", "Bearer " + foreignToken},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	auth := services.NewAuthService("test-secret", time.Minute)
	router := newAuthRouter(auth, middleware.RequireRole(domain.RoleHR, domain.RoleAdmin))

	hrToken, err := auth.GenerateToken("hr-1", "hr@b.com", domain.RoleHR)
	require.NoError(t, err)
	candToken, err := auth.GenerateToken("cand-1", "c@b.com", domain.RoleCandidate)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+hrToken)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+candToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
