package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"facestream/internal/core/domain"
	"facestream/pkg/config"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, issuer, subject string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authTestRouter(cfg *config.Config) (*gin.Engine, *domain.UserID) {
	gin.SetMode(gin.TestMode)

	var seen domain.UserID
	router := gin.New()
	router.Use(AuthMiddleware(cfg))
	router.GET("/whoami", func(c *gin.Context) {
		userID, _ := UserFromContext(c)
		seen = userID
		c.Status(http.StatusOK)
	})
	return router, &seen
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	cfg := config.DefaultConfig()
	router, seen := authTestRouter(cfg)

	token := signToken(t, cfg.Auth.JWTSecret, cfg.Auth.Issuer, "alice@example.com")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.UserID("alice@example.com"), *seen)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	router, _ := authTestRouter(config.DefaultConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	router, _ := authTestRouter(config.DefaultConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	cfg := config.DefaultConfig()
	router, _ := authTestRouter(cfg)

	token := signToken(t, "some-other-secret", cfg.Auth.Issuer, "alice")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_WrongIssuer(t *testing.T) {
	cfg := config.DefaultConfig()
	router, _ := authTestRouter(cfg)

	token := signToken(t, cfg.Auth.JWTSecret, "someone-else", "alice")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	cfg := config.DefaultConfig()
	router, _ := authTestRouter(cfg)

	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    cfg.Auth.Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Auth.JWTSecret))
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
