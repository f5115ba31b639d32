package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecolink-dev/ecolink/internal/auth"
)

const testSecret = "test-secret"

func newAuthRouter(t *testing.T) (*gin.Engine, *auth.RevocationStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	revocations := auth.NewRevocationStore(rdb, time.Hour)

	r := gin.New()
	r.GET("/me", Auth(testSecret, revocations), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": c.GetString(CtxUID), "role": c.GetString(CtxRole)})
	})
	r.GET("/admin", Auth(testSecret, revocations), RequireAdmin(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, revocations
}

func do(r *gin.Engine, token string, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r, _ := newAuthRouter(t)

	token, err := auth.IssueToken(testSecret, time.Hour, "u1", "u1@example.com", "ciudadano")
	require.NoError(t, err)

	w := do(r, token, "/me")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"uid":"u1"`)

	assert.Equal(t, http.StatusUnauthorized, do(r, "", "/me").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "not-a-token", "/me").Code)

	other, err := auth.IssueToken("other-secret", time.Hour, "u1", "", "ciudadano")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, other, "/me").Code)
}

func TestAuthMiddlewareRevocation(t *testing.T) {
	r, revocations := newAuthRouter(t)

	token, err := auth.IssueToken(testSecret, time.Hour, "u1", "", "ciudadano")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, do(r, token, "/me").Code)

	require.NoError(t, revocations.Revoke(context.Background(), "u1"))
	w := do(r, token, "/me")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "revoked")
}

func TestRequireAdminGate(t *testing.T) {
	r, _ := newAuthRouter(t)

	citizen, err := auth.IssueToken(testSecret, time.Hour, "u1", "", "ciudadano")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(r, citizen, "/admin").Code)

	admin, err := auth.IssueToken(testSecret, time.Hour, "u2", "", "admin")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(r, admin, "/admin").Code)
}
