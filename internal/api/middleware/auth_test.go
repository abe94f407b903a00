package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"estatehub/listings/internal/api/middleware"
	"estatehub/listings/internal/auth"
)

const testSecret = "test-secret"

func whoAmIRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw...)
	router.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": middleware.CallerID(c), "isAdmin": c.GetBool(middleware.ContextKeyIsAdmin)})
	})
	return router
}

func get(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestOptionalAuthMiddleware(t *testing.T) {
	router := whoAmIRouter(middleware.OptionalAuthMiddleware(testSecret, zap.NewNop()))

	w := get(router, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"","isAdmin":false}`, w.Body.String())

	token, err := auth.GenerateJWT("65f1a2b3c4d5e6f708192a3b", false, testSecret, time.Hour)
	require.NoError(t, err)
	w = get(router, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"65f1a2b3c4d5e6f708192a3b","isAdmin":false}`, w.Body.String())

	w = get(router, "Bearer garbage")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"","isAdmin":false}`, w.Body.String())
}

func TestAuthMiddleware(t *testing.T) {
	router := whoAmIRouter(middleware.AuthMiddleware(testSecret))

	assert.Equal(t, http.StatusUnauthorized, get(router, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "Bearer garbage").Code)

	token, err := auth.GenerateJWT("u1", true, testSecret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(router, "Bearer "+token).Code)

	noSecret := whoAmIRouter(middleware.AuthMiddleware(""))
	assert.Equal(t, http.StatusUnauthorized, get(noSecret, "Bearer "+token).Code)
}

func TestAdminMiddleware(t *testing.T) {
	router := whoAmIRouter(middleware.OptionalAuthMiddleware(testSecret, zap.NewNop()), middleware.AdminMiddleware())

	assert.Equal(t, http.StatusUnauthorized, get(router, "").Code)

	userToken, err := auth.GenerateJWT("u1", false, testSecret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, get(router, "Bearer "+userToken).Code)

	adminToken, err := auth.GenerateJWT("u2", true, testSecret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, get(router, "Bearer "+adminToken).Code)
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	router := whoAmIRouter(middleware.CORSMiddleware())
	req := httptest.NewRequest(http.MethodOptions, "/whoami", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}
