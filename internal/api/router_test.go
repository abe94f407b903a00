package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"estatehub/listings/internal/api"
	"estatehub/listings/internal/auth"
	"estatehub/listings/internal/config"
	"estatehub/listings/internal/metrics"
	"estatehub/listings/internal/models"
	"estatehub/listings/internal/repository"
	"estatehub/listings/internal/services"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc := services.NewListingService(repository.NewMemoryListingRepository(), nil, nil, nil, zap.NewNop())
	return api.SetupRouter(ctx, cfg, svc, nil, metrics.New(), zap.NewNop())
}

func testConfig() *config.Config {
	return &config.Config{
		JwtSecret:           testSecret,
		RateLimitBucketSize: 1000,
		RateLimitRefillRate: 1000,
	}
}

func call(r *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Ping(t *testing.T) {
	r := newTestRouter(t, testConfig())
	w := call(r, http.MethodGet, "/ping", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())
}

func TestRouter_CreateAttachesCallerFromToken(t *testing.T) {
	r := newTestRouter(t, testConfig())
	owner := "65f1a2b3c4d5e6f708192a3b"
	token, err := auth.GenerateJWT(owner, false, testSecret, time.Hour)
	require.NoError(t, err)

	w := call(r, http.MethodPost, "/listings", `{"title":"Mine"}`, token)
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotNil(t, created.CreatedBy)
	assert.Equal(t, owner, created.CreatedBy.Hex())

	w = call(r, http.MethodGet, "/listings/status/draft?userId="+owner, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var mine []models.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Len(t, mine, 1)
}

func TestRouter_ModerationRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	cfg.ModerationRequiresAdmin = true
	r := newTestRouter(t, cfg)

	w := call(r, http.MethodPost, "/listings", `{"title":"Pending review"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	path := "/listings/" + created.ID.Hex() + "/approve"

	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodPatch, path, "", "").Code)

	userToken, err := auth.GenerateJWT("65f1a2b3c4d5e6f708192a3b", false, testSecret, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodPatch, path, "", userToken).Code)

	adminToken, err := auth.GenerateJWT("65f1a2b3c4d5e6f708192a3c", true, testSecret, time.Hour)
	require.NoError(t, err)
	w = call(r, http.MethodPatch, path, "", adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"approved"`)
}

func TestRouter_ModerationOpenByDefault(t *testing.T) {
	r := newTestRouter(t, testConfig())

	w := call(r, http.MethodPost, "/listings", `{"title":"Anyone can moderate"}`, "")
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Listing
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = call(r, http.MethodPatch, "/listings/"+created.ID.Hex()+"/reject", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"rejected"`)
}

func TestRouter_UploadsRequireAuth(t *testing.T) {
	r := newTestRouter(t, testConfig())
	body := `{"filename":"a.png","contentType":"image/png"}`

	w := call(r, http.MethodPost, "/listings/uploads", body, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = call(r, http.MethodPost, "/listings/uploads", body, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := auth.GenerateJWT("65f1a2b3c4d5e6f708192a3b", false, testSecret, time.Hour)
	require.NoError(t, err)
	w = call(r, http.MethodPost, "/listings/uploads", body, token)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_UploadsRefusedWithoutSecret(t *testing.T) {
	cfg := testConfig()
	cfg.JwtSecret = ""
	r := newTestRouter(t, cfg)

	token, err := auth.GenerateJWT("65f1a2b3c4d5e6f708192a3b", false, testSecret, time.Hour)
	require.NoError(t, err)
	w := call(r, http.MethodPost, "/listings/uploads", `{"filename":"a.png","contentType":"image/png"}`, token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
