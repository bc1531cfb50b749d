package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnqbao/gau-focus-service/config"
	"github.com/tnqbao/gau-focus-service/http/controller"
	"github.com/tnqbao/gau-focus-service/infra"
	"github.com/tnqbao/gau-focus-service/pipeline"
	"github.com/tnqbao/gau-focus-service/repository"
)

const (
	testAPIKey    = "test-api-key-123"
	testJWTSecret = "route-test-secret"
)

type testServer struct {
	router *gin.Engine
	store  *repository.MemoryJobRepository
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := &config.EnvConfig{Version: "test", Port: "0"}
	env.Auth.APIKeys = []string{testAPIKey}
	env.Auth.JWTSecretKey = testJWTSecret
	env.Grafana.ServiceName = "focus-test"

	signer, err := minio.New("localhost:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("focus-tracker", "focus-tracker-secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)

	logger := infra.NewNopLoggerClient()
	store := repository.NewMemoryJobRepository()
	coordinator := pipeline.NewCoordinator(
		store,
		pipeline.NewSimulatedProcessor("720p", 0),
		pipeline.NewPresignedUploader(signer, "focus-media", time.Hour),
		pipeline.Options{Logger: logger},
	)

	ctrl := controller.NewController(
		&config.Config{EnvConfig: env},
		&infra.Infra{Logger: logger, RateLimiter: infra.NewRateLimiter(nil, rateLimit, time.Minute)},
		repository.NewRepository(store),
		coordinator,
	)
	return &testServer{router: SetupRouter(ctrl), store: store}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded), w.Body.String())
	return w.Code, decoded
}

func apiKey() map[string]string {
	return map[string]string{"x-api-key": testAPIKey}
}

func sessionBody(owner string) gin.H {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	body := gin.H{
		"startTime": start.Format(time.RFC3339),
		"endTime":   start.Add(90 * time.Minute).Format(time.RFC3339),
		"mediaRef":  "session.mp4",
	}
	if owner != "" {
		body["ownerId"] = owner
	}
	return body
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t, 100)

	code, body := s.do(t, http.MethodGet, "/api/focus-session", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "API key is required", body["message"])

	code, body = s.do(t, http.MethodGet, "/api/focus-session", nil, map[string]string{"x-api-key": "wrong-key-value"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "wrong-ke...", body["providedKey"])

	code, _ = s.do(t, http.MethodGet, "/api/focus-session?apiKey="+testAPIKey, nil, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/focus-session", nil, map[string]string{"Authorization": "Bearer not-a-token"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCreateFocusSessionCompletes(t *testing.T) {
	s := newTestServer(t, 100)

	code, body := s.do(t, http.MethodPost, "/api/focus-session", sessionBody("user-1"), apiKey())
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, true, body["success"])

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "user-1", data["ownerId"])
	assert.Equal(t, float64(90), data["durationMinutes"])
	assert.Equal(t, "COMPLETED", data["state"])
	assert.NotEmpty(t, data["id"])

	locations := data["storageLocations"].(map[string]interface{})
	assert.Contains(t, locations, "compressed")
	assert.Contains(t, locations, "audio")

	id := data["id"].(string)
	code, body = s.do(t, http.MethodGet, "/api/focus-session/"+id+"/logs", nil, apiKey())
	require.Equal(t, http.StatusOK, code)
	report := body["data"].(map[string]interface{})
	assert.Equal(t, id, report["jobId"])
	assert.Equal(t, "COMPLETED", report["state"])
	assert.Greater(t, report["logCount"].(float64), float64(5))

	code, body = s.do(t, http.MethodGet, "/api/focus-session/"+id, nil, apiKey())
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "session.mp4", body["data"].(map[string]interface{})["mediaRef"])
}

func TestCreateFocusSessionValidation(t *testing.T) {
	s := newTestServer(t, 100)

	body := sessionBody("user-1")
	delete(body, "mediaRef")
	code, resp := s.do(t, http.MethodPost, "/api/focus-session", body, apiKey())
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Missing required fields: mediaRef", resp["message"])

	body = sessionBody("user-1")
	body["endTime"] = body["startTime"]
	code, resp = s.do(t, http.MethodPost, "/api/focus-session", body, apiKey())
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "End time must be after start time", resp["message"])

	code, _ = s.do(t, http.MethodPost, "/api/focus-session", gin.H{"startTime": "yesterday"}, apiKey())
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateFocusSessionAsync(t *testing.T) {
	s := newTestServer(t, 100)

	code, body := s.do(t, http.MethodPost, "/api/focus-session?async=true", sessionBody("user-2"), apiKey())
	require.Equal(t, http.StatusAccepted, code, body)
	id := body["data"].(map[string]interface{})["id"].(string)

	require.Eventually(t, func() bool {
		_, resp := s.do(t, http.MethodGet, "/api/focus-session/"+id, nil, apiKey())
		data, ok := resp["data"].(map[string]interface{})
		return ok && data["state"] == "COMPLETED"
	}, 5*time.Second, 10*time.Millisecond)

	code, body = s.do(t, http.MethodPost, "/api/focus-session/"+id+"/resume", nil, apiKey())
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, body["success"])
}

func TestListFocusSessions(t *testing.T) {
	s := newTestServer(t, 100)
	for _, owner := range []string{"alice", "bob", "alice"} {
		code, _ := s.do(t, http.MethodPost, "/api/focus-session", sessionBody(owner), apiKey())
		require.Equal(t, http.StatusCreated, code)
	}

	code, body := s.do(t, http.MethodGet, "/api/focus-session?ownerId=alice", nil, apiKey())
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["count"])

	code, body = s.do(t, http.MethodGet, "/api/focus-session?limit=1&order=asc", nil, apiKey())
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["count"])

	code, _ = s.do(t, http.MethodGet, "/api/focus-session?state=DONE", nil, apiKey())
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/focus-session?order=sideways", nil, apiKey())
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	s := newTestServer(t, 100)

	for _, path := range []string{"/api/focus-session/missing", "/api/focus-session/missing/logs"} {
		code, body := s.do(t, http.MethodGet, path, nil, apiKey())
		assert.Equal(t, http.StatusNotFound, code, path)
		assert.Equal(t, "Focus session not found", body["message"])
	}

	code, _ := s.do(t, http.MethodPost, "/api/focus-session/missing/resume", nil, apiKey())
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/api/nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestCreateIsRateLimited(t *testing.T) {
	s := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		code, _ := s.do(t, http.MethodPost, "/api/focus-session", sessionBody("user-1"), apiKey())
		require.Equal(t, http.StatusCreated, code)
	}

	code, body := s.do(t, http.MethodPost, "/api/focus-session", sessionBody("user-1"), apiKey())
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Greater(t, body["retryAfter"].(float64), float64(0))

	// reads are not limited
	code, _ = s.do(t, http.MethodGet, "/api/focus-session", nil, apiKey())
	assert.Equal(t, http.StatusOK, code)
}

func TestBearerTokenSuppliesOwner(t *testing.T) {
	s := newTestServer(t, 100)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "token-user",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	code, body := s.do(t, http.MethodPost, "/api/focus-session", sessionBody(""), map[string]string{
		"Authorization": "Bearer " + signed,
	})
	require.Equal(t, http.StatusCreated, code, body)
	assert.Equal(t, "token-user", body["data"].(map[string]interface{})["ownerId"])
}

func TestHealthAndWelcome(t *testing.T) {
	s := newTestServer(t, 100)

	code, body := s.do(t, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, float64(0), body["activeRuns"])

	code, body = s.do(t, http.MethodGet, "/", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "endpoints")
}
