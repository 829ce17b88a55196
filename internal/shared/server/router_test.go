package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidebanai-backend/internal/credits"
	"slidebanai-backend/internal/pipeline"
	"slidebanai-backend/internal/presentations"
	"slidebanai-backend/internal/shared/auth"
	"slidebanai-backend/internal/shared/config"
	"slidebanai-backend/internal/shared/server/middleware"
	"slidebanai-backend/internal/shared/server/respond"
)

func testRouter(t *testing.T, perMinute int) (*auth.Signer, http.Handler) {
	t.Helper()
	signer, err := auth.NewSigner("router-test-secret", "test")
	require.NoError(t, err)

	creditSvc := credits.NewService(credits.DefaultPlan())
	presSvc := &presentations.Service{
		Repo:     presentations.NewMemoryRepo(),
		Pipeline: &pipeline.Orchestrator{Credits: creditSvc},
		Credits:  creditSvc,
	}
	r := NewRouter(RouterDeps{
		Config: config.Config{
			Env:                "test",
			CORSAllowOrigin:    []string{"http://localhost:5173"},
			RateLimitPerMinute: perMinute,
			RateLimitBurst:     perMinute,
		},
		Verifier:            signer,
		RateLimiter:         middleware.NewMemoryLimiter(nil),
		CreditsHandler:      credits.NewHandler(creditSvc),
		PresentationHandler: presentations.NewHandler(presSvc, 1<<20),
	})
	return signer, r
}

func TestHealthIsPublic(t *testing.T) {
	_, r := testRouter(t, 60)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestRootDescribesService(t *testing.T) {
	_, r := testRouter(t, 60)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SlideBanai API", body["name"])
	assert.Equal(t, "/api/v1/health", body["health"])
	assert.NotEmpty(t, body["version"])
}

func TestMeRequiresIdentity(t *testing.T) {
	_, r := testRouter(t, 60)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var body respond.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, respond.CodeAuthentication, body.Error.Code)
}

func TestMeForGuestAndTokenUsers(t *testing.T) {
	signer, r := testRouter(t, 60)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Guest-Id", "abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var guest map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &guest))
	assert.Equal(t, "guest:abc", guest["userId"])
	assert.Equal(t, true, guest["isGuest"])

	token, err := signer.Sign(auth.Claims{
		Email:            "ada@example.com",
		Plan:             "Pro",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var user map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(t, "user-1", user["userId"])
	assert.Equal(t, false, user["isGuest"])
	assert.Equal(t, "ada@example.com", user["email"])
	assert.Equal(t, "Pro", user["plan"])
}

func TestGenerationRoutesHaveTighterLimit(t *testing.T) {
	_, r := testRouter(t, 6)

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/presentations/outline", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Guest-Id", "limited")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := post()
	assert.NotEqual(t, http.StatusTooManyRequests, first.Code)
	second := post()
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// The default group still has room for the same caller.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/credits", nil)
	req.Header.Set("X-Guest-Id", "limited")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}
