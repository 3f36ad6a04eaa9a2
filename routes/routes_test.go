package routes

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Dosada05/tournament-teams/brackets"
	"github.com/Dosada05/tournament-teams/handlers"
	"github.com/Dosada05/tournament-teams/middleware"
	"github.com/Dosada05/tournament-teams/repositories"
	"github.com/Dosada05/tournament-teams/services"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) http.Handler {
	t.Helper()

	store, err := repositories.NewMemoryStore()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := brackets.NewHub(logger)

	teamRepo, playerRepo := store.Teams(), store.Players()
	teamHandler := handlers.NewTeamHandler(
		services.NewBracketService(teamRepo, hub, logger),
		services.NewAllocationService(teamRepo, playerRepo, nil, hub, logger),
		services.NewQueryService(teamRepo, playerRepo, logger),
	)
	playerHandler := handlers.NewPlayerHandler(services.NewPlayerService(playerRepo, logger))

	router := chi.NewRouter()
	SetupRoutes(router, Options{
		JWTSecret:      []byte("routes-test-secret"),
		AllowedOrigins: []string{"https://app.example.com"},
		Logger:         logger,
	}, teamHandler, playerHandler, handlers.NewWebSocketHandler(hub, nil))
	return router
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestRequestIDIsPropagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	newRouter(t).ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(middleware.RequestIDHeader))
}

func TestSwaggerDoc(t *testing.T) {
	rec := httptest.NewRecorder()
	newRouter(t).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var doc struct {
		Swagger string                 `json:"swagger"`
		Paths   map[string]interface{} `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "2.0", doc.Swagger)
	assert.Contains(t, doc.Paths, "/teams/join/random")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/teams/bracket"},
		{http.MethodDelete, "/api/teams/bracket"},
		{http.MethodGet, "/api/teams/stats"},
		{http.MethodPost, "/api/teams/join"},
		{http.MethodGet, "/api/teams/me"},
		{http.MethodGet, "/api/players/1"},
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestPublicRoutes(t *testing.T) {
	router := newRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/teams/code/ABC123", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/teams/search?name=team", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/teams/join", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	newRouter(t).ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost))
}
