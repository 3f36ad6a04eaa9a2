package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dosada05/tournament-teams/middleware"
	"github.com/Dosada05/tournament-teams/models"
	"github.com/Dosada05/tournament-teams/repositories"
	"github.com/Dosada05/tournament-teams/services"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/require"
)

const testSecret = "handlers-test-secret"

type testServer struct {
	t       *testing.T
	router  chi.Router
	players services.PlayerService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := repositories.NewMemoryStore()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	teamRepo, playerRepo := store.Teams(), store.Players()

	bracketService := services.NewBracketService(teamRepo, nil, logger)
	allocationService := services.NewAllocationService(teamRepo, playerRepo, nil, nil, logger)
	queryService := services.NewQueryService(teamRepo, playerRepo, logger)
	playerService := services.NewPlayerService(playerRepo, logger)

	teamHandler := NewTeamHandler(bracketService, allocationService, queryService)
	teamHandler.newJoinBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, randomJoinRetries)
	}
	playerHandler := NewPlayerHandler(playerService)

	authenticate := middleware.Authenticate([]byte(testSecret))
	r := chi.NewRouter()
	r.Route("/teams", func(r chi.Router) {
		r.Get("/code/{code}", teamHandler.GetByCode)
		r.Get("/search", teamHandler.Search)
		r.Group(func(r chi.Router) {
			r.Use(authenticate, middleware.Authorize(models.RoleAdmin))
			r.Post("/bracket", teamHandler.BuildBracket)
			r.Delete("/bracket", teamHandler.DeactivateBracket)
			r.Get("/", teamHandler.ListTeams)
			r.Get("/stats", teamHandler.Stats)
			r.Get("/groups", teamHandler.GroupStats)
		})
		r.Group(func(r chi.Router) {
			r.Use(authenticate, middleware.Authorize(models.RolePlayer))
			r.Post("/join", teamHandler.JoinByCode)
			r.Post("/join/random", teamHandler.JoinRandom)
			r.Get("/me", teamHandler.MyStatus)
		})
	})
	r.Route("/players", func(r chi.Router) {
		r.Use(authenticate, middleware.Authorize(models.RoleAdmin, models.RoleCoach))
		r.Post("/", playerHandler.Register)
		r.Get("/{playerID}", playerHandler.GetByID)
	})

	return &testServer{t: t, router: r, players: playerService}
}

func signToken(t *testing.T, userID int, role models.UserRole) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) admin() string {
	return signToken(s.t, 1, models.RoleAdmin)
}

// buildBracket создает сетку и возвращает команды из ответа.
func (s *testServer) buildBracket(size, capacity int) []models.TeamSummary {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/teams/bracket", s.admin(), map[string]int{"size": size, "capacity": capacity})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Count int                  `json:"count"`
		Teams []models.TeamSummary `json:"teams"`
	}
	decode(s.t, rec, &resp)
	require.Equal(s.t, size, resp.Count)
	return resp.Teams
}

// registerPlayer возвращает токен игрока с его id.
func (s *testServer) registerPlayer(name string) (int, string) {
	s.t.Helper()
	player, err := s.players.Register(context.Background(), services.RegisterPlayerInput{
		FirstName: name,
		LastName:  "Test",
		Position:  "MF",
	})
	require.NoError(s.t, err)
	return player.ID, signToken(s.t, player.ID, models.RolePlayer)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	decode(t, rec, &resp)
	return resp.Error
}

// unusedCode подбирает валидный код, которого нет в сетке.
func unusedCode(teams []models.TeamSummary) string {
	inUse := make(map[string]bool, len(teams))
	for _, team := range teams {
		inUse[team.Code] = true
	}
	for i := 0; ; i++ {
		code := fmt.Sprintf("ZZZ%03d", i)
		if !inUse[code] {
			return code
		}
	}
}
