package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/Dosada05/tournament-teams/models"
	"github.com/Dosada05/tournament-teams/repositories"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(eventType string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *recordingPublisher) Events() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type stubArchiver struct {
	calls int
	teams int
	err   error
}

func (a *stubArchiver) Archive(_ context.Context, teams []*models.Team) (string, error) {
	a.calls++
	a.teams = len(teams)
	if a.err != nil {
		return "", a.err
	}
	return "brackets/test.json", nil
}

type testEnv struct {
	teams      repositories.TeamRepository
	players    repositories.PlayerRepository
	publisher  *recordingPublisher
	archiver   *stubArchiver
	brackets   BracketService
	allocation AllocationService
	queries    QueryService
	profiles   PlayerService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := repositories.NewMemoryStore()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		teams:     store.Teams(),
		players:   store.Players(),
		publisher: &recordingPublisher{},
		archiver:  &stubArchiver{},
	}
	env.brackets = NewBracketService(env.teams, env.publisher, logger)
	env.allocation = NewAllocationService(env.teams, env.players, env.archiver, env.publisher, logger)
	env.queries = NewQueryService(env.teams, env.players, logger)
	env.profiles = NewPlayerService(env.players, logger)
	return env
}

func (e *testEnv) build(t *testing.T, size, capacity int) []*models.Team {
	t.Helper()
	teams, err := e.brackets.BuildBracket(context.Background(), BuildBracketInput{Size: size, Capacity: capacity, CreatorID: 1})
	require.NoError(t, err)
	return teams
}

func (e *testEnv) registerPlayers(t *testing.T, n int) []*models.Player {
	t.Helper()
	players := make([]*models.Player, n)
	for i := range players {
		p, err := e.profiles.Register(context.Background(), RegisterPlayerInput{
			FirstName: "Marta",
			LastName:  fmt.Sprintf("Vieira %d", i),
			Position:  "forward",
		})
		require.NoError(t, err)
		players[i] = p
	}
	return players
}

// failingTeamRepo ломает выбранные методы поверх настоящего хранилища.
type failingTeamRepo struct {
	repositories.TeamRepository
	createErr  error
	codeInUse  func(ctx context.Context, code string) (bool, error)
	listErr    error
	deactivate error
}

func (r *failingTeamRepo) CreateBracket(ctx context.Context, teams []*models.Team) error {
	if r.createErr != nil {
		return r.createErr
	}
	return r.TeamRepository.CreateBracket(ctx, teams)
}

func (r *failingTeamRepo) CodeInUse(ctx context.Context, code string) (bool, error) {
	if r.codeInUse != nil {
		return r.codeInUse(ctx, code)
	}
	return r.TeamRepository.CodeInUse(ctx, code)
}

func (r *failingTeamRepo) ListActive(ctx context.Context) ([]*models.Team, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.TeamRepository.ListActive(ctx)
}

func (r *failingTeamRepo) DeactivateAll(ctx context.Context) (int, error) {
	if r.deactivate != nil {
		return 0, r.deactivate
	}
	return r.TeamRepository.DeactivateAll(ctx)
}

var errStoreDown = errors.New("connection refused")
