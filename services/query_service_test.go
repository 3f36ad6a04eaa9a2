package services

import (
	"context"
	"testing"

	"github.com/Dosada05/tournament-teams/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryListActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	list, err := env.queries.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	env.build(t, 16, 4)
	list, err = env.queries.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, list, 16)

	for i := 1; i < len(list); i++ {
		prev, cur := list[i-1], list[i]
		assert.True(t, prev.Group < cur.Group || (prev.Group == cur.Group && prev.Name < cur.Name),
			"%s/%s before %s/%s", prev.Group, prev.Name, cur.Group, cur.Name)
	}
	assert.Equal(t, 4, list[0].Vacancy)
	assert.True(t, list[0].HasVacancy)
}

func TestQueryListActiveWithPlayers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teams := env.build(t, 4, 3)
	players := env.registerPlayers(t, 2)

	for _, p := range players {
		_, err := env.allocation.JoinByCode(ctx, p.ID, teams[0].Code)
		require.NoError(t, err)
	}

	list, err := env.queries.ListActiveWithPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	require.Len(t, list[0].Players, 2)
	assert.Equal(t, players[0].ID, list[0].Players[0].ID)
	assert.Equal(t, players[1].ID, list[0].Players[1].ID)
	assert.Empty(t, list[1].Players)
}

func TestQueryFindByCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teams := env.build(t, 4, 3)

	found, err := env.queries.FindByCode(ctx, teams[2].Code)
	require.NoError(t, err)
	assert.Equal(t, teams[2].ID, found.ID)
	assert.Equal(t, teams[2].Name, found.Name)

	_, err = env.queries.FindByCode(ctx, "AB1234")
	assert.ErrorIs(t, err, ErrInvalidJoinCode)

	_, err = env.allocation.DeactivateBracket(ctx)
	require.NoError(t, err)

	_, err = env.queries.FindByCode(ctx, teams[2].Code)
	assert.ErrorIs(t, err, ErrTeamNotFound)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuerySearchByName(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.build(t, 16, 3)

	found, err := env.queries.SearchByName(ctx, "team c")
	require.NoError(t, err)
	require.Len(t, found, 2)
	for _, s := range found {
		assert.Equal(t, "C", s.Group)
	}

	_, err = env.queries.SearchByName(ctx, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	found, err = env.queries.SearchByName(ctx, "nothing like this")
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestQueryStatusFor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teams := env.build(t, 4, 3)
	player := env.registerPlayers(t, 1)[0]

	status, err := env.queries.StatusFor(ctx, player.ID)
	require.NoError(t, err)
	assert.False(t, status.Assigned)
	assert.Nil(t, status.Team)

	_, err = env.allocation.JoinByCode(ctx, player.ID, teams[3].Code)
	require.NoError(t, err)

	status, err = env.queries.StatusFor(ctx, player.ID)
	require.NoError(t, err)
	assert.True(t, status.Assigned)
	require.NotNil(t, status.Team)
	assert.Equal(t, teams[3].ID, status.Team.ID)
	assert.Equal(t, 1, status.Team.Occupancy)

	_, err = env.queries.StatusFor(ctx, 424242)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestQueryAggregateAndOverview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	teams := env.build(t, 16, 1)
	players := env.registerPlayers(t, 3)

	// две команды группы A заполнены, одна из B
	for i, p := range players {
		_, err := env.allocation.JoinByCode(ctx, p.ID, teams[i].Code)
		require.NoError(t, err)
	}

	groups, err := env.queries.AggregateByGroup(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 8)
	assert.Equal(t, models.GroupStats{Group: "A", TeamCount: 2, PlayerCount: 2, CapacityTotal: 2}, groups[0])
	assert.Equal(t, models.GroupStats{Group: "B", TeamCount: 2, PlayerCount: 1, CapacityTotal: 2}, groups[1])
	assert.Equal(t, models.GroupStats{Group: "H", TeamCount: 2, PlayerCount: 0, CapacityTotal: 2}, groups[7])

	overview, err := env.queries.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, overview.TotalTeams)
	assert.Equal(t, 3, overview.AssignedPlayers)
	assert.Equal(t, 13, overview.TeamsWithVacancy)
	assert.Equal(t, groups, overview.Groups)
}

func TestQueryOverviewPersistenceFailure(t *testing.T) {
	env := newTestEnv(t)
	repo := &failingTeamRepo{TeamRepository: env.teams, listErr: errStoreDown}
	svc := NewQueryService(repo, env.players, nil)

	_, err := svc.Overview(context.Background())
	assert.ErrorIs(t, err, ErrPersistence)
}
