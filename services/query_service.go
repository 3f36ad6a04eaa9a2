package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/tournament-teams/brackets"
	"github.com/Dosada05/tournament-teams/models"
	"github.com/Dosada05/tournament-teams/repositories"
	"golang.org/x/sync/errgroup"
)

// QueryService - только чтение, и только по активным командам.
type QueryService interface {
	ListActive(ctx context.Context) ([]models.TeamSummary, error)
	ListActiveWithPlayers(ctx context.Context) ([]models.TeamSummary, error)
	FindByCode(ctx context.Context, code string) (*models.TeamSummary, error)
	SearchByName(ctx context.Context, name string) ([]models.TeamSummary, error)
	StatusFor(ctx context.Context, playerID int) (*models.PlayerStatus, error)
	AggregateByGroup(ctx context.Context) ([]models.GroupStats, error)
	Overview(ctx context.Context) (*models.BracketStats, error)
}

type queryService struct {
	teamRepo   repositories.TeamRepository
	playerRepo repositories.PlayerRepository
	logger     *slog.Logger
}

func NewQueryService(teamRepo repositories.TeamRepository, playerRepo repositories.PlayerRepository, logger *slog.Logger) QueryService {
	return &queryService{
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
		logger:     loggerOrDefault(logger).With("service", "query"),
	}
}

func (s *queryService) ListActive(ctx context.Context) ([]models.TeamSummary, error) {
	teams, err := s.teamRepo.ListActive(ctx)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return summaries(teams), nil
}

func (s *queryService) ListActiveWithPlayers(ctx context.Context) ([]models.TeamSummary, error) {
	teams, err := s.teamRepo.ListActive(ctx)
	if err != nil {
		return nil, handleRepositoryError(err)
	}

	ids := make([]int, 0)
	for _, t := range teams {
		ids = append(ids, t.Roster...)
	}
	players, err := s.playerRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	byID := make(map[int]models.Player, len(players))
	for _, p := range players {
		byID[p.ID] = *p
	}

	out := summaries(teams)
	for i, t := range teams {
		out[i].Players = make([]models.Player, 0, len(t.Roster))
		for _, id := range t.Roster {
			if p, ok := byID[id]; ok {
				out[i].Players = append(out[i].Players, p)
			}
		}
	}
	return out, nil
}

func (s *queryService) FindByCode(ctx context.Context, code string) (*models.TeamSummary, error) {
	code = brackets.NormalizeJoinCode(code)
	if !brackets.ValidateJoinCode(code) {
		return nil, ErrInvalidJoinCode
	}

	team, err := s.teamRepo.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	summary := team.Summary()
	return &summary, nil
}

func (s *queryService) SearchByName(ctx context.Context, name string) ([]models.TeamSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	teams, err := s.teamRepo.SearchActiveByName(ctx, name)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return summaries(teams), nil
}

func (s *queryService) StatusFor(ctx context.Context, playerID int) (*models.PlayerStatus, error) {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if !player.Assigned() {
		return &models.PlayerStatus{Assigned: false}, nil
	}

	team, err := s.teamRepo.GetByID(ctx, *player.TeamID)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			s.logger.WarnContext(ctx, "player references missing team", "player_id", playerID, "team_id", *player.TeamID)
			return &models.PlayerStatus{Assigned: false}, nil
		}
		return nil, handleRepositoryError(err)
	}
	if !team.Active {
		s.logger.WarnContext(ctx, "player references inactive team", "player_id", playerID, "team_id", team.ID)
		return &models.PlayerStatus{Assigned: false}, nil
	}

	summary := team.Summary()
	return &models.PlayerStatus{Assigned: true, Team: &summary}, nil
}

func (s *queryService) AggregateByGroup(ctx context.Context) ([]models.GroupStats, error) {
	stats, err := s.teamRepo.AggregateByGroup(ctx)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return stats, nil
}

func (s *queryService) Overview(ctx context.Context) (*models.BracketStats, error) {
	var (
		teams    []*models.Team
		groups   []models.GroupStats
		assigned int
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		teams, err = s.teamRepo.ListActive(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		groups, err = s.teamRepo.AggregateByGroup(gCtx)
		return err
	})
	g.Go(func() error {
		var err error
		assigned, err = s.playerRepo.CountAssigned(gCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "failed to load bracket overview", "error", err)
		return nil, handleRepositoryError(err)
	}

	stats := &models.BracketStats{
		TotalTeams:      len(teams),
		AssignedPlayers: assigned,
		Groups:          groups,
	}
	for _, t := range teams {
		if t.HasVacancy() {
			stats.TeamsWithVacancy++
		}
	}
	return stats, nil
}
