package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Dosada05/tournament-teams/brackets"
	"github.com/Dosada05/tournament-teams/models"
	"github.com/Dosada05/tournament-teams/repositories"
)

// AllocationService - единственный путь, которым игрок попадает в ростер.
// Проверки перед записью дают понятную ошибку, но гарантию дает только условная запись в Join.
type AllocationService interface {
	JoinByCode(ctx context.Context, playerID int, code string) (*models.Team, error)
	JoinRandom(ctx context.Context, playerID int) (*models.Team, error)
	DeactivateBracket(ctx context.Context) (int, error)
}

type allocationService struct {
	teamRepo   repositories.TeamRepository
	playerRepo repositories.PlayerRepository
	archiver   BracketArchiver
	publisher  EventPublisher
	logger     *slog.Logger
}

// archiver может быть nil: тогда снимок сетки перед деактивацией не сохраняется.
func NewAllocationService(
	teamRepo repositories.TeamRepository,
	playerRepo repositories.PlayerRepository,
	archiver BracketArchiver,
	publisher EventPublisher,
	logger *slog.Logger,
) AllocationService {
	return &allocationService{
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
		archiver:   archiver,
		publisher:  publisherOrNoop(publisher),
		logger:     loggerOrDefault(logger).With("service", "allocation"),
	}
}

func (s *allocationService) JoinByCode(ctx context.Context, playerID int, code string) (*models.Team, error) {
	code = brackets.NormalizeJoinCode(code)
	if !brackets.ValidateJoinCode(code) {
		return nil, ErrInvalidJoinCode
	}

	if err := s.ensureUnassigned(ctx, playerID); err != nil {
		return nil, err
	}

	team, err := s.teamRepo.GetActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, handleRepositoryError(err)
	}
	if !team.HasVacancy() {
		return nil, ErrTeamFull
	}

	return s.join(ctx, team.ID, playerID)
}

func (s *allocationService) JoinRandom(ctx context.Context, playerID int) (*models.Team, error) {
	if err := s.ensureUnassigned(ctx, playerID); err != nil {
		return nil, err
	}

	teams, err := s.teamRepo.ListActive(ctx)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	target := leastOccupied(teams)
	if target == nil {
		return nil, ErrNoVacancy
	}

	return s.join(ctx, target.ID, playerID)
}

func (s *allocationService) ensureUnassigned(ctx context.Context, playerID int) error {
	player, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return handleRepositoryError(err)
	}
	if player.Assigned() {
		return ErrAlreadyAssigned
	}
	return nil
}

func (s *allocationService) join(ctx context.Context, teamID, playerID int) (*models.Team, error) {
	team, err := s.teamRepo.Join(ctx, teamID, playerID)
	if err != nil {
		mapped := handleRepositoryError(err)
		if errors.Is(mapped, ErrPersistence) {
			s.logger.ErrorContext(ctx, "join failed", "team_id", teamID, "player_id", playerID, "error", err)
		} else {
			s.logger.InfoContext(ctx, "join rejected", "team_id", teamID, "player_id", playerID, "reason", mapped)
		}
		return nil, mapped
	}

	s.logger.InfoContext(ctx, "player joined team", "team_id", team.ID, "player_id", playerID, "occupancy", team.Occupancy())
	s.publisher.Publish(brackets.EventTeamJoined, brackets.TeamJoinedPayload{
		TeamID:    team.ID,
		TeamName:  team.Name,
		Group:     team.Group,
		PlayerID:  playerID,
		Occupancy: team.Occupancy(),
		Capacity:  team.Capacity,
	})
	return team, nil
}

func (s *allocationService) DeactivateBracket(ctx context.Context) (int, error) {
	teams, err := s.teamRepo.ListActive(ctx)
	if err != nil {
		return 0, handleRepositoryError(err)
	}
	if len(teams) == 0 {
		return 0, nil
	}

	if s.archiver != nil {
		key, err := s.archiver.Archive(ctx, teams)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to archive bracket before deactivation", "error", err)
		} else {
			s.logger.InfoContext(ctx, "bracket archived", "key", key, "teams", len(teams))
		}
	}

	count, err := s.teamRepo.DeactivateAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to deactivate bracket", "error", err)
		return 0, handleRepositoryError(err)
	}

	if count > 0 {
		s.logger.InfoContext(ctx, "bracket deactivated", "deactivated_count", count)
		s.publisher.Publish(brackets.EventBracketDeactivated, brackets.BracketDeactivatedPayload{DeactivatedCount: count})
	}
	return count, nil
}
