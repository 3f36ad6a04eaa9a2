package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dosada05/tournament-teams/brackets"
	"github.com/Dosada05/tournament-teams/models"
	"github.com/Dosada05/tournament-teams/repositories"
)

type BuildBracketInput struct {
	Size      int `json:"size"`
	Capacity  int `json:"capacity"`
	CreatorID int `json:"-"`
}

type BracketService interface {
	BuildBracket(ctx context.Context, input BuildBracketInput) ([]*models.Team, error)
}

type codeGenerator func(ctx context.Context, exists brackets.CodeChecker) (string, error)

type bracketService struct {
	teamRepo     repositories.TeamRepository
	publisher    EventPublisher
	logger       *slog.Logger
	generateCode codeGenerator
}

func NewBracketService(teamRepo repositories.TeamRepository, publisher EventPublisher, logger *slog.Logger) BracketService {
	return &bracketService{
		teamRepo:     teamRepo,
		publisher:    publisherOrNoop(publisher),
		logger:       loggerOrDefault(logger).With("service", "bracket"),
		generateCode: brackets.GenerateJoinCode,
	}
}

func (s *bracketService) BuildBracket(ctx context.Context, input BuildBracketInput) ([]*models.Team, error) {
	if err := brackets.ValidateSize(input.Size); err != nil {
		return nil, err
	}

	active, err := s.teamRepo.CountActive(ctx)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	if active > 0 {
		return nil, fmt.Errorf("%w: %d active teams", ErrBracketAlreadyLive, active)
	}

	capacity := models.ClampCapacity(input.Capacity)

	// Коды должны быть уникальны и среди активных команд, и внутри самой пачки.
	reserved := make(map[string]struct{}, input.Size)
	exists := func(ctx context.Context, code string) (bool, error) {
		if _, ok := reserved[code]; ok {
			return true, nil
		}
		return s.teamRepo.CodeInUse(ctx, code)
	}

	teams := make([]*models.Team, 0, input.Size)
	for i := 0; i < input.Size; i++ {
		code, err := s.generateCode(ctx, exists)
		if err != nil {
			if errors.Is(err, brackets.ErrGenerationExhausted) {
				s.logger.ErrorContext(ctx, "join code space exhausted", "index", i, "size", input.Size)
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		reserved[code] = struct{}{}

		group := brackets.GroupForIndex(i, input.Size)
		teams = append(teams, &models.Team{
			Name:      brackets.TeamName(group, i),
			Code:      code,
			Group:     group,
			Capacity:  capacity,
			Roster:    []int{},
			Active:    true,
			Position:  i,
			CreatedBy: input.CreatorID,
		})
	}

	if err := s.teamRepo.CreateBracket(ctx, teams); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist bracket", "size", input.Size, "error", err)
		return nil, handleRepositoryError(err)
	}

	s.logger.InfoContext(ctx, "bracket created", "size", input.Size, "capacity", capacity, "creator_id", input.CreatorID)
	s.publisher.Publish(brackets.EventBracketCreated, brackets.BracketCreatedPayload{Size: input.Size, Capacity: capacity})

	return teams, nil
}
