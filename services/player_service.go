package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/Dosada05/tournament-teams/models"
	"github.com/Dosada05/tournament-teams/repositories"
)

const (
	maxNameLength     = 100
	maxPositionLength = 50
)

type RegisterPlayerInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Position  string `json:"position"`
}

// PlayerService ведет профили игроков, которых потом распределяют по командам.
type PlayerService interface {
	Register(ctx context.Context, input RegisterPlayerInput) (*models.Player, error)
	GetByID(ctx context.Context, id int) (*models.Player, error)
}

type playerService struct {
	playerRepo repositories.PlayerRepository
	logger     *slog.Logger
}

func NewPlayerService(playerRepo repositories.PlayerRepository, logger *slog.Logger) PlayerService {
	return &playerService{
		playerRepo: playerRepo,
		logger:     loggerOrDefault(logger).With("service", "player"),
	}
}

func (s *playerService) Register(ctx context.Context, input RegisterPlayerInput) (*models.Player, error) {
	player := &models.Player{
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Position:  strings.TrimSpace(input.Position),
	}
	if player.FirstName == "" || player.LastName == "" {
		return nil, fmt.Errorf("%w: first_name and last_name are required", ErrValidation)
	}
	// длины в символах, а не в байтах: кириллица занимает по два байта
	if utf8.RuneCountInString(player.FirstName) > maxNameLength || utf8.RuneCountInString(player.LastName) > maxNameLength {
		return nil, fmt.Errorf("%w: names must be at most %d characters", ErrValidation, maxNameLength)
	}
	if utf8.RuneCountInString(player.Position) > maxPositionLength {
		return nil, fmt.Errorf("%w: position must be at most %d characters", ErrValidation, maxPositionLength)
	}

	if err := s.playerRepo.Create(ctx, player); err != nil {
		s.logger.ErrorContext(ctx, "failed to create player", "error", err)
		return nil, handleRepositoryError(err)
	}
	s.logger.InfoContext(ctx, "player registered", "player_id", player.ID)
	return player, nil
}

func (s *playerService) GetByID(ctx context.Context, id int) (*models.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, handleRepositoryError(err)
	}
	return player, nil
}
