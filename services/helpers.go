package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/Dosada05/tournament-teams/models"
	"github.com/Dosada05/tournament-teams/repositories"
)

// EventPublisher получает события сетки после успешной записи. Реализация не должна блокировать.
type EventPublisher interface {
	Publish(eventType string, payload interface{})
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, interface{}) {}

// BracketArchiver сохраняет снимок живой сетки перед деактивацией. Возвращает ключ объекта.
type BracketArchiver interface {
	Archive(ctx context.Context, teams []*models.Team) (string, error)
}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

// handleRepositoryError переводит ошибки хранилища в ошибки сервиса.
// Все неизвестное считается сбоем хранилища и оборачивается в ErrPersistence.
func handleRepositoryError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, repositories.ErrTeamNotFound):
		return ErrTeamNotFound
	case errors.Is(err, repositories.ErrPlayerNotFound):
		return ErrPlayerNotFound
	case errors.Is(err, repositories.ErrTeamFull):
		return ErrTeamFull
	case errors.Is(err, repositories.ErrPlayerAssigned):
		return ErrAlreadyAssigned
	case errors.Is(err, repositories.ErrBracketLive):
		return ErrBracketAlreadyLive
	default:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
}

// leastOccupied выбирает команду с местом и минимальной заполненностью.
// При равенстве побеждает более ранняя по созданию (Position, затем ID).
func leastOccupied(teams []*models.Team) *models.Team {
	candidates := make([]*models.Team, 0, len(teams))
	for _, t := range teams {
		if t.Active && t.HasVacancy() {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Occupancy() != b.Occupancy() {
			return a.Occupancy() < b.Occupancy()
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
	return candidates[0]
}

func summaries(teams []*models.Team) []models.TeamSummary {
	out := make([]models.TeamSummary, len(teams))
	for i, t := range teams {
		out[i] = t.Summary()
	}
	return out
}
