package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-teams/brackets"
)

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("not found")

	// Ошибки валидации
	ErrValidation         = errors.New("validation failed")
	ErrInvalidBracketSize = brackets.ErrInvalidSize
	ErrInvalidJoinCode    = errors.New("join code must be 3 letters followed by 3 digits")

	// Конфликты состояния
	ErrBracketAlreadyLive = errors.New("a bracket with active teams already exists")
	ErrTeamFull           = errors.New("team is full")
	ErrNoVacancy          = errors.New("no active team has a vacancy")
	ErrAlreadyAssigned    = errors.New("player is already assigned to a team")

	// Ошибки, специфичные для сущностей, оборачивают ErrNotFound
	ErrTeamNotFound   = fmt.Errorf("team %w", ErrNotFound)
	ErrPlayerNotFound = fmt.Errorf("player %w", ErrNotFound)
	ErrCodeNotFound   = fmt.Errorf("active team with this code %w", ErrNotFound)

	// Инфраструктура
	ErrGenerationExhausted = brackets.ErrGenerationExhausted
	ErrPersistence         = errors.New("persistence failure")
)
