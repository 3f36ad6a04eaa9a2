package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-teams/models"
	"github.com/lib/pq"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrPlayerAssigned = errors.New("player already assigned to a team")
)

type PlayerRepository interface {
	Create(ctx context.Context, player *models.Player) error
	GetByID(ctx context.Context, id int) (*models.Player, error)
	// ListByIDs возвращает профили в порядке ids, отсутствующие пропускаются.
	ListByIDs(ctx context.Context, ids []int) ([]*models.Player, error)
	CountAssigned(ctx context.Context) (int, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

const playerColumns = `id, first_name, last_name, position, team_id, created_at`

func scanPlayer(row rowScanner) (*models.Player, error) {
	var p models.Player
	var teamID sql.NullInt64
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Position, &teamID, &p.CreatedAt); err != nil {
		return nil, err
	}
	if teamID.Valid {
		id := int(teamID.Int64)
		p.TeamID = &id
	}
	return &p, nil
}

func (r *postgresPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	query := `INSERT INTO players (first_name, last_name, position) VALUES ($1, $2, $3) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, player.FirstName, player.LastName, player.Position).
		Scan(&player.ID, &player.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	player.TeamID = nil
	return nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	player, err := scanPlayer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player by id %d: %w", id, err)
	}
	return player, nil
}

func (r *postgresPlayerRepository) ListByIDs(ctx context.Context, ids []int) ([]*models.Player, error) {
	if len(ids) == 0 {
		return []*models.Player{}, nil
	}

	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ANY($1)`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(toInt64s(ids)))
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	byID := make(map[int]*models.Player, len(ids))
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rows: %w", err)
	}

	players := make([]*models.Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			players = append(players, p)
		}
	}
	return players, nil
}

func (r *postgresPlayerRepository) CountAssigned(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players WHERE team_id IS NOT NULL`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count assigned players: %w", err)
	}
	return count, nil
}
