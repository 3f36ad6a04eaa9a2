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
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamFull         = errors.New("team has no vacancy")
	ErrTeamCodeConflict = errors.New("team code conflict")
	ErrBracketLive      = errors.New("active teams already exist")
)

// bracketLockKey - ключ advisory lock, сериализующий сборку сетки между процессами.
const bracketLockKey = 720_451

// TeamRepository - все изменения ростеров идут только через Join и DeactivateAll.
type TeamRepository interface {
	// CreateBracket сохраняет всю пачку атомарно и проставляет ID/CreatedAt.
	// Если активные команды уже есть, возвращает ErrBracketLive.
	CreateBracket(ctx context.Context, teams []*models.Team) error
	CountActive(ctx context.Context) (int, error)
	CodeInUse(ctx context.Context, code string) (bool, error)
	GetByID(ctx context.Context, id int) (*models.Team, error)
	GetActiveByCode(ctx context.Context, code string) (*models.Team, error)
	ListActive(ctx context.Context) ([]*models.Team, error)
	SearchActiveByName(ctx context.Context, name string) ([]*models.Team, error)
	AggregateByGroup(ctx context.Context) ([]models.GroupStats, error)
	// Join атомарно добавляет игрока в ростер и привязывает его к команде.
	Join(ctx context.Context, teamID, playerID int) (*models.Team, error)
	// DeactivateAll отвязывает игроков, очищает ростеры и выключает активные команды.
	DeactivateAll(ctx context.Context) (int, error)
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

const teamColumns = `id, name, code, group_label, capacity, roster, active, position, created_by, created_at`

func scanTeam(row rowScanner) (*models.Team, error) {
	var team models.Team
	var roster []int64
	err := row.Scan(
		&team.ID, &team.Name, &team.Code, &team.Group, &team.Capacity,
		pq.Array(&roster), &team.Active, &team.Position, &team.CreatedBy, &team.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	team.Roster = toInts(roster)
	return &team, nil
}

func scanTeams(rows *sql.Rows) ([]*models.Team, error) {
	defer rows.Close()

	teams := make([]*models.Team, 0)
	for rows.Next() {
		team, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		teams = append(teams, team)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team rows: %w", err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) CreateBracket(ctx context.Context, teams []*models.Team) error {
	if len(teams) == 0 {
		return nil
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, bracketLockKey); err != nil {
			return fmt.Errorf("failed to acquire bracket lock: %w", err)
		}

		var active int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams WHERE active`).Scan(&active); err != nil {
			return fmt.Errorf("failed to count active teams: %w", err)
		}
		if active > 0 {
			return ErrBracketLive
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO teams (name, code, group_label, capacity, roster, active, position, created_by)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7)
			RETURNING id, created_at`)
		if err != nil {
			return fmt.Errorf("failed to prepare team insert: %w", err)
		}
		defer stmt.Close()

		for _, team := range teams {
			err := stmt.QueryRowContext(ctx,
				team.Name, team.Code, team.Group, team.Capacity, pq.Array(toInt64s(team.Roster)), team.Position, team.CreatedBy,
			).Scan(&team.ID, &team.CreatedAt)
			if err != nil {
				if code, _ := pqErrorCode(err); code == pqUniqueViolation {
					return fmt.Errorf("%w: %s", ErrTeamCodeConflict, team.Code)
				}
				return fmt.Errorf("failed to insert team %q: %w", team.Name, err)
			}
			team.Active = true
		}
		return nil
	})
}

func (r *postgresTeamRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams WHERE active`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active teams: %w", err)
	}
	return count, nil
}

func (r *postgresTeamRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM teams WHERE code = $1 AND active)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check team code %s: %w", code, err)
	}
	return exists, nil
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE id = $1`
	team, err := scanTeam(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team by id %d: %w", id, err)
	}
	return team, nil
}

func (r *postgresTeamRepository) GetActiveByCode(ctx context.Context, code string) (*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE code = $1 AND active`
	team, err := scanTeam(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to get team by code %s: %w", code, err)
	}
	return team, nil
}

func (r *postgresTeamRepository) ListActive(ctx context.Context) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE active ORDER BY group_label, name, position`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active teams: %w", err)
	}
	return scanTeams(rows)
}

func (r *postgresTeamRepository) SearchActiveByName(ctx context.Context, name string) ([]*models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams
		WHERE active AND name ILIKE '%' || $1 || '%'
		ORDER BY group_label, name, position`
	rows, err := r.db.QueryContext(ctx, query, escapeLike(name))
	if err != nil {
		return nil, fmt.Errorf("failed to search teams by name: %w", err)
	}
	return scanTeams(rows)
}

func (r *postgresTeamRepository) AggregateByGroup(ctx context.Context) ([]models.GroupStats, error) {
	query := `
		SELECT group_label, COUNT(*), COALESCE(SUM(cardinality(roster)), 0), COALESCE(SUM(capacity), 0)
		FROM teams
		WHERE active
		GROUP BY group_label
		ORDER BY group_label`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate teams by group: %w", err)
	}
	defer rows.Close()

	stats := make([]models.GroupStats, 0, len(models.Groups))
	for rows.Next() {
		var s models.GroupStats
		if err := rows.Scan(&s.Group, &s.TeamCount, &s.PlayerCount, &s.CapacityTotal); err != nil {
			return nil, fmt.Errorf("failed to scan group stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *postgresTeamRepository) Join(ctx context.Context, teamID, playerID int) (*models.Team, error) {
	var joined *models.Team
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var err error
		joined, err = r.joinTx(ctx, tx, teamID, playerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// joinTx выполняет оба условных UPDATE внутри tx.
// Порядок блокировок как в DeactivateAll: сначала строка команды, затем строка игрока.
func (r *postgresTeamRepository) joinTx(ctx context.Context, tx *sql.Tx, teamID, playerID int) (*models.Team, error) {
	query := `
		UPDATE teams SET roster = array_append(roster, $2::integer)
		WHERE id = $1 AND active AND cardinality(roster) < capacity AND NOT ($2::integer = ANY(roster))
		RETURNING ` + teamColumns
	joined, err := scanTeam(tx.QueryRowContext(ctx, query, teamID, playerID))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to append player %d to team %d: %w", playerID, teamID, err)
		}
		return nil, r.explainRejectedJoin(ctx, tx, teamID, playerID)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE players SET team_id = $1 WHERE id = $2 AND team_id IS NULL`, teamID, playerID)
	if err != nil {
		if code, _ := pqErrorCode(err); code == pqForeignKeyViolation {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to assign player %d: %w", playerID, err)
	}
	if err := checkAffectedRows(res, ErrPlayerAssigned); err != nil {
		if !errors.Is(err, ErrPlayerAssigned) {
			return nil, err
		}
		// строка команды уже изменена, вызывающий откатит транзакцию
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM players WHERE id = $1)`, playerID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check player %d: %w", playerID, err)
		}
		if !exists {
			return nil, ErrPlayerNotFound
		}
		return nil, ErrPlayerAssigned
	}
	return joined, nil
}

// explainRejectedJoin определяет, почему условный UPDATE команды не затронул строк.
func (r *postgresTeamRepository) explainRejectedJoin(ctx context.Context, tx *sql.Tx, teamID, playerID int) error {
	team, err := scanTeam(tx.QueryRowContext(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, teamID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTeamNotFound
		}
		return fmt.Errorf("failed to reload team %d: %w", teamID, err)
	}
	switch {
	case !team.Active:
		return ErrTeamNotFound
	case team.HasPlayer(playerID):
		return ErrPlayerAssigned
	default:
		return ErrTeamFull
	}
}

func (r *postgresTeamRepository) DeactivateAll(ctx context.Context) (int, error) {
	var ids []int64

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		// UPDATE команд ждет незавершенные join, поэтому идет первым.
		rows, err := tx.QueryContext(ctx, `UPDATE teams SET active = FALSE, roster = '{}' WHERE active RETURNING id`)
		if err != nil {
			return fmt.Errorf("failed to deactivate teams: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return fmt.Errorf("failed to scan deactivated team id: %w", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating deactivated teams: %w", err)
		}
		rows.Close()

		if len(ids) == 0 {
			return nil
		}
		// отдельный запрос со свежим снимком видит игроков из только что закоммиченных join
		_, err = tx.ExecContext(ctx, `UPDATE players SET team_id = NULL WHERE team_id = ANY($1)`, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("failed to release players: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
