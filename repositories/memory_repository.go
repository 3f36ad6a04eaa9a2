package repositories

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Dosada05/tournament-teams/models"
	"github.com/hashicorp/go-memdb"
)

const (
	tableTeams   = "teams"
	tablePlayers = "players"

	indexID     = "id"
	indexActive = "active"
	indexCode   = "code"
)

// MemoryStore - хранилище на go-memdb для STORAGE_DRIVER=memory и тестов.
// Пишущие транзакции memdb выполняются строго по одной, поэтому проверка и запись в Join атомарны.
// Объекты внутри memdb не меняются на месте: всегда Clone, затем Insert.
type MemoryStore struct {
	db        *memdb.MemDB
	teamSeq   atomic.Int64
	playerSeq atomic.Int64
	now       func() time.Time
}

func memorySchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableTeams: {
				Name: tableTeams,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
					indexActive: {
						Name:    indexActive,
						Indexer: &memdb.BoolFieldIndex{Field: "Active"},
					},
					indexCode: {
						Name:    indexCode,
						Indexer: &memdb.StringFieldIndex{Field: "Code"},
					},
				},
			},
			tablePlayers: {
				Name: tablePlayers,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
				},
			},
		},
	}
}

func NewMemoryStore() (*MemoryStore, error) {
	db, err := memdb.NewMemDB(memorySchema())
	if err != nil {
		return nil, fmt.Errorf("failed to create memdb: %w", err)
	}
	return &MemoryStore{db: db, now: time.Now}, nil
}

func (s *MemoryStore) Teams() TeamRepository {
	return &memoryTeamRepository{store: s}
}

func (s *MemoryStore) Players() PlayerRepository {
	return &memoryPlayerRepository{store: s}
}

func activeTeams(txn *memdb.Txn) ([]*models.Team, error) {
	it, err := txn.Get(tableTeams, indexActive, true)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate active teams: %w", err)
	}
	teams := make([]*models.Team, 0)
	for obj := it.Next(); obj != nil; obj = it.Next() {
		teams = append(teams, obj.(*models.Team))
	}
	return teams, nil
}

func cloneTeams(teams []*models.Team) []*models.Team {
	out := make([]*models.Team, len(teams))
	for i, t := range teams {
		out[i] = t.Clone()
	}
	return out
}

func sortByGroupAndName(teams []*models.Team) {
	sort.SliceStable(teams, func(i, j int) bool {
		if teams[i].Group != teams[j].Group {
			return teams[i].Group < teams[j].Group
		}
		if teams[i].Name != teams[j].Name {
			return teams[i].Name < teams[j].Name
		}
		return teams[i].Position < teams[j].Position
	})
}

type memoryTeamRepository struct {
	store *MemoryStore
}

func (r *memoryTeamRepository) CreateBracket(ctx context.Context, teams []*models.Team) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(teams) == 0 {
		return nil
	}

	txn := r.store.db.Txn(true)
	defer txn.Abort()

	live, err := activeTeams(txn)
	if err != nil {
		return err
	}
	if len(live) > 0 {
		return ErrBracketLive
	}

	seen := make(map[string]struct{}, len(teams))
	created := make([]*models.Team, 0, len(teams))
	now := r.store.now().UTC()
	for _, team := range teams {
		if _, dup := seen[team.Code]; dup {
			return fmt.Errorf("%w: %s", ErrTeamCodeConflict, team.Code)
		}
		seen[team.Code] = struct{}{}

		row := team.Clone()
		row.ID = int(r.store.teamSeq.Add(1))
		row.Active = true
		row.CreatedAt = now
		if row.Roster == nil {
			row.Roster = []int{}
		}
		if err := txn.Insert(tableTeams, row); err != nil {
			return fmt.Errorf("failed to insert team %q: %w", team.Name, err)
		}
		created = append(created, row)
	}
	txn.Commit()

	for i, row := range created {
		teams[i].ID = row.ID
		teams[i].Active = true
		teams[i].CreatedAt = row.CreatedAt
		teams[i].Roster = []int{}
	}
	return nil
}

func (r *memoryTeamRepository) CountActive(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	txn := r.store.db.Txn(false)
	teams, err := activeTeams(txn)
	if err != nil {
		return 0, err
	}
	return len(teams), nil
}

func (r *memoryTeamRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	_, err := r.GetActiveByCode(ctx, code)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrTeamNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (r *memoryTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := r.store.db.Txn(false)
	obj, err := txn.First(tableTeams, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get team by id %d: %w", id, err)
	}
	if obj == nil {
		return nil, ErrTeamNotFound
	}
	return obj.(*models.Team).Clone(), nil
}

func (r *memoryTeamRepository) GetActiveByCode(ctx context.Context, code string) (*models.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := r.store.db.Txn(false)
	it, err := txn.Get(tableTeams, indexCode, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get team by code %s: %w", code, err)
	}
	for obj := it.Next(); obj != nil; obj = it.Next() {
		if team := obj.(*models.Team); team.Active {
			return team.Clone(), nil
		}
	}
	return nil, ErrTeamNotFound
}

func (r *memoryTeamRepository) ListActive(ctx context.Context) ([]*models.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := r.store.db.Txn(false)
	teams, err := activeTeams(txn)
	if err != nil {
		return nil, err
	}
	out := cloneTeams(teams)
	sortByGroupAndName(out)
	return out, nil
}

func (r *memoryTeamRepository) SearchActiveByName(ctx context.Context, name string) ([]*models.Team, error) {
	teams, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(name)
	found := make([]*models.Team, 0)
	for _, t := range teams {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			found = append(found, t)
		}
	}
	return found, nil
}

func (r *memoryTeamRepository) AggregateByGroup(ctx context.Context) ([]models.GroupStats, error) {
	teams, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	byGroup := make(map[string]*models.GroupStats)
	for _, t := range teams {
		s, ok := byGroup[t.Group]
		if !ok {
			s = &models.GroupStats{Group: t.Group}
			byGroup[t.Group] = s
		}
		s.TeamCount++
		s.PlayerCount += t.Occupancy()
		s.CapacityTotal += t.Capacity
	}

	stats := make([]models.GroupStats, 0, len(byGroup))
	for _, g := range models.Groups {
		if s, ok := byGroup[g]; ok {
			stats = append(stats, *s)
		}
	}
	return stats, nil
}

func (r *memoryTeamRepository) Join(ctx context.Context, teamID, playerID int) (*models.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	txn := r.store.db.Txn(true)
	defer txn.Abort()

	pObj, err := txn.First(tablePlayers, indexID, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", playerID, err)
	}
	if pObj == nil {
		return nil, ErrPlayerNotFound
	}
	player := pObj.(*models.Player)
	if player.Assigned() {
		return nil, ErrPlayerAssigned
	}

	tObj, err := txn.First(tableTeams, indexID, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team %d: %w", teamID, err)
	}
	if tObj == nil || !tObj.(*models.Team).Active {
		return nil, ErrTeamNotFound
	}
	team := tObj.(*models.Team)
	if team.HasPlayer(playerID) {
		return nil, ErrPlayerAssigned
	}
	if !team.HasVacancy() {
		return nil, ErrTeamFull
	}

	updatedTeam := team.Clone()
	updatedTeam.Roster = append(updatedTeam.Roster, playerID)
	updatedPlayer := player.Clone()
	tid := teamID
	updatedPlayer.TeamID = &tid

	if err := txn.Insert(tableTeams, updatedTeam); err != nil {
		return nil, fmt.Errorf("failed to update team %d: %w", teamID, err)
	}
	if err := txn.Insert(tablePlayers, updatedPlayer); err != nil {
		return nil, fmt.Errorf("failed to update player %d: %w", playerID, err)
	}
	txn.Commit()

	return updatedTeam.Clone(), nil
}

func (r *memoryTeamRepository) DeactivateAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	txn := r.store.db.Txn(true)
	defer txn.Abort()

	teams, err := activeTeams(txn)
	if err != nil {
		return 0, err
	}
	if len(teams) == 0 {
		return 0, nil
	}

	for _, team := range teams {
		for _, playerID := range team.Roster {
			pObj, err := txn.First(tablePlayers, indexID, playerID)
			if err != nil {
				return 0, fmt.Errorf("failed to get player %d: %w", playerID, err)
			}
			if pObj == nil {
				continue
			}
			released := pObj.(*models.Player).Clone()
			released.TeamID = nil
			if err := txn.Insert(tablePlayers, released); err != nil {
				return 0, fmt.Errorf("failed to release player %d: %w", playerID, err)
			}
		}

		inactive := team.Clone()
		inactive.Active = false
		inactive.Roster = []int{}
		if err := txn.Insert(tableTeams, inactive); err != nil {
			return 0, fmt.Errorf("failed to deactivate team %d: %w", team.ID, err)
		}
	}
	txn.Commit()

	return len(teams), nil
}

type memoryPlayerRepository struct {
	store *MemoryStore
}

func (r *memoryPlayerRepository) Create(ctx context.Context, player *models.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	row := player.Clone()
	row.ID = int(r.store.playerSeq.Add(1))
	row.TeamID = nil
	row.CreatedAt = r.store.now().UTC()

	txn := r.store.db.Txn(true)
	defer txn.Abort()
	if err := txn.Insert(tablePlayers, row); err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	txn.Commit()

	player.ID = row.ID
	player.TeamID = nil
	player.CreatedAt = row.CreatedAt
	return nil
}

func (r *memoryPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := r.store.db.Txn(false)
	obj, err := txn.First(tablePlayers, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get player by id %d: %w", id, err)
	}
	if obj == nil {
		return nil, ErrPlayerNotFound
	}
	return obj.(*models.Player).Clone(), nil
}

func (r *memoryPlayerRepository) ListByIDs(ctx context.Context, ids []int) ([]*models.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	txn := r.store.db.Txn(false)
	players := make([]*models.Player, 0, len(ids))
	for _, id := range ids {
		obj, err := txn.First(tablePlayers, indexID, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get player by id %d: %w", id, err)
		}
		if obj != nil {
			players = append(players, obj.(*models.Player).Clone())
		}
	}
	return players, nil
}

func (r *memoryPlayerRepository) CountAssigned(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	txn := r.store.db.Txn(false)
	it, err := txn.Get(tablePlayers, indexID)
	if err != nil {
		return 0, fmt.Errorf("failed to iterate players: %w", err)
	}
	count := 0
	for obj := it.Next(); obj != nil; obj = it.Next() {
		if obj.(*models.Player).Assigned() {
			count++
		}
	}
	return count, nil
}
