package models

import "time"

const (
	DefaultTeamCapacity = 11
	MinTeamCapacity     = 1
	MaxTeamCapacity     = 20
)

// Groups - упорядоченный набор меток групп, расходуется слева направо при сборке сетки.
var Groups = []string{"A", "B", "C", "D", "E", "F", "G", "H"}

type Team struct {
	ID        int       `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"`
	Group     string    `json:"group" db:"group_label"`
	Capacity  int       `json:"capacity" db:"capacity"`
	Roster    []int     `json:"roster" db:"roster"`
	Active    bool      `json:"active" db:"active"`
	Position  int       `json:"position" db:"position"`
	CreatedBy int       `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (t *Team) Occupancy() int {
	return len(t.Roster)
}

func (t *Team) Vacancy() int {
	return t.Capacity - t.Occupancy()
}

func (t *Team) HasVacancy() bool {
	return t.Vacancy() > 0
}

func (t *Team) HasPlayer(playerID int) bool {
	for _, id := range t.Roster {
		if id == playerID {
			return true
		}
	}
	return false
}

// Clone возвращает глубокую копию, ростер не разделяется с оригиналом.
func (t *Team) Clone() *Team {
	if t == nil {
		return nil
	}
	c := *t
	c.Roster = make([]int, len(t.Roster))
	copy(c.Roster, t.Roster)
	return &c
}

func (t *Team) Summary() TeamSummary {
	ids := make([]int, len(t.Roster))
	copy(ids, t.Roster)
	return TeamSummary{
		ID:         t.ID,
		Name:       t.Name,
		Code:       t.Code,
		Group:      t.Group,
		Capacity:   t.Capacity,
		Occupancy:  t.Occupancy(),
		Vacancy:    t.Vacancy(),
		HasVacancy: t.HasVacancy(),
		PlayerIDs:  ids,
		CreatedAt:  t.CreatedAt,
	}
}

// TeamSummary - то, что уходит клиенту. Players заполняется только в админском списке.
type TeamSummary struct {
	ID         int       `json:"id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"`
	Group      string    `json:"group"`
	Capacity   int       `json:"capacity"`
	Occupancy  int       `json:"occupancy"`
	Vacancy    int       `json:"vacancy"`
	HasVacancy bool      `json:"has_vacancy"`
	PlayerIDs  []int     `json:"player_ids"`
	CreatedAt  time.Time `json:"created_at"`

	Players []Player `json:"players,omitempty"`
}

// ClampCapacity приводит запрошенную вместимость к [1,20]; 0 и отрицательные значения дают 11.
func ClampCapacity(capacity int) int {
	switch {
	// ноль или меньше минимума - "не задано"
	case capacity < MinTeamCapacity:
		return DefaultTeamCapacity
	case capacity > MaxTeamCapacity:
		return MaxTeamCapacity
	default:
		return capacity
	}
}
