package models

import "time"

type Player struct {
	ID        int       `json:"id" db:"id"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Position  string    `json:"position" db:"position"`
	TeamID    *int      `json:"team_id,omitempty" db:"team_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (p *Player) Assigned() bool {
	return p.TeamID != nil
}

func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	c := *p
	if p.TeamID != nil {
		id := *p.TeamID
		c.TeamID = &id
	}
	return &c
}

// PlayerStatus - ответ на "в какой я команде". Assigned=false - нормальное состояние, не ошибка.
type PlayerStatus struct {
	Assigned bool         `json:"assigned"`
	Team     *TeamSummary `json:"team,omitempty"`
}
