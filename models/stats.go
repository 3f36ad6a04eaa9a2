package models

type GroupStats struct {
	Group         string `json:"group"`
	TeamCount     int    `json:"team_count"`
	PlayerCount   int    `json:"player_count"`
	CapacityTotal int    `json:"capacity_total"`
}

type BracketStats struct {
	TotalTeams       int          `json:"total_teams"`
	AssignedPlayers  int          `json:"assigned_players"`
	TeamsWithVacancy int          `json:"teams_with_vacancy"`
	Groups           []GroupStats `json:"groups"`
}
