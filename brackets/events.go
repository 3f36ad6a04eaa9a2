package brackets

import "time"

const (
	EventBracketCreated     = "BRACKET_CREATED"
	EventTeamJoined         = "TEAM_JOINED"
	EventBracketDeactivated = "BRACKET_DEACTIVATED"
	EventStatsUpdated       = "STATS_UPDATED"
)

type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

type TeamJoinedPayload struct {
	TeamID    int    `json:"team_id"`
	TeamName  string `json:"team_name"`
	Group     string `json:"group"`
	PlayerID  int    `json:"player_id"`
	Occupancy int    `json:"occupancy"`
	Capacity  int    `json:"capacity"`
}

type BracketCreatedPayload struct {
	Size     int `json:"size"`
	Capacity int `json:"capacity"`
}

type BracketDeactivatedPayload struct {
	DeactivatedCount int `json:"deactivated_count"`
}
