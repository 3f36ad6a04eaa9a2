package models

// UserRole приходит из claim "role" уже проверенного JWT.
type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RolePlayer UserRole = "player"
	RoleCoach  UserRole = "coach"
	RoleUser   UserRole = "user"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RolePlayer, RoleCoach, RoleUser:
		return true
	}
	return false
}
