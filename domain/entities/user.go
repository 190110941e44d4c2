package entities

import (
	"errors"
	"time"
)

// Role represents a dashboard user's access level.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleAnalyst Role = "analyst"
	RoleViewer  Role = "viewer"
)

// roleRanks orders roles by privilege. Higher rank grants every
// permission of the lower ranks.
var roleRanks = map[Role]int{
	RoleViewer:  1,
	RoleAnalyst: 2,
	RoleAdmin:   3,
}

// Rank returns the numeric privilege rank of the role, 0 for unknown roles.
func (r Role) Rank() int {
	return roleRanks[r]
}

// Allows reports whether a holder of this role satisfies the required role.
func (r Role) Allows(required Role) bool {
	rank := r.Rank()
	need := required.Rank()
	if rank == 0 || need == 0 {
		return false
	}
	return rank >= need
}

// User represents a dashboard account.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	Name         string    `json:"name" bson:"name"`
	PasswordHash []byte    `json:"-" bson:"password_hash"`
	Role         Role      `json:"role" bson:"role"`
	IsActive     bool      `json:"is_active" bson:"is_active"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Validate validates the user data
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role.Rank() == 0 {
		return errors.New("invalid role")
	}
	return nil
}
