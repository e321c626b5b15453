package domain

import (
	"errors"
	"time"
)

// User is an operator of the system. Users log in to obtain a session.
type User struct {
	ID             string
	Email          string
	Name           string
	HashedPassword string
	Role           Role
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Identity returns the principal a session is granted to.
func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, DisplayName: u.Name, Role: u.Role}
}

// Role represents a user's access level
type Role string

const (
	// RoleAdmin has full access, including account lifecycle and loan rejection
	RoleAdmin Role = "admin"

	// RoleOperator can post transactions, originate loans and take repayments
	RoleOperator Role = "operator"

	// RoleViewer can only read
	RoleViewer Role = "viewer"
)

var roleRank = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return r.IsValid() && roleRank[r] >= roleRank[min]
}

// Authentication errors
var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInsufficientRole   = errors.New("insufficient role for this operation")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidRole        = errors.New("invalid role")
)
