package core

import (
	"context"
	"time"
)

// Team is the unit of tenancy. A team owns at most one QuickBooks connection.
type Team struct {
	ID        int
	Name      string
	CreatedAt time.Time
}

// User represents an authenticated member of a team.
type User struct {
	ID           int
	TeamID       int
	Email        string
	Name         string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}

// UserService provides user and team lookup operations.
type UserService interface {
	// GetByEmail finds an active user by email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)

	// GetTeam returns a team by primary key.
	GetTeam(ctx context.Context, teamID int) (*Team, error)
}
