package core

import (
	"context"
	"time"
)

// Connection holds a team's QuickBooks OAuth credentials. At most one active
// connection exists per team, and a realm (QuickBooks company) can be linked
// to at most one team — both enforced by unique constraints in the store.
type Connection struct {
	ID           int
	TeamID       int
	RealmID      string // QuickBooks company ID
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenUpdate carries a freshly issued token pair back to the store. Refresh
// tokens rotate on every refresh, so a successful refresh must be persisted
// before the remote call proceeds.
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// ConnectionStore is the durable home of team QuickBooks credentials. The
// integration core treats it as the single source of truth for tokens; the
// SDK-side token state is never authoritative.
type ConnectionStore interface {
	// GetConnection returns the team's connection, or ErrNotConnected.
	GetConnection(ctx context.Context, teamID int) (*Connection, error)

	// SaveConnection creates or replaces the team's connection. Linking a
	// realm already owned by another team fails with ErrRealmAlreadyLinked.
	SaveConnection(ctx context.Context, teamID int, realmID string, tokens TokenUpdate) (*Connection, error)

	// UpdateTokens persists a rotated token pair for the team's existing connection.
	UpdateTokens(ctx context.Context, teamID int, tokens TokenUpdate) error

	// DeleteConnection removes the team's connection. Deleting a missing
	// connection is not an error.
	DeleteConnection(ctx context.Context, teamID int) error
}
