package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type connectionStore struct {
	pool *pgxpool.Pool
}

// NewConnectionStore constructs a ConnectionStore backed by PostgreSQL.
func NewConnectionStore(pool *pgxpool.Pool) ConnectionStore {
	return &connectionStore{pool: pool}
}

func (s *connectionStore) GetConnection(ctx context.Context, teamID int) (*Connection, error) {
	c := &Connection{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, team_id, realm_id, access_token, refresh_token, expires_at, created_at, updated_at
		FROM qbo_connections
		WHERE team_id = $1`,
		teamID,
	).Scan(&c.ID, &c.TeamID, &c.RealmID, &c.AccessToken, &c.RefreshToken,
		&c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("team %d: %w", teamID, ErrNotConnected)
	}
	if err != nil {
		return nil, fmt.Errorf("get connection for team %d: %w", teamID, err)
	}
	return c, nil
}

func (s *connectionStore) SaveConnection(ctx context.Context, teamID int, realmID string, tokens TokenUpdate) (*Connection, error) {
	c := &Connection{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO qbo_connections (team_id, realm_id, access_token, refresh_token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (team_id) DO UPDATE SET
			realm_id = EXCLUDED.realm_id,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = now()
		RETURNING id, team_id, realm_id, access_token, refresh_token, expires_at, created_at, updated_at`,
		teamID, realmID, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt,
	).Scan(&c.ID, &c.TeamID, &c.RealmID, &c.AccessToken, &c.RefreshToken,
		&c.ExpiresAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation on the realm_id index: company already linked elsewhere.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("realm %s: %w", realmID, ErrRealmAlreadyLinked)
		}
		return nil, fmt.Errorf("save connection for team %d: %w", teamID, err)
	}
	return c, nil
}

func (s *connectionStore) UpdateTokens(ctx context.Context, teamID int, tokens TokenUpdate) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE qbo_connections
		SET access_token = $2, refresh_token = $3, expires_at = $4, updated_at = now()
		WHERE team_id = $1`,
		teamID, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("update tokens for team %d: %w", teamID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("team %d: %w", teamID, ErrNotConnected)
	}
	return nil
}

func (s *connectionStore) DeleteConnection(ctx context.Context, teamID int) error {
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM qbo_connections WHERE team_id = $1`, teamID,
	); err != nil {
		return fmt.Errorf("delete connection for team %d: %w", teamID, err)
	}
	return nil
}
