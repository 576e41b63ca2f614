package core_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"invoice-agent/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Clean and seed test DB
	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE qbo_connections, users, teams CASCADE;

		INSERT INTO teams (id, name) VALUES (1, 'Test Team'), (2, 'Other Team');
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func TestConnectionStore_Lifecycle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := core.NewConnectionStore(pool)
	ctx := context.Background()

	// No connection yet.
	_, err := store.GetConnection(ctx, 1)
	if !errors.Is(err, core.ErrNotConnected) {
		t.Fatalf("GetConnection before save: %v, want ErrNotConnected", err)
	}

	expiry := time.Now().Add(time.Hour).UTC()
	conn, err := store.SaveConnection(ctx, 1, "realm1", core.TokenUpdate{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    expiry,
	})
	if err != nil {
		t.Fatalf("SaveConnection: %v", err)
	}
	if conn.TeamID != 1 || conn.RealmID != "realm1" {
		t.Errorf("saved connection = %+v", conn)
	}

	// Rotated tokens replace the stored pair.
	err = store.UpdateTokens(ctx, 1, core.TokenUpdate{
		AccessToken:  "access-2",
		RefreshToken: "refresh-2",
		ExpiresAt:    expiry.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("UpdateTokens: %v", err)
	}
	got, err := store.GetConnection(ctx, 1)
	if err != nil {
		t.Fatalf("GetConnection: %v", err)
	}
	if got.AccessToken != "access-2" || got.RefreshToken != "refresh-2" {
		t.Errorf("tokens after update = %q / %q", got.AccessToken, got.RefreshToken)
	}

	// Re-saving replaces the team's connection in place.
	if _, err := store.SaveConnection(ctx, 1, "realm1b", core.TokenUpdate{
		AccessToken: "access-3", RefreshToken: "refresh-3", ExpiresAt: expiry,
	}); err != nil {
		t.Fatalf("re-save: %v", err)
	}
	got, _ = store.GetConnection(ctx, 1)
	if got.RealmID != "realm1b" {
		t.Errorf("realm after re-save = %q", got.RealmID)
	}

	if err := store.DeleteConnection(ctx, 1); err != nil {
		t.Fatalf("DeleteConnection: %v", err)
	}
	_, err = store.GetConnection(ctx, 1)
	if !errors.Is(err, core.ErrNotConnected) {
		t.Errorf("GetConnection after delete: %v, want ErrNotConnected", err)
	}

	// Deleting again is a no-op.
	if err := store.DeleteConnection(ctx, 1); err != nil {
		t.Errorf("repeated delete: %v", err)
	}
}

func TestConnectionStore_RealmUniqueness(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := core.NewConnectionStore(pool)
	ctx := context.Background()

	if _, err := store.SaveConnection(ctx, 1, "realm1", core.TokenUpdate{
		AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("first link: %v", err)
	}

	// A second team linking the same QuickBooks company must be rejected.
	_, err := store.SaveConnection(ctx, 2, "realm1", core.TokenUpdate{
		AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour),
	})
	if !errors.Is(err, core.ErrRealmAlreadyLinked) {
		t.Errorf("cross-team link: %v, want ErrRealmAlreadyLinked", err)
	}
}

func TestConnectionStore_UpdateTokensWithoutConnection(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	store := core.NewConnectionStore(pool)
	err := store.UpdateTokens(context.Background(), 1, core.TokenUpdate{
		AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now(),
	})
	if !errors.Is(err, core.ErrNotConnected) {
		t.Errorf("UpdateTokens without connection: %v, want ErrNotConnected", err)
	}
}
