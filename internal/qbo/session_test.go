package qbo_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"invoice-agent/internal/core"
	"invoice-agent/internal/qbo"
)

// memoryStore is an in-memory core.ConnectionStore for session tests.
type memoryStore struct {
	mu      sync.Mutex
	conns   map[int]*core.Connection
	updates []core.TokenUpdate
}

func newMemoryStore() *memoryStore {
	return &memoryStore{conns: make(map[int]*core.Connection)}
}

func (s *memoryStore) GetConnection(ctx context.Context, teamID int) (*core.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[teamID]
	if !ok {
		return nil, core.ErrNotConnected
	}
	copied := *c
	return &copied, nil
}

func (s *memoryStore) SaveConnection(ctx context.Context, teamID int, realmID string, tokens core.TokenUpdate) (*core.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &core.Connection{
		TeamID:       teamID,
		RealmID:      realmID,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresAt:    tokens.ExpiresAt,
	}
	s.conns[teamID] = c
	copied := *c
	return &copied, nil
}

func (s *memoryStore) UpdateTokens(ctx context.Context, teamID int, tokens core.TokenUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[teamID]
	if !ok {
		return core.ErrNotConnected
	}
	c.AccessToken = tokens.AccessToken
	c.RefreshToken = tokens.RefreshToken
	c.ExpiresAt = tokens.ExpiresAt
	s.updates = append(s.updates, tokens)
	return nil
}

func (s *memoryStore) DeleteConnection(ctx context.Context, teamID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, teamID)
	return nil
}

// tokenEndpoint serves OAuth refresh responses and records each grant.
type tokenEndpoint struct {
	mu       sync.Mutex
	fail     bool
	refreshN int
}

func (te *tokenEndpoint) serve(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		te.mu.Lock()
		defer te.mu.Unlock()
		if te.fail {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		te.refreshN++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-" + time.Now().Format("150405.000000000"),
			"refresh_token": "rotated-refresh",
			"token_type":    "bearer",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestManager(t *testing.T, store core.ConnectionStore) (*qbo.Manager, *tokenEndpoint) {
	te := &tokenEndpoint{}
	srv := te.serve(t)
	mgr := qbo.NewManager(store, qbo.ManagerConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     srv.URL + "/token",
		AuthURL:      srv.URL + "/authorize",
		APIBaseURL:   "http://quickbooks.invalid/v3",
		MinorVersion: "65",
	})
	return mgr, te
}

func TestManager_GetSessionRefreshesAndPersists(t *testing.T) {
	store := newMemoryStore()
	store.SaveConnection(context.Background(), 1, "realm1", core.TokenUpdate{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	})
	mgr, te := newTestManager(t, store)

	sess, err := mgr.GetSession(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if sess.RealmID != "realm1" || sess.TeamID != 1 {
		t.Errorf("session = %+v", sess)
	}
	if sess.Client == nil {
		t.Fatal("session has no client")
	}

	// The refresh must run even though the stored token had not expired, and
	// the rotated pair must be written back before the session is handed out.
	if te.refreshN != 1 {
		t.Errorf("refreshes = %d, want 1", te.refreshN)
	}
	if len(store.updates) != 1 {
		t.Fatalf("token updates = %d, want 1", len(store.updates))
	}
	if store.updates[0].RefreshToken != "rotated-refresh" {
		t.Errorf("persisted refresh token = %q, want rotated value", store.updates[0].RefreshToken)
	}
	conn, _ := store.GetConnection(context.Background(), 1)
	if conn.RefreshToken != "rotated-refresh" || conn.AccessToken == "old-access" {
		t.Errorf("stored connection not updated: %+v", conn)
	}
}

func TestManager_GetSessionNotConnected(t *testing.T) {
	mgr, te := newTestManager(t, newMemoryStore())

	_, err := mgr.GetSession(context.Background(), 99)
	if !errors.Is(err, core.ErrNotConnected) {
		t.Errorf("error = %v, want ErrNotConnected", err)
	}
	if te.refreshN != 0 {
		t.Errorf("refreshes = %d, want 0", te.refreshN)
	}
}

func TestManager_GetSessionRefreshFailure(t *testing.T) {
	store := newMemoryStore()
	store.SaveConnection(context.Background(), 1, "realm1", core.TokenUpdate{
		AccessToken:  "old-access",
		RefreshToken: "revoked-refresh",
	})
	mgr, te := newTestManager(t, store)
	te.fail = true

	_, err := mgr.GetSession(context.Background(), 1)
	if !errors.Is(err, core.ErrAuthExpired) {
		t.Errorf("error = %v, want ErrAuthExpired", err)
	}
	// The stale pair stays in place so the user can be told to reconnect.
	if len(store.updates) != 0 {
		t.Errorf("token updates = %d, want none after failed refresh", len(store.updates))
	}
}

func TestManager_ConcurrentSessionsSerializePerTeam(t *testing.T) {
	store := newMemoryStore()
	store.SaveConnection(context.Background(), 1, "realm1", core.TokenUpdate{
		AccessToken:  "old-access",
		RefreshToken: "old-refresh",
	})
	mgr, te := newTestManager(t, store)

	const n = 5
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = mgr.GetSession(context.Background(), 1)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("session %d: %v", i, err)
		}
	}
	// One refresh per call is expected; the point is that none of them raced
	// on a half-written token pair.
	if te.refreshN != n {
		t.Errorf("refreshes = %d, want %d", te.refreshN, n)
	}
	conn, _ := store.GetConnection(context.Background(), 1)
	if conn.RefreshToken != "rotated-refresh" {
		t.Errorf("final refresh token = %q", conn.RefreshToken)
	}
}
