package qbo

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"invoice-agent/internal/core"
)

// Session is a per-operation handle on a team's QuickBooks realm, created by
// the Manager after a successful token refresh. It exposes only the typed
// client; the raw OAuth token never leaves the manager.
type Session struct {
	TeamID  int
	RealmID string
	Client  *Client
}

// ManagerConfig carries the OAuth app credentials and API endpoints.
type ManagerConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
	MinorVersion string
}

// Manager creates sessions. Before every remote operation it refreshes the
// team's access token and persists the rotated pair to the connection store —
// refresh tokens rotate, so skipping the write would break all subsequent
// calls. The store is the single source of truth for tokens.
type Manager struct {
	store        core.ConnectionStore
	oauth        *oauth2.Config
	apiBaseURL   string
	minorVersion string

	mu        sync.Mutex
	teamLocks map[int]*sync.Mutex
}

// NewManager constructs a Manager.
func NewManager(store core.ConnectionStore, cfg ManagerConfig) *Manager {
	return &Manager{
		store: store,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"com.intuit.quickbooks.accounting"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		apiBaseURL:   cfg.APIBaseURL,
		minorVersion: cfg.MinorVersion,
		teamLocks:    make(map[int]*sync.Mutex),
	}
}

// AuthCodeURL returns the provider consent URL for the connect flow.
func (m *Manager) AuthCodeURL(state string) string {
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token pair (OAuth callback path).
func (m *Manager) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	return tok, nil
}

// lockTeam returns the refresh mutex for a team, creating it on first use.
// Serializing refreshes per team prevents concurrent requests from racing on
// refresh-token rotation within this process.
func (m *Manager) lockTeam(teamID int) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.teamLocks[teamID]
	if !ok {
		l = &sync.Mutex{}
		m.teamLocks[teamID] = l
	}
	return l
}

// GetSession loads the team's connection, refreshes its access token, persists
// the rotated tokens, and returns a live session. Returns core.ErrNotConnected
// if the team has no connection and core.ErrAuthExpired if the refresh fails.
//
// The refresh runs on every call, including read-only ones: QuickBooks rejects
// stale tokens, and the expiry on record cannot be trusted across processes.
func (m *Manager) GetSession(ctx context.Context, teamID int) (*Session, error) {
	lock := m.lockTeam(teamID)
	lock.Lock()
	defer lock.Unlock()

	conn, err := m.store.GetConnection(ctx, teamID)
	if err != nil {
		return nil, err
	}

	// An expired-looking token with only a refresh token forces the token
	// source to hit the refresh endpoint immediately.
	stale := &oauth2.Token{RefreshToken: conn.RefreshToken}
	tok, err := m.oauth.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token for team %d: %w (%v)", teamID, core.ErrAuthExpired, err)
	}

	refresh := tok.RefreshToken
	if refresh == "" {
		refresh = conn.RefreshToken
	}
	if err := m.store.UpdateTokens(ctx, teamID, core.TokenUpdate{
		AccessToken:  tok.AccessToken,
		RefreshToken: refresh,
		ExpiresAt:    tok.Expiry,
	}); err != nil {
		return nil, fmt.Errorf("persist refreshed tokens for team %d: %w", teamID, err)
	}

	log.Debug().Int("team_id", teamID).Str("realm_id", conn.RealmID).Msg("quickbooks session refreshed")

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))
	return &Session{
		TeamID:  teamID,
		RealmID: conn.RealmID,
		Client:  NewClient(httpClient, m.apiBaseURL, conn.RealmID, m.minorVersion),
	}, nil
}
