package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// oauthStateCookie carries the CSRF state and the initiating team across the
// redirect to Intuit and back. The callback arrives outside the authenticated
// session, so the team is bound into a short-lived signed token.
const oauthStateCookie = "qbo_oauth_state"

type oauthStateClaims struct {
	TeamID int    `json:"team_id"`
	State  string `json:"state"`
	jwt.RegisteredClaims
}

// connectionStatus handles GET /api/quickbooks/status.
func (h *Handler) connectionStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ConnectionStatus(r.Context(), caller(r).TeamID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// oauthConnect handles GET /api/quickbooks/connect: issues the state cookie
// and returns the Intuit consent URL for the frontend to redirect to.
func (h *Handler) oauthConnect(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()

	claims := &oauthStateClaims{
		TeamID: caller(r).TeamID,
		State:  state,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(10 * time.Minute)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(h.jwtSecret))
	if err != nil {
		writeError(w, r, "state generation failed", "INTERNAL_ERROR", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    signed,
		Path:     "/api/quickbooks",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})
	writeJSON(w, map[string]string{"authorizeUrl": h.svc.AuthorizeURL(state)})
}

// oauthCallback handles GET /api/quickbooks/callback?code=...&state=...&realmId=...
// It verifies the state cookie, exchanges the code, and persists the connection.
func (h *Handler) oauthCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	realmID := r.URL.Query().Get("realmId")
	if code == "" || state == "" || realmID == "" {
		writeError(w, r, "missing code, state, or realmId", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil {
		writeError(w, r, "missing OAuth state cookie", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	claims := &oauthStateClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(h.jwtSecret), nil
	})
	if err != nil || !token.Valid || claims.State != state {
		writeError(w, r, "OAuth state mismatch", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	if err := h.svc.CompleteOAuth(r.Context(), claims.TeamID, code, realmID); err != nil {
		log.Error().Err(err).Int("team_id", claims.TeamID).Msg("oauth callback failed")
		writeServiceError(w, r, err)
		return
	}

	// Clear the state cookie and bounce back to the app.
	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/api/quickbooks",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/settings/integrations?connected=1", http.StatusSeeOther)
}

// disconnect handles DELETE /api/quickbooks/connection.
func (h *Handler) disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Disconnect(r.Context(), caller(r).TeamID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
