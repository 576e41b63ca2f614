package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"invoice-agent/internal/app"
)

// ── Pending action store ──────────────────────────────────────────────────────

// pendingAction is a proposed write tool held server-side until the user
// confirms or cancels. The caller identity is pinned at proposal time so a
// confirmation cannot be replayed by a different user or team.
type pendingAction struct {
	Caller    app.Caller
	ToolName  string
	ToolArgs  map[string]any
	CreatedAt time.Time
}

const pendingTTL = 15 * time.Minute

// pendingStore is a thread-safe in-memory store with TTL expiry.
type pendingStore struct {
	mu      sync.Mutex
	actions map[string]pendingAction
}

func newPendingStore() *pendingStore {
	return &pendingStore{actions: make(map[string]pendingAction)}
}

func (s *pendingStore) put(token string, a pendingAction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions[token] = a
}

func (s *pendingStore) get(token string) (pendingAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.actions[token]
	if !ok {
		return pendingAction{}, false
	}
	if time.Since(a.CreatedAt) > pendingTTL {
		delete(s.actions, token)
		return pendingAction{}, false
	}
	return a, true
}

func (s *pendingStore) delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.actions, token)
}

// startPurge starts a background goroutine that evicts expired entries every 5 minutes.
func (s *pendingStore) startPurge(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				for token, action := range s.actions {
					if time.Since(action.CreatedAt) > pendingTTL {
						delete(s.actions, token)
					}
				}
				s.mu.Unlock()
			}
		}
	}()
}

// ── Chat endpoints ────────────────────────────────────────────────────────────

type chatMessageRequest struct {
	Text string `json:"text"`
}

type chatMessageResponse struct {
	Answer   string `json:"answer,omitempty"`
	Proposal *struct {
		Token    string         `json:"token"`
		ToolName string         `json:"tool_name"`
		Summary  string         `json:"summary"`
		Args     map[string]any `json:"args"`
	} `json:"proposal,omitempty"`
}

type chatConfirmRequest struct {
	Token  string `json:"token"`
	Action string `json:"action"` // "confirm" or "cancel"
}

// chatMessage handles POST /api/chat/message: runs the agentic loop and either
// returns the answer or parks a proposed write action for confirmation.
func (h *Handler) chatMessage(w http.ResponseWriter, r *http.Request) {
	var req chatMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeError(w, r, "text is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	c := caller(r)
	result, err := h.svc.InterpretInvoiceAction(r.Context(), c, req.Text)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := chatMessageResponse{Answer: result.Answer}
	if result.Proposed != nil {
		token := uuid.NewString()
		h.pending.put(token, pendingAction{
			Caller:    c,
			ToolName:  result.Proposed.ToolName,
			ToolArgs:  result.Proposed.Args,
			CreatedAt: time.Now(),
		})
		resp.Proposal = &struct {
			Token    string         `json:"token"`
			ToolName string         `json:"tool_name"`
			Summary  string         `json:"summary"`
			Args     map[string]any `json:"args"`
		}{
			Token:    token,
			ToolName: result.Proposed.ToolName,
			Summary:  result.Proposed.Summary,
			Args:     result.Proposed.Args,
		}
	}
	writeJSON(w, resp)
}

// chatConfirm handles POST /api/chat/confirm: executes or discards a pending
// write action.
func (h *Handler) chatConfirm(w http.ResponseWriter, r *http.Request) {
	var req chatConfirmRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	action, ok := h.pending.get(req.Token)
	if !ok {
		writeError(w, r, "no pending action for token (expired?)", "NOT_FOUND", http.StatusNotFound)
		return
	}

	c := caller(r)
	if action.Caller.UserID != c.UserID || action.Caller.TeamID != c.TeamID {
		writeError(w, r, "pending action belongs to a different session", "FORBIDDEN", http.StatusForbidden)
		return
	}

	if req.Action != "confirm" {
		h.pending.delete(req.Token)
		writeJSON(w, map[string]string{"status": "cancelled"})
		return
	}

	result, err := h.svc.ExecuteWriteTool(r.Context(), c, action.ToolName, action.ToolArgs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	h.pending.delete(req.Token)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"executed","result":` + result + `}`))
}
