package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"invoice-agent/internal/core"
	"invoice-agent/internal/qbo"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps the core error taxonomy to HTTP responses. Remote
// faults keep their normalized message and code for diagnostics.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrForbidden):
		writeError(w, r, err.Error(), "FORBIDDEN", http.StatusForbidden)
	case errors.Is(err, core.ErrNotConnected):
		writeError(w, r, "QuickBooks is not connected for this team", "NOT_CONNECTED", http.StatusConflict)
	case errors.Is(err, core.ErrAuthExpired):
		writeError(w, r, "QuickBooks authorization expired, please reconnect", "AUTH_EXPIRED", http.StatusConflict)
	case errors.Is(err, core.ErrInvoiceNotFound):
		writeError(w, r, err.Error(), "NOT_FOUND", http.StatusNotFound)
	default:
		var apiErr *qbo.APIError
		if errors.As(err, &apiErr) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(errorResponse{
				Error:     apiErr.Message,
				Code:      "REMOTE_API_ERROR",
				Detail:    apiErr.Detail,
				RequestID: requestIDFromContext(r.Context()),
			})
			return
		}
		writeError(w, r, err.Error(), "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes the request body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
