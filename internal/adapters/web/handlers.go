package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"invoice-agent/internal/app"
)

// Handler holds the ApplicationService, the chi router, and the pending
// chat-action store.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	pending   *pendingStore
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins, jwtSecret string) http.Handler {
	h := &Handler{
		svc:       svc,
		pending:   newPendingStore(),
		jwtSecret: jwtSecret,
	}
	h.pending.startPurge(context.Background())

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// OAuth callback arrives from Intuit, outside the authenticated session;
	// it is tied back to the team through the signed state cookie.
	r.Get("/api/quickbooks/callback", h.oauthCallback)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// QuickBooks connection lifecycle
		r.Get("/api/quickbooks/status", h.connectionStatus)
		r.Get("/api/quickbooks/connect", h.oauthConnect)
		r.Delete("/api/quickbooks/connection", h.disconnect)

		// Invoices
		r.Get("/api/invoices", h.listInvoices)
		r.Post("/api/invoices", h.createInvoice)
		r.Get("/api/invoices/{docNumber}", h.getInvoice)
		r.Patch("/api/invoices/{docNumber}", h.updateInvoice)
		r.Delete("/api/invoices/{docNumber}", h.deleteInvoice)
		r.Post("/api/invoices/{docNumber}/send", h.sendInvoice)
		r.Get("/api/invoices/{docNumber}/pdf", h.downloadInvoicePdf)

		// Customers
		r.Get("/api/customers", h.listCustomers)

		// Chat
		r.Post("/api/chat/message", h.chatMessage)
		r.Post("/api/chat/confirm", h.chatConfirm)
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// health handles GET /api/health.
func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}
