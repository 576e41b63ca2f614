package app

import (
	"context"

	"invoice-agent/internal/core"
)

// Caller identifies who is invoking an operation: the team whose QuickBooks
// connection is used and the role the permission gate checks. The web layer
// builds it from JWT claims; chat tools inherit it from the chat request.
type Caller struct {
	UserID int
	TeamID int
	Role   string
}

// ApplicationService is the single interface all adapters (web handlers, chat
// tools) call. Every invoice operation authorizes the caller's role, then
// obtains a fresh QuickBooks session, before any remote call is made.
// Implementations contain no display logic.
type ApplicationService interface {
	// ListInvoices returns all invoices in the team's realm, in simplified form.
	ListInvoices(ctx context.Context, caller Caller) (*InvoiceListResult, error)

	// GetInvoice returns one invoice by doc number, or core.ErrInvoiceNotFound.
	GetInvoice(ctx context.Context, caller Caller, docNumber string) (*InvoiceResult, error)

	// CreateInvoice resolves the customer and item names, builds the invoice
	// lines, and submits the create.
	CreateInvoice(ctx context.Context, caller Caller, req CreateInvoiceRequest) (*InvoiceResult, error)

	// UpdateInvoice applies a partial update to the invoice with the given doc
	// number. Only fields present in req are touched: a customer name triggers
	// re-resolution, items replace all lines, dates are set directly.
	UpdateInvoice(ctx context.Context, caller Caller, docNumber string, req UpdateInvoiceRequest) (*InvoiceResult, error)

	// DeleteInvoice voids the invoice at QuickBooks. Irreversible.
	DeleteInvoice(ctx context.Context, caller Caller, docNumber string) (*DeleteInvoiceResult, error)

	// SendInvoicePdf emails the invoice PDF to the given address.
	SendInvoicePdf(ctx context.Context, caller Caller, docNumber, email string) error

	// DownloadInvoicePdf returns the invoice PDF bytes, streamed back verbatim.
	DownloadInvoicePdf(ctx context.Context, caller Caller, docNumber string) ([]byte, error)

	// ListCustomers returns the team's customers.
	ListCustomers(ctx context.Context, caller Caller) (*CustomerListResult, error)

	// ConnectionStatus reports whether the team is connected and to which realm.
	ConnectionStatus(ctx context.Context, teamID int) (*ConnectionStatusResult, error)

	// AuthorizeURL returns the QuickBooks consent URL for the connect flow.
	AuthorizeURL(state string) string

	// CompleteOAuth exchanges the callback code and persists the connection.
	CompleteOAuth(ctx context.Context, teamID int, code, realmID string) error

	// Disconnect removes the team's QuickBooks connection.
	Disconnect(ctx context.Context, teamID int) error

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, email, password string) (*UserSession, error)

	// GetUser returns a user by ID.
	GetUser(ctx context.Context, userID int) (*core.User, error)

	// InterpretInvoiceAction routes natural language through the agentic tool
	// loop. Read tools execute autonomously; a write tool terminates the loop
	// and is returned as a proposed action for human confirmation.
	InterpretInvoiceAction(ctx context.Context, caller Caller, text string) (*ChatResult, error)

	// ExecuteWriteTool executes a previously proposed write action after the
	// user confirmed it.
	ExecuteWriteTool(ctx context.Context, caller Caller, toolName string, args map[string]any) (string, error)
}
