package app

import (
	"time"

	"invoice-agent/internal/qbo"
)

// InvoiceResult is returned by single-invoice operations.
type InvoiceResult struct {
	Invoice qbo.SimpleInvoice `json:"invoice"`
}

// InvoiceListResult is returned by ListInvoices.
type InvoiceListResult struct {
	Invoices []qbo.SimpleInvoice `json:"invoices"`
}

// DeleteInvoiceResult is returned by DeleteInvoice.
type DeleteInvoiceResult struct {
	DeletedInvoiceID string `json:"deletedInvoiceId"`
}

// CustomerSummary is one entry in a customer listing.
type CustomerSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CompanyName string `json:"companyName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// CustomerListResult is returned by ListCustomers.
type CustomerListResult struct {
	Customers []CustomerSummary `json:"customers"`
}

// ConnectionStatusResult is returned by ConnectionStatus.
type ConnectionStatusResult struct {
	Connected   bool      `json:"connected"`
	RealmID     string    `json:"realmId,omitempty"`
	ConnectedAt time.Time `json:"connectedAt,omitzero"`
}

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID   int    `json:"user_id"`
	TeamID   int    `json:"team_id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TeamName string `json:"team_name"`
}

// ProposedAction is a write tool awaiting human confirmation.
type ProposedAction struct {
	ToolName string         `json:"tool_name"`
	Summary  string         `json:"summary"`
	Args     map[string]any `json:"args"`
}

// ChatResult is returned by InterpretInvoiceAction: either a final answer or
// a proposed write action, never both.
type ChatResult struct {
	Answer   string          `json:"answer,omitempty"`
	Proposed *ProposedAction `json:"proposed,omitempty"`
}
