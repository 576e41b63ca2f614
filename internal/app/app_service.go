package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"invoice-agent/internal/ai"
	"invoice-agent/internal/core"
	"invoice-agent/internal/qbo"
)

type appService struct {
	sessions    *qbo.Manager
	users       core.UserService
	connections core.ConnectionStore
	agent       *ai.Agent
}

// NewAppService constructs the ApplicationService implementation.
func NewAppService(sessions *qbo.Manager, users core.UserService, connections core.ConnectionStore, agent *ai.Agent) ApplicationService {
	return &appService{
		sessions:    sessions,
		users:       users,
		connections: connections,
		agent:       agent,
	}
}

// ListInvoices returns all invoices in the team's realm, in simplified form.
func (s *appService) ListInvoices(ctx context.Context, caller Caller) (*InvoiceListResult, error) {
	if err := core.RequirePermission(caller.Role, core.ActionInvoiceRead); err != nil {
		return nil, err
	}
	session, err := s.sessions.GetSession(ctx, caller.TeamID)
	if err != nil {
		return nil, err
	}
	invoices, err := session.Client.QueryInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return &InvoiceListResult{Invoices: qbo.ToSimpleList(invoices)}, nil
}

// GetInvoice returns one invoice by doc number.
func (s *appService) GetInvoice(ctx context.Context, caller Caller, docNumber string) (*InvoiceResult, error) {
	if err := core.RequirePermission(caller.Role, core.ActionInvoiceRead); err != nil {
		return nil, err
	}
	session, err := s.sessions.GetSession(ctx, caller.TeamID)
	if err != nil {
		return nil, err
	}
	inv, err := findByDocNumber(ctx, session.Client, docNumber)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: qbo.ToSimple(inv)}, nil
}

// CreateInvoice resolves the customer and each item, builds the lines, and
// submits the create.
func (s *appService) CreateInvoice(ctx context.Context, caller Caller, req CreateInvoiceRequest) (*InvoiceResult, error) {
	if err := core.RequirePermission(caller.Role, core.ActionInvoiceCreate); err != nil {
		return nil, err
	}
	if req.CustomerName == "" {
		return nil, fmt.Errorf("customerName is required")
	}
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("at least one item is required")
	}

	session, err := s.sessions.GetSession(ctx, caller.TeamID)
	if err != nil {
		return nil, err
	}
	resolver := qbo.NewResolver(session.Client)

	customerRef, err := resolver.FindOrCreateCustomer(ctx, req.CustomerName)
	if err != nil {
		return nil, err
	}

	lines := buildLines(ctx, resolver, req.Items)

	created, err := session.Client.CreateInvoice(ctx, &qbo.Invoice{
		CustomerRef: customerRef,
		Line:        lines,
		TxnDate:     req.IssueDate,
		DueDate:     req.DueDate,
	})
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	log.Info().Int("team_id", caller.TeamID).Str("doc_number", created.DocNumber).Msg("invoice created")
	return &InvoiceResult{Invoice: qbo.ToSimple(created)}, nil
}

// UpdateInvoice resolves the doc number, re-fetches the invoice for a fresh
// SyncToken, overlays only the fields present in req, and submits the update.
func (s *appService) UpdateInvoice(ctx context.Context, caller Caller, docNumber string, req UpdateInvoiceRequest) (*InvoiceResult, error) {
	if err := core.RequirePermission(caller.Role, core.ActionInvoiceUpdate); err != nil {
		return nil, err
	}
	session, err := s.sessions.GetSession(ctx, caller.TeamID)
	if err != nil {
		return nil, err
	}

	found, err := findByDocNumber(ctx, session.Client, docNumber)
	if err != nil {
		return nil, err
	}

	// The scan result may be stale; the update must carry the latest SyncToken.
	current, err := session.Client.GetInvoice(ctx, found.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch invoice %s: %w", docNumber, err)
	}

	resolver := qbo.NewResolver(session.Client)

	if req.CustomerName != nil {
		ref, err := resolver.FindOrCreateCustomer(ctx, *req.CustomerName)
		if err != nil {
			return nil, err
		}
		current.CustomerRef = ref
	}
	if req.Items != nil {
		current.Line = buildLines(ctx, resolver, *req.Items)
	}
	if req.IssueDate != nil {
		current.TxnDate = *req.IssueDate
	}
	if req.DueDate != nil {
		current.DueDate = *req.DueDate
	}

	updated, err := session.Client.UpdateInvoice(ctx, current)
	if err != nil {
		return nil, fmt.Errorf("update invoice %s: %w", docNumber, err)
	}

	log.Info().Int("team_id", caller.TeamID).Str("doc_number", docNumber).Msg("invoice updated")
	return &InvoiceResult{Invoice: qbo.ToSimple(updated)}, nil
}

// DeleteInvoice voids the invoice at QuickBooks. Irreversible.
func (s *appService) DeleteInvoice(ctx context.Context, caller Caller, docNumber string) (*DeleteInvoiceResult, error) {
	if err := core.RequirePermission(caller.Role, core.ActionInvoiceDelete); err != nil {
		return nil, err
	}
	session, err := s.sessions.GetSession(ctx, caller.TeamID)
	if err != nil {
		return nil, err
	}
	found, err := findByDocNumber(ctx, session.Client, docNumber)
	if err != nil {
		return nil, err
	}
	if err := session.Client.DeleteInvoice(ctx, found.ID, found.SyncToken); err != nil {
		return nil, fmt.Errorf("delete invoice %s: %w", docNumber, err)
	}

	log.Info().Int("team_id", caller.TeamID).Str("doc_number", docNumber).Msg("invoice deleted")
	return &DeleteInvoiceResult{DeletedInvoiceID: docNumber}, nil
}

// SendInvoicePdf emails the invoice PDF via QuickBooks.
func (s *appService) SendInvoicePdf(ctx context.Context, caller Caller, docNumber, email string) error {
	if err := core.RequirePermission(caller.Role, core.ActionInvoiceSend); err != nil {
		return err
	}
	if email == "" {
		return fmt.Errorf("email is required")
	}
	session, err := s.sessions.GetSession(ctx, caller.TeamID)
	if err != nil {
		return err
	}
	found, err := findByDocNumber(ctx, session.Client, docNumber)
	if err != nil {
		return err
	}
	if err := session.Client.SendInvoice(ctx, found.ID, email); err != nil {
		return fmt.Errorf("send invoice %s: %w", docNumber, err)
	}
	return nil
}

// DownloadInvoicePdf returns the invoice PDF bytes verbatim.
func (s *appService) DownloadInvoicePdf(ctx context.Context, caller Caller, docNumber string) ([]byte, error) {
	if err := core.RequirePermission(caller.Role, core.ActionInvoiceDownload); err != nil {
		return nil, err
	}
	session, err := s.sessions.GetSession(ctx, caller.TeamID)
	if err != nil {
		return nil, err
	}
	found, err := findByDocNumber(ctx, session.Client, docNumber)
	if err != nil {
		return nil, err
	}
	pdf, err := session.Client.GetInvoicePDF(ctx, found.ID)
	if err != nil {
		return nil, fmt.Errorf("download invoice %s: %w", docNumber, err)
	}
	return pdf, nil
}

// ListCustomers returns the team's customers.
func (s *appService) ListCustomers(ctx context.Context, caller Caller) (*CustomerListResult, error) {
	if err := core.RequirePermission(caller.Role, core.ActionCustomerRead); err != nil {
		return nil, err
	}
	session, err := s.sessions.GetSession(ctx, caller.TeamID)
	if err != nil {
		return nil, err
	}
	customers, err := session.Client.QueryCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	out := make([]CustomerSummary, 0, len(customers))
	for _, c := range customers {
		cs := CustomerSummary{ID: c.ID, Name: c.DisplayName, CompanyName: c.CompanyName}
		if c.PrimaryEmailAddr != nil {
			cs.Email = c.PrimaryEmailAddr.Address
		}
		out = append(out, cs)
	}
	return &CustomerListResult{Customers: out}, nil
}

// ConnectionStatus reports whether the team is connected. A missing
// connection is a normal status, not an error.
func (s *appService) ConnectionStatus(ctx context.Context, teamID int) (*ConnectionStatusResult, error) {
	conn, err := s.connections.GetConnection(ctx, teamID)
	if errors.Is(err, core.ErrNotConnected) {
		return &ConnectionStatusResult{Connected: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &ConnectionStatusResult{
		Connected:   true,
		RealmID:     conn.RealmID,
		ConnectedAt: conn.CreatedAt,
	}, nil
}

// AuthorizeURL returns the QuickBooks consent URL.
func (s *appService) AuthorizeURL(state string) string {
	return s.sessions.AuthCodeURL(state)
}

// CompleteOAuth exchanges the callback code and persists the connection.
func (s *appService) CompleteOAuth(ctx context.Context, teamID int, code, realmID string) error {
	tok, err := s.sessions.Exchange(ctx, code)
	if err != nil {
		return err
	}
	if _, err := s.connections.SaveConnection(ctx, teamID, realmID, core.TokenUpdate{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}); err != nil {
		return err
	}
	log.Info().Int("team_id", teamID).Str("realm_id", realmID).Msg("quickbooks connected")
	return nil
}

// Disconnect removes the team's QuickBooks connection.
func (s *appService) Disconnect(ctx context.Context, teamID int) error {
	if err := s.connections.DeleteConnection(ctx, teamID); err != nil {
		return err
	}
	log.Info().Int("team_id", teamID).Msg("quickbooks disconnected")
	return nil
}

// AuthenticateUser verifies credentials and returns a session on success.
func (s *appService) AuthenticateUser(ctx context.Context, email, password string) (*UserSession, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("authentication failed: invalid password")
	}
	team, err := s.users.GetTeam(ctx, user.TeamID)
	if err != nil {
		return nil, err
	}
	return &UserSession{
		UserID:   user.ID,
		TeamID:   user.TeamID,
		Email:    user.Email,
		Name:     user.Name,
		Role:     user.Role,
		TeamName: team.Name,
	}, nil
}

// GetUser returns a user by ID.
func (s *appService) GetUser(ctx context.Context, userID int) (*core.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ── private helpers ───────────────────────────────────────────────────────────

// findByDocNumber resolves a doc number to the full invoice via a linear scan
// of the realm's invoices — doc numbers are not directly queryable. A miss is
// core.ErrInvoiceNotFound; no remote mutation is issued past this point.
func findByDocNumber(ctx context.Context, client *qbo.Client, docNumber string) (*qbo.Invoice, error) {
	invoices, err := client.QueryInvoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan invoices: %w", err)
	}
	for i := range invoices {
		if invoices[i].DocNumber == docNumber {
			return &invoices[i], nil
		}
	}
	return nil, fmt.Errorf("doc number %q: %w", docNumber, core.ErrInvoiceNotFound)
}

// buildLines resolves each item's product name and constructs the QuickBooks
// lines. A failed item resolution degrades to a line without an item
// reference rather than aborting the invoice.
func buildLines(ctx context.Context, resolver *qbo.Resolver, items []InvoiceItemInput) []qbo.Line {
	lines := make([]qbo.Line, 0, len(items))
	for _, item := range items {
		ref, err := resolver.ResolveOrCreateItemRef(ctx, item.ProductName)
		if err != nil {
			// Catalog state is unavailable or item creation failed outright;
			// the line still goes through without a ref.
			log.Warn().Err(err).Str("product", item.ProductName).Msg("item resolution failed; line proceeds without item ref")
			ref = nil
		}
		lines = append(lines, qbo.BuildLine(qbo.LineInput{
			Description:        item.Description,
			ProductName:        item.ProductName,
			ProductDescription: item.ProductDescription,
			Quantity:           item.Quantity,
			Rate:               item.Rate,
		}, ref))
	}
	return lines
}
