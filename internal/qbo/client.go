package qbo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// APIError is the normalized shape of every QuickBooks fault. Normalization
// happens here, at the lowest call layer, so orchestrator operations see a
// consistent error regardless of which remote method failed.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("quickbooks API error %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("quickbooks API error: %s", e.Message)
}

// fault is QuickBooks' nested error envelope.
type fault struct {
	Fault struct {
		Error []struct {
			Message string `json:"Message"`
			Detail  string `json:"Detail"`
			Code    string `json:"code"`
		} `json:"Error"`
		Type string `json:"type"`
	} `json:"Fault"`
}

// Client is a typed QuickBooks REST client scoped to one realm (company).
// The underlying http.Client carries the OAuth2 token; token state is owned
// by the session manager, never by this client.
type Client struct {
	http         *http.Client
	baseURL      string
	realmID      string
	minorVersion string
}

// NewClient constructs a Client for realmID. httpClient must already attach
// a valid bearer token to each request.
func NewClient(httpClient *http.Client, baseURL, realmID, minorVersion string) *Client {
	return &Client{
		http:         httpClient,
		baseURL:      strings.TrimRight(baseURL, "/"),
		realmID:      realmID,
		minorVersion: minorVersion,
	}
}

// RealmID returns the QuickBooks company ID this client is scoped to.
func (c *Client) RealmID() string { return c.realmID }

// do issues one API call and decodes the JSON response into out (if non-nil).
// Non-2xx responses are normalized into *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("minorversion", c.minorVersion)

	u := fmt.Sprintf("%s/company/%s%s?%s", c.baseURL, c.realmID, path, query.Encode())

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return normalizeFault(resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// normalizeFault extracts {message, code, detail} from the fault envelope,
// falling back to the raw body when the structure is absent.
func normalizeFault(status int, raw []byte) *APIError {
	var f fault
	if err := json.Unmarshal(raw, &f); err == nil && len(f.Fault.Error) > 0 {
		fe := f.Fault.Error[0]
		return &APIError{
			StatusCode: status,
			Message:    fe.Message,
			Code:       fe.Code,
			Detail:     fe.Detail,
		}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// query runs a QuickBooks SQL-like query and decodes the envelope.
func (c *Client) query(ctx context.Context, q string) (*queryResponse, error) {
	params := url.Values{}
	params.Set("query", q)
	var out queryResponse
	if err := c.do(ctx, http.MethodGet, "/query", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// escapeQueryLiteral escapes single quotes for embedding in a query string.
func escapeQueryLiteral(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}

// ── Invoices ──────────────────────────────────────────────────────────────────

// QueryInvoices returns all invoices in the realm.
func (c *Client) QueryInvoices(ctx context.Context) ([]Invoice, error) {
	resp, err := c.query(ctx, "SELECT * FROM Invoice MAXRESULTS 1000")
	if err != nil {
		return nil, err
	}
	return resp.QueryResponse.Invoice, nil
}

// GetInvoice fetches one invoice by its stable ID, including the current SyncToken.
func (c *Client) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	var out invoiceEnvelope
	if err := c.do(ctx, http.MethodGet, "/invoice/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Invoice, nil
}

// CreateInvoice submits a new invoice and returns the created object.
func (c *Client) CreateInvoice(ctx context.Context, inv *Invoice) (*Invoice, error) {
	var out invoiceEnvelope
	if err := c.do(ctx, http.MethodPost, "/invoice", nil, inv, &out); err != nil {
		return nil, err
	}
	return &out.Invoice, nil
}

// UpdateInvoice submits a full update. inv must carry the current Id and SyncToken.
func (c *Client) UpdateInvoice(ctx context.Context, inv *Invoice) (*Invoice, error) {
	params := url.Values{}
	params.Set("operation", "update")
	var out invoiceEnvelope
	if err := c.do(ctx, http.MethodPost, "/invoice", params, inv, &out); err != nil {
		return nil, err
	}
	return &out.Invoice, nil
}

// DeleteInvoice voids the invoice at QuickBooks. This is irreversible.
func (c *Client) DeleteInvoice(ctx context.Context, id, syncToken string) error {
	params := url.Values{}
	params.Set("operation", "delete")
	body := map[string]string{"Id": id, "SyncToken": syncToken}
	return c.do(ctx, http.MethodPost, "/invoice", params, body, nil)
}

// SendInvoice emails the invoice PDF to the given address.
func (c *Client) SendInvoice(ctx context.Context, id, email string) error {
	params := url.Values{}
	params.Set("sendTo", email)
	return c.do(ctx, http.MethodPost, "/invoice/"+url.PathEscape(id)+"/send", params, nil, nil)
}

// GetInvoicePDF fetches the invoice rendered as PDF and returns the raw bytes.
func (c *Client) GetInvoicePDF(ctx context.Context, id string) ([]byte, error) {
	params := url.Values{}
	params.Set("minorversion", c.minorVersion)
	u := fmt.Sprintf("%s/company/%s/invoice/%s/pdf?%s",
		c.baseURL, c.realmID, url.PathEscape(id), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET invoice pdf: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, normalizeFault(resp.StatusCode, raw)
	}
	return raw, nil
}

// ── Customers ─────────────────────────────────────────────────────────────────

// QueryCustomers returns all customers in the realm.
func (c *Client) QueryCustomers(ctx context.Context) ([]Customer, error) {
	resp, err := c.query(ctx, "SELECT * FROM Customer MAXRESULTS 1000")
	if err != nil {
		return nil, err
	}
	return resp.QueryResponse.Customer, nil
}

// FindCustomerByDisplayName does an exact-match lookup. The match is
// case-sensitive and whitespace-sensitive at the query layer, preserving the
// source system's behavior; callers that vary capitalization will create
// duplicate customers.
func (c *Client) FindCustomerByDisplayName(ctx context.Context, name string) (*Customer, error) {
	q := fmt.Sprintf("SELECT * FROM Customer WHERE DisplayName = '%s'", escapeQueryLiteral(name))
	resp, err := c.query(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(resp.QueryResponse.Customer) == 0 {
		return nil, nil
	}
	return &resp.QueryResponse.Customer[0], nil
}

// CreateCustomer creates a customer with the given display name.
func (c *Client) CreateCustomer(ctx context.Context, displayName string) (*Customer, error) {
	body := map[string]string{"DisplayName": displayName}
	var out customerEnvelope
	if err := c.do(ctx, http.MethodPost, "/customer", nil, body, &out); err != nil {
		return nil, err
	}
	return &out.Customer, nil
}

// ── Items and accounts ────────────────────────────────────────────────────────

// QueryItems returns all catalog items in the realm.
func (c *Client) QueryItems(ctx context.Context) ([]Item, error) {
	resp, err := c.query(ctx, "SELECT * FROM Item MAXRESULTS 1000")
	if err != nil {
		return nil, err
	}
	return resp.QueryResponse.Item, nil
}

// CreateItem creates a catalog item.
func (c *Client) CreateItem(ctx context.Context, item *Item) (*Item, error) {
	var out itemEnvelope
	if err := c.do(ctx, http.MethodPost, "/item", nil, item, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

// QueryAccounts returns all ledger accounts in the realm.
func (c *Client) QueryAccounts(ctx context.Context) ([]Account, error) {
	resp, err := c.query(ctx, "SELECT * FROM Account MAXRESULTS 1000")
	if err != nil {
		return nil, err
	}
	return resp.QueryResponse.Account, nil
}
