package qbo_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"invoice-agent/internal/qbo"
)

// fakeRealm is an in-memory stand-in for one QuickBooks company, served over
// httptest. It implements just enough of the API surface for the client and
// resolver to run against.
type fakeRealm struct {
	mu        sync.Mutex
	invoices  []qbo.Invoice
	customers []qbo.Customer
	items     []qbo.Item
	accounts  []qbo.Account

	nextID           int
	createdItems     []string
	createdCustomers []string
	deletedInvoices  []string
	sentInvoices     []string
}

func newFakeRealm() *fakeRealm {
	return &fakeRealm{nextID: 100}
}

func (f *fakeRealm) allocID() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func (f *fakeRealm) serve(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeRealm) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, "/query"):
		f.handleQuery(w, r)
	case strings.HasSuffix(path, "/customer"):
		f.handleCreateCustomer(w, r)
	case strings.HasSuffix(path, "/item"):
		f.handleCreateItem(w, r)
	case strings.HasSuffix(path, "/send"):
		parts := strings.Split(path, "/")
		f.sentInvoices = append(f.sentInvoices, parts[len(parts)-2])
		writeEnvelope(w, "Invoice", qbo.Invoice{})
	case strings.HasSuffix(path, "/invoice"):
		f.handleInvoicePost(w, r)
	case strings.Contains(path, "/invoice/"):
		f.handleGetInvoice(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeRealm) handleQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("query")
	resp := map[string]any{}
	qr := map[string]any{}
	switch {
	case strings.Contains(q, "FROM Invoice"):
		qr["Invoice"] = f.invoices
	case strings.Contains(q, "FROM Customer WHERE DisplayName ="):
		name := between(q, "'", "'")
		var matched []qbo.Customer
		for _, c := range f.customers {
			if c.DisplayName == name {
				matched = append(matched, c)
			}
		}
		qr["Customer"] = matched
	case strings.Contains(q, "FROM Customer"):
		qr["Customer"] = f.customers
	case strings.Contains(q, "FROM Item"):
		qr["Item"] = f.items
	case strings.Contains(q, "FROM Account"):
		qr["Account"] = f.accounts
	}
	resp["QueryResponse"] = qr
	writeFakeJSON(w, resp)
}

func (f *fakeRealm) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DisplayName string `json:"DisplayName"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	c := qbo.Customer{ID: f.allocID(), SyncToken: "0", DisplayName: body.DisplayName}
	f.customers = append(f.customers, c)
	f.createdCustomers = append(f.createdCustomers, body.DisplayName)
	writeEnvelope(w, "Customer", c)
}

func (f *fakeRealm) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var item qbo.Item
	json.NewDecoder(r.Body).Decode(&item)
	item.ID = f.allocID()
	item.SyncToken = "0"
	item.FullyQualifiedName = item.Name
	f.items = append(f.items, item)
	f.createdItems = append(f.createdItems, item.Name)
	writeEnvelope(w, "Item", item)
}

func (f *fakeRealm) handleInvoicePost(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("operation") {
	case "delete":
		var body struct {
			ID        string `json:"Id"`
			SyncToken string `json:"SyncToken"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		for i, inv := range f.invoices {
			if inv.ID == body.ID {
				if inv.SyncToken != body.SyncToken {
					writeFault(w, http.StatusBadRequest, "5010", "Stale Object Error", "SyncToken mismatch")
					return
				}
				f.invoices = append(f.invoices[:i], f.invoices[i+1:]...)
				f.deletedInvoices = append(f.deletedInvoices, body.ID)
				writeFakeJSON(w, map[string]any{"Invoice": map[string]string{"Id": body.ID, "status": "Deleted"}})
				return
			}
		}
		writeFault(w, http.StatusBadRequest, "610", "Object Not Found", "invoice "+body.ID)
	case "update":
		var inv qbo.Invoice
		json.NewDecoder(r.Body).Decode(&inv)
		for i := range f.invoices {
			if f.invoices[i].ID == inv.ID {
				if f.invoices[i].SyncToken != inv.SyncToken {
					writeFault(w, http.StatusBadRequest, "5010", "Stale Object Error", "SyncToken mismatch")
					return
				}
				inv.SyncToken = strconv.Itoa(mustAtoi(inv.SyncToken) + 1)
				inv.TotalAmt = sumLines(inv.Line)
				inv.Balance = inv.TotalAmt
				f.invoices[i] = inv
				writeEnvelope(w, "Invoice", inv)
				return
			}
		}
		writeFault(w, http.StatusBadRequest, "610", "Object Not Found", "invoice "+inv.ID)
	default:
		var inv qbo.Invoice
		json.NewDecoder(r.Body).Decode(&inv)
		inv.ID = f.allocID()
		inv.SyncToken = "0"
		if inv.DocNumber == "" {
			inv.DocNumber = inv.ID
		}
		inv.TotalAmt = sumLines(inv.Line)
		inv.Balance = inv.TotalAmt
		f.invoices = append(f.invoices, inv)
		writeEnvelope(w, "Invoice", inv)
	}
}

func (f *fakeRealm) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	id := parts[len(parts)-1]
	for _, inv := range f.invoices {
		if inv.ID == id {
			writeEnvelope(w, "Invoice", inv)
			return
		}
	}
	writeFault(w, http.StatusBadRequest, "610", "Object Not Found", "invoice "+id)
}

func writeEnvelope(w http.ResponseWriter, key string, v any) {
	writeFakeJSON(w, map[string]any{key: v})
}

func writeFakeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeFault(w http.ResponseWriter, status int, code, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"Fault": map[string]any{
			"type": "ValidationFault",
			"Error": []map[string]string{
				{"Message": message, "Detail": detail, "code": code},
			},
		},
	})
}

func between(s, open, close string) string {
	i := strings.Index(s, open)
	if i < 0 {
		return ""
	}
	s = s[i+len(open):]
	j := strings.Index(s, close)
	if j < 0 {
		return ""
	}
	return s[:j]
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func sumLines(lines []qbo.Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}
