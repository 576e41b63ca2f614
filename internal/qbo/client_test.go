package qbo_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"invoice-agent/internal/qbo"
)

func newTestClient(srv *httptest.Server) *qbo.Client {
	return qbo.NewClient(srv.Client(), srv.URL, "realm1", "65")
}

func TestClient_FaultNormalization(t *testing.T) {
	t.Run("fault envelope", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeFault(w, http.StatusBadRequest, "610", "Object Not Found", "invoice 42")
		}))
		t.Cleanup(srv.Close)

		_, err := newTestClient(srv).GetInvoice(context.Background(), "42")
		var apiErr *qbo.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *qbo.APIError", err)
		}
		if apiErr.StatusCode != http.StatusBadRequest {
			t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
		}
		if apiErr.Code != "610" || apiErr.Message != "Object Not Found" || apiErr.Detail != "invoice 42" {
			t.Errorf("normalized fault = %+v", apiErr)
		}
	})

	t.Run("non-JSON body falls back to raw text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream unavailable"))
		}))
		t.Cleanup(srv.Close)

		_, err := newTestClient(srv).QueryInvoices(context.Background())
		var apiErr *qbo.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *qbo.APIError", err)
		}
		if apiErr.Message != "upstream unavailable" {
			t.Errorf("Message = %q, want raw body", apiErr.Message)
		}
	})

	t.Run("empty body falls back to status text", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		t.Cleanup(srv.Close)

		_, err := newTestClient(srv).QueryInvoices(context.Background())
		var apiErr *qbo.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("error = %v, want *qbo.APIError", err)
		}
		if apiErr.Message != http.StatusText(http.StatusServiceUnavailable) {
			t.Errorf("Message = %q, want status text", apiErr.Message)
		}
	})
}

func TestClient_FindCustomerByDisplayName(t *testing.T) {
	realm := newFakeRealm()
	realm.customers = []qbo.Customer{
		{ID: "1", DisplayName: "Acme Co"},
		{ID: "2", DisplayName: "acme co"},
	}
	srv := realm.serve(t)
	client := newTestClient(srv)

	t.Run("exact match", func(t *testing.T) {
		got, err := client.FindCustomerByDisplayName(context.Background(), "Acme Co")
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.ID != "1" {
			t.Errorf("got %+v, want customer 1", got)
		}
	})

	t.Run("match is case-sensitive", func(t *testing.T) {
		got, err := client.FindCustomerByDisplayName(context.Background(), "ACME CO")
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("got %+v, want nil for differently-cased name", got)
		}
	})

	t.Run("no match returns nil without error", func(t *testing.T) {
		got, err := client.FindCustomerByDisplayName(context.Background(), "Globex")
		if err != nil {
			t.Fatal(err)
		}
		if got != nil {
			t.Errorf("got %+v, want nil", got)
		}
	})
}

func TestClient_DeleteInvoiceSendsIdAndSyncToken(t *testing.T) {
	realm := newFakeRealm()
	realm.invoices = []qbo.Invoice{{ID: "7", SyncToken: "3", DocNumber: "1001"}}
	srv := realm.serve(t)
	client := newTestClient(srv)

	if err := client.DeleteInvoice(context.Background(), "7", "3"); err != nil {
		t.Fatal(err)
	}
	if len(realm.deletedInvoices) != 1 || realm.deletedInvoices[0] != "7" {
		t.Errorf("deleted = %v, want [7]", realm.deletedInvoices)
	}

	// A stale token must be rejected by the remote, not papered over.
	realm.invoices = []qbo.Invoice{{ID: "8", SyncToken: "5", DocNumber: "1002"}}
	err := client.DeleteInvoice(context.Background(), "8", "4")
	var apiErr *qbo.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "5010" {
		t.Errorf("stale delete error = %v, want stale object fault", err)
	}
}
