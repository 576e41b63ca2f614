package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"invoice-agent/internal/app"
)

// listInvoices handles GET /api/invoices.
func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListInvoices(r.Context(), caller(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// getInvoice handles GET /api/invoices/{docNumber}.
func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	docNumber := chi.URLParam(r, "docNumber")
	result, err := h.svc.GetInvoice(r.Context(), caller(r), docNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// createInvoice handles POST /api/invoices.
func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req app.CreateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.CreateInvoice(r.Context(), caller(r), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(result)
}

// updateInvoice handles PATCH /api/invoices/{docNumber}.
func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	docNumber := chi.URLParam(r, "docNumber")
	var req app.UpdateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.UpdateInvoice(r.Context(), caller(r), docNumber, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// deleteInvoice handles DELETE /api/invoices/{docNumber}.
func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	docNumber := chi.URLParam(r, "docNumber")
	result, err := h.svc.DeleteInvoice(r.Context(), caller(r), docNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// sendInvoice handles POST /api/invoices/{docNumber}/send.
func (h *Handler) sendInvoice(w http.ResponseWriter, r *http.Request) {
	docNumber := chi.URLParam(r, "docNumber")
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.SendInvoicePdf(r.Context(), caller(r), docNumber, req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"sent": true, "docNumber": docNumber})
}

// downloadInvoicePdf handles GET /api/invoices/{docNumber}/pdf. The PDF bytes
// are streamed back verbatim.
func (h *Handler) downloadInvoicePdf(w http.ResponseWriter, r *http.Request) {
	docNumber := chi.URLParam(r, "docNumber")
	pdf, err := h.svc.DownloadInvoicePdf(r.Context(), caller(r), docNumber)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="invoice-`+docNumber+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	_, _ = w.Write(pdf)
}

// listCustomers handles GET /api/customers.
func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListCustomers(r.Context(), caller(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
