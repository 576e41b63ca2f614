package app

import "github.com/shopspring/decimal"

// InvoiceItemInput is one line of a create or update request.
type InvoiceItemInput struct {
	Description        string          `json:"description,omitempty"`
	ProductName        string          `json:"productName,omitempty"`
	ProductDescription string          `json:"productDescription,omitempty"`
	Quantity           decimal.Decimal `json:"quantity"`
	Rate               decimal.Decimal `json:"rate"`
}

// CreateInvoiceRequest is the input for CreateInvoice. Dates are YYYY-MM-DD;
// both are optional.
type CreateInvoiceRequest struct {
	CustomerName string             `json:"customerName"`
	Items        []InvoiceItemInput `json:"items"`
	IssueDate    string             `json:"issueDate,omitempty"`
	DueDate      string             `json:"dueDate,omitempty"`
}

// UpdateInvoiceRequest carries a partial update. Nil fields are left
// untouched; a non-nil Items replaces every line on the invoice.
type UpdateInvoiceRequest struct {
	CustomerName *string             `json:"customerName,omitempty"`
	Items        *[]InvoiceItemInput `json:"items,omitempty"`
	IssueDate    *string             `json:"issueDate,omitempty"`
	DueDate      *string             `json:"dueDate,omitempty"`
}
