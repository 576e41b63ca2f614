package qbo

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice display statuses derived on every read; never persisted.
const (
	StatusPaid    = "paid"
	StatusPending = "pending"
	StatusOverdue = "overdue"
)

// NoDueDate is rendered when an invoice's due date is absent or unparsable.
const NoDueDate = "No due date"

const dateLayout = "2006-01-02"

// SimpleInvoice is the application's invoice shape, recomputed from the
// QuickBooks representation on every read. ID is the user-facing DocNumber.
type SimpleInvoice struct {
	ID           string          `json:"id"`
	CustomerName string          `json:"customerName"`
	Amount       decimal.Decimal `json:"amount"`
	Balance      decimal.Decimal `json:"balance"`
	Status       string          `json:"status"`
	IssueDate    string          `json:"issueDate"`
	DueDate      string          `json:"dueDate"`
	Items        []SimpleLineItem `json:"items"`
}

// SimpleLineItem is one invoice line in the simplified shape.
type SimpleLineItem struct {
	Description string          `json:"description"`
	ProductName string          `json:"productName,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// LineInput is the write-path shape of one invoice line.
type LineInput struct {
	Description        string
	ProductName        string
	ProductDescription string
	Quantity           decimal.Decimal
	Rate               decimal.Decimal
}

// ToSimple maps a QuickBooks invoice to the simplified shape, deriving status
// against the current time.
func ToSimple(inv *Invoice) SimpleInvoice {
	return ToSimpleAt(inv, time.Now())
}

// ToSimpleAt is ToSimple with an explicit reference time for status derivation:
// zero balance is paid; otherwise a due date strictly before now is overdue;
// everything else (future, absent, or unparsable due date) is pending.
func ToSimpleAt(inv *Invoice, now time.Time) SimpleInvoice {
	s := SimpleInvoice{
		ID:           inv.DocNumber,
		CustomerName: customerName(inv.CustomerRef),
		Amount:       inv.TotalAmt,
		Balance:      inv.Balance,
		IssueDate:    normalizeDate(inv.TxnDate),
		Status:       deriveStatus(inv.Balance, inv.DueDate, now),
		Items:        simpleItems(inv.Line),
	}

	if due := normalizeDate(inv.DueDate); due != "" {
		s.DueDate = due
	} else {
		s.DueDate = NoDueDate
	}
	return s
}

// ToSimpleList maps a batch of invoices.
func ToSimpleList(invs []Invoice) []SimpleInvoice {
	now := time.Now()
	out := make([]SimpleInvoice, 0, len(invs))
	for i := range invs {
		out = append(out, ToSimpleAt(&invs[i], now))
	}
	return out
}

func deriveStatus(balance decimal.Decimal, dueDate string, now time.Time) string {
	if balance.IsZero() {
		return StatusPaid
	}
	if due, err := time.Parse(dateLayout, dueDate); err == nil && due.Before(now) {
		return StatusOverdue
	}
	return StatusPending
}

// customerName falls back to a synthesized name when the ref carries none.
func customerName(ref *Ref) string {
	if ref == nil {
		return ""
	}
	if ref.Name != "" {
		return ref.Name
	}
	return "Customer " + ref.Value
}

// simpleItems maps sales lines to the simplified item shape. Lines of other
// detail types (subtotal, discount, tax) are dropped.
func simpleItems(lines []Line) []SimpleLineItem {
	var out []SimpleLineItem
	for i := range lines {
		l := &lines[i]
		if l.DetailType != DetailTypeSalesItem || l.SalesItemLineDetail == nil {
			continue
		}
		d := l.SalesItemLineDetail

		item := SimpleLineItem{Amount: l.Amount}

		// Description preference: explicit description, then item name, then a literal.
		switch {
		case l.Description != "":
			item.Description = l.Description
		case d.ItemRef != nil && d.ItemRef.Name != "":
			item.Description = d.ItemRef.Name
		default:
			item.Description = "Item"
		}
		if d.ItemRef != nil {
			item.ProductName = d.ItemRef.Name
		}

		// Quantity defaults to 1 when QuickBooks omits it.
		if d.Qty != nil {
			item.Quantity = *d.Qty
		} else {
			item.Quantity = decimal.NewFromInt(1)
		}

		// Rate preference: the unit price, then the line total (covers lines
		// stored without a unit price).
		if d.UnitPrice != nil {
			item.Rate = *d.UnitPrice
		} else {
			item.Rate = l.Amount
		}

		out = append(out, item)
	}
	return out
}

// BuildLine constructs the QuickBooks line for one write-path item. The line
// amount is computed client-side as quantity × rate; ref is attached only if
// the resolver produced one.
func BuildLine(in LineInput, ref *Ref) Line {
	qty := in.Quantity
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}

	detail := &SalesItemLineDetail{
		Qty:       &qty,
		UnitPrice: &in.Rate,
	}
	if ref != nil {
		detail.ItemRef = ref
	}

	return Line{
		Amount:              qty.Mul(in.Rate),
		DetailType:          DetailTypeSalesItem,
		Description:         lineDescription(in),
		SalesItemLineDetail: detail,
	}
}

// lineDescription applies the write-path fallback chain:
// description → productDescription → productName → literal "Item".
func lineDescription(in LineInput) string {
	switch {
	case in.Description != "":
		return in.Description
	case in.ProductDescription != "":
		return in.ProductDescription
	case in.ProductName != "":
		return in.ProductName
	default:
		return "Item"
	}
}

// normalizeDate renders a provider date as YYYY-MM-DD, empty when unparsable.
func normalizeDate(s string) string {
	if s == "" {
		return ""
	}
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(dateLayout)
		}
	}
	return ""
}
