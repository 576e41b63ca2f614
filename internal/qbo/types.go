package qbo

import "github.com/shopspring/decimal"

// Ref is a lightweight pointer to a QuickBooks object (customer, item,
// account). It is only looked up or created, never mutated.
type Ref struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

// EmailAddress wraps QuickBooks' nested email representation.
type EmailAddress struct {
	Address string `json:"Address,omitempty"`
}

// SalesItemLineDetail carries the item-level fields of a sales line.
// Qty and UnitPrice are pointers because QuickBooks omits them entirely on
// description-only lines, and the read-path fallbacks depend on absence.
type SalesItemLineDetail struct {
	ItemRef   *Ref             `json:"ItemRef,omitempty"`
	Qty       *decimal.Decimal `json:"Qty,omitempty"`
	UnitPrice *decimal.Decimal `json:"UnitPrice,omitempty"`
}

// Line is one line of a QuickBooks invoice.
type Line struct {
	ID                  string               `json:"Id,omitempty"`
	Amount              decimal.Decimal      `json:"Amount"`
	DetailType          string               `json:"DetailType"`
	Description         string               `json:"Description,omitempty"`
	SalesItemLineDetail *SalesItemLineDetail `json:"SalesItemLineDetail,omitempty"`
}

// DetailTypeSalesItem is the only line detail type the integration reads or writes.
const DetailTypeSalesItem = "SalesItemLineDetail"

// Invoice is the QuickBooks invoice representation. Id is the stable internal
// key; DocNumber is the user-facing number the application routes by.
// SyncToken is QuickBooks' optimistic-concurrency stamp: every update or
// delete must carry the latest value, so it is re-fetched immediately before
// each mutating call and never cached.
type Invoice struct {
	ID          string          `json:"Id,omitempty"`
	SyncToken   string          `json:"SyncToken,omitempty"`
	DocNumber   string          `json:"DocNumber,omitempty"`
	CustomerRef *Ref            `json:"CustomerRef,omitempty"`
	Line        []Line          `json:"Line,omitempty"`
	TxnDate     string          `json:"TxnDate,omitempty"`
	DueDate     string          `json:"DueDate,omitempty"`
	Balance     decimal.Decimal `json:"Balance,omitempty"`
	TotalAmt    decimal.Decimal `json:"TotalAmt,omitempty"`
	BillEmail   *EmailAddress   `json:"BillEmail,omitempty"`
}

// Customer is the subset of the QuickBooks customer object the core uses.
type Customer struct {
	ID               string        `json:"Id,omitempty"`
	SyncToken        string        `json:"SyncToken,omitempty"`
	DisplayName      string        `json:"DisplayName,omitempty"`
	CompanyName      string        `json:"CompanyName,omitempty"`
	PrimaryEmailAddr *EmailAddress `json:"PrimaryEmailAddr,omitempty"`
}

// Item is a QuickBooks catalog item. Service-type items require an income
// account reference at creation time.
type Item struct {
	ID                 string `json:"Id,omitempty"`
	SyncToken          string `json:"SyncToken,omitempty"`
	Name               string `json:"Name,omitempty"`
	FullyQualifiedName string `json:"FullyQualifiedName,omitempty"`
	Type               string `json:"Type,omitempty"`
	IncomeAccountRef   *Ref   `json:"IncomeAccountRef,omitempty"`
}

// Account is a ledger account, used only to locate an income account when
// creating items.
type Account struct {
	ID             string `json:"Id,omitempty"`
	Name           string `json:"Name,omitempty"`
	AccountType    string `json:"AccountType,omitempty"`
	Classification string `json:"Classification,omitempty"`
}

// queryResponse is the envelope QuickBooks wraps query results in.
type queryResponse struct {
	QueryResponse struct {
		Invoice  []Invoice  `json:"Invoice,omitempty"`
		Customer []Customer `json:"Customer,omitempty"`
		Item     []Item     `json:"Item,omitempty"`
		Account  []Account  `json:"Account,omitempty"`
	} `json:"QueryResponse"`
}

// invoiceEnvelope wraps single-invoice read/create/update/delete responses.
type invoiceEnvelope struct {
	Invoice Invoice `json:"Invoice"`
}

type customerEnvelope struct {
	Customer Customer `json:"Customer"`
}

type itemEnvelope struct {
	Item Item `json:"Item"`
}
