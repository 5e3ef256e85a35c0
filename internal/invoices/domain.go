// Package invoices owns the sales invoice ledger: draft consolidation of
// shipment records into per-customer daily invoices, total recomputation,
// status classification and sequential numbering at finalization.
package invoices

import (
	"fmt"
	"strings"
	"time"
)

// Status classifies an invoice by how much of it has been paid.
type Status string

const (
	// StatusDraft is a filter value only: an invoice is a draft while it has
	// no number. The stored status always carries the payment classification.
	StatusDraft    Status = "draft"
	StatusLunas    Status = "lunas"
	StatusSebagian Status = "sebagian"
	StatusHutang   Status = "hutang"
)

// Classify derives the payment status from the totals. Pure; call it every
// time the totals change.
func Classify(grandTotal, amountPaid float64) Status {
	switch {
	case grandTotal-amountPaid <= 0:
		return StatusLunas
	case amountPaid > 0:
		return StatusSebagian
	default:
		return StatusHutang
	}
}

// TransactionType tags what kind of sales an invoice aggregates.
type TransactionType string

const (
	TypeLive   TransactionType = "LIVE"
	TypeMeat   TransactionType = "MEAT"
	TypeMixed  TransactionType = "MIXED"
	TypeManual TransactionType = "MANUAL"
)

// Upgrade merges an incoming contribution type into the current one. The
// function is total: any two differing concrete types collapse to MIXED.
func (t TransactionType) Upgrade(incoming TransactionType) TransactionType {
	if t == "" {
		return incoming
	}
	if incoming == "" || incoming == t {
		return t
	}
	return TypeMixed
}

// SourceKind identifies where an invoice line item came from.
type SourceKind string

const (
	SourceLive   SourceKind = "live"
	SourceMeat   SourceKind = "meat"
	SourceManual SourceKind = "manual"
)

// InvoiceLineItem is one priced row on an invoice. Subtotal is always
// computed server side, never trusted from input.
type InvoiceLineItem struct {
	ID         int64      `json:"id"`
	InvoiceID  int64      `json:"invoice_id"`
	ItemType   string     `json:"item_type"`
	Label      string     `json:"label"`
	Count      *int       `json:"count,omitempty"`
	Weight     float64    `json:"weight"`
	UnitPrice  float64    `json:"unit_price"`
	Subtotal   float64    `json:"subtotal"`
	SourceKind SourceKind `json:"source_kind"`
	SourceID   int64      `json:"source_id,omitempty"`
	Position   int        `json:"position"`
}

// SalesInvoice is the consolidated per-customer daily bill. Number stays nil
// until finalization; an invoice without a number is a draft.
type SalesInvoice struct {
	ID                 int64           `json:"id"`
	Number             *string         `json:"number"`
	CustomerID         int64           `json:"customer_id"`
	CustomerName       string          `json:"customer_name,omitempty"`
	Date               time.Time       `json:"date"`
	Type               TransactionType `json:"transaction_type"`
	GrossAmount        float64         `json:"gross_sales_amount"`
	ExpenseAmount      float64         `json:"expense_amount"`
	GrandTotal         float64         `json:"grand_total"`
	AmountPaid         float64         `json:"amount_paid"`
	OutstandingBalance float64         `json:"outstanding_balance"`
	Status             Status          `json:"status"`
	PaymentMethod      string          `json:"payment_method,omitempty"`
	Note               string          `json:"note,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`

	Lines []InvoiceLineItem `json:"line_items,omitempty"`
}

// Draft reports whether the invoice is still consolidating.
func (inv *SalesInvoice) Draft() bool {
	return inv.Number == nil
}

// Recalc is the single recompute authority. Every stored total is derived
// here from the current line items; no other code path writes totals.
func Recalc(inv *SalesInvoice, lines []InvoiceLineItem) {
	var gross float64
	for i := range lines {
		gross += lines[i].Subtotal
	}
	inv.GrossAmount = gross
	inv.GrandTotal = gross - inv.ExpenseAmount
	inv.OutstandingBalance = inv.GrandTotal - inv.AmountPaid
	if inv.OutstandingBalance < 0 {
		inv.OutstandingBalance = 0
	}
	inv.Status = Classify(inv.GrandTotal, inv.AmountPaid)
	if tags := buildNoteTags(lines); tags != "" {
		inv.Note = tags
	}
}

// buildNoteTags renders the human readable back-reference tags ("BK Ayam #12")
// for every shipment contributing to the invoice. Resolution of which invoice
// a shipment belongs to goes through the foreign key, never through these.
func buildNoteTags(lines []InvoiceLineItem) string {
	type source struct {
		kind SourceKind
		id   int64
	}
	seen := make(map[source]bool)
	var tags []string
	for i := range lines {
		src := source{lines[i].SourceKind, lines[i].SourceID}
		if src.kind == SourceManual || src.id == 0 || seen[src] {
			continue
		}
		seen[src] = true
		switch src.kind {
		case SourceLive:
			tags = append(tags, fmt.Sprintf("BK Ayam #%d", src.id))
		case SourceMeat:
			tags = append(tags, fmt.Sprintf("BK Daging #%d", src.id))
		}
	}
	return strings.Join(tags, "; ")
}
