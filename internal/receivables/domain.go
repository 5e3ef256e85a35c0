// Package receivables books customer payments against open invoices,
// oldest debt first. Payments are append-only: once recorded they are
// never edited or deleted.
package receivables

import (
	"sort"
	"time"

	"github.com/ternaklink/ternaklink/internal/invoices"
)

// Payment is one recorded cash receipt from a customer. Amount always holds
// the full received sum regardless of how it was spread.
type Payment struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	CustomerID int64     `json:"customer_id"`
	Amount     float64   `json:"amount"`
	Method     string    `json:"method"`
	Note       string    `json:"note,omitempty"`
	PaidAt     time.Time `json:"paid_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Allocation is one invoice's share of a payment.
type Allocation struct {
	InvoiceID        int64   `json:"invoice_id"`
	InvoiceNumber    string  `json:"invoice_number,omitempty"`
	Applied          float64 `json:"applied"`
	OutstandingAfter float64 `json:"outstanding_after"`
}

// OpenInvoice is the allocator's view of one invoice with debt on it.
type OpenInvoice struct {
	ID          int64
	Number      *string
	Date        time.Time
	GrandTotal  float64
	AmountPaid  float64
	Outstanding float64
}

// Allocate spreads amount across open invoices oldest first; same-day ties
// break on the lower id (creation order). The slice entries are mutated in
// place: AmountPaid grows with every reduction so that Outstanding and the
// status classifier stay consistent. Pure apart from that mutation.
func Allocate(open []OpenInvoice, amount float64) []Allocation {
	sort.SliceStable(open, func(i, j int) bool {
		if !open[i].Date.Equal(open[j].Date) {
			return open[i].Date.Before(open[j].Date)
		}
		return open[i].ID < open[j].ID
	})

	remaining := amount
	var allocations []Allocation
	for i := range open {
		if remaining <= 0 {
			break
		}
		inv := &open[i]
		reduction := remaining
		if inv.Outstanding < reduction {
			reduction = inv.Outstanding
		}
		if reduction <= 0 {
			continue
		}
		inv.AmountPaid += reduction
		inv.Outstanding -= reduction
		remaining -= reduction

		a := Allocation{InvoiceID: inv.ID, Applied: reduction, OutstandingAfter: inv.Outstanding}
		if inv.Number != nil {
			a.InvoiceNumber = *inv.Number
		}
		allocations = append(allocations, a)
	}
	return allocations
}

// StatusFor returns the classification an open invoice should carry after
// allocation.
func (inv *OpenInvoice) StatusFor() invoices.Status {
	return invoices.Classify(inv.GrandTotal, inv.AmountPaid)
}
