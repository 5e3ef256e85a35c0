package customers

import "time"

// Customer is a buyer the company ships birds or meat to.
type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OutstandingSummary aggregates a customer's open receivables.
type OutstandingSummary struct {
	CustomerID        int64   `json:"customer_id"`
	OpenInvoices      int     `json:"open_invoices"`
	TotalOutstanding  float64 `json:"total_outstanding"`
	OldestInvoiceID   int64   `json:"oldest_invoice_id,omitempty"`
	OldestOutstanding float64 `json:"oldest_outstanding,omitempty"`
}
