package invoices

import "time"

// ManualLineInput is one row of a manually entered invoice. Subtotal is
// computed server side from weight (or count) and unit price.
type ManualLineInput struct {
	Label     string  `json:"label" validate:"required,max=200"`
	Count     *int    `json:"count,omitempty" validate:"omitempty,gt=0"`
	Weight    float64 `json:"weight" validate:"gte=0"`
	UnitPrice float64 `json:"unit_price" validate:"gt=0"`
}

// CreateManualInvoiceRequest creates a numbered invoice directly, outside the
// shipment consolidation flow (cash sales, corrections).
type CreateManualInvoiceRequest struct {
	CustomerID    int64             `json:"customer_id" validate:"required,gt=0"`
	Date          time.Time         `json:"date" validate:"required"`
	GrossAmount   float64           `json:"gross_amount" validate:"gte=0"`
	Expense       float64           `json:"expense" validate:"gte=0"`
	AmountPaid    float64           `json:"amount_paid" validate:"gte=0"`
	PaymentMethod string            `json:"payment_method" validate:"omitempty,max=30"`
	Note          string            `json:"note" validate:"omitempty,max=500"`
	Lines         []ManualLineInput `json:"line_items,omitempty" validate:"omitempty,dive"`
}
