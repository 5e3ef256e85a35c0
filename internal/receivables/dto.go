package receivables

import "time"

// CreatePaymentRequest carries input for recording a payment.
type CreatePaymentRequest struct {
	CustomerID int64     `json:"customer_id" validate:"required,gt=0"`
	Amount     float64   `json:"amount" validate:"required,gt=0"`
	Method     string    `json:"method" validate:"required,oneof=tunai transfer"`
	Note       string    `json:"note" validate:"omitempty,max=300"`
	PaidAt     time.Time `json:"paid_at"`
}

// PaymentResult is the write response: the recorded payment, where it landed
// and the customer's debt after it.
type PaymentResult struct {
	Payment              *Payment     `json:"payment"`
	Allocations          []Allocation `json:"allocations"`
	RemainingOutstanding float64      `json:"remaining_outstanding"`
}

// ListPaymentsRequest filters the payment ledger.
type ListPaymentsRequest struct {
	CustomerID int64
	Limit      int
	Offset     int
}
