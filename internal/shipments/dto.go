package shipments

import "time"

// LiveShipmentRequest carries input for creating or updating a live shipment.
type LiveShipmentRequest struct {
	LocationID    int64     `json:"location_id" validate:"required,gt=0"`
	Date          time.Time `json:"date" validate:"required"`
	CustomerID    int64     `json:"customer_id" validate:"required,gt=0"`
	BirdCount     int       `json:"bird_count" validate:"required,gt=0"`
	TotalWeight   float64   `json:"weight_kg" validate:"required,gt=0"`
	SizeClass     SizeClass `json:"size_class" validate:"required,oneof=JUMBO BESAR KECIL"`
	PricePerKg    float64   `json:"price_per_kg" validate:"required,gt=0"`
	Expense       float64   `json:"expense" validate:"gte=0"`
	Plucked       bool      `json:"plucked"`
	PluckingPrice float64   `json:"plucking_price" validate:"gte=0"`
}

// MeatItemRequest is one requested meat line. Subtotal is never accepted from
// the caller.
type MeatItemRequest struct {
	MeatTypeID int64   `json:"meat_type_id" validate:"required,gt=0"`
	Qty        float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice  float64 `json:"unit_price" validate:"gte=0"`
}

// MeatShipmentRequest carries input for creating or updating a meat shipment.
type MeatShipmentRequest struct {
	Date       time.Time         `json:"date" validate:"required"`
	CustomerID int64             `json:"customer_id" validate:"required,gt=0"`
	Expense    float64           `json:"expense" validate:"gte=0"`
	Note       string            `json:"note" validate:"omitempty,max=300"`
	Items      []MeatItemRequest `json:"line_items" validate:"required,min=1,dive"`
}

// ListRequest filters shipment lists.
type ListRequest struct {
	CustomerID int64
	FromDate   time.Time
	ToDate     time.Time
	Limit      int
	Offset     int
}

// LiveResult pairs a persisted live shipment with the invoice it now sits on.
type LiveResult struct {
	Shipment  *LiveShipment `json:"shipment"`
	InvoiceID int64         `json:"invoice_id"`
}

// MeatResult pairs a persisted meat shipment with the invoice it now sits on.
type MeatResult struct {
	Shipment  *MeatShipment `json:"shipment"`
	InvoiceID int64         `json:"invoice_id"`
}
