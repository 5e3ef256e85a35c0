// Package shipments records outgoing goods (live birds and processed meat)
// and keeps each record merged into its customer's daily sales invoice.
package shipments

import (
	"time"

	"github.com/ternaklink/ternaklink/internal/invoices"
)

// SizeClass buckets live birds by weight class.
type SizeClass string

const (
	SizeJumbo SizeClass = "JUMBO"
	SizeBesar SizeClass = "BESAR"
	SizeKecil SizeClass = "KECIL"
)

// ValidSizeClass reports whether s is a known size class.
func ValidSizeClass(s SizeClass) bool {
	switch s {
	case SizeJumbo, SizeBesar, SizeKecil:
		return true
	}
	return false
}

// LiveShipment is one outgoing load of live birds. It is never owned by an
// invoice; InvoiceID is a weak link to the invoice it was consolidated into.
type LiveShipment struct {
	ID            int64     `json:"id"`
	LocationID    int64     `json:"location_id"`
	Date          time.Time `json:"date"`
	CustomerID    int64     `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	BirdCount     int       `json:"bird_count"`
	TotalWeight   float64   `json:"total_weight"`
	SizeClass     SizeClass `json:"size_class"`
	PricePerKg    float64   `json:"price_per_kg"`
	Plucked       bool      `json:"plucked"`
	PluckingPrice float64   `json:"plucking_price,omitempty"`
	GrossAmount   float64   `json:"gross_amount"`
	ExpenseAmount float64   `json:"expense_amount"`
	NetAmount     float64   `json:"net_amount"`
	InvoiceID     *int64    `json:"invoice_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ComputeAmounts derives the money fields. Plucking is charged per bird on
// top of the weight price.
func (s *LiveShipment) ComputeAmounts() {
	s.GrossAmount = s.TotalWeight * s.PricePerKg
	if s.Plucked {
		s.GrossAmount += float64(s.BirdCount) * s.PluckingPrice
	}
	s.NetAmount = s.GrossAmount - s.ExpenseAmount
}

// InvoiceLines renders the shipment as invoice line items. The weight charge
// and the plucking charge stay separate rows so line subtotals always sum to
// the shipment gross.
func (s *LiveShipment) InvoiceLines() []invoices.InvoiceLineItem {
	count := s.BirdCount
	lines := []invoices.InvoiceLineItem{{
		ItemType:   "AYAM_HIDUP",
		Label:      "Ayam hidup " + string(s.SizeClass),
		Count:      &count,
		Weight:     s.TotalWeight,
		UnitPrice:  s.PricePerKg,
		Subtotal:   s.TotalWeight * s.PricePerKg,
		SourceKind: invoices.SourceLive,
		SourceID:   s.ID,
	}}
	if s.Plucked {
		pluckCount := s.BirdCount
		lines = append(lines, invoices.InvoiceLineItem{
			ItemType:   "BULUI",
			Label:      "Jasa bului",
			Count:      &pluckCount,
			UnitPrice:  s.PluckingPrice,
			Subtotal:   float64(s.BirdCount) * s.PluckingPrice,
			SourceKind: invoices.SourceLive,
			SourceID:   s.ID,
		})
	}
	return lines
}

// MeatLineItem is one priced row of a meat shipment. Subtotal is always
// computed server side.
type MeatLineItem struct {
	ID           int64   `json:"id"`
	ShipmentID   int64   `json:"shipment_id"`
	MeatTypeID   int64   `json:"meat_type_id"`
	MeatTypeName string  `json:"meat_type_name"`
	Qty          float64 `json:"qty"`
	UnitPrice    float64 `json:"unit_price"`
	Subtotal     float64 `json:"subtotal"`
	Position     int     `json:"position"`
}

// MeatShipment is one outgoing load of processed meat with ordered items.
type MeatShipment struct {
	ID            int64          `json:"id"`
	Date          time.Time      `json:"date"`
	CustomerID    int64          `json:"customer_id"`
	CustomerName  string         `json:"customer_name"`
	ExpenseAmount float64        `json:"expense_amount"`
	Balance       float64        `json:"balance"`
	Note          string         `json:"note,omitempty"`
	InvoiceID     *int64         `json:"invoice_id"`
	Items         []MeatLineItem `json:"items"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ComputeAmounts fills item subtotals and the header balance.
func (s *MeatShipment) ComputeAmounts() {
	var gross float64
	for i := range s.Items {
		s.Items[i].Subtotal = s.Items[i].Qty * s.Items[i].UnitPrice
		s.Items[i].Position = i + 1
		gross += s.Items[i].Subtotal
	}
	s.Balance = gross - s.ExpenseAmount
}

// InvoiceLines renders the shipment's items as invoice line items.
func (s *MeatShipment) InvoiceLines() []invoices.InvoiceLineItem {
	lines := make([]invoices.InvoiceLineItem, 0, len(s.Items))
	for i := range s.Items {
		item := &s.Items[i]
		lines = append(lines, invoices.InvoiceLineItem{
			ItemType:   "DAGING",
			Label:      item.MeatTypeName,
			Weight:     item.Qty,
			UnitPrice:  item.UnitPrice,
			Subtotal:   item.Subtotal,
			SourceKind: invoices.SourceMeat,
			SourceID:   s.ID,
		})
	}
	return lines
}
