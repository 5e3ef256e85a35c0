// Package stock tracks live-bird availability per location and guards
// outgoing shipments against overdrawing it.
package stock

import (
	"fmt"
	"time"
)

// BirdReceipt records live birds arriving at a location.
type BirdReceipt struct {
	ID         int64     `json:"id"`
	LocationID int64     `json:"location_id"`
	Date       time.Time `json:"date"`
	BirdCount  int       `json:"bird_count"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// BirdDeath records birds lost at a location.
type BirdDeath struct {
	ID         int64     `json:"id"`
	LocationID int64     `json:"location_id"`
	Date       time.Time `json:"date"`
	BirdCount  int       `json:"bird_count"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Availability is the guard's view of one location.
type Availability struct {
	LocationID int64 `json:"location_id"`
	Received   int   `json:"received"`
	Deceased   int   `json:"deceased"`
	Shipped    int   `json:"shipped"`
	Available  int   `json:"available"`
}

// InsufficientStockError is returned when a live shipment would exceed the
// available bird count. Both numbers travel with the error.
type InsufficientStockError struct {
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d birds, available %d", e.Requested, e.Available)
}

// RecordInput carries input for a receipt or death record.
type RecordInput struct {
	LocationID int64     `json:"location_id" validate:"required,gt=0"`
	Date       time.Time `json:"date" validate:"required"`
	BirdCount  int       `json:"bird_count" validate:"required,gt=0"`
	Note       string    `json:"note" validate:"omitempty,max=300"`
}
