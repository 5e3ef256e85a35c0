// Package masterdata holds the small reference entities the trading flows
// hang off: source locations (coops) and meat types.
package masterdata

import "time"

// Location is a coop or holding site live birds ship out of.
type Location struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

// MeatType is a processed meat product (karkas, fillet, usus, ...).
type MeatType struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateLocationRequest carries input for a new location.
type CreateLocationRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"omitempty,max=300"`
}

// CreateMeatTypeRequest carries input for a new meat type.
type CreateMeatTypeRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}
