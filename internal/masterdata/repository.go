package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ternaklink/ternaklink/internal/platform/db"
)

// ErrNotFound indicates the master record does not exist.
var ErrNotFound = errors.New("masterdata: not found")

// Repository provides PostgreSQL backed persistence for master data.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(dbtx db.DBTX) *Repository {
	return &Repository{db: dbtx}
}

// CreateLocation inserts a location.
func (r *Repository) CreateLocation(ctx context.Context, name, address string) (*Location, error) {
	const query = `
		INSERT INTO locations (name, address, created_at)
		VALUES ($1, $2, NOW())
		RETURNING id, created_at`

	l := Location{Name: name, Address: address}
	if err := r.db.QueryRow(ctx, query, name, address).Scan(&l.ID, &l.CreatedAt); err != nil {
		return nil, fmt.Errorf("masterdata: create location: %w", err)
	}
	return &l, nil
}

// GetLocation retrieves a location by ID.
func (r *Repository) GetLocation(ctx context.Context, id int64) (*Location, error) {
	const query = `SELECT id, name, address, created_at FROM locations WHERE id = $1`

	var l Location
	err := r.db.QueryRow(ctx, query, id).Scan(&l.ID, &l.Name, &l.Address, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("masterdata: get location: %w", err)
	}
	return &l, nil
}

// LocationExists reports whether a location id is known. Stock and shipment
// writes check this before booking anything against the location.
func (r *Repository) LocationExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM locations WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// ListLocations returns all locations ordered by name.
func (r *Repository) ListLocations(ctx context.Context) ([]Location, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, address, created_at FROM locations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("masterdata: list locations: %w", err)
	}
	defer rows.Close()

	var out []Location
	for rows.Next() {
		var l Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Address, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// CreateMeatType inserts a meat type.
func (r *Repository) CreateMeatType(ctx context.Context, name string) (*MeatType, error) {
	const query = `
		INSERT INTO meat_types (name, created_at)
		VALUES ($1, NOW())
		RETURNING id, created_at`

	m := MeatType{Name: name}
	if err := r.db.QueryRow(ctx, query, name).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("masterdata: create meat type: %w", err)
	}
	return &m, nil
}

// GetMeatType retrieves a meat type by ID.
func (r *Repository) GetMeatType(ctx context.Context, id int64) (*MeatType, error) {
	const query = `SELECT id, name, created_at FROM meat_types WHERE id = $1`

	var m MeatType
	err := r.db.QueryRow(ctx, query, id).Scan(&m.ID, &m.Name, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("masterdata: get meat type: %w", err)
	}
	return &m, nil
}

// ListMeatTypes returns all meat types ordered by name.
func (r *Repository) ListMeatTypes(ctx context.Context) ([]MeatType, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, created_at FROM meat_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("masterdata: list meat types: %w", err)
	}
	defer rows.Close()

	var out []MeatType
	for rows.Next() {
		var m MeatType
		if err := rows.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
