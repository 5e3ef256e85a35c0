package stock

import (
	"context"
	"fmt"

	"github.com/ternaklink/ternaklink/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for stock records and the
// availability read. It runs on a pool or inside a transaction.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository.
func NewRepository(dbtx db.DBTX) *Repository {
	return &Repository{db: dbtx}
}

// Availability computes received - deceased - shipped for one location. The
// sums are always read fresh; the guard never trusts a cached figure.
func (r *Repository) Availability(ctx context.Context, locationID int64) (Availability, error) {
	const query = `
		SELECT
			COALESCE((SELECT SUM(bird_count) FROM bird_receipts WHERE location_id = $1), 0),
			COALESCE((SELECT SUM(bird_count) FROM bird_deaths WHERE location_id = $1), 0),
			COALESCE((SELECT SUM(bird_count) FROM live_shipments WHERE location_id = $1), 0)`

	a := Availability{LocationID: locationID}
	if err := r.db.QueryRow(ctx, query, locationID).Scan(&a.Received, &a.Deceased, &a.Shipped); err != nil {
		return Availability{}, fmt.Errorf("stock: availability: %w", err)
	}
	a.Available = a.Received - a.Deceased - a.Shipped
	return a, nil
}

// CreateReceipt inserts a bird receipt.
func (r *Repository) CreateReceipt(ctx context.Context, in RecordInput) (*BirdReceipt, error) {
	const query = `
		INSERT INTO bird_receipts (location_id, receipt_date, bird_count, note, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`

	rec := BirdReceipt{LocationID: in.LocationID, Date: in.Date, BirdCount: in.BirdCount, Note: in.Note}
	if err := r.db.QueryRow(ctx, query, in.LocationID, in.Date, in.BirdCount, in.Note).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("stock: create receipt: %w", err)
	}
	return &rec, nil
}

// CreateDeath inserts a bird death record.
func (r *Repository) CreateDeath(ctx context.Context, in RecordInput) (*BirdDeath, error) {
	const query = `
		INSERT INTO bird_deaths (location_id, death_date, bird_count, note, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, created_at`

	rec := BirdDeath{LocationID: in.LocationID, Date: in.Date, BirdCount: in.BirdCount, Note: in.Note}
	if err := r.db.QueryRow(ctx, query, in.LocationID, in.Date, in.BirdCount, in.Note).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return nil, fmt.Errorf("stock: create death: %w", err)
	}
	return &rec, nil
}

// ListReceipts returns receipts for a location, newest first.
func (r *Repository) ListReceipts(ctx context.Context, locationID int64, limit int) ([]BirdReceipt, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id, location_id, receipt_date, bird_count, note, created_at
		FROM bird_receipts
		WHERE location_id = $1
		ORDER BY receipt_date DESC, id DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, locationID, limit)
	if err != nil {
		return nil, fmt.Errorf("stock: list receipts: %w", err)
	}
	defer rows.Close()

	var out []BirdReceipt
	for rows.Next() {
		var rec BirdReceipt
		if err := rows.Scan(&rec.ID, &rec.LocationID, &rec.Date, &rec.BirdCount, &rec.Note, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListDeaths returns death records for a location, newest first.
func (r *Repository) ListDeaths(ctx context.Context, locationID int64, limit int) ([]BirdDeath, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
		SELECT id, location_id, death_date, bird_count, note, created_at
		FROM bird_deaths
		WHERE location_id = $1
		ORDER BY death_date DESC, id DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, locationID, limit)
	if err != nil {
		return nil, fmt.Errorf("stock: list deaths: %w", err)
	}
	defer rows.Close()

	var out []BirdDeath
	for rows.Next() {
		var rec BirdDeath
		if err := rows.Scan(&rec.ID, &rec.LocationID, &rec.Date, &rec.BirdCount, &rec.Note, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
