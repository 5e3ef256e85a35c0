package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ternaklink/ternaklink/internal/platform/db"
)

// ErrNotFound indicates the customer does not exist.
var ErrNotFound = errors.New("customers: not found")

// Repository provides PostgreSQL backed persistence for customers.
type Repository struct {
	db db.DBTX
}

// NewRepository constructs a repository on top of a pool or transaction.
func NewRepository(dbtx db.DBTX) *Repository {
	return &Repository{db: dbtx}
}

// Create inserts a customer and returns it.
func (r *Repository) Create(ctx context.Context, name, phone, address string) (*Customer, error) {
	const query = `
		INSERT INTO customers (name, phone, address, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	c := Customer{Name: name, Phone: phone, Address: address}
	if err := r.db.QueryRow(ctx, query, name, phone, address).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("customers: create: %w", err)
	}
	return &c, nil
}

// Get retrieves a customer by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*Customer, error) {
	const query = `
		SELECT id, name, phone, address, created_at, updated_at
		FROM customers
		WHERE id = $1`

	var c Customer
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("customers: get: %w", err)
	}
	return &c, nil
}

// List returns customers matching the filter plus the total count.
func (r *Repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	query := `
		SELECT id, name, phone, address, created_at, updated_at
		FROM customers`
	countQuery := `SELECT COUNT(*) FROM customers`

	var args []any
	if req.Search != "" {
		query += ` WHERE name ILIKE $1 OR phone ILIKE $1`
		countQuery += ` WHERE name ILIKE $1 OR phone ILIKE $1`
		args = append(args, "%"+req.Search+"%")
	}
	query += ` ORDER BY name`

	limit := req.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, req.Offset)

	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("customers: count: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("customers: list: %w", err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Update applies the non-nil fields of req to the customer.
func (r *Repository) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Phone != nil {
		existing.Phone = *req.Phone
	}
	if req.Address != nil {
		existing.Address = *req.Address
	}

	const query = `
		UPDATE customers
		SET name = $2, phone = $3, address = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	if err := r.db.QueryRow(ctx, query, id, existing.Name, existing.Phone, existing.Address).Scan(&existing.UpdatedAt); err != nil {
		return nil, fmt.Errorf("customers: update: %w", err)
	}
	return existing, nil
}

// Outstanding summarises the customer's open receivables across all invoices.
func (r *Repository) Outstanding(ctx context.Context, id int64) (*OutstandingSummary, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}

	const query = `
		SELECT COUNT(*), COALESCE(SUM(outstanding_balance), 0)
		FROM sales_invoices
		WHERE customer_id = $1 AND outstanding_balance > 0`

	s := OutstandingSummary{CustomerID: id}
	if err := r.db.QueryRow(ctx, query, id).Scan(&s.OpenInvoices, &s.TotalOutstanding); err != nil {
		return nil, fmt.Errorf("customers: outstanding: %w", err)
	}

	const oldest = `
		SELECT id, outstanding_balance
		FROM sales_invoices
		WHERE customer_id = $1 AND outstanding_balance > 0
		ORDER BY invoice_date, id
		LIMIT 1`
	err := r.db.QueryRow(ctx, oldest, id).Scan(&s.OldestInvoiceID, &s.OldestOutstanding)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("customers: outstanding oldest: %w", err)
	}
	return &s, nil
}
