package shipments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ternaklink/ternaklink/internal/invoices"
	"github.com/ternaklink/ternaklink/internal/platform/db"
	"github.com/ternaklink/ternaklink/internal/stock"
)

// ErrNotFound indicates the shipment does not exist.
var ErrNotFound = errors.New("shipments: not found")

// TxRepository is the transaction bound surface the service mutates through.
// Invoices() and Stock() expose the sibling stores on the same transaction so
// one commit covers the shipment record, its invoice and the stock read.
type TxRepository interface {
	InsertLive(ctx context.Context, s *LiveShipment) error
	GetLiveForUpdate(ctx context.Context, id int64) (*LiveShipment, error)
	UpdateLive(ctx context.Context, s *LiveShipment) error
	DeleteLive(ctx context.Context, id int64) error

	InsertMeat(ctx context.Context, s *MeatShipment) error
	GetMeatForUpdate(ctx context.Context, id int64) (*MeatShipment, error)
	UpdateMeat(ctx context.Context, s *MeatShipment) error
	DeleteMeat(ctx context.Context, id int64) error

	CustomerName(ctx context.Context, id int64) (string, error)
	MeatTypeName(ctx context.Context, id int64) (string, error)
	LocationExists(ctx context.Context, id int64) (bool, error)

	Invoices() invoices.TxStore
	Stock() stock.RepositoryPort
}

// RepositoryPort defines data access methods for the shipments service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	GetLive(ctx context.Context, id int64) (*LiveShipment, error)
	ListLive(ctx context.Context, req ListRequest) ([]LiveShipment, error)
	GetMeat(ctx context.Context, id int64) (*MeatShipment, error)
	ListMeat(ctx context.Context, req ListRequest) ([]MeatShipment, error)
}

// Repository provides PostgreSQL backed persistence for shipments.
type Repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewRepository constructs a repository. loc is the business timezone used by
// the invoice store created for transactions.
func NewRepository(pool *pgxpool.Pool, loc *time.Location) *Repository {
	return &Repository{db: pool, pool: pool, loc: loc}
}

// WithTx runs fn against transaction bound repositories. Unique violations
// (duplicate draft) retry once from scratch.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTxRetry(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{
			Repository: &Repository{db: tx, loc: r.loc},
			invoices:   invoices.NewRepository(tx, r.loc),
			stock:      stock.NewRepository(tx),
		})
	})
}

type txRepo struct {
	*Repository
	invoices *invoices.Repository
	stock    *stock.Repository
}

func (t *txRepo) Invoices() invoices.TxStore  { return t.invoices }
func (t *txRepo) Stock() stock.RepositoryPort { return t.stock }

// --- live shipments ---

const liveColumns = `
	id, location_id, ship_date, customer_id, customer_name, bird_count,
	total_weight, size_class, price_per_kg, plucked, plucking_price,
	gross_amount, expense_amount, net_amount, invoice_id, created_at, updated_at`

// InsertLive creates a live shipment row.
func (r *Repository) InsertLive(ctx context.Context, s *LiveShipment) error {
	const query = `
		INSERT INTO live_shipments (
			location_id, ship_date, customer_id, customer_name, bird_count,
			total_weight, size_class, price_per_kg, plucked, plucking_price,
			gross_amount, expense_amount, net_amount, invoice_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	return r.db.QueryRow(ctx, query,
		s.LocationID, s.Date, s.CustomerID, s.CustomerName, s.BirdCount,
		s.TotalWeight, string(s.SizeClass), s.PricePerKg, s.Plucked, s.PluckingPrice,
		s.GrossAmount, s.ExpenseAmount, s.NetAmount, s.InvoiceID,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// GetLiveForUpdate loads a live shipment with a row lock.
func (r *Repository) GetLiveForUpdate(ctx context.Context, id int64) (*LiveShipment, error) {
	return r.getLive(ctx, id, true)
}

// GetLive loads a live shipment.
func (r *Repository) GetLive(ctx context.Context, id int64) (*LiveShipment, error) {
	return r.getLive(ctx, id, false)
}

func (r *Repository) getLive(ctx context.Context, id int64, lock bool) (*LiveShipment, error) {
	query := `SELECT ` + liveColumns + ` FROM live_shipments WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	s, err := scanLive(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// UpdateLive overwrites a live shipment row.
func (r *Repository) UpdateLive(ctx context.Context, s *LiveShipment) error {
	const query = `
		UPDATE live_shipments
		SET location_id = $2, ship_date = $3, customer_id = $4, customer_name = $5,
			bird_count = $6, total_weight = $7, size_class = $8, price_per_kg = $9,
			plucked = $10, plucking_price = $11, gross_amount = $12,
			expense_amount = $13, net_amount = $14, invoice_id = $15, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		s.ID, s.LocationID, s.Date, s.CustomerID, s.CustomerName,
		s.BirdCount, s.TotalWeight, string(s.SizeClass), s.PricePerKg,
		s.Plucked, s.PluckingPrice, s.GrossAmount, s.ExpenseAmount, s.NetAmount, s.InvoiceID,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// DeleteLive removes a live shipment row.
func (r *Repository) DeleteLive(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM live_shipments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("shipments: delete live: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLive returns live shipments matching the filter, newest first.
func (r *Repository) ListLive(ctx context.Context, req ListRequest) ([]LiveShipment, error) {
	query := `SELECT ` + liveColumns + ` FROM live_shipments WHERE 1=1`
	args, query := appendListFilters(query, "ship_date", req)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("shipments: list live: %w", err)
	}
	defer rows.Close()

	var out []LiveShipment
	for rows.Next() {
		s, err := scanLive(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// --- meat shipments ---

const meatColumns = `
	id, ship_date, customer_id, customer_name, expense_amount, balance,
	note, invoice_id, created_at, updated_at`

// InsertMeat creates a meat shipment with its items.
func (r *Repository) InsertMeat(ctx context.Context, s *MeatShipment) error {
	const query = `
		INSERT INTO meat_shipments (
			ship_date, customer_id, customer_name, expense_amount, balance,
			note, invoice_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		s.Date, s.CustomerID, s.CustomerName, s.ExpenseAmount, s.Balance, s.Note, s.InvoiceID,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("shipments: insert meat: %w", err)
	}
	return r.insertMeatItems(ctx, s)
}

func (r *Repository) insertMeatItems(ctx context.Context, s *MeatShipment) error {
	const query = `
		INSERT INTO meat_shipment_items (shipment_id, meat_type_id, qty, unit_price, subtotal, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	for i := range s.Items {
		item := &s.Items[i]
		if err := r.db.QueryRow(ctx, query,
			s.ID, item.MeatTypeID, item.Qty, item.UnitPrice, item.Subtotal, item.Position,
		).Scan(&item.ID); err != nil {
			return fmt.Errorf("shipments: insert meat item: %w", err)
		}
		item.ShipmentID = s.ID
	}
	return nil
}

// GetMeatForUpdate loads a meat shipment and its items with a row lock.
func (r *Repository) GetMeatForUpdate(ctx context.Context, id int64) (*MeatShipment, error) {
	return r.getMeat(ctx, id, true)
}

// GetMeat loads a meat shipment and its items.
func (r *Repository) GetMeat(ctx context.Context, id int64) (*MeatShipment, error) {
	return r.getMeat(ctx, id, false)
}

func (r *Repository) getMeat(ctx context.Context, id int64, lock bool) (*MeatShipment, error) {
	query := `SELECT ` + meatColumns + ` FROM meat_shipments WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	s, err := scanMeat(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Items, err = r.listMeatItems(ctx, id)
	return s, err
}

func (r *Repository) listMeatItems(ctx context.Context, shipmentID int64) ([]MeatLineItem, error) {
	const query = `
		SELECT i.id, i.shipment_id, i.meat_type_id, mt.name, i.qty, i.unit_price, i.subtotal, i.position
		FROM meat_shipment_items i
		JOIN meat_types mt ON mt.id = i.meat_type_id
		WHERE i.shipment_id = $1
		ORDER BY i.position`

	rows, err := r.db.Query(ctx, query, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("shipments: list meat items: %w", err)
	}
	defer rows.Close()

	var items []MeatLineItem
	for rows.Next() {
		var it MeatLineItem
		if err := rows.Scan(&it.ID, &it.ShipmentID, &it.MeatTypeID, &it.MeatTypeName, &it.Qty, &it.UnitPrice, &it.Subtotal, &it.Position); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateMeat overwrites the header and replaces all items.
func (r *Repository) UpdateMeat(ctx context.Context, s *MeatShipment) error {
	const query = `
		UPDATE meat_shipments
		SET ship_date = $2, customer_id = $3, customer_name = $4, expense_amount = $5,
			balance = $6, note = $7, invoice_id = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		s.ID, s.Date, s.CustomerID, s.CustomerName, s.ExpenseAmount, s.Balance, s.Note, s.InvoiceID,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM meat_shipment_items WHERE shipment_id = $1`, s.ID); err != nil {
		return fmt.Errorf("shipments: clear meat items: %w", err)
	}
	return r.insertMeatItems(ctx, s)
}

// DeleteMeat removes a meat shipment and its items.
func (r *Repository) DeleteMeat(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM meat_shipment_items WHERE shipment_id = $1`, id); err != nil {
		return fmt.Errorf("shipments: delete meat items: %w", err)
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM meat_shipments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("shipments: delete meat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMeat returns meat shipments matching the filter, newest first.
func (r *Repository) ListMeat(ctx context.Context, req ListRequest) ([]MeatShipment, error) {
	query := `SELECT ` + meatColumns + ` FROM meat_shipments WHERE 1=1`
	args, query := appendListFilters(query, "ship_date", req)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("shipments: list meat: %w", err)
	}
	defer rows.Close()

	var out []MeatShipment
	for rows.Next() {
		s, err := scanMeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := r.listMeatItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// --- lookups ---

// CustomerName resolves the denormalized customer name.
func (r *Repository) CustomerName(ctx context.Context, id int64) (string, error) {
	var name string
	err := r.db.QueryRow(ctx, `SELECT name FROM customers WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return name, err
}

// MeatTypeName resolves a meat type's display name.
func (r *Repository) MeatTypeName(ctx context.Context, id int64) (string, error) {
	var name string
	err := r.db.QueryRow(ctx, `SELECT name FROM meat_types WHERE id = $1`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return name, err
}

// LocationExists reports whether the source location is known.
func (r *Repository) LocationExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM locations WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// --- helpers ---

func appendListFilters(query, dateCol string, req ListRequest) ([]any, string) {
	args := []any{}
	argNum := 1
	if req.CustomerID > 0 {
		query += fmt.Sprintf(" AND customer_id = $%d", argNum)
		args = append(args, req.CustomerID)
		argNum++
	}
	if !req.FromDate.IsZero() {
		query += fmt.Sprintf(" AND %s >= $%d", dateCol, argNum)
		args = append(args, req.FromDate)
		argNum++
	}
	if !req.ToDate.IsZero() {
		query += fmt.Sprintf(" AND %s <= $%d", dateCol, argNum)
		args = append(args, req.ToDate)
		argNum++
	}
	query += fmt.Sprintf(" ORDER BY %s DESC, id DESC", dateCol)
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, req.Offset)
	return args, query
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLive(row rowScanner) (*LiveShipment, error) {
	var s LiveShipment
	var sizeClass string
	var invoiceID pgtype.Int8
	err := row.Scan(
		&s.ID, &s.LocationID, &s.Date, &s.CustomerID, &s.CustomerName, &s.BirdCount,
		&s.TotalWeight, &sizeClass, &s.PricePerKg, &s.Plucked, &s.PluckingPrice,
		&s.GrossAmount, &s.ExpenseAmount, &s.NetAmount, &invoiceID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.SizeClass = SizeClass(sizeClass)
	if invoiceID.Valid {
		s.InvoiceID = &invoiceID.Int64
	}
	return &s, nil
}

func scanMeat(row rowScanner) (*MeatShipment, error) {
	var s MeatShipment
	var note pgtype.Text
	var invoiceID pgtype.Int8
	err := row.Scan(
		&s.ID, &s.Date, &s.CustomerID, &s.CustomerName, &s.ExpenseAmount, &s.Balance,
		&note, &invoiceID, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Note = note.String
	if invoiceID.Valid {
		s.InvoiceID = &invoiceID.Int64
	}
	return &s, nil
}
