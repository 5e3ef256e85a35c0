package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ternaklink/ternaklink/internal/platform/db"
)

// ErrNotFound indicates the invoice does not exist.
var ErrNotFound = errors.New("invoices: not found")

const invoiceColumns = `
	id, number, customer_id, invoice_date, tx_type,
	gross_sales_amount, expense_amount, grand_total, amount_paid,
	outstanding_balance, status, payment_method, note, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for sales invoices. It
// implements TxStore when constructed over a transaction.
type Repository struct {
	db  db.DBTX
	loc *time.Location
}

// NewRepository constructs a repository. loc is the business timezone the
// invoice day boundary is booked in.
func NewRepository(dbtx db.DBTX, loc *time.Location) *Repository {
	return &Repository{db: dbtx, loc: loc}
}

// WithDB returns a repository bound to another DBTX (usually a transaction).
func (r *Repository) WithDB(dbtx db.DBTX) *Repository {
	return &Repository{db: dbtx, loc: r.loc}
}

// FindDraftForUpdate locates the customer's draft invoice inside the day
// window and locks its row. Returns nil when no draft exists.
func (r *Repository) FindDraftForUpdate(ctx context.Context, customerID int64, dayStart, dayEnd time.Time) (*SalesInvoice, error) {
	query := `SELECT ` + invoiceColumns + `
		FROM sales_invoices
		WHERE customer_id = $1 AND number IS NULL AND invoice_date BETWEEN $2 AND $3
		ORDER BY id
		LIMIT 1
		FOR UPDATE`

	inv, err := r.scanOne(r.db.QueryRow(ctx, query, customerID, dayStart, dayEnd))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

// GetForUpdate loads an invoice by ID with a row lock.
func (r *Repository) GetForUpdate(ctx context.Context, id int64) (*SalesInvoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM sales_invoices WHERE id = $1 FOR UPDATE`

	inv, err := r.scanOne(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return inv, err
}

// Insert creates an invoice row. Totals start at zero; Recalc fills them in
// before the transaction commits. The partial unique index on
// (customer_id, invoice_day) WHERE number IS NULL rejects a concurrent
// duplicate draft; the caller retries through db.WithTxRetry.
func (r *Repository) Insert(ctx context.Context, inv *SalesInvoice) error {
	const query = `
		INSERT INTO sales_invoices (
			number, customer_id, invoice_date, invoice_day, tx_type,
			gross_sales_amount, expense_amount, grand_total, amount_paid,
			outstanding_balance, status, payment_method, note, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING id, created_at, updated_at`

	day := inv.Date.In(r.loc).Format("2006-01-02")
	if inv.Status == "" {
		inv.Status = StatusHutang
	}
	return r.db.QueryRow(ctx, query,
		inv.Number,
		inv.CustomerID,
		inv.Date,
		day,
		string(inv.Type),
		inv.GrossAmount,
		inv.ExpenseAmount,
		inv.GrandTotal,
		inv.AmountPaid,
		inv.OutstandingBalance,
		string(inv.Status),
		inv.PaymentMethod,
		inv.Note,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
}

// InsertLines appends line items, continuing the position sequence.
func (r *Repository) InsertLines(ctx context.Context, invoiceID int64, lines []InvoiceLineItem) error {
	var next int
	if err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM invoice_line_items WHERE invoice_id = $1`,
		invoiceID,
	).Scan(&next); err != nil {
		return fmt.Errorf("invoices: next position: %w", err)
	}

	const query = `
		INSERT INTO invoice_line_items (
			invoice_id, item_type, label, item_count, weight, unit_price,
			subtotal, source_kind, source_id, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`

	for i := range lines {
		line := &lines[i]
		var count pgtype.Int8
		if line.Count != nil {
			count = pgtype.Int8{Int64: int64(*line.Count), Valid: true}
		}
		err := r.db.QueryRow(ctx, query,
			invoiceID,
			line.ItemType,
			line.Label,
			count,
			line.Weight,
			line.UnitPrice,
			line.Subtotal,
			string(line.SourceKind),
			line.SourceID,
			next+i,
		).Scan(&line.ID)
		if err != nil {
			return fmt.Errorf("invoices: insert line: %w", err)
		}
		line.InvoiceID = invoiceID
		line.Position = next + i
	}
	return nil
}

// DeleteLinesBySource removes every line a shipment contributed.
func (r *Repository) DeleteLinesBySource(ctx context.Context, invoiceID int64, kind SourceKind, sourceID int64) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM invoice_line_items WHERE invoice_id = $1 AND source_kind = $2 AND source_id = $3`,
		invoiceID, string(kind), sourceID)
	if err != nil {
		return fmt.Errorf("invoices: delete lines: %w", err)
	}
	return nil
}

// ListLines returns an invoice's line items in order.
func (r *Repository) ListLines(ctx context.Context, invoiceID int64) ([]InvoiceLineItem, error) {
	const query = `
		SELECT id, invoice_id, item_type, label, item_count, weight, unit_price,
			subtotal, source_kind, source_id, position
		FROM invoice_line_items
		WHERE invoice_id = $1
		ORDER BY position, id`

	rows, err := r.db.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoices: list lines: %w", err)
	}
	defer rows.Close()

	var lines []InvoiceLineItem
	for rows.Next() {
		var line InvoiceLineItem
		var count pgtype.Int8
		var kind string
		err := rows.Scan(
			&line.ID, &line.InvoiceID, &line.ItemType, &line.Label, &count,
			&line.Weight, &line.UnitPrice, &line.Subtotal, &kind, &line.SourceID, &line.Position,
		)
		if err != nil {
			return nil, err
		}
		if count.Valid {
			n := int(count.Int64)
			line.Count = &n
		}
		line.SourceKind = SourceKind(kind)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// UpdateComputed persists the recomputed derived state. Only Recalc callers
// reach this; handlers and services never write totals directly.
func (r *Repository) UpdateComputed(ctx context.Context, inv *SalesInvoice) error {
	const query = `
		UPDATE sales_invoices
		SET tx_type = $2, gross_sales_amount = $3, expense_amount = $4,
			grand_total = $5, amount_paid = $6, outstanding_balance = $7,
			status = $8, note = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		inv.ID,
		string(inv.Type),
		inv.GrossAmount,
		inv.ExpenseAmount,
		inv.GrandTotal,
		inv.AmountPaid,
		inv.OutstandingBalance,
		string(inv.Status),
		inv.Note,
	).Scan(&inv.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("invoices: update computed: %w", err)
	}
	return nil
}

// Delete removes an invoice and its line items.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM invoice_line_items WHERE invoice_id = $1`, id); err != nil {
		return fmt.Errorf("invoices: delete lines: %w", err)
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM sales_invoices WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("invoices: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MaxNumberWithPrefix returns the highest assigned number under the day
// prefix, locking the row it reads so concurrent finalizations serialize.
func (r *Repository) MaxNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	const query = `
		SELECT number FROM sales_invoices
		WHERE number LIKE $1 || '%'
		ORDER BY number DESC
		LIMIT 1
		FOR UPDATE`

	var number string
	err := r.db.QueryRow(ctx, query, prefix).Scan(&number)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("invoices: max number: %w", err)
	}
	return number, nil
}

// SetNumber finalizes a draft. The unique index on number backstops the
// remaining race; callers run inside db.WithTxRetry.
func (r *Repository) SetNumber(ctx context.Context, id int64, number string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE sales_invoices SET number = $2, updated_at = NOW() WHERE id = $1 AND number IS NULL`,
		id, number)
	if err != nil {
		return fmt.Errorf("invoices: set number: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoices: set number: invoice %d is not a draft", id)
	}
	return nil
}

// Get loads an invoice with customer name and line items.
func (r *Repository) Get(ctx context.Context, id int64) (*SalesInvoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM sales_invoices WHERE id = $1`

	inv, err := r.scanOne(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	_ = r.db.QueryRow(ctx, `SELECT name FROM customers WHERE id = $1`, inv.CustomerID).Scan(&inv.CustomerName)

	inv.Lines, err = r.ListLines(ctx, id)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoicesRequest filters the invoice list.
type ListInvoicesRequest struct {
	CustomerID int64
	Status     Status
	FromDate   time.Time
	ToDate     time.Time
	Limit      int
	Offset     int
}

// List returns invoices with optional filtering, newest first.
func (r *Repository) List(ctx context.Context, req ListInvoicesRequest) ([]SalesInvoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM sales_invoices WHERE 1=1`

	args := []any{}
	argNum := 1

	if req.CustomerID > 0 {
		query += fmt.Sprintf(" AND customer_id = $%d", argNum)
		args = append(args, req.CustomerID)
		argNum++
	}
	switch req.Status {
	case "":
	case StatusDraft:
		query += " AND number IS NULL"
	default:
		query += fmt.Sprintf(" AND status = $%d AND number IS NOT NULL", argNum)
		args = append(args, string(req.Status))
		argNum++
	}
	if !req.FromDate.IsZero() {
		query += fmt.Sprintf(" AND invoice_date >= $%d", argNum)
		args = append(args, req.FromDate)
		argNum++
	}
	if !req.ToDate.IsZero() {
		query += fmt.Sprintf(" AND invoice_date <= $%d", argNum)
		args = append(args, req.ToDate)
		argNum++
	}

	query += " ORDER BY invoice_date DESC, id DESC"

	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("invoices: list: %w", err)
	}
	defer rows.Close()

	var out []SalesInvoice
	for rows.Next() {
		inv, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *inv)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanOne(row rowScanner) (*SalesInvoice, error) {
	var inv SalesInvoice
	var number, method, note pgtype.Text
	var txType, status string

	err := row.Scan(
		&inv.ID, &number, &inv.CustomerID, &inv.Date, &txType,
		&inv.GrossAmount, &inv.ExpenseAmount, &inv.GrandTotal, &inv.AmountPaid,
		&inv.OutstandingBalance, &status, &method, &note, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if number.Valid {
		inv.Number = &number.String
	}
	inv.Type = TransactionType(txType)
	inv.Status = Status(status)
	inv.PaymentMethod = method.String
	inv.Note = note.String
	return &inv, nil
}
