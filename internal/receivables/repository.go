package receivables

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ternaklink/ternaklink/internal/invoices"
	"github.com/ternaklink/ternaklink/internal/platform/db"
)

// TxRepository is the transaction bound surface payment recording runs on.
type TxRepository interface {
	CustomerExists(ctx context.Context, id int64) (bool, error)
	// ListOpenForUpdate locks and returns the customer's invoices with
	// outstanding debt, oldest first.
	ListOpenForUpdate(ctx context.Context, customerID int64) ([]OpenInvoice, error)
	ApplyAllocation(ctx context.Context, inv *OpenInvoice, status invoices.Status) error
	InsertPayment(ctx context.Context, p *Payment) error
	InsertAllocations(ctx context.Context, paymentID int64, allocations []Allocation) error
}

// RepositoryPort defines data access methods for the receivables service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	ListPayments(ctx context.Context, req ListPaymentsRequest) ([]Payment, error)
}

// Repository provides PostgreSQL backed persistence for payments.
type Repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool, pool: pool}
}

// WithTx runs fn against a transaction bound repository.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &Repository{db: tx})
	})
}

// CustomerExists reports whether the customer is known.
func (r *Repository) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// ListOpenForUpdate locks the customer's open invoices for the allocation.
// Ordering here matches the allocator's: it keeps row locks acquired in a
// stable order across concurrent payments for the same customer.
func (r *Repository) ListOpenForUpdate(ctx context.Context, customerID int64) ([]OpenInvoice, error) {
	const query = `
		SELECT id, number, invoice_date, grand_total, amount_paid, outstanding_balance
		FROM sales_invoices
		WHERE customer_id = $1 AND outstanding_balance > 0
		ORDER BY invoice_date ASC, id ASC
		FOR UPDATE`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("receivables: list open invoices: %w", err)
	}
	defer rows.Close()

	var open []OpenInvoice
	for rows.Next() {
		var inv OpenInvoice
		var number pgtype.Text
		if err := rows.Scan(&inv.ID, &number, &inv.Date, &inv.GrandTotal, &inv.AmountPaid, &inv.Outstanding); err != nil {
			return nil, err
		}
		if number.Valid {
			inv.Number = &number.String
		}
		open = append(open, inv)
	}
	return open, rows.Err()
}

// ApplyAllocation persists one invoice's post-allocation payment fields.
func (r *Repository) ApplyAllocation(ctx context.Context, inv *OpenInvoice, status invoices.Status) error {
	const query = `
		UPDATE sales_invoices
		SET amount_paid = $2, outstanding_balance = $3, status = $4, updated_at = NOW()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, inv.ID, inv.AmountPaid, inv.Outstanding, string(status))
	if err != nil {
		return fmt.Errorf("receivables: apply allocation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New("receivables: invoice vanished during allocation")
	}
	return nil
}

// InsertPayment stores the payment row.
func (r *Repository) InsertPayment(ctx context.Context, p *Payment) error {
	const query = `
		INSERT INTO receivable_payments (code, customer_id, amount, method, note, paid_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		RETURNING id, created_at`

	return r.db.QueryRow(ctx, query, p.Code, p.CustomerID, p.Amount, p.Method, p.Note, p.PaidAt).
		Scan(&p.ID, &p.CreatedAt)
}

// InsertAllocations stores which invoices the payment was spread over.
func (r *Repository) InsertAllocations(ctx context.Context, paymentID int64, allocations []Allocation) error {
	const query = `
		INSERT INTO receivable_payment_allocations (payment_id, invoice_id, applied, outstanding_after)
		VALUES ($1, $2, $3, $4)`

	for _, a := range allocations {
		if _, err := r.db.Exec(ctx, query, paymentID, a.InvoiceID, a.Applied, a.OutstandingAfter); err != nil {
			return fmt.Errorf("receivables: insert allocation: %w", err)
		}
	}
	return nil
}

// ListPayments returns the payment ledger, newest first.
func (r *Repository) ListPayments(ctx context.Context, req ListPaymentsRequest) ([]Payment, error) {
	query := `
		SELECT id, code, customer_id, amount, method, note, paid_at, created_at
		FROM receivable_payments
		WHERE 1=1`
	args := []any{}
	if req.CustomerID > 0 {
		query += ` AND customer_id = $1`
		args = append(args, req.CustomerID)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` ORDER BY paid_at DESC, id DESC LIMIT %d OFFSET %d`, limit, req.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("receivables: list payments: %w", err)
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		var note pgtype.Text
		if err := rows.Scan(&p.ID, &p.Code, &p.CustomerID, &p.Amount, &p.Method, &note, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Note = note.String
		out = append(out, p)
	}
	return out, rows.Err()
}
