package invoices

import (
	"context"
	"fmt"
	"time"
)

// TxStore is the transaction-bound persistence surface the consolidator works
// against. The pgx implementation lives in repository.go; tests supply an in
// memory fake.
type TxStore interface {
	FindDraftForUpdate(ctx context.Context, customerID int64, dayStart, dayEnd time.Time) (*SalesInvoice, error)
	GetForUpdate(ctx context.Context, id int64) (*SalesInvoice, error)
	Insert(ctx context.Context, inv *SalesInvoice) error
	InsertLines(ctx context.Context, invoiceID int64, lines []InvoiceLineItem) error
	DeleteLinesBySource(ctx context.Context, invoiceID int64, kind SourceKind, sourceID int64) error
	ListLines(ctx context.Context, invoiceID int64) ([]InvoiceLineItem, error)
	UpdateComputed(ctx context.Context, inv *SalesInvoice) error
	Delete(ctx context.Context, id int64) error
	MaxNumberWithPrefix(ctx context.Context, prefix string) (string, error)
	SetNumber(ctx context.Context, id int64, number string) error
}

// MergeInput describes one shipment's contribution to a daily invoice.
type MergeInput struct {
	CustomerID int64
	Date       time.Time
	Type       TransactionType
	Expense    float64
	Lines      []InvoiceLineItem
}

// DayBounds returns the calendar day window of t in the business timezone.
func DayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.Add(24*time.Hour - time.Nanosecond)
}

// MergeShipment folds a shipment into the customer's draft invoice for that
// day, creating the draft when none exists. Returns the (possibly new)
// invoice with recomputed totals.
func MergeShipment(ctx context.Context, store TxStore, loc *time.Location, in MergeInput) (*SalesInvoice, error) {
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("invoices: merge without line items")
	}
	dayStart, dayEnd := DayBounds(in.Date, loc)

	draft, err := store.FindDraftForUpdate(ctx, in.CustomerID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	if draft == nil {
		draft = &SalesInvoice{
			CustomerID:    in.CustomerID,
			Date:          in.Date,
			Type:          in.Type,
			ExpenseAmount: in.Expense,
		}
		if err := store.Insert(ctx, draft); err != nil {
			return nil, err
		}
		if err := store.InsertLines(ctx, draft.ID, in.Lines); err != nil {
			return nil, err
		}
		return recalcAndSave(ctx, store, draft)
	}

	draft.Type = draft.Type.Upgrade(in.Type)
	draft.ExpenseAmount += in.Expense
	if err := store.InsertLines(ctx, draft.ID, in.Lines); err != nil {
		return nil, err
	}
	return recalcAndSave(ctx, store, draft)
}

// ReplaceShipmentLines swaps a shipment's line items on its linked invoice
// after an edit. expenseDelta is newExpense-oldExpense. Finalized invoices go
// through the exact same path as drafts: totals are always recomputed from
// the line items, never overwritten.
func ReplaceShipmentLines(ctx context.Context, store TxStore, invoiceID int64, kind SourceKind, sourceID int64, expenseDelta float64, lines []InvoiceLineItem) (*SalesInvoice, error) {
	inv, err := store.GetForUpdate(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if err := store.DeleteLinesBySource(ctx, invoiceID, kind, sourceID); err != nil {
		return nil, err
	}
	if err := store.InsertLines(ctx, invoiceID, lines); err != nil {
		return nil, err
	}
	inv.ExpenseAmount += expenseDelta
	return recalcAndSave(ctx, store, inv)
}

// RemoveShipmentLines detaches a deleted shipment from its invoice. A draft
// whose only contributor was the shipment is deleted outright (deleted=true);
// otherwise the invoice survives with recomputed totals.
func RemoveShipmentLines(ctx context.Context, store TxStore, invoiceID int64, kind SourceKind, sourceID int64, expense float64) (deleted bool, inv *SalesInvoice, err error) {
	inv, err = store.GetForUpdate(ctx, invoiceID)
	if err != nil {
		return false, nil, err
	}
	if err := store.DeleteLinesBySource(ctx, invoiceID, kind, sourceID); err != nil {
		return false, nil, err
	}
	remaining, err := store.ListLines(ctx, invoiceID)
	if err != nil {
		return false, nil, err
	}
	if len(remaining) == 0 && inv.Draft() {
		if err := store.Delete(ctx, invoiceID); err != nil {
			return false, nil, err
		}
		return true, nil, nil
	}
	inv.ExpenseAmount -= expense
	inv, err = recalcAndSave(ctx, store, inv)
	return false, inv, err
}

// recalcAndSave is the only way a structural change reaches the database:
// reload the lines, recompute, persist. No stale-total window exists.
func recalcAndSave(ctx context.Context, store TxStore, inv *SalesInvoice) (*SalesInvoice, error) {
	lines, err := store.ListLines(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	Recalc(inv, lines)
	if err := store.UpdateComputed(ctx, inv); err != nil {
		return nil, err
	}
	inv.Lines = lines
	return inv, nil
}
