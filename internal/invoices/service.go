package invoices

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ternaklink/ternaklink/internal/platform/httpx"
	"github.com/ternaklink/ternaklink/internal/shared"
)

// RepositoryPort defines data access methods for the invoice service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, store TxStore) error) error
	Get(ctx context.Context, id int64) (*SalesInvoice, error)
	List(ctx context.Context, req ListInvoicesRequest) ([]SalesInvoice, error)
	CustomerExists(ctx context.Context, id int64) (bool, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service handles invoice business logic outside the consolidation flow:
// manual invoices, finalization and reads.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	loc   *time.Location
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort, loc *time.Location) *Service {
	return &Service{repo: repo, audit: audit, loc: loc}
}

// CreateManual books a cash/manual sale as an immediately numbered invoice.
func (s *Service) CreateManual(ctx context.Context, req CreateManualInvoiceRequest, actorID int64) (*SalesInvoice, error) {
	exists, err := s.repo.CustomerExists(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: customer %d", httpx.ErrNotFound, req.CustomerID)
	}

	lines := make([]InvoiceLineItem, 0, len(req.Lines)+1)
	var gross float64
	for _, in := range req.Lines {
		subtotal := in.Weight * in.UnitPrice
		if in.Weight == 0 && in.Count != nil {
			subtotal = float64(*in.Count) * in.UnitPrice
		}
		if subtotal <= 0 {
			return nil, fmt.Errorf("%w: line %q yields a non-positive subtotal", httpx.ErrValidation, in.Label)
		}
		gross += subtotal
		lines = append(lines, InvoiceLineItem{
			ItemType:   "MANUAL",
			Label:      in.Label,
			Count:      in.Count,
			Weight:     in.Weight,
			UnitPrice:  in.UnitPrice,
			Subtotal:   subtotal,
			SourceKind: SourceManual,
		})
	}
	if len(lines) == 0 {
		if req.GrossAmount <= 0 {
			return nil, fmt.Errorf("%w: gross amount must be positive", httpx.ErrValidation)
		}
		gross = req.GrossAmount
		lines = append(lines, InvoiceLineItem{
			ItemType:   "MANUAL",
			Label:      "Penjualan manual",
			UnitPrice:  gross,
			Subtotal:   gross,
			SourceKind: SourceManual,
		})
	}

	grand := gross - req.Expense
	if grand <= 0 {
		return nil, fmt.Errorf("%w: expense may not consume the whole gross amount", httpx.ErrValidation)
	}
	if req.AmountPaid > grand {
		return nil, fmt.Errorf("%w: amount paid exceeds grand total", httpx.ErrValidation)
	}

	inv := &SalesInvoice{
		CustomerID:    req.CustomerID,
		Date:          req.Date,
		Type:          TypeManual,
		ExpenseAmount: req.Expense,
		AmountPaid:    req.AmountPaid,
		PaymentMethod: req.PaymentMethod,
		Note:          req.Note,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, store TxStore) error {
		if err := store.Insert(ctx, inv); err != nil {
			return err
		}
		if err := store.InsertLines(ctx, inv.ID, lines); err != nil {
			return err
		}
		updated, err := recalcAndSave(ctx, store, inv)
		if err != nil {
			return err
		}
		number, err := NextNumber(ctx, store, inv.Date, s.loc)
		if err != nil {
			return err
		}
		if err := store.SetNumber(ctx, inv.ID, number); err != nil {
			return err
		}
		updated.Number = &number
		*inv = *updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, "invoice.create_manual", inv.ID)
	return inv, nil
}

// Finalize assigns the next sequential number for the invoice's day.
func (s *Service) Finalize(ctx context.Context, id int64, actorID int64) (*SalesInvoice, error) {
	var result *SalesInvoice
	err := s.repo.WithTx(ctx, func(ctx context.Context, store TxStore) error {
		inv, err := store.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !inv.Draft() {
			return httpx.BusinessRule(fmt.Sprintf("invoice %d is already finalized as %s", id, *inv.Number))
		}
		number, err := NextNumber(ctx, store, inv.Date, s.loc)
		if err != nil {
			return err
		}
		if err := store.SetNumber(ctx, inv.ID, number); err != nil {
			return err
		}
		inv.Number = &number
		result = inv
		return nil
	})
	if err != nil {
		return nil, mapErr(err)
	}

	s.recordAudit(ctx, actorID, "invoice.finalize", id)
	return result, nil
}

// Get returns one invoice with its line items.
func (s *Service) Get(ctx context.Context, id int64) (*SalesInvoice, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return inv, nil
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]SalesInvoice, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, invoiceID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sales_invoice",
		EntityID: strconv.FormatInt(invoiceID, 10),
		At:       time.Now(),
	})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: invoice", httpx.ErrNotFound)
	}
	return err
}
