package receivables

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ternaklink/ternaklink/internal/platform/httpx"
	"github.com/ternaklink/ternaklink/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records payments and spreads them over open invoices.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreatePayment books one payment FIFO against the customer's open invoices.
// The whole allocation commits atomically; a payment exceeding the customer's
// total debt is rejected outright rather than partially applied.
func (s *Service) CreatePayment(ctx context.Context, req CreatePaymentRequest, actorID int64) (*PaymentResult, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", httpx.ErrValidation)
	}
	paidAt := req.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	var result PaymentResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.CustomerExists(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: customer %d", httpx.ErrNotFound, req.CustomerID)
		}

		open, err := tx.ListOpenForUpdate(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		if len(open) == 0 {
			return httpx.BusinessRule("customer has no outstanding invoices")
		}
		var total float64
		for i := range open {
			total += open[i].Outstanding
		}
		if req.Amount > total {
			return httpx.BusinessRule(fmt.Sprintf(
				"payment %.2f exceeds total outstanding %.2f", req.Amount, total))
		}

		allocations := Allocate(open, req.Amount)
		for i := range open {
			touched := false
			for _, a := range allocations {
				if a.InvoiceID == open[i].ID {
					touched = true
					break
				}
			}
			if !touched {
				continue
			}
			if err := tx.ApplyAllocation(ctx, &open[i], open[i].StatusFor()); err != nil {
				return err
			}
		}

		payment := &Payment{
			Code:       uuid.NewString(),
			CustomerID: req.CustomerID,
			Amount:     req.Amount,
			Method:     req.Method,
			Note:       req.Note,
			PaidAt:     paidAt,
		}
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}
		if err := tx.InsertAllocations(ctx, payment.ID, allocations); err != nil {
			return err
		}

		result = PaymentResult{
			Payment:              payment,
			Allocations:          allocations,
			RemainingOutstanding: total - req.Amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, result.Payment)
	return &result, nil
}

// ListPayments returns the payment ledger.
func (s *Service) ListPayments(ctx context.Context, req ListPaymentsRequest) ([]Payment, error) {
	return s.repo.ListPayments(ctx, req)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, p *Payment) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "payment.create",
		Entity:   "receivable_payment",
		EntityID: strconv.FormatInt(p.ID, 10),
		Meta:     map[string]any{"customer_id": p.CustomerID, "amount": p.Amount},
		At:       time.Now(),
	})
}
