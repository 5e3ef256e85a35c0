package shipments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ternaklink/ternaklink/internal/invoices"
	"github.com/ternaklink/ternaklink/internal/platform/httpx"
	"github.com/ternaklink/ternaklink/internal/shared"
	"github.com/ternaklink/ternaklink/internal/stock"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates shipment writes: stock guarding, persistence and the
// invoice consolidation that every shipment write ends in. All three happen
// inside one transaction.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	loc   *time.Location
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditPort, loc *time.Location) *Service {
	return &Service{repo: repo, audit: audit, loc: loc}
}

// CreateLive books a live bird shipment. The stock guard runs against the
// transaction's own availability read, so two concurrent shipments cannot
// both pass on the same birds after commit.
func (s *Service) CreateLive(ctx context.Context, req LiveShipmentRequest, actorID int64) (*LiveResult, error) {
	var result LiveResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		name, err := tx.CustomerName(ctx, req.CustomerID)
		if err != nil {
			return mapLookupErr(err, "customer", req.CustomerID)
		}
		if err := s.checkLocation(ctx, tx, req.LocationID); err != nil {
			return err
		}
		if err := guardStock(ctx, tx, req.LocationID, req.BirdCount, 0); err != nil {
			return err
		}

		sh := liveFromRequest(req, name)
		sh.ComputeAmounts()
		if err := tx.InsertLive(ctx, sh); err != nil {
			return err
		}

		inv, err := invoices.MergeShipment(ctx, tx.Invoices(), s.loc, invoices.MergeInput{
			CustomerID: sh.CustomerID,
			Date:       sh.Date,
			Type:       invoices.TypeLive,
			Expense:    sh.ExpenseAmount,
			Lines:      sh.InvoiceLines(),
		})
		if err != nil {
			return err
		}
		sh.InvoiceID = &inv.ID
		if err := tx.UpdateLive(ctx, sh); err != nil {
			return err
		}
		result = LiveResult{Shipment: sh, InvoiceID: inv.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "shipment.create_live", result.Shipment.ID)
	return &result, nil
}

// UpdateLive rewrites a live shipment. When the customer or day changes the
// record moves invoices: it is removed from the old one (which dies if it was
// an empty draft) and merged into the right one.
func (s *Service) UpdateLive(ctx context.Context, id int64, req LiveShipmentRequest, actorID int64) (*LiveResult, error) {
	var result LiveResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetLiveForUpdate(ctx, id)
		if err != nil {
			return mapLookupErr(err, "shipment", id)
		}
		name, err := tx.CustomerName(ctx, req.CustomerID)
		if err != nil {
			return mapLookupErr(err, "customer", req.CustomerID)
		}
		if err := s.checkLocation(ctx, tx, req.LocationID); err != nil {
			return err
		}

		// Editing within the same location gives the old count back to the
		// pool before the guard runs; moving locations does not.
		restored := 0
		if req.LocationID == old.LocationID {
			restored = old.BirdCount
		}
		if err := guardStock(ctx, tx, req.LocationID, req.BirdCount, restored); err != nil {
			return err
		}

		sh := liveFromRequest(req, name)
		sh.ID = old.ID
		sh.CreatedAt = old.CreatedAt
		sh.ComputeAmounts()

		sameBucket := old.CustomerID == req.CustomerID && s.sameDay(old.Date, req.Date)
		if sameBucket && old.InvoiceID != nil {
			inv, err := invoices.ReplaceShipmentLines(ctx, tx.Invoices(), *old.InvoiceID,
				invoices.SourceLive, sh.ID, sh.ExpenseAmount-old.ExpenseAmount, sh.InvoiceLines())
			if err != nil {
				return err
			}
			sh.InvoiceID = old.InvoiceID
			if err := tx.UpdateLive(ctx, sh); err != nil {
				return err
			}
			result = LiveResult{Shipment: sh, InvoiceID: inv.ID}
			return nil
		}

		// Bucket move. Unlink first so an emptied draft can actually be
		// deleted under the foreign key.
		sh.InvoiceID = nil
		if err := tx.UpdateLive(ctx, sh); err != nil {
			return err
		}
		if old.InvoiceID != nil {
			if _, _, err := invoices.RemoveShipmentLines(ctx, tx.Invoices(), *old.InvoiceID,
				invoices.SourceLive, sh.ID, old.ExpenseAmount); err != nil {
				return err
			}
		}
		inv, err := invoices.MergeShipment(ctx, tx.Invoices(), s.loc, invoices.MergeInput{
			CustomerID: sh.CustomerID,
			Date:       sh.Date,
			Type:       invoices.TypeLive,
			Expense:    sh.ExpenseAmount,
			Lines:      sh.InvoiceLines(),
		})
		if err != nil {
			return err
		}
		sh.InvoiceID = &inv.ID
		if err := tx.UpdateLive(ctx, sh); err != nil {
			return err
		}
		result = LiveResult{Shipment: sh, InvoiceID: inv.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "shipment.update_live", id)
	return &result, nil
}

// DeleteLive removes a live shipment and detaches it from its invoice. The
// invoice itself is deleted only when the shipment was the sole contributor
// and the invoice was still a draft.
func (s *Service) DeleteLive(ctx context.Context, id int64, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetLiveForUpdate(ctx, id)
		if err != nil {
			return mapLookupErr(err, "shipment", id)
		}
		if err := tx.DeleteLive(ctx, id); err != nil {
			return err
		}
		if old.InvoiceID == nil {
			return nil
		}
		_, _, err = invoices.RemoveShipmentLines(ctx, tx.Invoices(), *old.InvoiceID,
			invoices.SourceLive, id, old.ExpenseAmount)
		return err
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "shipment.delete_live", id)
	return nil
}

// GetLive loads one live shipment.
func (s *Service) GetLive(ctx context.Context, id int64) (*LiveShipment, error) {
	sh, err := s.repo.GetLive(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "shipment", id)
	}
	return sh, nil
}

// ListLive returns live shipments matching the filter.
func (s *Service) ListLive(ctx context.Context, req ListRequest) ([]LiveShipment, error) {
	return s.repo.ListLive(ctx, req)
}

// CreateMeat books a processed meat shipment. No stock guard applies: meat
// inventory is outside the live bird pool.
func (s *Service) CreateMeat(ctx context.Context, req MeatShipmentRequest, actorID int64) (*MeatResult, error) {
	var result MeatResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		name, err := tx.CustomerName(ctx, req.CustomerID)
		if err != nil {
			return mapLookupErr(err, "customer", req.CustomerID)
		}
		sh, err := s.meatFromRequest(ctx, tx, req, name)
		if err != nil {
			return err
		}
		if err := tx.InsertMeat(ctx, sh); err != nil {
			return err
		}

		inv, err := invoices.MergeShipment(ctx, tx.Invoices(), s.loc, invoices.MergeInput{
			CustomerID: sh.CustomerID,
			Date:       sh.Date,
			Type:       invoices.TypeMeat,
			Expense:    sh.ExpenseAmount,
			Lines:      sh.InvoiceLines(),
		})
		if err != nil {
			return err
		}
		sh.InvoiceID = &inv.ID
		if err := tx.UpdateMeat(ctx, sh); err != nil {
			return err
		}
		result = MeatResult{Shipment: sh, InvoiceID: inv.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "shipment.create_meat", result.Shipment.ID)
	return &result, nil
}

// UpdateMeat rewrites a meat shipment, moving it between invoices when the
// customer or day changed.
func (s *Service) UpdateMeat(ctx context.Context, id int64, req MeatShipmentRequest, actorID int64) (*MeatResult, error) {
	var result MeatResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetMeatForUpdate(ctx, id)
		if err != nil {
			return mapLookupErr(err, "shipment", id)
		}
		name, err := tx.CustomerName(ctx, req.CustomerID)
		if err != nil {
			return mapLookupErr(err, "customer", req.CustomerID)
		}
		sh, err := s.meatFromRequest(ctx, tx, req, name)
		if err != nil {
			return err
		}
		sh.ID = old.ID
		sh.CreatedAt = old.CreatedAt

		sameBucket := old.CustomerID == req.CustomerID && s.sameDay(old.Date, req.Date)
		if sameBucket && old.InvoiceID != nil {
			inv, err := invoices.ReplaceShipmentLines(ctx, tx.Invoices(), *old.InvoiceID,
				invoices.SourceMeat, sh.ID, sh.ExpenseAmount-old.ExpenseAmount, sh.InvoiceLines())
			if err != nil {
				return err
			}
			sh.InvoiceID = old.InvoiceID
			if err := tx.UpdateMeat(ctx, sh); err != nil {
				return err
			}
			result = MeatResult{Shipment: sh, InvoiceID: inv.ID}
			return nil
		}

		sh.InvoiceID = nil
		if err := tx.UpdateMeat(ctx, sh); err != nil {
			return err
		}
		if old.InvoiceID != nil {
			if _, _, err := invoices.RemoveShipmentLines(ctx, tx.Invoices(), *old.InvoiceID,
				invoices.SourceMeat, sh.ID, old.ExpenseAmount); err != nil {
				return err
			}
		}
		inv, err := invoices.MergeShipment(ctx, tx.Invoices(), s.loc, invoices.MergeInput{
			CustomerID: sh.CustomerID,
			Date:       sh.Date,
			Type:       invoices.TypeMeat,
			Expense:    sh.ExpenseAmount,
			Lines:      sh.InvoiceLines(),
		})
		if err != nil {
			return err
		}
		sh.InvoiceID = &inv.ID
		if err := tx.UpdateMeat(ctx, sh); err != nil {
			return err
		}
		result = MeatResult{Shipment: sh, InvoiceID: inv.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "shipment.update_meat", id)
	return &result, nil
}

// DeleteMeat removes a meat shipment and detaches it from its invoice.
func (s *Service) DeleteMeat(ctx context.Context, id int64, actorID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		old, err := tx.GetMeatForUpdate(ctx, id)
		if err != nil {
			return mapLookupErr(err, "shipment", id)
		}
		if err := tx.DeleteMeat(ctx, id); err != nil {
			return err
		}
		if old.InvoiceID == nil {
			return nil
		}
		_, _, err = invoices.RemoveShipmentLines(ctx, tx.Invoices(), *old.InvoiceID,
			invoices.SourceMeat, id, old.ExpenseAmount)
		return err
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "shipment.delete_meat", id)
	return nil
}

// GetMeat loads one meat shipment with its items.
func (s *Service) GetMeat(ctx context.Context, id int64) (*MeatShipment, error) {
	sh, err := s.repo.GetMeat(ctx, id)
	if err != nil {
		return nil, mapLookupErr(err, "shipment", id)
	}
	return sh, nil
}

// ListMeat returns meat shipments matching the filter.
func (s *Service) ListMeat(ctx context.Context, req ListRequest) ([]MeatShipment, error) {
	return s.repo.ListMeat(ctx, req)
}

func (s *Service) sameDay(a, b time.Time) bool {
	startA, _ := invoices.DayBounds(a, s.loc)
	startB, _ := invoices.DayBounds(b, s.loc)
	return startA.Equal(startB)
}

func (s *Service) checkLocation(ctx context.Context, tx TxRepository, locationID int64) error {
	exists, err := tx.LocationExists(ctx, locationID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: location %d", httpx.ErrNotFound, locationID)
	}
	return nil
}

func (s *Service) meatFromRequest(ctx context.Context, tx TxRepository, req MeatShipmentRequest, customerName string) (*MeatShipment, error) {
	sh := &MeatShipment{
		Date:          req.Date,
		CustomerID:    req.CustomerID,
		CustomerName:  customerName,
		ExpenseAmount: req.Expense,
		Note:          req.Note,
		Items:         make([]MeatLineItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		typeName, err := tx.MeatTypeName(ctx, item.MeatTypeID)
		if err != nil {
			return nil, mapLookupErr(err, "meat type", item.MeatTypeID)
		}
		sh.Items = append(sh.Items, MeatLineItem{
			MeatTypeID:   item.MeatTypeID,
			MeatTypeName: typeName,
			Qty:          item.Qty,
			UnitPrice:    item.UnitPrice,
		})
	}
	sh.ComputeAmounts()
	return sh, nil
}

func liveFromRequest(req LiveShipmentRequest, customerName string) *LiveShipment {
	return &LiveShipment{
		LocationID:    req.LocationID,
		Date:          req.Date,
		CustomerID:    req.CustomerID,
		CustomerName:  customerName,
		BirdCount:     req.BirdCount,
		TotalWeight:   req.TotalWeight,
		SizeClass:     req.SizeClass,
		PricePerKg:    req.PricePerKg,
		Plucked:       req.Plucked,
		PluckingPrice: req.PluckingPrice,
		ExpenseAmount: req.Expense,
	}
}

func guardStock(ctx context.Context, tx TxRepository, locationID int64, requested, restored int) error {
	err := stock.Guard(ctx, tx.Stock(), locationID, requested, restored)
	var insufficient *stock.InsufficientStockError
	if errors.As(err, &insufficient) {
		return httpx.BusinessRule(insufficient.Error())
	}
	return err
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, shipmentID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "shipment",
		EntityID: strconv.FormatInt(shipmentID, 10),
		At:       time.Now(),
	})
}

func mapLookupErr(err error, entity string, id int64) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s %d", httpx.ErrNotFound, entity, id)
	}
	return err
}
