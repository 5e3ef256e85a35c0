package stock

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/ternaklink/ternaklink/internal/platform/httpx"
)

// RepositoryPort defines data access methods for stock.
type RepositoryPort interface {
	Availability(ctx context.Context, locationID int64) (Availability, error)
	CreateReceipt(ctx context.Context, in RecordInput) (*BirdReceipt, error)
	CreateDeath(ctx context.Context, in RecordInput) (*BirdDeath, error)
	ListReceipts(ctx context.Context, locationID int64, limit int) ([]BirdReceipt, error)
	ListDeaths(ctx context.Context, locationID int64, limit int) ([]BirdDeath, error)
}

// LocationPort verifies a location exists before stock is booked against it.
type LocationPort interface {
	LocationExists(ctx context.Context, id int64) (bool, error)
}

// Service coordinates stock records and availability reads.
type Service struct {
	repo      RepositoryPort
	locations LocationPort
	group     singleflight.Group
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, locations LocationPort) *Service {
	return &Service{repo: repo, locations: locations}
}

// Availability returns the current guard view for a location. Concurrent
// identical reads are collapsed; results are never cached beyond the call.
func (s *Service) Availability(ctx context.Context, locationID int64) (Availability, error) {
	if locationID <= 0 {
		return Availability{}, fmt.Errorf("%w: location id required", httpx.ErrValidation)
	}
	// The deduped read runs detached from the first caller's context so its
	// cancellation cannot fail the callers sharing the result.
	readCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(strconv.FormatInt(locationID, 10), func() (any, error) {
		return s.repo.Availability(readCtx, locationID)
	})
	if err != nil {
		return Availability{}, err
	}
	return v.(Availability), nil
}

// RecordReceipt books arriving birds.
func (s *Service) RecordReceipt(ctx context.Context, in RecordInput) (*BirdReceipt, error) {
	if err := s.checkRecord(ctx, in); err != nil {
		return nil, err
	}
	return s.repo.CreateReceipt(ctx, in)
}

// RecordDeath books lost birds. The count may exceed nothing: losses are taken
// at face value even when they push the computed availability negative.
func (s *Service) RecordDeath(ctx context.Context, in RecordInput) (*BirdDeath, error) {
	if err := s.checkRecord(ctx, in); err != nil {
		return nil, err
	}
	return s.repo.CreateDeath(ctx, in)
}

// ListReceipts returns recent receipts for a location.
func (s *Service) ListReceipts(ctx context.Context, locationID int64, limit int) ([]BirdReceipt, error) {
	return s.repo.ListReceipts(ctx, locationID, limit)
}

// ListDeaths returns recent death records for a location.
func (s *Service) ListDeaths(ctx context.Context, locationID int64, limit int) ([]BirdDeath, error) {
	return s.repo.ListDeaths(ctx, locationID, limit)
}

func (s *Service) checkRecord(ctx context.Context, in RecordInput) error {
	if in.LocationID <= 0 {
		return fmt.Errorf("%w: location id required", httpx.ErrValidation)
	}
	if in.BirdCount <= 0 {
		return fmt.Errorf("%w: bird count must be positive", httpx.ErrValidation)
	}
	if in.Date.IsZero() {
		return fmt.Errorf("%w: date required", httpx.ErrValidation)
	}
	exists, err := s.locations.LocationExists(ctx, in.LocationID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: location %d", httpx.ErrNotFound, in.LocationID)
	}
	return nil
}

// Guard evaluates a requested live shipment count against availability read
// through the given repository (usually transaction bound). restored is added
// back before the check so that editing a shipment down never falsely fails.
func Guard(ctx context.Context, repo RepositoryPort, locationID int64, requested, restored int) error {
	a, err := repo.Availability(ctx, locationID)
	if err != nil {
		return err
	}
	available := a.Available + restored
	if requested > available {
		return &InsufficientStockError{Requested: requested, Available: available}
	}
	return nil
}
