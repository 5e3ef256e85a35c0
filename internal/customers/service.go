package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternaklink/ternaklink/internal/platform/httpx"
)

// RepositoryPort defines data access methods for customers.
type RepositoryPort interface {
	Create(ctx context.Context, name, phone, address string) (*Customer, error)
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error)
	Outstanding(ctx context.Context, id int64) (*OutstandingSummary, error)
}

// Service handles customer business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Create registers a new customer.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}
	return s.repo.Create(ctx, name, strings.TrimSpace(req.Phone), strings.TrimSpace(req.Address))
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id int64) (*Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

// List returns customers matching the filter.
func (s *Service) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	return s.repo.List(ctx, req)
}

// Update applies partial changes to a customer.
func (s *Service) Update(ctx context.Context, id int64, req UpdateCustomerRequest) (*Customer, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be blank", httpx.ErrValidation)
	}
	c, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

// Outstanding returns the customer's open receivables summary.
func (s *Service) Outstanding(ctx context.Context, id int64) (*OutstandingSummary, error) {
	sum, err := s.repo.Outstanding(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return sum, nil
}

func mapErr(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: customer", httpx.ErrNotFound)
	}
	return err
}
