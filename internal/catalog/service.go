package catalog

import (
	"context"

	"golang.org/x/text/currency"

	"github.com/marisol-pos/marisol/internal/shared"
)

// Service wraps catalog management rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, id int64) (*Item, error) {
	if id <= 0 {
		return nil, shared.Validationf("invalid item id")
	}
	return s.repo.Get(ctx, id)
}

// List returns catalog entries ordered by display position.
func (s *Service) List(ctx context.Context, req ListItemsRequest) ([]Item, int, error) {
	return s.repo.List(ctx, req)
}

// Create registers a new sellable item.
func (s *Service) Create(ctx context.Context, req CreateItemRequest) (*Item, error) {
	if req.UnitPrice.IsNegative() {
		return nil, shared.Validationf("unit price must not be negative")
	}
	if req.TierPrice != nil && req.TierPrice.IsNegative() {
		return nil, shared.Validationf("tier price must not be negative")
	}
	if _, err := currency.ParseISO(req.Currency); err != nil {
		return nil, shared.Validationf("unknown currency code %q", req.Currency)
	}
	stock, err := StockFromDB(req.Stock)
	if err != nil {
		return nil, shared.Validationf("stock must be -1 (unlimited) or >= 0")
	}

	item := Item{
		Name:      req.Name,
		Category:  req.Category,
		UnitPrice: req.UnitPrice,
		TierPrice: req.TierPrice,
		Currency:  req.Currency,
		Stock:     stock,
		Position:  req.Position,
		IsActive:  true,
	}
	id, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// Update edits catalog fields. Counters are out of reach here on purpose:
// only the sale, void and edit services may move stock and sold.
func (s *Service) Update(ctx context.Context, id int64, req UpdateItemRequest) (*Item, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Category != nil {
		existing.Category = *req.Category
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, shared.Validationf("unit price must not be negative")
		}
		existing.UnitPrice = *req.UnitPrice
	}
	if req.TierPrice != nil {
		if req.TierPrice.IsNegative() {
			return nil, shared.Validationf("tier price must not be negative")
		}
		existing.TierPrice = req.TierPrice
	}
	if req.IsActive != nil {
		existing.IsActive = *req.IsActive
	}
	if req.Position != nil {
		existing.Position = *req.Position
	}

	if err := s.repo.Update(ctx, id, *existing); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}
