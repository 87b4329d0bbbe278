package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nmoralesdev/storefront-backend/pkg/db/models"
	pkgerrors "github.com/nmoralesdev/storefront-backend/pkg/errors"
	"github.com/nmoralesdev/storefront-backend/pkg/money"
)

type productLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type notFoundChecker func(error) bool

// CartDTO is the cart payload returned to clients.
type CartDTO struct {
	Lines         []Line      `json:"lines"`
	ItemCount     int         `json:"item_count"`
	SubtotalCents money.Cents `json:"subtotal_cents"`
}

// Service exposes the per-user cart operations.
type Service interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

type service struct {
	store      Store
	products   productLoader
	isNotFound notFoundChecker
}

// NewService builds a cart service over the given snapshot store and catalog.
func NewService(store Store, products productLoader, isNotFound func(error) bool) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if isNotFound == nil {
		return nil, fmt.Errorf("not-found checker required")
	}
	return &service{store: store, products: products, isNotFound: isNotFound}, nil
}

func (s *service) GetCart(ctx context.Context, userID uuid.UUID) (*CartDTO, error) {
	agg, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toDTO(agg), nil
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error) {
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	row, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if s.isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	if !row.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product is not available")
	}

	// Stock is not enforced here; the line carries it so the UI can warn.
	// Checkout is where the guarded decrement happens.
	agg, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	agg.AddLine(Line{
		ProductID:      row.ID,
		Name:           row.Name,
		ImageURL:       row.ImageURL,
		UnitPriceCents: money.Cents(row.PriceCents),
		Qty:            qty,
		Stock:          row.Stock,
	})
	if err := s.save(ctx, userID, agg); err != nil {
		return nil, err
	}
	return toDTO(agg), nil
}

func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, qty int) (*CartDTO, error) {
	agg, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	// qty <= 0 means remove, which is idempotent: an absent product is a
	// no-op, not an error.
	if !agg.SetQuantity(productID, qty) && qty > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	if err := s.save(ctx, userID, agg); err != nil {
		return nil, err
	}
	return toDTO(agg), nil
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartDTO, error) {
	agg, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	agg.RemoveLine(productID)
	if err := s.save(ctx, userID, agg); err != nil {
		return nil, err
	}
	return toDTO(agg), nil
}

func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	return nil
}

func (s *service) load(ctx context.Context, userID uuid.UUID) (*Aggregator, error) {
	lines, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	return NewAggregator(lines), nil
}

func (s *service) save(ctx context.Context, userID uuid.UUID, agg *Aggregator) error {
	if err := s.store.Save(ctx, userID, agg.Lines()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart")
	}
	return nil
}

func toDTO(agg *Aggregator) *CartDTO {
	return &CartDTO{
		Lines:         agg.Lines(),
		ItemCount:     agg.ItemCount(),
		SubtotalCents: agg.SubtotalCents(),
	}
}
