package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nmoralesdev/storefront-backend/internal/cart"
	"github.com/nmoralesdev/storefront-backend/internal/pricing"
	product "github.com/nmoralesdev/storefront-backend/internal/products"
	"github.com/nmoralesdev/storefront-backend/pkg/db/models"
	"github.com/nmoralesdev/storefront-backend/pkg/enums"
	pkgerrors "github.com/nmoralesdev/storefront-backend/pkg/errors"
	"github.com/nmoralesdev/storefront-backend/pkg/logger"
	"github.com/nmoralesdev/storefront-backend/pkg/money"
	"github.com/nmoralesdev/storefront-backend/pkg/outbox"
	"github.com/nmoralesdev/storefront-backend/pkg/outbox/payloads"
	"github.com/nmoralesdev/storefront-backend/pkg/pagination"
	"github.com/nmoralesdev/storefront-backend/pkg/types"
)

// CheckoutInput carries the validated checkout request. The cart itself is
// loaded server-side; any client-submitted totals are verified against the
// recomputed quote and rejected on mismatch.
type CheckoutInput struct {
	PaymentMethod   enums.PaymentMethod
	ShippingAddress types.Address
	Notes           *string
	ExpectedTotals  *ExpectedTotals
}

// ExpectedTotals is the price breakdown the client believes it is paying.
type ExpectedTotals struct {
	ItemsPriceCents    int64 `json:"items_price_cents"`
	TaxPriceCents      int64 `json:"tax_price_cents"`
	ShippingPriceCents int64 `json:"shipping_price_cents"`
	TotalPriceCents    int64 `json:"total_price_cents"`
}

// Actor identifies who is performing an order mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// UpdateStatusInput carries a fulfillment transition request.
type UpdateStatusInput struct {
	Status         enums.OrderStatus
	TrackingNumber *string
	Notes          *string
}

// Service exposes order placement and lifecycle operations.
type Service interface {
	Checkout(ctx context.Context, actor Actor, input CheckoutInput) (*OrderDTO, error)
	GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error)
	ListMyOrders(ctx context.Context, userID uuid.UUID, page pagination.Params) (*OrderListResult, error)
	ListOrders(ctx context.Context, filter ListFilter, page pagination.Params) (*OrderListResult, error)
	MarkPaid(ctx context.Context, actor Actor, orderID uuid.UUID, result types.PaymentResult) (*OrderDTO, error)
	UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	Load(ctx context.Context, userID uuid.UUID) ([]cart.Line, error)
	Delete(ctx context.Context, userID uuid.UUID) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo        *Repository
	productRepo *product.Repository
	carts       cartStore
	tx          txRunner
	calculator  *pricing.Calculator
	events      eventEmitter
	logg        *logger.Logger
	now         func() time.Time
}

// NewService constructs the order service.
func NewService(
	repo *Repository,
	productRepo *product.Repository,
	carts cartStore,
	tx txRunner,
	calculator *pricing.Calculator,
	events eventEmitter,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if calculator == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{
		repo:        repo,
		productRepo: productRepo,
		carts:       carts,
		tx:          tx,
		calculator:  calculator,
		events:      events,
		logg:        logg,
		now:         time.Now,
	}, nil
}

func (s *service) Checkout(ctx context.Context, actor Actor, input CheckoutInput) (*OrderDTO, error) {
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", input.PaymentMethod))
	}
	if input.ShippingAddress.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address is required")
	}

	lines, err := s.carts.Load(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}
	agg := cart.NewAggregator(lines)
	if agg.Len() == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	// Re-resolve every line against the live catalog. The cart snapshot's
	// prices are advisory; the order is billed at current prices.
	items, subtotal, err := s.resolveLines(ctx, agg.Lines())
	if err != nil {
		return nil, err
	}

	quote := s.calculator.Quote(subtotal)
	if err := verifyExpectedTotals(input.ExpectedTotals, quote); err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:          actor.UserID,
		Status:          enums.OrderStatusPending,
		PaymentMethod:   input.PaymentMethod,
		ShippingAddress: input.ShippingAddress,
		ItemsPriceCents: int64(quote.ItemsCents),
		TaxPriceCents:   int64(quote.TaxCents),
		ShippingCents:   int64(quote.ShippingCents),
		TotalCents:      int64(quote.TotalCents),
		Notes:           input.Notes,
		Items:           items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		productRepo := s.productRepo.WithTx(tx)
		for _, item := range items {
			ok, err := productRepo.DecrementStock(ctx, item.ProductID, item.Qty)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reserving stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("insufficient stock for %q", item.Name))
			}
		}

		if _, err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating order")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderCreated,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderCreatedEvent{
				OrderID:         order.ID,
				UserID:          actor.UserID,
				PaymentMethod:   order.PaymentMethod,
				ItemCount:       agg.ItemCount(),
				ItemsPriceCents: order.ItemsPriceCents,
				TotalPriceCents: order.TotalCents,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	// The order is committed; a dangling cart snapshot only means the user
	// sees stale lines until the next write.
	if err := s.carts.Delete(ctx, actor.UserID); err != nil && s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Warn(logCtx, "failed to clear cart after checkout")
	}

	return NewOrderDTO(order), nil
}

func (s *service) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDTO, error) {
	row, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if row.UserID != actor.UserID && actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	return NewOrderDTO(row), nil
}

func (s *service) ListMyOrders(ctx context.Context, userID uuid.UUID, page pagination.Params) (*OrderListResult, error) {
	return s.ListOrders(ctx, ListFilter{UserID: &userID}, page)
}

func (s *service) ListOrders(ctx context.Context, filter ListFilter, page pagination.Params) (*OrderListResult, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", *filter.Status))
	}

	rows, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing orders")
	}

	result := &OrderListResult{
		Orders: make([]OrderDTO, 0, len(rows)),
		Meta:   pagination.BuildMeta(page, total),
	}
	for i := range rows {
		result.Orders = append(result.Orders, *NewOrderDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) MarkPaid(ctx context.Context, actor Actor, orderID uuid.UUID, result types.PaymentResult) (*OrderDTO, error) {
	row, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if row.UserID != actor.UserID && actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}
	if row.Status == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cannot pay a cancelled order")
	}
	if row.IsPaid {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already paid")
	}

	paidAt := s.now()
	row.IsPaid = true
	row.PaidAt = &paidAt
	row.PaymentResult = &result

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Save(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving order")
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderPaid,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderPaidEvent{
				OrderID:         row.ID,
				UserID:          row.UserID,
				TotalPriceCents: row.TotalCents,
				PaidAt:          paidAt,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(row), nil
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID uuid.UUID, input UpdateStatusInput) (*OrderDTO, error) {
	next := input.Status
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", next))
	}

	row, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if row.UserID != actor.UserID && actor.Role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another user")
	}

	from := row.Status
	if !from.CanTransitionTo(next) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition order from %s to %s", from, next))
	}

	now := s.now()
	row.Status = next
	if input.TrackingNumber != nil {
		row.TrackingNumber = input.TrackingNumber
	}
	if input.Notes != nil {
		row.Notes = input.Notes
	}
	switch next {
	case enums.OrderStatusDelivered:
		row.IsDelivered = true
		row.DeliveredAt = &now
	case enums.OrderStatusCancelled:
		row.CanceledAt = &now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if next == enums.OrderStatusCancelled {
			productRepo := s.productRepo.WithTx(tx)
			for _, item := range row.Items {
				if err := productRepo.RestoreStock(ctx, item.ProductID, item.Qty); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "restoring stock")
				}
			}
		}

		if _, err := s.repo.WithTx(tx).Save(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "saving order")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.OutboxEventOrderStatusChanged,
			AggregateType: enums.OutboxAggregateOrder,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:    row.ID,
				UserID:     row.UserID,
				FromStatus: from,
				ToStatus:   next,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(row), nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	row, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading order")
	}
	return row, nil
}

func (s *service) resolveLines(ctx context.Context, lines []cart.Line) ([]models.OrderItem, money.Cents, error) {
	items := make([]models.OrderItem, 0, len(lines))
	var subtotal money.Cents
	for _, line := range lines {
		row, err := s.productRepo.FindByID(ctx, line.ProductID)
		if err != nil {
			if product.IsNotFound(err) {
				return nil, 0, pkgerrors.New(pkgerrors.CodeConflict,
					fmt.Sprintf("product %q is no longer available", line.Name))
			}
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
		}
		if !row.IsActive {
			return nil, 0, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("product %q is no longer available", row.Name))
		}

		lineTotal := money.Cents(row.PriceCents).Mul(line.Qty)
		subtotal += lineTotal
		items = append(items, models.OrderItem{
			ProductID:      row.ID,
			Name:           row.Name,
			ImageURL:       row.ImageURL,
			UnitPriceCents: row.PriceCents,
			Qty:            line.Qty,
			TotalCents:     int64(lineTotal),
		})
	}
	return items, subtotal, nil
}

func verifyExpectedTotals(expected *ExpectedTotals, quote pricing.Quote) error {
	if expected == nil {
		return nil
	}
	computed := ExpectedTotals{
		ItemsPriceCents:    int64(quote.ItemsCents),
		TaxPriceCents:      int64(quote.TaxCents),
		ShippingPriceCents: int64(quote.ShippingCents),
		TotalPriceCents:    int64(quote.TotalCents),
	}
	if *expected != computed {
		return pkgerrors.New(pkgerrors.CodeValidation, "submitted totals do not match server pricing").
			WithDetails(map[string]any{
				"submitted": *expected,
				"computed":  computed,
			})
	}
	return nil
}
