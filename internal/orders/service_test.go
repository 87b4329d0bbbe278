package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nmoralesdev/storefront-backend/internal/cart"
	"github.com/nmoralesdev/storefront-backend/internal/pricing"
	product "github.com/nmoralesdev/storefront-backend/internal/products"
	"github.com/nmoralesdev/storefront-backend/pkg/config"
	"github.com/nmoralesdev/storefront-backend/pkg/db"
	"github.com/nmoralesdev/storefront-backend/pkg/db/models"
	"github.com/nmoralesdev/storefront-backend/pkg/enums"
	pkgerrors "github.com/nmoralesdev/storefront-backend/pkg/errors"
	"github.com/nmoralesdev/storefront-backend/pkg/logger"
	"github.com/nmoralesdev/storefront-backend/pkg/outbox"
	"github.com/nmoralesdev/storefront-backend/pkg/pagination"
	"github.com/nmoralesdev/storefront-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// Named per test so the shared-cache database is not reused across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  category TEXT NOT NULL DEFAULT 'other',
  brand TEXT,
  image_url TEXT,
  price_cents INTEGER NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_featured INTEGER NOT NULL DEFAULT 0,
  rating REAL NOT NULL DEFAULT 0,
  num_reviews INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL,
  shipping_address TEXT,
  items_price_cents INTEGER NOT NULL,
  tax_price_cents INTEGER NOT NULL,
  shipping_price_cents INTEGER NOT NULL,
  total_price_cents INTEGER NOT NULL,
  is_paid INTEGER NOT NULL DEFAULT 0,
  paid_at DATETIME,
  payment_result TEXT,
  is_delivered INTEGER NOT NULL DEFAULT 0,
  delivered_at DATETIME,
  tracking_number TEXT,
  notes TEXT,
  canceled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  image_url TEXT,
  unit_price_cents INTEGER NOT NULL,
  qty INTEGER NOT NULL,
  total_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

type testCartStore struct {
	lines   map[uuid.UUID][]cart.Line
	deleted []uuid.UUID
}

func newTestCartStore() *testCartStore {
	return &testCartStore{lines: make(map[uuid.UUID][]cart.Line)}
}

func (s *testCartStore) Load(_ context.Context, userID uuid.UUID) ([]cart.Line, error) {
	return s.lines[userID], nil
}

func (s *testCartStore) Delete(_ context.Context, userID uuid.UUID) error {
	delete(s.lines, userID)
	s.deleted = append(s.deleted, userID)
	return nil
}

type recordingEmitter struct {
	events []outbox.DomainEvent
}

func (e *recordingEmitter) Emit(_ context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if tx == nil {
		panic("emit called without transaction")
	}
	e.events = append(e.events, event)
	return nil
}

type ordersTestEnv struct {
	svc     Service
	conn    *gorm.DB
	carts   *testCartStore
	emitter *recordingEmitter
}

func buildOrdersTestEnv(t *testing.T) *ordersTestEnv {
	t.Helper()

	conn := setupOrdersTestDB(t)
	client, err := db.NewWithConn(conn)
	require.NoError(t, err)

	calculator, err := pricing.NewCalculator(config.PricingConfig{
		TaxRate:                    "0.08",
		FreeShippingThresholdCents: 5000,
		FlatShippingCents:          500,
	})
	require.NoError(t, err)

	carts := newTestCartStore()
	emitter := &recordingEmitter{}

	svc, err := NewService(
		NewRepository(conn),
		product.NewRepository(conn),
		carts,
		client,
		calculator,
		emitter,
		logger.New(logger.Options{ServiceName: "test"}),
	)
	require.NoError(t, err)

	return &ordersTestEnv{svc: svc, conn: conn, carts: carts, emitter: emitter}
}

func seedProduct(t *testing.T, conn *gorm.DB, priceCents int64, stock int) *models.Product {
	t.Helper()
	row := &models.Product{
		ID:         uuid.New(),
		Name:       "Widget",
		PriceCents: priceCents,
		Stock:      stock,
		IsActive:   true,
	}
	require.NoError(t, conn.Create(row).Error)
	return row
}

func seedOrder(t *testing.T, conn *gorm.DB, userID uuid.UUID, status enums.OrderStatus) *models.Order {
	t.Helper()
	row := &models.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          status,
		PaymentMethod:   enums.PaymentMethodCreditCard,
		ShippingAddress: testAddress(),
		ItemsPriceCents: 4500,
		TaxPriceCents:   360,
		ShippingCents:   500,
		TotalCents:      5360,
	}
	require.NoError(t, conn.Create(row).Error)
	return row
}

func testAddress() types.Address {
	return types.Address{
		Street:  "123 Main St",
		City:    "Springfield",
		State:   "IL",
		ZipCode: "62701",
		Country: "US",
	}
}

func paginationParams(page, limit int) pagination.Params {
	return pagination.Params{Page: page, Limit: limit}
}

func customer(userID uuid.UUID) Actor {
	return Actor{UserID: userID, Role: enums.UserRoleCustomer}
}

func admin() Actor {
	return Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}
}

func TestCheckoutEmptyCart(t *testing.T) {
	env := buildOrdersTestEnv(t)

	_, err := env.svc.Checkout(context.Background(), customer(uuid.New()), CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCreditCard,
		ShippingAddress: testAddress(),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, "cart is empty", typed.Message())
}

func TestCheckoutComputesTotalsFromCatalog(t *testing.T) {
	env := buildOrdersTestEnv(t)
	userID := uuid.New()

	// Cart snapshot carries a stale price; checkout bills the live 1500.
	row := seedProduct(t, env.conn, 1500, 10)
	env.carts.lines[userID] = []cart.Line{
		{ProductID: row.ID, Name: row.Name, UnitPriceCents: 999, Qty: 3},
	}

	dto, err := env.svc.Checkout(context.Background(), customer(userID), CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCreditCard,
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)

	// $45.00 items, $3.60 tax, $5.00 shipping.
	assert.EqualValues(t, 4500, dto.ItemsPriceCents)
	assert.EqualValues(t, 360, dto.TaxPriceCents)
	assert.EqualValues(t, 500, dto.ShippingCents)
	assert.EqualValues(t, 5360, dto.TotalCents)
	assert.Equal(t, string(enums.OrderStatusPending), dto.Status)

	// Stock reserved and cart cleared.
	var stock int
	require.NoError(t, env.conn.Raw("SELECT stock FROM products WHERE id = ?", row.ID).Scan(&stock).Error)
	assert.Equal(t, 7, stock)
	assert.Contains(t, env.carts.deleted, userID)

	require.Len(t, env.emitter.events, 1)
	assert.Equal(t, enums.OutboxEventOrderCreated, env.emitter.events[0].EventType)
}

func TestCheckoutFreeShippingAtThreshold(t *testing.T) {
	env := buildOrdersTestEnv(t)
	userID := uuid.New()

	row := seedProduct(t, env.conn, 2500, 10)
	env.carts.lines[userID] = []cart.Line{
		{ProductID: row.ID, Name: row.Name, UnitPriceCents: 2500, Qty: 2},
	}

	dto, err := env.svc.Checkout(context.Background(), customer(userID), CheckoutInput{
		PaymentMethod:   enums.PaymentMethodPayPal,
		ShippingAddress: testAddress(),
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, dto.ShippingCents)
	assert.EqualValues(t, 5400, dto.TotalCents)
}

func TestCheckoutRejectsMismatchedTotals(t *testing.T) {
	env := buildOrdersTestEnv(t)
	userID := uuid.New()

	row := seedProduct(t, env.conn, 1500, 10)
	env.carts.lines[userID] = []cart.Line{
		{ProductID: row.ID, Name: row.Name, UnitPriceCents: 1500, Qty: 3},
	}

	_, err := env.svc.Checkout(context.Background(), customer(userID), CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCreditCard,
		ShippingAddress: testAddress(),
		ExpectedTotals: &ExpectedTotals{
			ItemsPriceCents:    4500,
			TaxPriceCents:      360,
			ShippingPriceCents: 0, // client assumed free shipping
			TotalPriceCents:    4860,
		},
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Contains(t, typed.Details(), "submitted")
	assert.Contains(t, typed.Details(), "computed")

	// Nothing committed, no stock taken.
	var stock int
	require.NoError(t, env.conn.Raw("SELECT stock FROM products WHERE id = ?", row.ID).Scan(&stock).Error)
	assert.Equal(t, 10, stock)
	assert.Empty(t, env.emitter.events)
}

func TestCheckoutAcceptsMatchingTotals(t *testing.T) {
	env := buildOrdersTestEnv(t)
	userID := uuid.New()

	row := seedProduct(t, env.conn, 1500, 10)
	env.carts.lines[userID] = []cart.Line{
		{ProductID: row.ID, Name: row.Name, UnitPriceCents: 1500, Qty: 3},
	}

	_, err := env.svc.Checkout(context.Background(), customer(userID), CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCreditCard,
		ShippingAddress: testAddress(),
		ExpectedTotals: &ExpectedTotals{
			ItemsPriceCents:    4500,
			TaxPriceCents:      360,
			ShippingPriceCents: 500,
			TotalPriceCents:    5360,
		},
	})
	require.NoError(t, err)
}

func TestCheckoutInsufficientStockRollsBack(t *testing.T) {
	env := buildOrdersTestEnv(t)
	userID := uuid.New()

	row := seedProduct(t, env.conn, 1500, 2)
	env.carts.lines[userID] = []cart.Line{
		{ProductID: row.ID, Name: row.Name, UnitPriceCents: 1500, Qty: 3},
	}

	_, err := env.svc.Checkout(context.Background(), customer(userID), CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCreditCard,
		ShippingAddress: testAddress(),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())

	var stock int
	require.NoError(t, env.conn.Raw("SELECT stock FROM products WHERE id = ?", row.ID).Scan(&stock).Error)
	assert.Equal(t, 2, stock)

	var orderCount int64
	require.NoError(t, env.conn.Raw("SELECT COUNT(*) FROM orders").Scan(&orderCount).Error)
	assert.EqualValues(t, 0, orderCount)
}

func TestCheckoutInactiveProduct(t *testing.T) {
	env := buildOrdersTestEnv(t)
	userID := uuid.New()

	row := seedProduct(t, env.conn, 1500, 10)
	require.NoError(t, env.conn.Exec("UPDATE products SET is_active = 0 WHERE id = ?", row.ID).Error)
	env.carts.lines[userID] = []cart.Line{
		{ProductID: row.ID, Name: row.Name, UnitPriceCents: 1500, Qty: 1},
	}

	_, err := env.svc.Checkout(context.Background(), customer(userID), CheckoutInput{
		PaymentMethod:   enums.PaymentMethodCreditCard,
		ShippingAddress: testAddress(),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
}

func TestCheckoutValidatesInput(t *testing.T) {
	env := buildOrdersTestEnv(t)

	_, err := env.svc.Checkout(context.Background(), customer(uuid.New()), CheckoutInput{
		PaymentMethod:   enums.PaymentMethod("iou"),
		ShippingAddress: testAddress(),
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, err = env.svc.Checkout(context.Background(), customer(uuid.New()), CheckoutInput{
		PaymentMethod: enums.PaymentMethodCreditCard,
	})
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestGetOrderOwnership(t *testing.T) {
	env := buildOrdersTestEnv(t)
	ownerID := uuid.New()
	row := seedOrder(t, env.conn, ownerID, enums.OrderStatusPending)

	_, err := env.svc.GetOrder(context.Background(), customer(ownerID), row.ID)
	require.NoError(t, err)

	_, err = env.svc.GetOrder(context.Background(), customer(uuid.New()), row.ID)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())

	_, err = env.svc.GetOrder(context.Background(), admin(), row.ID)
	require.NoError(t, err)
}

func TestMarkPaid(t *testing.T) {
	env := buildOrdersTestEnv(t)
	ownerID := uuid.New()
	row := seedOrder(t, env.conn, ownerID, enums.OrderStatusPending)

	dto, err := env.svc.MarkPaid(context.Background(), customer(ownerID), row.ID, types.PaymentResult{
		ID:     "txn-123",
		Status: "COMPLETED",
	})
	require.NoError(t, err)
	assert.True(t, dto.IsPaid)
	require.NotNil(t, dto.PaidAt)

	require.Len(t, env.emitter.events, 1)
	assert.Equal(t, enums.OutboxEventOrderPaid, env.emitter.events[0].EventType)

	// Second payment attempt is a state conflict.
	_, err = env.svc.MarkPaid(context.Background(), customer(ownerID), row.ID, types.PaymentResult{ID: "txn-456", Status: "COMPLETED"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestMarkPaidCancelledOrder(t *testing.T) {
	env := buildOrdersTestEnv(t)
	ownerID := uuid.New()
	row := seedOrder(t, env.conn, ownerID, enums.OrderStatusCancelled)

	_, err := env.svc.MarkPaid(context.Background(), customer(ownerID), row.ID, types.PaymentResult{ID: "txn-123", Status: "COMPLETED"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestUpdateStatusForwardProgression(t *testing.T) {
	env := buildOrdersTestEnv(t)
	row := seedOrder(t, env.conn, uuid.New(), enums.OrderStatusPending)

	dto, err := env.svc.UpdateStatus(context.Background(), admin(), row.ID, UpdateStatusInput{
		Status: enums.OrderStatusShipped,
	})
	require.NoError(t, err)
	assert.Equal(t, string(enums.OrderStatusShipped), dto.Status)

	dto, err = env.svc.UpdateStatus(context.Background(), admin(), row.ID, UpdateStatusInput{
		Status: enums.OrderStatusDelivered,
	})
	require.NoError(t, err)
	assert.Equal(t, string(enums.OrderStatusDelivered), dto.Status)
	assert.True(t, dto.IsDelivered)
	require.NotNil(t, dto.DeliveredAt)

	require.Len(t, env.emitter.events, 2)
	assert.Equal(t, enums.OutboxEventOrderStatusChanged, env.emitter.events[1].EventType)
}

func TestUpdateStatusRejectsBackwardMove(t *testing.T) {
	env := buildOrdersTestEnv(t)
	row := seedOrder(t, env.conn, uuid.New(), enums.OrderStatusShipped)

	_, err := env.svc.UpdateStatus(context.Background(), admin(), row.ID, UpdateStatusInput{
		Status: enums.OrderStatusProcessing,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestUpdateStatusRejectsTerminalOrders(t *testing.T) {
	env := buildOrdersTestEnv(t)
	row := seedOrder(t, env.conn, uuid.New(), enums.OrderStatusDelivered)

	_, err := env.svc.UpdateStatus(context.Background(), admin(), row.ID, UpdateStatusInput{
		Status: enums.OrderStatusCancelled,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestUpdateStatusOwnership(t *testing.T) {
	env := buildOrdersTestEnv(t)
	ownerID := uuid.New()
	row := seedOrder(t, env.conn, ownerID, enums.OrderStatusPending)

	// A different customer cannot cancel someone else's order.
	_, err := env.svc.UpdateStatus(context.Background(), customer(uuid.New()), row.ID, UpdateStatusInput{
		Status: enums.OrderStatusCancelled,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeForbidden, typed.Code())
	assert.Empty(t, env.emitter.events)

	var status string
	require.NoError(t, env.conn.Raw("SELECT status FROM orders WHERE id = ?", row.ID).Scan(&status).Error)
	assert.Equal(t, string(enums.OrderStatusPending), status)

	// The owner can.
	dto, err := env.svc.UpdateStatus(context.Background(), customer(ownerID), row.ID, UpdateStatusInput{
		Status: enums.OrderStatusCancelled,
	})
	require.NoError(t, err)
	assert.Equal(t, string(enums.OrderStatusCancelled), dto.Status)
}

func TestCancelRestoresStock(t *testing.T) {
	env := buildOrdersTestEnv(t)
	productRow := seedProduct(t, env.conn, 1500, 5)
	orderRow := seedOrder(t, env.conn, uuid.New(), enums.OrderStatusPending)
	require.NoError(t, env.conn.Create(&models.OrderItem{
		ID:             uuid.New(),
		OrderID:        orderRow.ID,
		ProductID:      productRow.ID,
		Name:           productRow.Name,
		UnitPriceCents: 1500,
		Qty:            3,
		TotalCents:     4500,
	}).Error)

	dto, err := env.svc.UpdateStatus(context.Background(), admin(), orderRow.ID, UpdateStatusInput{
		Status: enums.OrderStatusCancelled,
	})
	require.NoError(t, err)
	assert.Equal(t, string(enums.OrderStatusCancelled), dto.Status)
	require.NotNil(t, dto.CanceledAt)

	var stock int
	require.NoError(t, env.conn.Raw("SELECT stock FROM products WHERE id = ?", productRow.ID).Scan(&stock).Error)
	assert.Equal(t, 8, stock)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	env := buildOrdersTestEnv(t)

	_, err := env.svc.UpdateStatus(context.Background(), admin(), uuid.New(), UpdateStatusInput{
		Status: enums.OrderStatusShipped,
	})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestListMyOrdersScopedToUser(t *testing.T) {
	env := buildOrdersTestEnv(t)
	ownerID := uuid.New()
	seedOrder(t, env.conn, ownerID, enums.OrderStatusPending)
	seedOrder(t, env.conn, ownerID, enums.OrderStatusShipped)
	seedOrder(t, env.conn, uuid.New(), enums.OrderStatusPending)

	result, err := env.svc.ListMyOrders(context.Background(), ownerID, paginationParams(1, 10))
	require.NoError(t, err)
	assert.Len(t, result.Orders, 2)
	assert.EqualValues(t, 2, result.Meta.TotalItems)

	// Spot check timestamps came back populated.
	assert.False(t, result.Orders[0].CreatedAt.Equal(time.Time{}))
}

func TestListOrdersStatusFilter(t *testing.T) {
	env := buildOrdersTestEnv(t)
	seedOrder(t, env.conn, uuid.New(), enums.OrderStatusPending)
	seedOrder(t, env.conn, uuid.New(), enums.OrderStatusShipped)

	status := enums.OrderStatusShipped
	result, err := env.svc.ListOrders(context.Background(), ListFilter{Status: &status}, paginationParams(1, 10))
	require.NoError(t, err)
	assert.Len(t, result.Orders, 1)
	assert.Equal(t, string(enums.OrderStatusShipped), result.Orders[0].Status)
}
