// Package payloads defines the event data carried inside outbox envelopes.
package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/nmoralesdev/storefront-backend/pkg/enums"
)

// OrderCreatedEvent signals a completed checkout.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID           `json:"order_id"`
	UserID          uuid.UUID           `json:"user_id"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	ItemCount       int                 `json:"item_count"`
	ItemsPriceCents int64               `json:"items_price_cents"`
	TotalPriceCents int64               `json:"total_price_cents"`
}

// OrderStatusChangedEvent is emitted on every fulfillment transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	UserID     uuid.UUID         `json:"user_id"`
	FromStatus enums.OrderStatus `json:"from_status"`
	ToStatus   enums.OrderStatus `json:"to_status"`
}

// OrderPaidEvent is emitted when a payment confirmation lands.
type OrderPaidEvent struct {
	OrderID         uuid.UUID `json:"order_id"`
	UserID          uuid.UUID `json:"user_id"`
	TotalPriceCents int64     `json:"total_price_cents"`
	PaidAt          time.Time `json:"paid_at"`
}
