package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nmoralesdev/storefront-backend/pkg/enums"
	"github.com/nmoralesdev/storefront-backend/pkg/types"
)

// Order is the customer order with authoritative server-computed pricing.
// Line items snapshot product name and price at checkout time so later catalog
// edits never change what the customer was billed.
type Order struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Status          enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentMethod   enums.PaymentMethod  `gorm:"column:payment_method;type:text;not null"`
	ShippingAddress types.Address        `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	ItemsPriceCents int64                `gorm:"column:items_price_cents;not null"`
	TaxPriceCents   int64                `gorm:"column:tax_price_cents;not null"`
	ShippingCents   int64                `gorm:"column:shipping_price_cents;not null"`
	TotalCents      int64                `gorm:"column:total_price_cents;not null"`
	IsPaid          bool                 `gorm:"column:is_paid;not null;default:false"`
	PaidAt          *time.Time           `gorm:"column:paid_at"`
	PaymentResult   *types.PaymentResult `gorm:"column:payment_result;type:jsonb;serializer:json"`
	IsDelivered     bool                 `gorm:"column:is_delivered;not null;default:false"`
	DeliveredAt     *time.Time           `gorm:"column:delivered_at"`
	TrackingNumber  *string              `gorm:"column:tracking_number"`
	Notes           *string              `gorm:"column:notes"`
	CanceledAt      *time.Time           `gorm:"column:canceled_at"`
	Items           []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the ID so callers see it without a round trip.
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
