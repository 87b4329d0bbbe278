package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/nmoralesdev/storefront-backend/pkg/db/models"
	"github.com/nmoralesdev/storefront-backend/pkg/pagination"
	"github.com/nmoralesdev/storefront-backend/pkg/types"
)

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	ID              uuid.UUID            `json:"id"`
	UserID          uuid.UUID            `json:"user_id"`
	Status          string               `json:"status"`
	PaymentMethod   string               `json:"payment_method"`
	ShippingAddress types.Address        `json:"shipping_address"`
	Items           []OrderItemDTO       `json:"items"`
	ItemsPriceCents int64                `json:"items_price_cents"`
	TaxPriceCents   int64                `json:"tax_price_cents"`
	ShippingCents   int64                `json:"shipping_price_cents"`
	TotalCents      int64                `json:"total_price_cents"`
	IsPaid          bool                 `json:"is_paid"`
	PaidAt          *time.Time           `json:"paid_at,omitempty"`
	PaymentResult   *types.PaymentResult `json:"payment_result,omitempty"`
	IsDelivered     bool                 `json:"is_delivered"`
	DeliveredAt     *time.Time           `json:"delivered_at,omitempty"`
	TrackingNumber  *string              `json:"tracking_number,omitempty"`
	Notes           *string              `json:"notes,omitempty"`
	CanceledAt      *time.Time           `json:"canceled_at,omitempty"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// OrderItemDTO exposes one snapshotted order line.
type OrderItemDTO struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	ImageURL       *string   `json:"image_url,omitempty"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int64     `json:"total_cents"`
}

// OrderListResult pairs a page of orders with its pagination metadata.
type OrderListResult struct {
	Orders []OrderDTO      `json:"orders"`
	Meta   pagination.Meta `json:"meta"`
}

// NewOrderDTO builds a DTO from the persisted model.
func NewOrderDTO(row *models.Order) *OrderDTO {
	dto := &OrderDTO{
		ID:              row.ID,
		UserID:          row.UserID,
		Status:          string(row.Status),
		PaymentMethod:   string(row.PaymentMethod),
		ShippingAddress: row.ShippingAddress,
		ItemsPriceCents: row.ItemsPriceCents,
		TaxPriceCents:   row.TaxPriceCents,
		ShippingCents:   row.ShippingCents,
		TotalCents:      row.TotalCents,
		IsPaid:          row.IsPaid,
		PaidAt:          row.PaidAt,
		PaymentResult:   row.PaymentResult,
		IsDelivered:     row.IsDelivered,
		DeliveredAt:     row.DeliveredAt,
		TrackingNumber:  row.TrackingNumber,
		Notes:           row.Notes,
		CanceledAt:      row.CanceledAt,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
	for _, item := range row.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			ImageURL:       item.ImageURL,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			TotalCents:     item.TotalCents,
		})
	}
	return dto
}
