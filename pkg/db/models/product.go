package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nmoralesdev/storefront-backend/pkg/enums"
)

// Product represents a catalog listing.
type Product struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string                `gorm:"column:name;not null"`
	Description string                `gorm:"column:description;not null"`
	Category    enums.ProductCategory `gorm:"column:category;type:text;not null"`
	Brand       *string               `gorm:"column:brand"`
	ImageURL    *string               `gorm:"column:image_url"`
	PriceCents  int64                 `gorm:"column:price_cents;not null"`
	Stock       int                   `gorm:"column:stock;not null;default:0"`
	IsActive    bool                  `gorm:"column:is_active;not null;default:true"`
	IsFeatured  bool                  `gorm:"column:is_featured;not null;default:false"`
	Rating      float64               `gorm:"column:rating;not null;default:0"`
	NumReviews  int                   `gorm:"column:num_reviews;not null;default:0"`
	Reviews     []Review              `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the ID so callers see it without a round trip.
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
