package product

import (
	"time"

	"github.com/google/uuid"

	"github.com/nmoralesdev/storefront-backend/pkg/db/models"
	"github.com/nmoralesdev/storefront-backend/pkg/pagination"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Brand       *string     `json:"brand,omitempty"`
	ImageURL    *string     `json:"image_url,omitempty"`
	PriceCents  int64       `json:"price_cents"`
	Stock       int         `json:"stock"`
	IsActive    bool        `json:"is_active"`
	IsFeatured  bool        `json:"is_featured"`
	Rating      float64     `json:"rating"`
	NumReviews  int         `json:"num_reviews"`
	Reviews     []ReviewDTO `json:"reviews,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ReviewDTO exposes a customer review.
type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// ProductListResult pairs a page of products with its pagination metadata.
type ProductListResult struct {
	Products []ProductDTO    `json:"products"`
	Meta     pagination.Meta `json:"meta"`
}

// NewProductDTO builds a DTO from the persisted model.
func NewProductDTO(row *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Category:    string(row.Category),
		Brand:       row.Brand,
		ImageURL:    row.ImageURL,
		PriceCents:  row.PriceCents,
		Stock:       row.Stock,
		IsActive:    row.IsActive,
		IsFeatured:  row.IsFeatured,
		Rating:      row.Rating,
		NumReviews:  row.NumReviews,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	for _, review := range row.Reviews {
		dto.Reviews = append(dto.Reviews, ReviewDTO{
			ID:        review.ID,
			UserID:    review.UserID,
			UserName:  review.UserName,
			Rating:    review.Rating,
			Comment:   review.Comment,
			CreatedAt: review.CreatedAt,
		})
	}
	return dto
}
