package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nmoralesdev/storefront-backend/pkg/db"
	"github.com/nmoralesdev/storefront-backend/pkg/db/models"
	"github.com/nmoralesdev/storefront-backend/pkg/enums"
	pkgerrors "github.com/nmoralesdev/storefront-backend/pkg/errors"
	"github.com/nmoralesdev/storefront-backend/pkg/pagination"
)

const featuredLimit = 8

// Service exposes catalog management and browsing operations.
type Service interface {
	ListProducts(ctx context.Context, filter ListFilter, page pagination.Params) (*ProductListResult, error)
	ListFeatured(ctx context.Context) ([]ProductDTO, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, productID uuid.UUID) error
	AddReview(ctx context.Context, productID uuid.UUID, input ReviewInput) (*ProductDTO, error)
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Description string
	Category    enums.ProductCategory
	Brand       *string
	ImageURL    *string
	PriceCents  int64
	Stock       int
	IsActive    bool
	IsFeatured  bool
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Category    *enums.ProductCategory
	Brand       *string
	ImageURL    *string
	PriceCents  *int64
	Stock       *int
	IsActive    *bool
	IsFeatured  *bool
}

// ReviewInput carries a customer's review submission.
type ReviewInput struct {
	UserID   uuid.UUID
	UserName string
	Rating   int
	Comment  string
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs the catalog service.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter, page pagination.Params) (*ProductListResult, error) {
	if filter.Category != nil && !filter.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown category %q", *filter.Category))
	}

	rows, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing products")
	}

	result := &ProductListResult{
		Products: make([]ProductDTO, 0, len(rows)),
		Meta:     pagination.BuildMeta(page, total),
	}
	for i := range rows {
		result.Products = append(result.Products, *NewProductDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) ListFeatured(ctx context.Context) ([]ProductDTO, error) {
	featured := true
	active := true
	rows, _, err := s.repo.List(ctx, ListFilter{Featured: &featured, Active: &active}, pagination.Params{Limit: featuredLimit})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing featured products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewProductDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	row, err := s.repo.FindByIDWithReviews(ctx, productID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}
	return NewProductDTO(row), nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	row := &models.Product{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Brand:       input.Brand,
		ImageURL:    input.ImageURL,
		PriceCents:  input.PriceCents,
		Stock:       input.Stock,
		IsActive:    input.IsActive,
		IsFeatured:  input.IsFeatured,
	}
	created, err := s.repo.Create(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating product")
	}
	return NewProductDTO(created), nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	row, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}

	if err := applyUpdate(row, input); err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product")
	}
	return NewProductDTO(saved), nil
}

func (s *service) DeleteProduct(ctx context.Context, productID uuid.UUID) error {
	if err := s.repo.Delete(ctx, productID); err != nil {
		if IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting product")
	}
	return nil
}

func (s *service) AddReview(ctx context.Context, productID uuid.UUID, input ReviewInput) (*ProductDTO, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rating must be between 1 and 5")
	}
	if strings.TrimSpace(input.Comment) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "comment is required")
	}

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByID(ctx, productID); err != nil {
			if IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
		}

		review := &models.Review{
			ProductID: productID,
			UserID:    input.UserID,
			UserName:  input.UserName,
			Rating:    input.Rating,
			Comment:   strings.TrimSpace(input.Comment),
		}
		if _, err := repo.CreateReview(ctx, review); err != nil {
			if db.IsUniqueViolation(err, "idx_reviews_product_user") {
				return pkgerrors.New(pkgerrors.CodeConflict, "product already reviewed")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating review")
		}

		if err := repo.RefreshRating(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refreshing product rating")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, productID)
}

func validateCreateInput(input CreateProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if !input.Category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown category %q", input.Category))
	}
	if input.PriceCents < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	return nil
}

func applyUpdate(row *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		row.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		if strings.TrimSpace(*input.Description) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "description is required")
		}
		row.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		if !input.Category.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown category %q", *input.Category))
		}
		row.Category = *input.Category
	}
	if input.Brand != nil {
		row.Brand = input.Brand
	}
	if input.ImageURL != nil {
		row.ImageURL = input.ImageURL
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		row.PriceCents = *input.PriceCents
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
		}
		row.Stock = *input.Stock
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}
	if input.IsFeatured != nil {
		row.IsFeatured = *input.IsFeatured
	}
	return nil
}
