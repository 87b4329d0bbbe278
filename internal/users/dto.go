package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/nmoralesdev/storefront-backend/pkg/db/models"
	"github.com/nmoralesdev/storefront-backend/pkg/pagination"
)

// UserDTO is the user payload returned to clients. Password material never
// leaves the service layer.
type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// UserListResult pairs a page of users with its pagination metadata.
type UserListResult struct {
	Users []UserDTO       `json:"users"`
	Meta  pagination.Meta `json:"meta"`
}

// NewUserDTO builds a DTO from the persisted model.
func NewUserDTO(row *models.User) *UserDTO {
	return &UserDTO{
		ID:          row.ID,
		Email:       row.Email,
		Name:        row.Name,
		Role:        string(row.Role),
		IsActive:    row.IsActive,
		LastLoginAt: row.LastLoginAt,
		CreatedAt:   row.CreatedAt,
	}
}
