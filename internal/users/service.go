package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nmoralesdev/storefront-backend/pkg/config"
	"github.com/nmoralesdev/storefront-backend/pkg/db"
	"github.com/nmoralesdev/storefront-backend/pkg/enums"
	pkgerrors "github.com/nmoralesdev/storefront-backend/pkg/errors"
	"github.com/nmoralesdev/storefront-backend/pkg/pagination"
	"github.com/nmoralesdev/storefront-backend/pkg/security"
)

// Service exposes profile and admin user management operations.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error)
	ListUsers(ctx context.Context, page pagination.Params) (*UserListResult, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateUser(ctx context.Context, userID uuid.UUID, input AdminUpdateInput) (*UserDTO, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

// UpdateProfileInput holds the self-service profile mutation.
type UpdateProfileInput struct {
	Name     *string
	Password *string
}

// AdminUpdateInput holds the admin-only user mutation.
type AdminUpdateInput struct {
	Name     *string
	Role     *enums.UserRole
	IsActive *bool
}

type service struct {
	repo        *Repository
	passwordCfg config.PasswordConfig
}

// NewService constructs the user service.
func NewService(repo *Repository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	return s.GetUser(ctx, userID)
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*UserDTO, error) {
	row, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		row.Name = name
	}
	if input.Password != nil {
		hash, err := security.HashPassword(*input.Password, s.passwordCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid password")
		}
		row.PasswordHash = hash
	}

	saved, err := s.repo.Save(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating user")
	}
	return NewUserDTO(saved), nil
}

func (s *service) ListUsers(ctx context.Context, page pagination.Params) (*UserListResult, error) {
	rows, total, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing users")
	}

	result := &UserListResult{
		Users: make([]UserDTO, 0, len(rows)),
		Meta:  pagination.BuildMeta(page, total),
	}
	for i := range rows {
		result.Users = append(result.Users, *NewUserDTO(&rows[i]))
	}
	return result, nil
}

func (s *service) GetUser(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	row, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}
	return NewUserDTO(row), nil
}

func (s *service) UpdateUser(ctx context.Context, userID uuid.UUID, input AdminUpdateInput) (*UserDTO, error) {
	row, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading user")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		row.Name = name
	}
	if input.Role != nil {
		if !input.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown role %q", *input.Role))
		}
		row.Role = *input.Role
	}
	if input.IsActive != nil {
		row.IsActive = *input.IsActive
	}

	saved, err := s.repo.Save(ctx, row)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating user")
	}
	return NewUserDTO(saved), nil
}

func (s *service) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Delete(ctx, userID); err != nil {
		if IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "user has related records")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting user")
	}
	return nil
}
